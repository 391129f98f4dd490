// Package service contains the verification business logic: it converts wire
// requests into engine views, runs the requested contract, and records the
// resulting verdict in the verdict store and the audit log.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/indenture-io/indenture/internal/auditlog"
	"github.com/indenture-io/indenture/internal/contract"
	"github.com/indenture-io/indenture/internal/verifier/model"
	"github.com/indenture-io/indenture/internal/verifier/repository"
	"github.com/indenture-io/indenture/internal/webhooks"
)

// ErrMalformed is returned when a request cannot be converted into a
// transaction view. Handlers map it to HTTP 400.
var ErrMalformed = errors.New("malformed verify request")

// ErrUnknownContract is returned for contract names the verifier does not know.
var ErrUnknownContract = errors.New("unknown contract")

// verdictRepo is the persistence interface for the verify service.
// *repository.VerdictRepository satisfies this interface.
type verdictRepo interface {
	Create(ctx context.Context, v *model.Verdict) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Verdict, error)
	GetByDigest(ctx context.Context, txDigest string) (*model.Verdict, error)
	GetByDigestAndContract(ctx context.Context, txDigest, contractName string) (*model.Verdict, error)
	List(ctx context.Context, outcome string, limit, offset int) ([]*model.Verdict, error)
	CountByOutcome(ctx context.Context) (map[string]int, error)
}

// VerdictNotifier fans out verdict events to webhook subscribers.
// *webhooks.Service satisfies this interface.
type VerdictNotifier interface {
	Dispatch(ctx context.Context, eventType string, payload map[string]string)
}

// MetricsRecorder is an optional callback for recording verdict outcomes.
type MetricsRecorder func(contractName, outcome string)

// VerifyService runs contract verification and manages verdicts.
type VerifyService struct {
	repo      verdictRepo      // nil = verdicts are not persisted
	ledger    auditlog.Ledger  // nil = no audit log writes
	notifier  VerdictNotifier  // nil = no webhook dispatch
	onMetrics MetricsRecorder  // nil = no metrics
	onAudit   func()           // nil = no metrics; fires per successful append
	paper     *contract.CommercialPaper
	iou       *contract.IOUContract
	logger    *zap.Logger
}

// NewVerifyService creates a VerifyService. settlementUnits restricts the
// currency units accepted in settlement payments; empty means any unit.
func NewVerifyService(repo verdictRepo, ledger auditlog.Ledger, settlementUnits []string, logger *zap.Logger) *VerifyService {
	settlement := contract.NewPaymentSum(settlementUnits...)
	return &VerifyService{
		repo:   repo,
		ledger: ledger,
		paper:  contract.NewCommercialPaper(contract.WithSettlement(settlement)),
		iou:    contract.NewIOUContract(contract.WithSettlement(settlement)),
		logger: logger,
	}
}

// SetNotifier configures the webhook dispatch callback.
func (s *VerifyService) SetNotifier(n VerdictNotifier) {
	s.notifier = n
}

// SetMetricsRecorder configures the metrics callback.
func (s *VerifyService) SetMetricsRecorder(fn MetricsRecorder) {
	s.onMetrics = fn
}

// SetAuditRecorder configures a callback fired once per audit entry
// actually appended to the ledger.
func (s *VerifyService) SetAuditRecorder(fn func()) {
	s.onAudit = fn
}

// Verify runs the requested contract over the submitted transaction and
// returns the verdict. Verdicts are idempotent per (transaction digest,
// contract) pair: the digest covers the view alone, so the same view
// verified under a different contract gets its own verdict.
func (s *VerifyService) Verify(ctx context.Context, req *model.VerifyRequest) (*model.Verdict, error) {
	view, err := req.ToView()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	digest := view.Digest().Hex()

	if s.repo != nil {
		existing, err := s.repo.GetByDigestAndContract(ctx, digest, req.Contract)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("lookup verdict: %w", err)
		}
	}

	var verifyErr error
	switch req.Contract {
	case model.ContractCommercialPaper:
		verifyErr = s.paper.Verify(view)
	case model.ContractIOU:
		verifyErr = s.iou.Verify(view)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownContract, req.Contract)
	}

	verdict := &model.Verdict{
		TxDigest: digest,
		Contract: req.Contract,
		Outcome:  model.OutcomeAccepted,
	}
	if verifyErr != nil {
		v, ok := contract.AsViolation(verifyErr)
		if !ok {
			return nil, fmt.Errorf("verify: %w", verifyErr)
		}
		verdict.Outcome = model.OutcomeRejected
		verdict.ViolationCode = string(v.Code)
		verdict.Reason = v.Reason
	}

	if s.repo != nil {
		if err := s.repo.Create(ctx, verdict); err != nil {
			return nil, fmt.Errorf("store verdict: %w", err)
		}
	} else {
		verdict.ID = uuid.New()
	}

	s.record(ctx, verdict)
	return verdict, nil
}

// record writes the verdict to the audit log and notifies subscribers.
// Failures here never fail the verification itself.
func (s *VerifyService) record(ctx context.Context, v *model.Verdict) {
	if s.ledger != nil {
		if _, err := s.ledger.Append(ctx, v.TxDigest, v.Contract, v.Outcome, v.ViolationCode, v); err != nil {
			s.logger.Warn("audit append failed", zap.Error(err), zap.String("tx_digest", v.TxDigest))
		} else if s.onAudit != nil {
			s.onAudit()
		}
	}

	if s.onMetrics != nil {
		s.onMetrics(v.Contract, v.Outcome)
	}

	if s.notifier != nil {
		event := webhooks.EventTransactionAccepted
		if v.Outcome == model.OutcomeRejected {
			event = webhooks.EventTransactionRejected
		}
		s.notifier.Dispatch(ctx, event, map[string]string{
			"verdict_id":     v.ID.String(),
			"tx_digest":      v.TxDigest,
			"contract":       v.Contract,
			"outcome":        v.Outcome,
			"violation_code": v.ViolationCode,
		})
	}
}

// GetVerdict returns a stored verdict by ID.
func (s *VerifyService) GetVerdict(ctx context.Context, id uuid.UUID) (*model.Verdict, error) {
	if s.repo == nil {
		return nil, repository.ErrNotFound
	}
	return s.repo.GetByID(ctx, id)
}

// GetVerdictByDigest returns the stored verdict for a transaction digest.
func (s *VerifyService) GetVerdictByDigest(ctx context.Context, digest string) (*model.Verdict, error) {
	if s.repo == nil {
		return nil, repository.ErrNotFound
	}
	return s.repo.GetByDigest(ctx, digest)
}

// ListVerdicts returns verdicts newest first, optionally filtered by outcome.
func (s *VerifyService) ListVerdicts(ctx context.Context, outcome string, limit, offset int) ([]*model.Verdict, error) {
	if s.repo == nil {
		return nil, nil
	}
	return s.repo.List(ctx, outcome, limit, offset)
}

// Stats returns verdict counts keyed by outcome.
func (s *VerifyService) Stats(ctx context.Context) (map[string]int, error) {
	if s.repo == nil {
		return map[string]int{}, nil
	}
	return s.repo.CountByOutcome(ctx)
}
