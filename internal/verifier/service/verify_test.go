package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/indenture-io/indenture/internal/auditlog"
	"github.com/indenture-io/indenture/internal/verifier/model"
	"github.com/indenture-io/indenture/internal/verifier/repository"
	"github.com/indenture-io/indenture/internal/verifier/service"
)

var ctx = context.Background()

// ── Stubs ────────────────────────────────────────────────────────────────

type fakeRepo struct {
	verdicts []*model.Verdict
}

func (f *fakeRepo) Create(_ context.Context, v *model.Verdict) error {
	v.ID = uuid.New()
	v.CreatedAt = time.Now().UTC()
	f.verdicts = append(f.verdicts, v)
	return nil
}

func (f *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Verdict, error) {
	for _, v := range f.verdicts {
		if v.ID == id {
			return v, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeRepo) GetByDigest(_ context.Context, digest string) (*model.Verdict, error) {
	for _, v := range f.verdicts {
		if v.TxDigest == digest {
			return v, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeRepo) GetByDigestAndContract(_ context.Context, digest, contractName string) (*model.Verdict, error) {
	for _, v := range f.verdicts {
		if v.TxDigest == digest && v.Contract == contractName {
			return v, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeRepo) List(_ context.Context, outcome string, _, _ int) ([]*model.Verdict, error) {
	var out []*model.Verdict
	for _, v := range f.verdicts {
		if outcome == "" || v.Outcome == outcome {
			out = append(out, v)
		}
	}
	return out, nil
}

func (f *fakeRepo) CountByOutcome(_ context.Context) (map[string]int, error) {
	counts := make(map[string]int)
	for _, v := range f.verdicts {
		counts[v.Outcome]++
	}
	return counts, nil
}

type fakeNotifier struct {
	events   []string
	payloads []map[string]string
}

func (f *fakeNotifier) Dispatch(_ context.Context, eventType string, payload map[string]string) {
	f.events = append(f.events, eventType)
	f.payloads = append(f.payloads, payload)
}

// ── Helpers ──────────────────────────────────────────────────────────────

var (
	issuerHex = strings.Repeat("aa", 32)
	aliceHex  = strings.Repeat("bb", 32)
)

// issueRequest uses a fixed maturity so repeated calls build views with
// identical digests.
func issueRequest() *model.VerifyRequest {
	maturity := time.Date(2027, time.March, 1, 0, 0, 0, 0, time.UTC)
	notAfter := maturity.Add(-time.Hour)
	return &model.VerifyRequest{
		Contract: model.ContractCommercialPaper,
		Outputs: []model.StateRecord{{
			Kind:       model.StateCommercialPaper,
			Issuer:     issuerHex,
			Owner:      issuerHex,
			FaceValue:  &model.AmountRecord{Quantity: 10000, Unit: "USD"},
			MaturityAt: &maturity,
		}},
		Commands: []model.CommandRecord{{
			Kind:    "issue",
			Signers: []string{issuerHex},
		}},
		Window: &model.WindowRecord{NotAfter: &notAfter},
	}
}

func newService(repo *fakeRepo) *service.VerifyService {
	return service.NewVerifyService(repo, auditlog.New(), []string{"USD"}, zap.NewNop())
}

// ── Tests ────────────────────────────────────────────────────────────────

func TestVerify_acceptsValidIssuance(t *testing.T) {
	svc := newService(&fakeRepo{})

	verdict, err := svc.Verify(ctx, issueRequest())
	if err != nil {
		t.Fatalf("Verify() error: %v", err)
	}
	if verdict.Outcome != model.OutcomeAccepted {
		t.Errorf("Outcome: got %q (code %q: %s), want accepted", verdict.Outcome, verdict.ViolationCode, verdict.Reason)
	}
	if verdict.TxDigest == "" {
		t.Error("expected a non-empty transaction digest")
	}
}

func TestVerify_rejectsUnsignedIssuance(t *testing.T) {
	svc := newService(&fakeRepo{})

	req := issueRequest()
	req.Commands[0].Signers = []string{aliceHex} // not the issuer

	verdict, err := svc.Verify(ctx, req)
	if err != nil {
		t.Fatalf("Verify() error: %v", err)
	}
	if verdict.Outcome != model.OutcomeRejected {
		t.Fatal("expected rejection")
	}
	if verdict.ViolationCode != "signer" {
		t.Errorf("ViolationCode: got %q, want signer", verdict.ViolationCode)
	}
	if verdict.Reason == "" {
		t.Error("expected a non-empty rejection reason")
	}
}

func TestVerify_idempotentPerDigest(t *testing.T) {
	repo := &fakeRepo{}
	svc := newService(repo)

	first, err := svc.Verify(ctx, issueRequest())
	if err != nil {
		t.Fatal(err)
	}
	second, err := svc.Verify(ctx, issueRequest())
	if err != nil {
		t.Fatal(err)
	}

	if first.ID != second.ID {
		t.Error("expected the stored verdict to be returned on re-submission")
	}
	if len(repo.verdicts) != 1 {
		t.Errorf("expected 1 stored verdict, got %d", len(repo.verdicts))
	}
}

func TestVerify_digestScopedPerContract(t *testing.T) {
	repo := &fakeRepo{}
	svc := newService(repo)

	// The same view first verified under the IOU contract is rejected:
	// "issue" has no IOU clause.
	iouReq := issueRequest()
	iouReq.Contract = model.ContractIOU
	first, err := svc.Verify(ctx, iouReq)
	if err != nil {
		t.Fatal(err)
	}
	if first.Outcome != model.OutcomeRejected || first.ViolationCode != "unsupported_command" {
		t.Fatalf("iou verdict: got (%q, %q), want rejected/unsupported_command", first.Outcome, first.ViolationCode)
	}

	// Verifying the identical view under commercial_paper must not return
	// the stored IOU rejection.
	second, err := svc.Verify(ctx, issueRequest())
	if err != nil {
		t.Fatal(err)
	}
	if second.Contract != model.ContractCommercialPaper {
		t.Errorf("Contract: got %q, want commercial_paper", second.Contract)
	}
	if second.Outcome != model.OutcomeAccepted {
		t.Errorf("Outcome: got %q (code %q: %s), want accepted", second.Outcome, second.ViolationCode, second.Reason)
	}
	if second.ID == first.ID {
		t.Error("expected a distinct verdict per contract")
	}
	if len(repo.verdicts) != 2 {
		t.Errorf("expected 2 stored verdicts, got %d", len(repo.verdicts))
	}
}

func TestVerify_unknownContract(t *testing.T) {
	svc := newService(&fakeRepo{})

	req := issueRequest()
	req.Contract = "promissory_note"

	if _, err := svc.Verify(ctx, req); !errors.Is(err, service.ErrUnknownContract) {
		t.Errorf("expected ErrUnknownContract, got %v", err)
	}
}

func TestVerify_malformedRequest(t *testing.T) {
	svc := newService(&fakeRepo{})

	req := issueRequest()
	req.Outputs[0].Issuer = "not-hex"

	if _, err := svc.Verify(ctx, req); !errors.Is(err, service.ErrMalformed) {
		t.Errorf("expected ErrMalformed, got %v", err)
	}
}

func TestVerify_dispatchesWebhookEvents(t *testing.T) {
	svc := newService(&fakeRepo{})
	notifier := &fakeNotifier{}
	svc.SetNotifier(notifier)

	if _, err := svc.Verify(ctx, issueRequest()); err != nil {
		t.Fatal(err)
	}

	req := issueRequest()
	req.Commands[0].Signers = []string{aliceHex}
	if _, err := svc.Verify(ctx, req); err != nil {
		t.Fatal(err)
	}

	if len(notifier.events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(notifier.events))
	}
	if notifier.events[0] != "transaction.accepted" {
		t.Errorf("first event: got %q, want transaction.accepted", notifier.events[0])
	}
	if notifier.events[1] != "transaction.rejected" {
		t.Errorf("second event: got %q, want transaction.rejected", notifier.events[1])
	}
	if notifier.payloads[1]["violation_code"] != "signer" {
		t.Errorf("payload violation_code: got %q, want signer", notifier.payloads[1]["violation_code"])
	}
}

func TestVerify_appendsToAuditLog(t *testing.T) {
	ledger := auditlog.New()
	svc := service.NewVerifyService(&fakeRepo{}, ledger, []string{"USD"}, zap.NewNop())

	verdict, err := svc.Verify(ctx, issueRequest())
	if err != nil {
		t.Fatal(err)
	}

	n, err := ledger.Len(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 { // genesis + 1
		t.Fatalf("expected 2 audit entries, got %d", n)
	}

	entry, err := ledger.Get(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if entry.TxDigest != verdict.TxDigest {
		t.Errorf("audit TxDigest: got %q, want %q", entry.TxDigest, verdict.TxDigest)
	}
	if entry.Outcome != auditlog.OutcomeAccepted {
		t.Errorf("audit Outcome: got %q, want accepted", entry.Outcome)
	}
	if err := ledger.Verify(ctx); err != nil {
		t.Errorf("audit chain invalid after append: %v", err)
	}
}

func TestVerify_recordsMetrics(t *testing.T) {
	svc := newService(&fakeRepo{})

	var gotContract, gotOutcome string
	svc.SetMetricsRecorder(func(contractName, outcome string) {
		gotContract, gotOutcome = contractName, outcome
	})

	if _, err := svc.Verify(ctx, issueRequest()); err != nil {
		t.Fatal(err)
	}
	if gotContract != model.ContractCommercialPaper || gotOutcome != model.OutcomeAccepted {
		t.Errorf("metrics: got (%q, %q)", gotContract, gotOutcome)
	}
}

func TestVerify_countsAuditAppendsOnly(t *testing.T) {
	svc := newService(&fakeRepo{})

	var appended int
	svc.SetAuditRecorder(func() { appended++ })

	if _, err := svc.Verify(ctx, issueRequest()); err != nil {
		t.Fatal(err)
	}
	if appended != 1 {
		t.Errorf("audit appends: got %d, want 1", appended)
	}

	// No ledger configured: the recorder must stay silent.
	bare := service.NewVerifyService(nil, nil, nil, zap.NewNop())
	appended = 0
	bare.SetAuditRecorder(func() { appended++ })
	if _, err := bare.Verify(ctx, issueRequest()); err != nil {
		t.Fatal(err)
	}
	if appended != 0 {
		t.Errorf("audit appends without a ledger: got %d, want 0", appended)
	}
}

func TestVerify_withoutRepo(t *testing.T) {
	svc := service.NewVerifyService(nil, nil, nil, zap.NewNop())

	verdict, err := svc.Verify(ctx, issueRequest())
	if err != nil {
		t.Fatal(err)
	}
	if verdict.Outcome != model.OutcomeAccepted {
		t.Errorf("Outcome: got %q, want accepted", verdict.Outcome)
	}
	if verdict.ID == uuid.Nil {
		t.Error("expected a generated verdict ID without a repo")
	}
}
