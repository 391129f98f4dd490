package contract

import (
	"encoding/binary"
	"io"
	"time"

	"golang.org/x/crypto/blake2b"
)

// Paper is a commercial-paper state: a promise by Issuer to pay FaceValue to
// whoever owns the paper at MaturityAt. Everything except the owner stays
// constant across the paper's lifecycle, so the grouping key excludes Owner.
type Paper struct {
	Issuer     PublicKey
	Owner      PublicKey
	FaceValue  Amount
	MaturityAt time.Time
}

// WithOwner returns a copy of the paper owned by newOwner. States are
// immutable; a transfer consumes the old paper and produces this one.
func (p *Paper) WithOwner(newOwner PublicKey) *Paper {
	next := *p
	next.Owner = newOwner
	return &next
}

// GroupingKey implements State. The owner is excluded, so a paper and its
// post-transfer successor share a key and are validated together.
func (p *Paper) GroupingKey() GroupingKey {
	h, _ := blake2b.New256(nil)
	h.Write([]byte("commercial_paper\x00"))
	h.Write(p.Issuer[:])
	writeAmount(h, p.FaceValue)
	h.Write([]byte(p.MaturityAt.UTC().Format(time.RFC3339Nano)))
	var k GroupingKey
	copy(k[:], h.Sum(nil))
	return k
}

// Fingerprint implements State.
func (p *Paper) Fingerprint() Digest {
	h, _ := blake2b.New256(nil)
	h.Write([]byte("commercial_paper\x00"))
	h.Write(p.Issuer[:])
	h.Write(p.Owner[:])
	writeAmount(h, p.FaceValue)
	h.Write([]byte(p.MaturityAt.UTC().Format(time.RFC3339Nano)))
	var d Digest
	copy(d[:], h.Sum(nil))
	return d
}

func writeAmount(h io.Writer, a Amount) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(a.Quantity))
	h.Write(buf[:])
	h.Write([]byte(a.Unit))
	h.Write([]byte{0})
}

// CommercialPaper is the contract governing Paper states: papers are issued,
// moved between owners, and redeemed at maturity against a payment.
type CommercialPaper struct {
	root Clause
}

// ContractOption configures a contract built by this package.
type ContractOption func(*contractConfig)

type contractConfig struct {
	settlement SettlementSource
}

// WithSettlement replaces the settlement aggregation used by the Redeem
// clause. The default accepts any single payment unit.
func WithSettlement(s SettlementSource) ContractOption {
	return func(cfg *contractConfig) { cfg.settlement = s }
}

// NewCommercialPaper builds the contract's immutable clause tree. The result
// is reusable, read-only configuration safe for concurrent Verify calls.
func NewCommercialPaper(opts ...ContractOption) *CommercialPaper {
	cfg := contractConfig{settlement: NewPaymentSum()}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &CommercialPaper{
		root: AnyOf{Clauses: []Clause{
			IssueClause{},
			MoveClause{},
			RedeemClause{Settlement: cfg.settlement},
		}},
	}
}

// Clauses exposes the root clause tree, primarily for composition in tests.
func (c *CommercialPaper) Clauses() Clause {
	return c.root
}

// Verify checks a proposed transaction against the commercial-paper clauses.
// Non-paper states (payments, notably) are left out of grouping and consumed
// only by cross-type checks. Every command in the view must be handled.
func (c *CommercialPaper) Verify(tx *TransactionView) error {
	isPaper := func(s State) bool {
		_, ok := s.(*Paper)
		return ok
	}
	return VerifyGrouped(tx, isPaper, c.root, tx.CommandKinds())
}
