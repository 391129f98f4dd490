package contract

import (
	"golang.org/x/crypto/blake2b"
)

// IOU is a bilateral obligation: Borrower owes Amount to Lender. Unlike a
// paper it is not transferable; its lifecycle is create then settle.
type IOU struct {
	Lender   PublicKey
	Borrower PublicKey
	Amount   Amount
}

// GroupingKey implements State. No IOU field mutates across its lifecycle,
// so the key covers all of them.
func (i *IOU) GroupingKey() GroupingKey {
	var k GroupingKey
	copy(k[:], i.hash())
	return k
}

// Fingerprint implements State.
func (i *IOU) Fingerprint() Digest {
	var d Digest
	copy(d[:], i.hash())
	return d
}

func (i *IOU) hash() []byte {
	h, _ := blake2b.New256(nil)
	h.Write([]byte("iou\x00"))
	h.Write(i.Lender[:])
	h.Write(i.Borrower[:])
	writeAmount(h, i.Amount)
	return h.Sum(nil)
}

// IOUContract governs IOU states. Its clause tree composes AllOf inside
// FirstOf: creation requires both a valid shape and mutual assent, while
// settlement is a single clause reusing the settlement collaborator.
type IOUContract struct {
	root Clause
}

// NewIOUContract builds the contract's immutable clause tree.
func NewIOUContract(opts ...ContractOption) *IOUContract {
	cfg := contractConfig{settlement: NewPaymentSum()}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &IOUContract{
		root: FirstOf{Clauses: []Clause{
			AllOf{Clauses: []Clause{
				IOUCreateShapeClause{},
				IOUMutualAssentClause{},
			}},
			IOUSettleClause{Settlement: cfg.settlement},
		}},
	}
}

// Clauses exposes the root clause tree.
func (c *IOUContract) Clauses() Clause {
	return c.root
}

// Verify checks a proposed transaction against the IOU clauses. Payment
// outputs are excluded from grouping and consumed by the settle clause's
// cross-type check.
func (c *IOUContract) Verify(tx *TransactionView) error {
	isIOU := func(s State) bool {
		_, ok := s.(*IOU)
		return ok
	}
	return VerifyGrouped(tx, isIOU, c.root, tx.CommandKinds())
}
