package contract

import (
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// Settlement aggregation failures. These are ordinary errors, not Violations;
// the clause that delegated the aggregation maps them onto its own violation.
var (
	// ErrNoPayments is returned when a transaction contains no payment
	// outputs payable to the requested owner.
	ErrNoPayments = errors.New("no payment outputs payable to owner")
	// ErrMixedUnits is returned when payment outputs mix incompatible units.
	ErrMixedUnits = errors.New("payment outputs mix incompatible units")
	// ErrUnitNotAllowed is returned when payments use a unit outside the
	// configured settlement policy.
	ErrUnitNotAllowed = errors.New("payment unit not allowed by settlement policy")
)

// Payment is a fungible settlement output: an amount payable to an owner.
// It is not governed by the clause trees in this package; it exists so that
// cross-type checks (a redemption or an IOU settlement being paid for) can
// sum the consideration moving in the same transaction.
type Payment struct {
	Owner  PublicKey
	Amount Amount
}

// GroupingKey implements State. Payments of one unit form a single group.
func (p *Payment) GroupingKey() GroupingKey {
	h, _ := blake2b.New256(nil)
	h.Write([]byte("payment\x00"))
	h.Write([]byte(p.Amount.Unit))
	var k GroupingKey
	copy(k[:], h.Sum(nil))
	return k
}

// Fingerprint implements State.
func (p *Payment) Fingerprint() Digest {
	h, _ := blake2b.New256(nil)
	h.Write([]byte("payment\x00"))
	h.Write(p.Owner[:])
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(p.Amount.Quantity))
	h.Write(buf[:])
	h.Write([]byte(p.Amount.Unit))
	var d Digest
	copy(d[:], h.Sum(nil))
	return d
}

// SettlementSource sums the consideration payable to an owner among a
// transaction's outputs. It is the external collaborator used by clauses that
// require payment (Redeem, Settle); implementations must fail when no
// matching outputs exist or when they mix incompatible units.
type SettlementSource interface {
	SumPayableTo(outputs []State, owner PublicKey) (Amount, error)
}

// PaymentSum is the default SettlementSource over Payment outputs.
//
// AllowedUnits restricts which settlement units are acceptable; an empty set
// accepts any single unit and leaves unit agreement to the calling clause
// (which compares the summed amount, unit included, against what it is owed).
type PaymentSum struct {
	AllowedUnits []string
}

// NewPaymentSum creates a PaymentSum restricted to the given units.
func NewPaymentSum(units ...string) *PaymentSum {
	return &PaymentSum{AllowedUnits: units}
}

// SumPayableTo implements SettlementSource.
func (s *PaymentSum) SumPayableTo(outputs []State, owner PublicKey) (Amount, error) {
	var total Amount
	found := false
	for _, out := range outputs {
		p, ok := out.(*Payment)
		if !ok || p.Owner != owner {
			continue
		}
		if !s.unitAllowed(p.Amount.Unit) {
			return Amount{}, fmt.Errorf("%w: %q", ErrUnitNotAllowed, p.Amount.Unit)
		}
		if !found {
			total = p.Amount
			found = true
			continue
		}
		if p.Amount.Unit != total.Unit {
			return Amount{}, fmt.Errorf("%w: %q and %q", ErrMixedUnits, total.Unit, p.Amount.Unit)
		}
		total.Quantity += p.Amount.Quantity
	}
	if !found {
		return Amount{}, fmt.Errorf("%w: %s", ErrNoPayments, owner)
	}
	return total, nil
}

func (s *PaymentSum) unitAllowed(unit string) bool {
	if len(s.AllowedUnits) == 0 {
		return true
	}
	for _, u := range s.AllowedUnits {
		if u == unit {
			return true
		}
	}
	return false
}
