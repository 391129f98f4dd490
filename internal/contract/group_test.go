package contract_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/indenture-io/indenture/internal/contract"
)

func key(b byte) contract.PublicKey {
	k, err := contract.KeyFromBytes(bytes.Repeat([]byte{b}, contract.PublicKeySize))
	if err != nil {
		panic(err)
	}
	return k
}

var (
	alice  = key(0xA1)
	bob    = key(0xB0)
	issuer = key(0x15)
	t0     = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
)

func paper(owner contract.PublicKey, quantity int64, maturity time.Time) *contract.Paper {
	return &contract.Paper{
		Issuer:     issuer,
		Owner:      owner,
		FaceValue:  contract.Amount{Quantity: quantity, Unit: "USD"},
		MaturityAt: maturity,
	}
}

func TestGroupByKey_partition(t *testing.T) {
	p1 := paper(alice, 100, t0)
	p2 := p1.WithOwner(bob)                // same key as p1
	p3 := paper(alice, 250, t0)            // different face value, different key
	p4 := paper(bob, 100, t0.Add(24*time.Hour)) // different maturity, different key

	groups := contract.GroupByKey(
		[]contract.State{p1, p3},
		[]contract.State{p2, p4},
	)

	if len(groups) != 3 {
		t.Fatalf("expected 3 groups, got %d", len(groups))
	}

	// Every state appears in exactly one group.
	total := 0
	for _, g := range groups {
		total += len(g.Inputs) + len(g.Outputs)
		for _, s := range append(append([]contract.State{}, g.Inputs...), g.Outputs...) {
			if s.GroupingKey() != g.Key {
				t.Errorf("state with key %s placed in group %s", s.GroupingKey().Hex(), g.Key.Hex())
			}
		}
	}
	if total != 4 {
		t.Errorf("expected 4 states across groups, got %d", total)
	}

	// p1 and p2 share a group: same fact, owner excluded from the key.
	if groups[0].Key != p1.GroupingKey() {
		t.Errorf("first group should carry p1's key (first-appearance order)")
	}
	if len(groups[0].Inputs) != 1 || len(groups[0].Outputs) != 1 {
		t.Errorf("p1/p2 group: got %d inputs, %d outputs, want 1/1",
			len(groups[0].Inputs), len(groups[0].Outputs))
	}
}

func TestGroupByKey_deterministicOrder(t *testing.T) {
	p1 := paper(alice, 100, t0)
	p2 := paper(alice, 200, t0)
	p3 := paper(alice, 300, t0)

	inputs := []contract.State{p1, p2}
	outputs := []contract.State{p3}

	first := contract.GroupByKey(inputs, outputs)
	for i := 0; i < 10; i++ {
		again := contract.GroupByKey(inputs, outputs)
		if len(again) != len(first) {
			t.Fatalf("group count changed between runs: %d vs %d", len(again), len(first))
		}
		for j := range again {
			if again[j].Key != first[j].Key {
				t.Fatalf("group order changed between runs at position %d", j)
			}
		}
	}
}

func TestGroupByKey_empty(t *testing.T) {
	groups := contract.GroupByKey(nil, nil)
	if len(groups) != 0 {
		t.Errorf("expected no groups for an empty transaction, got %d", len(groups))
	}
}

func TestGroupByKey_pureIssuanceAndExtinguishment(t *testing.T) {
	issued := paper(alice, 100, t0)
	redeemed := paper(bob, 500, t0)

	groups := contract.GroupByKey(
		[]contract.State{redeemed},
		[]contract.State{issued},
	)
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if len(groups[0].Inputs) != 1 || len(groups[0].Outputs) != 0 {
		t.Errorf("extinguishment group: got %d/%d, want 1 input and 0 outputs",
			len(groups[0].Inputs), len(groups[0].Outputs))
	}
	if len(groups[1].Inputs) != 0 || len(groups[1].Outputs) != 1 {
		t.Errorf("issuance group: got %d/%d, want 0 inputs and 1 output",
			len(groups[1].Inputs), len(groups[1].Outputs))
	}
}
