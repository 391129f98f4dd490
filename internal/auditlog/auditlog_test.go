package auditlog_test

import (
	"context"
	"sync"
	"testing"

	"github.com/indenture-io/indenture/internal/auditlog"
)

var ctx = context.Background()

func TestNew_genesisEntry(t *testing.T) {
	l := auditlog.New()

	n, err := l.Len(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("expected 1 genesis entry, got %d", n)
	}

	entry, err := l.Get(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if entry.Outcome != "genesis" {
		t.Errorf("expected outcome 'genesis', got %q", entry.Outcome)
	}
	if entry.Hash != auditlog.GenesisHash {
		t.Errorf("genesis hash: got %q, want GenesisHash", entry.Hash)
	}
}

func TestAppend_chainsCorrectly(t *testing.T) {
	l := auditlog.New()

	e1, err := l.Append(ctx, "aa11", "commercial_paper", auditlog.OutcomeAccepted, "", map[string]string{"id": "v1"})
	if err != nil {
		t.Fatal(err)
	}

	e2, err := l.Append(ctx, "bb22", "iou", auditlog.OutcomeRejected, "signer", nil)
	if err != nil {
		t.Fatal(err)
	}

	if e2.PrevHash != e1.Hash {
		t.Errorf("chain broken: e2.PrevHash=%q, want e1.Hash=%q", e2.PrevHash, e1.Hash)
	}

	n, err := l.Len(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 { // genesis + 2
		t.Errorf("expected 3 entries, got %d", n)
	}
}

func TestAppend_recordsViolationCode(t *testing.T) {
	l := auditlog.New()

	e, err := l.Append(ctx, "cc33", "commercial_paper", auditlog.OutcomeRejected, "timing", nil)
	if err != nil {
		t.Fatal(err)
	}
	if e.Code != "timing" {
		t.Errorf("Code: got %q, want %q", e.Code, "timing")
	}
	if e.Outcome != auditlog.OutcomeRejected {
		t.Errorf("Outcome: got %q, want rejected", e.Outcome)
	}
}

func TestVerify_valid(t *testing.T) {
	l := auditlog.New()
	_, _ = l.Append(ctx, "aa11", "commercial_paper", auditlog.OutcomeAccepted, "", nil)
	_, _ = l.Append(ctx, "bb22", "iou", auditlog.OutcomeRejected, "value", nil)

	if err := l.Verify(ctx); err != nil {
		t.Errorf("Verify() failed on valid chain: %v", err)
	}
}

func TestRoot_returnsLastHash(t *testing.T) {
	l := auditlog.New()
	e, _ := l.Append(ctx, "aa11", "commercial_paper", auditlog.OutcomeAccepted, "", nil)

	root, err := l.Root(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if root != e.Hash {
		t.Errorf("Root(): got %q, want %q", root, e.Hash)
	}
}

func TestVerify_genesisOnlyChain(t *testing.T) {
	l := auditlog.New()
	if err := l.Verify(ctx); err != nil {
		t.Errorf("Verify() on genesis-only chain should pass: %v", err)
	}
}

func TestRoot_genesisOnly(t *testing.T) {
	l := auditlog.New()
	root, err := l.Root(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if root != auditlog.GenesisHash {
		t.Errorf("Root() on genesis-only: got %q, want GenesisHash", root)
	}
}

func TestAppend_concurrent(t *testing.T) {
	l := auditlog.New()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = l.Append(ctx, "dd44", "iou", auditlog.OutcomeAccepted, "", nil)
		}()
	}
	wg.Wait()

	n, err := l.Len(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 33 { // genesis + 32
		t.Errorf("expected 33 entries, got %d", n)
	}
	if err := l.Verify(ctx); err != nil {
		t.Errorf("Verify() after concurrent appends: %v", err)
	}
}
