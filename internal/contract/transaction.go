package contract

import (
	"encoding/binary"
	"sort"
	"time"

	"golang.org/x/crypto/blake2b"
)

// CommandKind is the typed intent marker attached to a transaction.
type CommandKind string

// Command kinds understood by the contracts in this package.
const (
	CommandIssue  CommandKind = "issue"
	CommandMove   CommandKind = "move"
	CommandRedeem CommandKind = "redeem"
	CommandCreate CommandKind = "create"
	CommandSettle CommandKind = "settle"
)

// Command pairs an intent with the identities whose signatures are claimed
// over the whole transaction. The signer set is assumed already authenticated
// by the caller.
type Command struct {
	Kind    CommandKind
	Signers []PublicKey
}

// SignedBy reports whether key is among the command's claimed signers.
func (c Command) SignedBy(key PublicKey) bool {
	for _, s := range c.Signers {
		if s == key {
			return true
		}
	}
	return false
}

// TimeWindow is the optional validity interval attached to a transaction.
// Either bound may be nil.
type TimeWindow struct {
	NotBefore *time.Time
	NotAfter  *time.Time
}

// TransactionView is the read-only projection of a proposed transaction that
// the engine verifies. Inputs are the consumed states (already resolved by
// the caller), outputs the produced ones. Verification never mutates a view.
type TransactionView struct {
	Inputs   []State
	Outputs  []State
	Commands []Command
	Window   *TimeWindow
}

// CommandKinds returns the distinct command kinds present in the view, in
// first-appearance order.
func (tx *TransactionView) CommandKinds() []CommandKind {
	seen := make(map[CommandKind]bool, len(tx.Commands))
	var kinds []CommandKind
	for _, c := range tx.Commands {
		if !seen[c.Kind] {
			seen[c.Kind] = true
			kinds = append(kinds, c.Kind)
		}
	}
	return kinds
}

// Digest computes a deterministic content digest of the view. Two views with
// identical states, commands, and window produce the same digest regardless
// of signer ordering inside a command.
func (tx *TransactionView) Digest() Digest {
	h, _ := blake2b.New256(nil)

	writeByte := func(b byte) { h.Write([]byte{b}) }
	writeInt := func(n int) {
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], uint64(n))
		h.Write(buf[:])
	}

	writeByte('i')
	writeInt(len(tx.Inputs))
	for _, s := range tx.Inputs {
		fp := s.Fingerprint()
		h.Write(fp[:])
	}

	writeByte('o')
	writeInt(len(tx.Outputs))
	for _, s := range tx.Outputs {
		fp := s.Fingerprint()
		h.Write(fp[:])
	}

	writeByte('c')
	writeInt(len(tx.Commands))
	for _, c := range tx.Commands {
		h.Write([]byte(c.Kind))
		writeByte(0)
		signers := make([]string, 0, len(c.Signers))
		for _, s := range c.Signers {
			signers = append(signers, s.Hex())
		}
		sort.Strings(signers)
		for _, s := range signers {
			h.Write([]byte(s))
			writeByte(0)
		}
	}

	writeByte('w')
	if tx.Window != nil {
		if tx.Window.NotBefore != nil {
			h.Write([]byte(tx.Window.NotBefore.UTC().Format(time.RFC3339Nano)))
		}
		writeByte(0)
		if tx.Window.NotAfter != nil {
			h.Write([]byte(tx.Window.NotAfter.UTC().Format(time.RFC3339Nano)))
		}
	}

	var d Digest
	copy(d[:], h.Sum(nil))
	return d
}
