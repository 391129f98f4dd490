package contract

import "encoding/hex"

// GroupingKey is a derived value that identifies "the same evolving fact"
// across a state's lifecycle. Mutable fields (the owner) are excluded from its
// derivation, so consuming a state and producing its successor yields equal
// keys. It is computed on demand and never persisted.
type GroupingKey [32]byte

// Hex returns the hex encoding of the key.
func (k GroupingKey) Hex() string {
	return hex.EncodeToString(k[:])
}

// Digest is a hash covering every field of a state or transaction, including
// mutable ones. Used for idempotent verdict lookup and audit chaining.
type Digest [32]byte

// Hex returns the hex encoding of the digest.
func (d Digest) Hex() string {
	return hex.EncodeToString(d[:])
}

// State is an immutable fact on the ledger. Any change to a state is modelled
// as consuming it and producing a successor, never in-place mutation.
type State interface {
	// GroupingKey derives the invariant key used to cluster related inputs
	// and outputs for joint validation.
	GroupingKey() GroupingKey

	// Fingerprint hashes all fields of the state, including the owner.
	Fingerprint() Digest
}
