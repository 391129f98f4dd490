package contract

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
)

// PublicKeySize is the length in bytes of an identity key (Ed25519).
const PublicKeySize = ed25519.PublicKeySize

// PublicKey is an opaque identity key. The engine never verifies signatures
// against it; it is only compared for set membership.
type PublicKey [PublicKeySize]byte

// KeyFromBytes copies b into a PublicKey.
func KeyFromBytes(b []byte) (PublicKey, error) {
	var k PublicKey
	if len(b) != PublicKeySize {
		return k, fmt.Errorf("public key must be %d bytes, got %d", PublicKeySize, len(b))
	}
	copy(k[:], b)
	return k, nil
}

// KeyFromHex decodes a hex-encoded PublicKey.
func KeyFromHex(s string) (PublicKey, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return PublicKey{}, fmt.Errorf("decode public key hex: %w", err)
	}
	return KeyFromBytes(b)
}

// Hex returns the full hex encoding of the key.
func (k PublicKey) Hex() string {
	return hex.EncodeToString(k[:])
}

// String returns a shortened form for logs and error messages.
func (k PublicKey) String() string {
	return hex.EncodeToString(k[:4]) + "…"
}
