package model

import (
	"time"

	"github.com/google/uuid"
)

// Verdict outcomes.
const (
	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected"
)

// Verdict is the persisted result of one transaction verification.
// Verdicts are idempotent per transaction digest: re-submitting the same
// transaction returns the stored verdict instead of creating a new one.
type Verdict struct {
	ID            uuid.UUID `json:"id"             db:"id"`
	TxDigest      string    `json:"tx_digest"      db:"tx_digest"`
	Contract      string    `json:"contract"       db:"contract"`
	Outcome       string    `json:"outcome"        db:"outcome"`
	ViolationCode string    `json:"violation_code,omitempty" db:"violation_code"`
	Reason        string    `json:"reason,omitempty"         db:"reason"`
	CreatedAt     time.Time `json:"created_at"     db:"created_at"`
}

// Accepted reports whether the verdict accepted the transaction.
func (v *Verdict) Accepted() bool { return v.Outcome == OutcomeAccepted }
