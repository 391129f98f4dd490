package contract

import (
	"errors"
	"fmt"
)

// ViolationCode classifies why a transaction was rejected.
type ViolationCode string

const (
	// ViolationShape — wrong input/output cardinality for a matched clause.
	ViolationShape ViolationCode = "shape"
	// ViolationSigner — a required identity's key is absent from a command's signer set.
	ViolationSigner ViolationCode = "signer"
	// ViolationValue — a numeric or business invariant fails.
	ViolationValue ViolationCode = "value"
	// ViolationTiming — missing or out-of-range time window.
	ViolationTiming ViolationCode = "timing"
	// ViolationUnmatchedCommand — a command was present but not handled by any clause.
	ViolationUnmatchedCommand ViolationCode = "unmatched_command"
	// ViolationUnsupportedCommand — a command kind has no corresponding clause at all.
	ViolationUnsupportedCommand ViolationCode = "unsupported_command"
)

// Violation is the typed failure returned by a rejected verification.
// Every violation carries exactly one specific, human-readable reason; the
// engine does not merge multiple distinct violations into one.
type Violation struct {
	Code   ViolationCode
	Reason string
}

// Error implements the error interface.
func (v *Violation) Error() string {
	return fmt.Sprintf("%s: %s", v.Code, v.Reason)
}

// violationf builds a Violation with a formatted reason.
func violationf(code ViolationCode, format string, args ...any) *Violation {
	return &Violation{Code: code, Reason: fmt.Sprintf(format, args...)}
}

// AsViolation unwraps err into a *Violation when the error chain contains one.
func AsViolation(err error) (*Violation, bool) {
	var v *Violation
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}
