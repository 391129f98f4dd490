// Package model defines the wire types of the verifier API and their
// conversion into the engine's transaction view.
package model

import (
	"fmt"
	"time"

	"github.com/indenture-io/indenture/internal/contract"
)

// Contract names accepted by the verify endpoint.
const (
	ContractCommercialPaper = "commercial_paper"
	ContractIOU             = "iou"
)

// State kinds accepted on the wire.
const (
	StateCommercialPaper = "commercial_paper"
	StateIOU             = "iou"
	StatePayment         = "payment"
)

// AmountRecord is a quantity of some settlement unit.
type AmountRecord struct {
	Quantity int64  `json:"quantity"`
	Unit     string `json:"unit" binding:"required"`
}

// StateRecord is the wire form of a ledger state. Kind selects which of the
// optional field sets must be populated.
type StateRecord struct {
	Kind string `json:"kind" binding:"required"`

	// commercial_paper fields
	Issuer     string        `json:"issuer,omitempty"`
	FaceValue  *AmountRecord `json:"face_value,omitempty"`
	MaturityAt *time.Time    `json:"maturity_at,omitempty"`

	// iou fields
	Lender   string `json:"lender,omitempty"`
	Borrower string `json:"borrower,omitempty"`

	// Owner is shared by commercial_paper and payment; Amount by iou and payment.
	Owner  string        `json:"owner,omitempty"`
	Amount *AmountRecord `json:"amount,omitempty"`
}

// CommandRecord is the wire form of a transaction command. Signers are
// hex-encoded Ed25519 public keys, already authenticated by the caller.
type CommandRecord struct {
	Kind    string   `json:"kind" binding:"required"`
	Signers []string `json:"signers" binding:"required"`
}

// WindowRecord is the wire form of a transaction time window.
type WindowRecord struct {
	NotBefore *time.Time `json:"not_before,omitempty"`
	NotAfter  *time.Time `json:"not_after,omitempty"`
}

// VerifyRequest is the payload for submitting a transaction for verification.
type VerifyRequest struct {
	Contract string          `json:"contract" binding:"required"`
	Inputs   []StateRecord   `json:"inputs"`
	Outputs  []StateRecord   `json:"outputs"`
	Commands []CommandRecord `json:"commands" binding:"required"`
	Window   *WindowRecord   `json:"window,omitempty"`
}

// ToView converts the request into the engine's transaction view.
// Malformed records (unknown kinds, bad keys, missing fields) are reported
// as plain errors; they never reach the engine.
func (r *VerifyRequest) ToView() (*contract.TransactionView, error) {
	inputs, err := toStates(r.Inputs)
	if err != nil {
		return nil, fmt.Errorf("inputs: %w", err)
	}
	outputs, err := toStates(r.Outputs)
	if err != nil {
		return nil, fmt.Errorf("outputs: %w", err)
	}

	commands := make([]contract.Command, 0, len(r.Commands))
	for i, c := range r.Commands {
		cmd, err := toCommand(c)
		if err != nil {
			return nil, fmt.Errorf("command %d: %w", i, err)
		}
		commands = append(commands, cmd)
	}

	view := &contract.TransactionView{
		Inputs:   inputs,
		Outputs:  outputs,
		Commands: commands,
	}
	if r.Window != nil {
		view.Window = &contract.TimeWindow{
			NotBefore: r.Window.NotBefore,
			NotAfter:  r.Window.NotAfter,
		}
	}
	return view, nil
}

func toStates(records []StateRecord) ([]contract.State, error) {
	states := make([]contract.State, 0, len(records))
	for i, rec := range records {
		s, err := toState(rec)
		if err != nil {
			return nil, fmt.Errorf("state %d: %w", i, err)
		}
		states = append(states, s)
	}
	return states, nil
}

func toState(rec StateRecord) (contract.State, error) {
	switch rec.Kind {
	case StateCommercialPaper:
		issuer, err := contract.KeyFromHex(rec.Issuer)
		if err != nil {
			return nil, fmt.Errorf("issuer: %w", err)
		}
		owner, err := contract.KeyFromHex(rec.Owner)
		if err != nil {
			return nil, fmt.Errorf("owner: %w", err)
		}
		if rec.FaceValue == nil {
			return nil, fmt.Errorf("face_value is required")
		}
		if rec.MaturityAt == nil {
			return nil, fmt.Errorf("maturity_at is required")
		}
		return &contract.Paper{
			Issuer:     issuer,
			Owner:      owner,
			FaceValue:  toAmount(rec.FaceValue),
			MaturityAt: rec.MaturityAt.UTC(),
		}, nil

	case StateIOU:
		lender, err := contract.KeyFromHex(rec.Lender)
		if err != nil {
			return nil, fmt.Errorf("lender: %w", err)
		}
		borrower, err := contract.KeyFromHex(rec.Borrower)
		if err != nil {
			return nil, fmt.Errorf("borrower: %w", err)
		}
		if rec.Amount == nil {
			return nil, fmt.Errorf("amount is required")
		}
		return &contract.IOU{
			Lender:   lender,
			Borrower: borrower,
			Amount:   toAmount(rec.Amount),
		}, nil

	case StatePayment:
		owner, err := contract.KeyFromHex(rec.Owner)
		if err != nil {
			return nil, fmt.Errorf("owner: %w", err)
		}
		if rec.Amount == nil {
			return nil, fmt.Errorf("amount is required")
		}
		return &contract.Payment{
			Owner:  owner,
			Amount: toAmount(rec.Amount),
		}, nil

	default:
		return nil, fmt.Errorf("unknown state kind %q", rec.Kind)
	}
}

func toCommand(rec CommandRecord) (contract.Command, error) {
	signers := make([]contract.PublicKey, 0, len(rec.Signers))
	for _, s := range rec.Signers {
		key, err := contract.KeyFromHex(s)
		if err != nil {
			return contract.Command{}, fmt.Errorf("signer %q: %w", s, err)
		}
		signers = append(signers, key)
	}
	return contract.Command{
		Kind:    contract.CommandKind(rec.Kind),
		Signers: signers,
	}, nil
}

func toAmount(rec *AmountRecord) contract.Amount {
	return contract.Amount{Quantity: rec.Quantity, Unit: rec.Unit}
}
