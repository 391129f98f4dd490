package contract

// IssueClause validates the creation of a new paper: one output, no inputs,
// positive face value, signed by the issuer, and — when the transaction
// carries a time window — issued strictly before maturity.
type IssueClause struct{}

// RequiredCommands implements Clause.
func (IssueClause) RequiredCommands() []CommandKind {
	return []CommandKind{CommandIssue}
}

// Verify implements Clause.
func (IssueClause) Verify(tx *TransactionView, g Group, commands []Command) ([]CommandKind, error) {
	cmd, err := singleCommand(commands, CommandIssue)
	if err != nil {
		return nil, err
	}

	if len(g.Inputs) != 0 {
		return nil, violationf(ViolationShape,
			"an issuance may not consume existing paper inputs, got %d", len(g.Inputs))
	}
	if len(g.Outputs) != 1 {
		return nil, violationf(ViolationShape,
			"an issuance must produce exactly one paper output, got %d", len(g.Outputs))
	}
	paper, ok := g.Outputs[0].(*Paper)
	if !ok {
		return nil, violationf(ViolationShape, "issued output is not a commercial paper state")
	}

	if paper.FaceValue.Quantity <= 0 {
		return nil, violationf(ViolationValue, "value should be non-negative and greater than zero")
	}
	if !cmd.SignedBy(paper.Issuer) {
		return nil, violationf(ViolationSigner,
			"the issuing party %s must sign a paper issuance", paper.Issuer)
	}
	if tx.Window != nil && tx.Window.NotAfter != nil && !tx.Window.NotAfter.Before(paper.MaturityAt) {
		return nil, violationf(ViolationTiming,
			"paper may not be issued at or after its maturity date")
	}

	return []CommandKind{CommandIssue}, nil
}

// MoveClause validates a change of ownership: exactly one input and one
// output, signed by the current owner. All other fields are guaranteed equal
// between input and output because grouping excludes only the owner from the
// key, so no field-by-field comparison is needed here.
type MoveClause struct{}

// RequiredCommands implements Clause.
func (MoveClause) RequiredCommands() []CommandKind {
	return []CommandKind{CommandMove}
}

// Verify implements Clause.
func (MoveClause) Verify(tx *TransactionView, g Group, commands []Command) ([]CommandKind, error) {
	cmd, err := singleCommand(commands, CommandMove)
	if err != nil {
		return nil, err
	}

	if len(g.Inputs) != 1 {
		return nil, violationf(ViolationShape,
			"a move must consume exactly one paper input, got %d", len(g.Inputs))
	}
	if len(g.Outputs) != 1 {
		return nil, violationf(ViolationShape,
			"the paper must be propagated as exactly one output, got %d", len(g.Outputs))
	}
	paper, ok := g.Inputs[0].(*Paper)
	if !ok {
		return nil, violationf(ViolationShape, "moved input is not a commercial paper state")
	}

	if !cmd.SignedBy(paper.Owner) {
		return nil, violationf(ViolationSigner,
			"the current owner %s must sign a paper transfer", paper.Owner)
	}

	return []CommandKind{CommandMove}, nil
}

// RedeemClause validates the extinguishment of a matured paper: one input,
// zero outputs, signed by the owner, timestamped at or after maturity, and
// paid for in full by payment outputs in the same transaction. The payment
// aggregation is delegated to the Settlement collaborator.
type RedeemClause struct {
	Settlement SettlementSource
}

// RequiredCommands implements Clause.
func (RedeemClause) RequiredCommands() []CommandKind {
	return []CommandKind{CommandRedeem}
}

// Verify implements Clause.
func (r RedeemClause) Verify(tx *TransactionView, g Group, commands []Command) ([]CommandKind, error) {
	cmd, err := singleCommand(commands, CommandRedeem)
	if err != nil {
		return nil, err
	}

	if len(g.Inputs) != 1 {
		return nil, violationf(ViolationShape,
			"a redemption must consume exactly one paper input, got %d", len(g.Inputs))
	}
	if len(g.Outputs) != 0 {
		return nil, violationf(ViolationShape,
			"a redeemed paper must be fully extinguished, got %d outputs", len(g.Outputs))
	}
	paper, ok := g.Inputs[0].(*Paper)
	if !ok {
		return nil, violationf(ViolationShape, "redeemed input is not a commercial paper state")
	}

	if !cmd.SignedBy(paper.Owner) {
		return nil, violationf(ViolationSigner,
			"the paper owner %s must sign a redemption", paper.Owner)
	}
	if tx.Window == nil || tx.Window.NotBefore == nil {
		return nil, violationf(ViolationTiming, "redemption must be timestamped")
	}
	if tx.Window.NotBefore.Before(paper.MaturityAt) {
		return nil, violationf(ViolationTiming, "paper must have matured")
	}

	received, err := r.Settlement.SumPayableTo(tx.Outputs, paper.Owner)
	if err != nil {
		return nil, violationf(ViolationValue, "settlement of redeemed paper: %v", err)
	}
	if received != paper.FaceValue {
		return nil, violationf(ViolationValue,
			"received amount %s does not equal the paper face value %s", received, paper.FaceValue)
	}

	return []CommandKind{CommandRedeem}, nil
}

// singleCommand extracts the one command of the given kind. Leaf clauses are
// only invoked when their kind is present, so absence indicates a dispatcher
// misuse and is still reported as a violation rather than a panic.
func singleCommand(commands []Command, kind CommandKind) (Command, error) {
	var found *Command
	for i := range commands {
		if commands[i].Kind != kind {
			continue
		}
		if found != nil {
			return Command{}, violationf(ViolationShape,
				"transaction carries more than one %q command", kind)
		}
		found = &commands[i]
	}
	if found == nil {
		return Command{}, violationf(ViolationUnmatchedCommand,
			"clause requires command %q which is not present in the transaction", kind)
	}
	return *found, nil
}
