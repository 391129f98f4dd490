package contract

// IOUCreateShapeClause validates the shape and value of a new obligation:
// no inputs, one IOU output, a positive amount, and distinct parties.
type IOUCreateShapeClause struct{}

// RequiredCommands implements Clause.
func (IOUCreateShapeClause) RequiredCommands() []CommandKind {
	return []CommandKind{CommandCreate}
}

// Verify implements Clause.
func (IOUCreateShapeClause) Verify(tx *TransactionView, g Group, commands []Command) ([]CommandKind, error) {
	if _, err := singleCommand(commands, CommandCreate); err != nil {
		return nil, err
	}

	if len(g.Inputs) != 0 {
		return nil, violationf(ViolationShape,
			"creating an iou may not consume inputs, got %d", len(g.Inputs))
	}
	if len(g.Outputs) != 1 {
		return nil, violationf(ViolationShape,
			"creating an iou must produce exactly one output, got %d", len(g.Outputs))
	}
	iou, ok := g.Outputs[0].(*IOU)
	if !ok {
		return nil, violationf(ViolationShape, "created output is not an iou state")
	}

	if iou.Amount.Quantity <= 0 {
		return nil, violationf(ViolationValue, "an iou must obligate a positive amount")
	}
	if iou.Lender == iou.Borrower {
		return nil, violationf(ViolationValue, "a party may not owe an iou to themselves")
	}

	return []CommandKind{CommandCreate}, nil
}

// IOUMutualAssentClause requires both parties of the created obligation to
// appear in the create command's signer set. It composes with the shape
// clause under AllOf, so both must hold for a creation to verify.
type IOUMutualAssentClause struct{}

// RequiredCommands implements Clause.
func (IOUMutualAssentClause) RequiredCommands() []CommandKind {
	return []CommandKind{CommandCreate}
}

// Verify implements Clause.
func (IOUMutualAssentClause) Verify(tx *TransactionView, g Group, commands []Command) ([]CommandKind, error) {
	cmd, err := singleCommand(commands, CommandCreate)
	if err != nil {
		return nil, err
	}

	if len(g.Outputs) != 1 {
		return nil, violationf(ViolationShape,
			"creating an iou must produce exactly one output, got %d", len(g.Outputs))
	}
	iou, ok := g.Outputs[0].(*IOU)
	if !ok {
		return nil, violationf(ViolationShape, "created output is not an iou state")
	}

	if !cmd.SignedBy(iou.Lender) {
		return nil, violationf(ViolationSigner,
			"the lender %s must sign the creation of an iou", iou.Lender)
	}
	if !cmd.SignedBy(iou.Borrower) {
		return nil, violationf(ViolationSigner,
			"the borrower %s must sign the creation of an iou", iou.Borrower)
	}

	return []CommandKind{CommandCreate}, nil
}

// IOUSettleClause validates the extinguishment of an obligation against
// payment outputs in the same transaction: one input, no outputs, both
// parties signing, and the lender paid the full obligated amount.
type IOUSettleClause struct {
	Settlement SettlementSource
}

// RequiredCommands implements Clause.
func (IOUSettleClause) RequiredCommands() []CommandKind {
	return []CommandKind{CommandSettle}
}

// Verify implements Clause.
func (c IOUSettleClause) Verify(tx *TransactionView, g Group, commands []Command) ([]CommandKind, error) {
	cmd, err := singleCommand(commands, CommandSettle)
	if err != nil {
		return nil, err
	}

	if len(g.Inputs) != 1 {
		return nil, violationf(ViolationShape,
			"settling an iou must consume exactly one input, got %d", len(g.Inputs))
	}
	if len(g.Outputs) != 0 {
		return nil, violationf(ViolationShape,
			"a settled iou must be fully extinguished, got %d outputs", len(g.Outputs))
	}
	iou, ok := g.Inputs[0].(*IOU)
	if !ok {
		return nil, violationf(ViolationShape, "settled input is not an iou state")
	}

	if !cmd.SignedBy(iou.Borrower) {
		return nil, violationf(ViolationSigner,
			"the borrower %s must sign the settlement of an iou", iou.Borrower)
	}
	if !cmd.SignedBy(iou.Lender) {
		return nil, violationf(ViolationSigner,
			"the lender %s must sign the settlement of an iou", iou.Lender)
	}

	received, err := c.Settlement.SumPayableTo(tx.Outputs, iou.Lender)
	if err != nil {
		return nil, violationf(ViolationValue, "settlement of iou: %v", err)
	}
	if received != iou.Amount {
		return nil, violationf(ViolationValue,
			"received amount %s does not equal the obligated amount %s", received, iou.Amount)
	}

	return []CommandKind{CommandSettle}, nil
}
