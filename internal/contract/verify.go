package contract

// VerifyGrouped is the composite clause dispatcher. It selects the states
// relevant to the contract, partitions them into groups, evaluates root
// against every group, and finally checks that the union of all handled
// commands covers expected. Commands in expected that no clause handled are a
// rejection: either unsupported (the tree has no clause for the kind at all)
// or unmatched (a clause exists but never consumed it).
//
// relevant may be nil, in which case every state participates in grouping.
// VerifyGrouped is a pure predicate: it never mutates tx.
func VerifyGrouped(tx *TransactionView, relevant func(State) bool, root Clause, expected []CommandKind) error {
	inputs := filterStates(tx.Inputs, relevant)
	outputs := filterStates(tx.Outputs, relevant)
	groups := GroupByKey(inputs, outputs)

	treeKinds := make(map[CommandKind]bool)
	for _, k := range root.RequiredCommands() {
		treeKinds[k] = true
	}

	// Only commands whose kind appears somewhere in the clause tree are
	// offered to it; the rest surface in the coverage check below.
	var offered []Command
	for _, c := range tx.Commands {
		if treeKinds[c.Kind] {
			offered = append(offered, c)
		}
	}

	handled := make(map[CommandKind]bool)
	for _, g := range groups {
		h, err := root.Verify(tx, g, offered)
		if err != nil {
			return err
		}
		for _, k := range h {
			handled[k] = true
		}
	}

	for _, k := range expected {
		if handled[k] {
			continue
		}
		if !treeKinds[k] {
			return violationf(ViolationUnsupportedCommand,
				"command %q has no corresponding clause in this contract", k)
		}
		return violationf(ViolationUnmatchedCommand,
			"command %q was not handled by any clause", k)
	}
	return nil
}

func filterStates(states []State, keep func(State) bool) []State {
	if keep == nil {
		return states
	}
	var out []State
	for _, s := range states {
		if keep(s) {
			out = append(out, s)
		}
	}
	return out
}
