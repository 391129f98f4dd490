package contract

// Group holds all inputs and outputs of a transaction that share one
// GroupingKey. A group may have zero inputs (pure issuance) or zero outputs
// (pure extinguishment), but never both: a group only exists because at least
// one state carries its key.
type Group struct {
	Key     GroupingKey
	Inputs  []State
	Outputs []State
}

// GroupByKey partitions inputs and outputs by grouping-key equality. Order is
// deterministic: groups appear in first-appearance order over inputs followed
// by outputs, so any validator reproduces the identical sequence. Empty
// inputs and outputs yield an empty slice.
func GroupByKey(inputs, outputs []State) []Group {
	index := make(map[GroupingKey]int)
	var groups []Group

	at := func(key GroupingKey) *Group {
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, Group{Key: key})
		}
		return &groups[i]
	}

	for _, s := range inputs {
		g := at(s.GroupingKey())
		g.Inputs = append(g.Inputs, s)
	}
	for _, s := range outputs {
		g := at(s.GroupingKey())
		g.Outputs = append(g.Outputs, s)
	}
	return groups
}
