package contract

// Clause is a unit of verification logic. A clause "matches" when every
// command kind it requires is present among the commands offered to it; a
// matched clause's Verify either completes, returning the kinds it handled,
// or reports a Violation.
//
// Clauses are stateless transition-validity checks: nothing is carried
// between invocations, and a clause tree may be shared across goroutines.
type Clause interface {
	// RequiredCommands lists the command kinds this clause (or, for a
	// composite, any of its descendants) can consume.
	RequiredCommands() []CommandKind

	// Verify checks one state group. commands is the subset of the
	// transaction's commands relevant to this clause. The returned kinds are
	// the commands this invocation handled.
	Verify(tx *TransactionView, g Group, commands []Command) ([]CommandKind, error)
}

// AllOf is a composite that requires every child to match and verify.
type AllOf struct {
	Clauses []Clause
}

// RequiredCommands implements Clause as the union of the children's kinds.
func (a AllOf) RequiredCommands() []CommandKind {
	return unionKinds(a.Clauses)
}

// Verify implements Clause. If any child does not match, or matches but
// fails, the whole node fails.
func (a AllOf) Verify(tx *TransactionView, g Group, commands []Command) ([]CommandKind, error) {
	var handled []CommandKind
	for _, child := range a.Clauses {
		if missing, ok := missingKind(child, commands); !ok {
			return nil, violationf(ViolationUnmatchedCommand,
				"clause requires command %q which is not present in the transaction", missing)
		}
		h, err := child.Verify(tx, g, commandsFor(child, commands))
		if err != nil {
			return nil, err
		}
		handled = append(handled, h...)
	}
	return dedupeKinds(handled), nil
}

// AnyOf is a composite that requires at least one child to match; every child
// that matches must also verify.
type AnyOf struct {
	Clauses []Clause
}

// RequiredCommands implements Clause as the union of the children's kinds.
func (a AnyOf) RequiredCommands() []CommandKind {
	return unionKinds(a.Clauses)
}

// Verify implements Clause. Zero matching children is a failure: commands
// must never be silently ignored.
func (a AnyOf) Verify(tx *TransactionView, g Group, commands []Command) ([]CommandKind, error) {
	var handled []CommandKind
	matched := false
	for _, child := range a.Clauses {
		if _, ok := missingKind(child, commands); !ok {
			continue
		}
		matched = true
		h, err := child.Verify(tx, g, commandsFor(child, commands))
		if err != nil {
			return nil, err
		}
		handled = append(handled, h...)
	}
	if !matched {
		return nil, violationf(ViolationUnsupportedCommand,
			"no applicable clause for commands %v", kindNames(commands))
	}
	return dedupeKinds(handled), nil
}

// FirstOf is a composite that evaluates children in declared order and runs
// only the first one whose required commands are present. A failure of that
// child fails the node; there is no fallthrough to later children.
type FirstOf struct {
	Clauses []Clause
}

// RequiredCommands implements Clause as the union of the children's kinds.
func (f FirstOf) RequiredCommands() []CommandKind {
	return unionKinds(f.Clauses)
}

// Verify implements Clause.
func (f FirstOf) Verify(tx *TransactionView, g Group, commands []Command) ([]CommandKind, error) {
	for _, child := range f.Clauses {
		if _, ok := missingKind(child, commands); !ok {
			continue
		}
		return child.Verify(tx, g, commandsFor(child, commands))
	}
	return nil, violationf(ViolationUnsupportedCommand,
		"no applicable clause for commands %v", kindNames(commands))
}

// missingKind reports whether every kind required by c is present among
// commands. When one is absent it is returned with ok=false.
func missingKind(c Clause, commands []Command) (CommandKind, bool) {
	for _, k := range c.RequiredCommands() {
		found := false
		for _, cmd := range commands {
			if cmd.Kind == k {
				found = true
				break
			}
		}
		if !found {
			return k, false
		}
	}
	return "", true
}

// commandsFor filters commands down to the kinds c declares.
func commandsFor(c Clause, commands []Command) []Command {
	kinds := make(map[CommandKind]bool)
	for _, k := range c.RequiredCommands() {
		kinds[k] = true
	}
	var out []Command
	for _, cmd := range commands {
		if kinds[cmd.Kind] {
			out = append(out, cmd)
		}
	}
	return out
}

func unionKinds(clauses []Clause) []CommandKind {
	seen := make(map[CommandKind]bool)
	var kinds []CommandKind
	for _, c := range clauses {
		for _, k := range c.RequiredCommands() {
			if !seen[k] {
				seen[k] = true
				kinds = append(kinds, k)
			}
		}
	}
	return kinds
}

func dedupeKinds(kinds []CommandKind) []CommandKind {
	seen := make(map[CommandKind]bool, len(kinds))
	var out []CommandKind
	for _, k := range kinds {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}

func kindNames(commands []Command) []string {
	var names []string
	seen := make(map[CommandKind]bool)
	for _, c := range commands {
		if !seen[c.Kind] {
			seen[c.Kind] = true
			names = append(names, string(c.Kind))
		}
	}
	return names
}
