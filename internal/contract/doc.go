// Package contract implements a pure transaction-verification engine built
// from grouped, composable clauses.
//
// A proposed transaction is handed in as an immutable TransactionView. The
// engine partitions the view's states into independent groups by an invariant
// GroupingKey (the owner is excluded from the key, so "the same evolving fact"
// always lands in one group), then evaluates a clause tree against each group.
// Clauses are either leaves — a predicate keyed by the command kinds it
// requires — or composites (AllOf, AnyOf, FirstOf) evaluated by structural
// recursion. A transaction is accepted when every group verifies and every
// command in the view has been handled by some clause.
//
// Verification is synchronous, performs no I/O, and never mutates its inputs.
// Clause trees are immutable configuration: build one per contract and reuse
// it from any number of goroutines.
//
// The engine never verifies signature bytes. A Command's signer set is assumed
// to be cryptographically authenticated by the caller; clauses only check
// membership of expected keys in that set.
package contract
