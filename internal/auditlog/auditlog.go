// Package auditlog implements a hash-chained audit log of verification
// verdicts.
//
// The chain begins with a well-known genesis entry whose Hash equals
// GenesisHash (64 hex zeros). Every subsequent entry records the SHA-256 of
// its predecessor, making any tampering with past verdicts detectable via
// Verify.
//
// Two implementations of the Ledger interface are provided:
//   - MemoryLedger: in-process, for testing and offline verification.
//   - PostgresLedger: durable, for production use.
package auditlog
