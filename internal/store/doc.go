// Package store keeps an append-only SQLite log of engine runs.
//
// Each session owns an ordered sequence of runs keyed by (session_id, seq),
// where seq comes from the engine's logical clock. Writes are idempotent:
// re-writing the same (session_id, seq) is silently ignored. Reads always
// order by seq, so a session reads back in the order it was processed.
//
// Prompts are never stored. A run carries PromptDigest(prompt), a
// domain-separated SHA-256 of the NFC-normalized text.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000
//   - foreign_keys=ON: runs must reference an existing session
package store
