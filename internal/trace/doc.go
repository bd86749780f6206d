// Package trace persists engine steps to a SQLite log for the debug
// tooling: every transition and guarded access with before/after forest
// snapshots in canonical JSON, content-hashed for deduplication across
// runs. Writes are idempotent on (run_token, seq).
package trace
