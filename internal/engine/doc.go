// Package engine implements the grove action engine and access guard.
//
// The engine executes the three user-visible permission operations (give,
// lease, share, plus the implicit shlease) and the cancellation algorithm
// triggered by reads, writes, and drops. The guard is the checkpoint every
// value access passes through.
//
// ARCHITECTURE:
//
// Single Logical Thread:
// The surrounding evaluator drives the engine statement by statement, in
// program order, from one goroutine. There is no locking; every forest
// mutation is a total function from (state, action) to the next state, so
// the same action stream always produces the same forest.
//
// Transition Table:
// Each operation dispatches on the source permission's kind (the 2x2
// ownership x jointness grid) with an explicit switch. Within the grid,
// give stays in the same cell, lease moves one row down (Owned to Leased),
// and share moves one column right (Unique to Joint). Give on an
// Owned-Unique source is the only operation that also revokes the source.
//
// Cancellation:
// Cancelling a node immediately cancels every node in the subtree below it
// (a cancelled lessor cannot continue to honor any sublease). The cascade
// is a pure depth-first mark pass, order-independent and instantaneous: no
// timeout, no retry, no partial effect. Which DIRECT tenants an access
// revokes depends on the access kind:
//   - read cancels Unique tenants only; Joint tenants survive a read
//   - write cancels every tenant
//   - drop and give (Unique source) cancel every tenant
//
// Guarded accesses additionally apply the same rule at every lessor above
// the accessed node, skipping the tenant on the path down to it. The
// ancestors themselves are never mutated; cancellation propagates only
// downward.
//
// FAIL-FAST:
// Any operation on an already-cancelled permission fails immediately with
// a PermissionViolation carrying the verbatim runtime message. The
// evaluator aborts the current statement; nothing is retried.
//
// Every guarded access and transition is stamped by the logical clock and,
// when a recorder is attached, logged with before/after forest snapshots
// for the debug-visualization surface.
package engine
