// Package harness executes YAML conformance scenarios: straight-line
// programs of allocations, permission transitions, guarded accesses,
// and signature checks, with expectations on output, violations, and
// final permission state. Each run gets a fresh forest, heap, and
// engine; execution stops at the first runtime violation the way the
// interpreter does.
package harness
