// Package perm defines the core permission model for the grove engine.
//
// A permission is a node tracking access rights to one heap value:
// its jointness (Unique or Joint), its ownership (Owned, or Leased from
// exactly one lessor), and its status (Active or Cancelled).
//
// IDENTITY:
// Permission ids are stable and never reused. A cancelled permission is
// never deleted - diagnostics reference it long after the place that held
// it has been rebound.
//
// KIND GRID:
// The four permission kinds form a 2x2 grid of ownership x jointness:
//
//	             Unique          Joint
//	Owned        my              our
//	Leased       leased          shleased
//
// The three user operations move within the grid: give stays in the same
// cell, lease moves one row down (Owned to Leased), share moves one column
// right (Unique to Joint). Give on an Owned-Unique source is the only
// operation that also revokes the source.
//
// CANONICAL JSON:
// This package also provides the canonical JSON serialization used for
// content-addressed snapshot hashes. Object keys are sorted by UTF-16 code
// units, strings are NFC normalized, HTML characters are not escaped, and
// floats are forbidden. Two forest snapshots with the same logical content
// always hash identically.
package perm
