// Package match validates concrete permissions against declared
// permission-type patterns: given{...}, shared{...}, and leased{...}.
//
// The three pattern families reduce to one predicate over a pair
// (is_shared, lessors) computed from the permissions the pattern's paths
// resolve to at a call site. When generic code binds several call-site
// arguments to one permission variable, their permissions merge: the
// variable is shared if ANY contribution is shared, and its lessor set is
// every contribution that has a lessor.
//
// ASYMMETRY (hard contract):
// A pattern requiring shared{a} is satisfied by a plain owned value -
// owned access subsumes shared access (my <: our). A pattern requiring
// leased{a} is NOT satisfied by an owned value: the compiled
// representation of a leased value is a pointer into the lessor's
// storage, so substituting an owned value is a representation mismatch,
// not merely a permission laxity. The same predicate serves the
// interpreted and compiled back ends precisely because it never falls
// back from leased to owned.
//
// Failures surface as accumulated diagnostics in the "where clause ...
// not satisfied" form with two spans: the rejected call site and where
// the offending permission was established. The static checker collects
// every diagnostic in a compilation unit; it never aborts on the first.
package match
