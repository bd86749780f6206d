package testutil

import "github.com/grovelang/grove/internal/engine"

var _ engine.RunTokenGenerator = (*FixedRunGenerator)(nil)

// FixedRunGenerator generates the same run token every time.
//
// Unlike engine.FixedGenerator, which returns tokens in sequence and
// panics when exhausted, this generator always returns one token. Use
// it when every evaluation in a test should share a run token, e.g.
// for golden-trace comparison.
//
// Stateless after construction and safe for concurrent use.
type FixedRunGenerator struct {
	token string
}

// NewFixedRunGenerator creates a fixed run token generator. If token is
// empty, Generate() returns "test-run-default".
func NewFixedRunGenerator(token string) *FixedRunGenerator {
	if token == "" {
		token = "test-run-default"
	}
	return &FixedRunGenerator{token: token}
}

// Generate returns the fixed run token.
//
// Implements engine.RunTokenGenerator.
func (g *FixedRunGenerator) Generate() string {
	return g.token
}
