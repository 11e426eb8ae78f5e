package testutil

// FixedSource generates the same source tag every time.
//
// Golden traces that include the source of binding and mirror writes stay
// byte-identical across runs.
//
// Thread-safety: FixedSource is stateless and safe for concurrent use.
type FixedSource struct {
	token string
}

// NewFixedSource creates a new fixed source generator.
// If token is empty, Generate() returns "test-source".
func NewFixedSource(token string) *FixedSource {
	if token == "" {
		token = "test-source"
	}
	return &FixedSource{token: token}
}

// Generate returns the fixed tag.
//
// Implements watch.SourceGenerator.
func (g *FixedSource) Generate() string {
	return g.token
}
