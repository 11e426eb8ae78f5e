package watch

import "github.com/google/uuid"

// SourceGenerator produces source tags for mirrors and bindings.
// Implemented by UUIDv7Generator; tests use testutil.FixedSource.
type SourceGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 source tags.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
//
// Panics if UUID generation fails (should never happen in practice).
func (g UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}
