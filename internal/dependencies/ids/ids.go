package ids

import "github.com/google/uuid"

// Generator produces unique identifiers that can be mocked for testing
type Generator interface {
	NewID() string
}

// UUIDGenerator issues time-ordered UUIDv7 strings
type UUIDGenerator struct{}

// New creates a new UUIDGenerator
func New() *UUIDGenerator {
	return &UUIDGenerator{}
}

// NewID returns a fresh UUIDv7. If the generator cannot read randomness it
// falls back to a random v4.
func (g *UUIDGenerator) NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
