package mocks

import (
	"fmt"
	"sync"

	"github.com/mcoot/golfcards/internal/dependencies/ids"
)

// MockIDs issues predictable ids: prefix-1, prefix-2, ...
type MockIDs struct {
	mu     sync.Mutex
	Prefix string
	next   int
}

// Ensure MockIDs implements Generator
var _ ids.Generator = (*MockIDs)(nil)

// NewMockIDs creates a MockIDs with the given prefix
func NewMockIDs(prefix string) *MockIDs {
	return &MockIDs{Prefix: prefix}
}

// NewID returns the next id in sequence
func (g *MockIDs) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	return fmt.Sprintf("%s-%d", g.Prefix, g.next)
}
