package factory

import (
	"time"

	"github.com/mcoot/golfcards/internal/config"
	"github.com/mcoot/golfcards/internal/dependencies/mocks"
	"github.com/mcoot/golfcards/internal/storage/memory"
	"github.com/mcoot/golfcards/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
	MockIDs    *mocks.MockIDs

	shared dependencies
}

// TestConfig returns the config every TestApp node runs with
func TestConfig(nodeID string) config.Config {
	return config.Config{
		HTTPPort:            8080,
		NodeID:              nodeID,
		EventLog:            config.BackendMemory,
		Cache:               config.BackendMemory,
		StateTTL:            time.Hour,
		RoomTTL:             time.Hour,
		RecoveryConcurrency: 2,
		AppendRetries:       3,
		AnalyticsQueueSize:  64,
		AnalyticsWorkers:    1,
		LogLevel:            "info",
	}
}

// NewTestApp creates an App configured for testing with mocked dependencies
// and in-memory storage
func NewTestApp() *TestApp {
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()
	mockIDs := mocks.NewMockIDs("game")
	logger := testutil.NopLogger()

	deps := dependencies{
		log:    memory.NewEventLog(mocks.NewMockIDs("evt")),
		cache:  memory.NewCache(mockClock, time.Hour, time.Hour),
		bus:    memory.NewBus(logger),
		clock:  mockClock,
		random: mockRandom,
		ids:    mockIDs,
	}

	return &TestApp{
		App:        newWithDependencies(TestConfig("node-a"), deps, logger),
		MockClock:  mockClock,
		MockRandom: mockRandom,
		MockIDs:    mockIDs,
		shared:     deps,
	}
}

// NewPeer creates a second node sharing this app's event log, cache, bus
// and mocks, as another server in the same deployment would
func (t *TestApp) NewPeer(nodeID string) *TestApp {
	return &TestApp{
		App:        newWithDependencies(TestConfig(nodeID), t.shared, testutil.NopLogger()),
		MockClock:  t.MockClock,
		MockRandom: t.MockRandom,
		MockIDs:    t.MockIDs,
		shared:     t.shared,
	}
}
