package memory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/golfcards/internal/dependencies/mocks"
	"github.com/mcoot/golfcards/internal/storage"
	"github.com/mcoot/golfcards/internal/storage/storagetest"
	"github.com/mcoot/golfcards/internal/testutil"
)

func TestCacheSuite(t *testing.T) {
	var clk *mocks.MockClock
	suite.Run(t, &storagetest.CacheSuite{
		NewCache: func() storage.StateCache {
			clk = mocks.NewMockClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
			return NewCache(clk, storagetest.CacheTTL, storagetest.CacheTTL)
		},
		Advance: func(d time.Duration) { clk.Advance(d) },
	})
}

func TestBusSuite(t *testing.T) {
	suite.Run(t, &storagetest.BusSuite{
		NewBus: func() storage.Bus { return NewBus(testutil.NopLogger()) },
	})
}
