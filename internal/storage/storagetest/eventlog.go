// Package storagetest holds the behaviour every storage implementation must
// share. Implementation packages run these suites against their own
// constructors.
package storagetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/golfcards/internal/model"
	"github.com/mcoot/golfcards/internal/storage"
)

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// Event builds a player_joined event at the given slot
func Event(gameID model.GameID, seq int64) model.Event {
	player := model.PlayerID(fmt.Sprintf("player-%d", seq))
	return model.NewEvent(gameID, seq, player, baseTime.Add(time.Duration(seq)*time.Second),
		model.PlayerJoinedPayload{Name: string(player)})
}

// Events builds n contiguous events starting at from
func Events(gameID model.GameID, from int64, n int) []model.Event {
	out := make([]model.Event, n)
	for i := range out {
		out[i] = Event(gameID, from+int64(i))
	}
	return out
}

// EventLogSuite checks an EventLog implementation. Set NewLog before running.
type EventLogSuite struct {
	suite.Suite
	NewLog func() storage.EventLog

	log storage.EventLog
	ctx context.Context
}

func (s *EventLogSuite) SetupTest() {
	s.log = s.NewLog()
	s.ctx = context.Background()
}

func (s *EventLogSuite) TestAppendAssignsID() {
	id, err := s.log.Append(s.ctx, Event("g1", 0))

	s.Require().NoError(err)
	s.NotEmpty(id)

	events, err := s.log.GetEvents(s.ctx, "g1", 0, -1)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(id, events[0].ID)
	s.Equal(model.EventPlayerJoined, events[0].Type)
	s.Equal(model.PlayerJoinedPayload{Name: "player-0"}, events[0].Payload)
	s.True(baseTime.Equal(events[0].Timestamp))
}

func (s *EventLogSuite) TestAppendKeepsGivenID() {
	evt := Event("g1", 0)
	evt.ID = "fixed-id"

	id, err := s.log.Append(s.ctx, evt)

	s.Require().NoError(err)
	s.Equal("fixed-id", id)
}

func (s *EventLogSuite) TestAppendConflict() {
	_, err := s.log.Append(s.ctx, Event("g1", 0))
	s.Require().NoError(err)

	_, err = s.log.Append(s.ctx, Event("g1", 0))

	var conflict *model.ConcurrencyConflictError
	s.Require().ErrorAs(err, &conflict)
	s.Equal(model.GameID("g1"), conflict.GameID)
	s.Equal(int64(0), conflict.SequenceNum)
	s.ErrorIs(err, model.ErrConcurrencyConflict)
}

func (s *EventLogSuite) TestSameSequenceInDifferentGames() {
	_, err := s.log.Append(s.ctx, Event("g1", 0))
	s.Require().NoError(err)
	_, err = s.log.Append(s.ctx, Event("g2", 0))
	s.NoError(err)
}

func (s *EventLogSuite) TestConcurrentAppendsOneWinner() {
	const writers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		wins      int
		conflicts int
	)
	for range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.log.Append(s.ctx, Event("g1", 0))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, model.ErrConcurrencyConflict):
				conflicts++
			}
		}()
	}
	wg.Wait()

	s.Equal(1, wins)
	s.Equal(writers-1, conflicts)
	latest, err := s.log.LatestSequence(s.ctx, "g1")
	s.Require().NoError(err)
	s.Equal(int64(0), latest)
}

func (s *EventLogSuite) TestAppendBatch() {
	ids, err := s.log.AppendBatch(s.ctx, Events("g1", 0, 3))

	s.Require().NoError(err)
	s.Len(ids, 3)
	latest, err := s.log.LatestSequence(s.ctx, "g1")
	s.Require().NoError(err)
	s.Equal(int64(2), latest)
}

func (s *EventLogSuite) TestAppendBatchConflictRollsBack() {
	_, err := s.log.Append(s.ctx, Event("g1", 2))
	s.Require().NoError(err)

	_, err = s.log.AppendBatch(s.ctx, Events("g1", 0, 3))

	s.ErrorIs(err, model.ErrConcurrencyConflict)
	events, err := s.log.GetEvents(s.ctx, "g1", 0, -1)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(int64(2), events[0].SequenceNum)
}

func (s *EventLogSuite) TestAppendBatchRejectsMalformed() {
	_, err := s.log.AppendBatch(s.ctx, nil)
	s.ErrorIs(err, model.ErrInvalidBatch)

	gap := []model.Event{Event("g1", 0), Event("g1", 2)}
	_, err = s.log.AppendBatch(s.ctx, gap)
	s.ErrorIs(err, model.ErrInvalidBatch)

	mixed := []model.Event{Event("g1", 0), Event("g2", 1)}
	_, err = s.log.AppendBatch(s.ctx, mixed)
	s.ErrorIs(err, model.ErrInvalidBatch)
}

func (s *EventLogSuite) TestGetEventsRange() {
	_, err := s.log.AppendBatch(s.ctx, Events("g1", 0, 6))
	s.Require().NoError(err)

	events, err := s.log.GetEvents(s.ctx, "g1", 2, 4)
	s.Require().NoError(err)

	s.Require().Len(events, 3)
	for i, e := range events {
		s.Equal(int64(2+i), e.SequenceNum)
	}

	open, err := s.log.GetEvents(s.ctx, "g1", 4, -1)
	s.Require().NoError(err)
	s.Len(open, 2)
}

func (s *EventLogSuite) TestGetEventsUnknownGame() {
	events, err := s.log.GetEvents(s.ctx, "missing", 0, -1)

	s.NoError(err)
	s.Empty(events)
}

func (s *EventLogSuite) TestLatestSequenceUnknownGame() {
	latest, err := s.log.LatestSequence(s.ctx, "missing")

	s.NoError(err)
	s.Equal(int64(-1), latest)
}

func (s *EventLogSuite) TestStreamAcrossPages() {
	total := storage.StreamPageSize*2 + 10
	_, err := s.log.AppendBatch(s.ctx, Events("g1", 0, total))
	s.Require().NoError(err)

	var seen []int64
	for e, err := range s.log.Stream(s.ctx, "g1", 5) {
		s.Require().NoError(err)
		seen = append(seen, e.SequenceNum)
	}

	s.Require().Len(seen, total-5)
	for i, seq := range seen {
		s.Equal(int64(5+i), seq)
	}
}

func (s *EventLogSuite) TestStreamStopsEarly() {
	_, err := s.log.AppendBatch(s.ctx, Events("g1", 0, 10))
	s.Require().NoError(err)

	count := 0
	for range s.log.Stream(s.ctx, "g1", 0) {
		count++
		if count == 3 {
			break
		}
	}

	s.Equal(3, count)
}

func (s *EventLogSuite) TestStreamCancelled() {
	_, err := s.log.AppendBatch(s.ctx, Events("g1", 0, 3))
	s.Require().NoError(err)
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()

	var streamErr error
	for _, err := range s.log.Stream(ctx, "g1", 0) {
		streamErr = err
	}

	s.ErrorIs(streamErr, context.Canceled)
}

func (s *EventLogSuite) TestActiveGames() {
	_, err := s.log.AppendBatch(s.ctx, Events("g1", 0, 2))
	s.Require().NoError(err)
	_, err = s.log.AppendBatch(s.ctx, Events("g2", 0, 2))
	s.Require().NoError(err)
	ended := model.NewEvent("g2", 2, "", baseTime, model.GameEndedPayload{})
	_, err = s.log.Append(s.ctx, ended)
	s.Require().NoError(err)
	_, err = s.log.Append(s.ctx, Event("g3", 0))
	s.Require().NoError(err)
	_, err = s.log.AppendBatch(s.ctx, Events("g4", 0, 2))
	s.Require().NoError(err)
	abandoned := model.NewEvent("g4", 2, "", baseTime, model.GameAbandonedPayload{Reason: model.AbandonRoomClosed})
	_, err = s.log.Append(s.ctx, abandoned)
	s.Require().NoError(err)

	active, err := s.log.ActiveGames(s.ctx)

	s.Require().NoError(err)
	s.ElementsMatch([]model.GameID{"g1", "g3"}, active)
}
