package storagetest

import (
	"context"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/golfcards/internal/model"
	"github.com/mcoot/golfcards/internal/storage"
)

const receiveTimeout = 2 * time.Second

// BusSuite checks a Bus implementation. Set NewBus before running.
type BusSuite struct {
	suite.Suite
	NewBus func() storage.Bus

	bus storage.Bus
	ctx context.Context
}

func (s *BusSuite) SetupTest() {
	s.bus = s.NewBus()
	s.ctx = context.Background()
}

func (s *BusSuite) receive(sub storage.Subscription) (model.StateChanged, bool) {
	select {
	case msg, ok := <-sub.C():
		return msg, ok
	case <-time.After(receiveTimeout):
		s.Fail("timed out waiting for notification")
		return model.StateChanged{}, false
	}
}

func (s *BusSuite) TestPublishReachesEverySubscriber() {
	first, err := s.bus.Subscribe(s.ctx)
	s.Require().NoError(err)
	defer first.Close()
	second, err := s.bus.Subscribe(s.ctx)
	s.Require().NoError(err)
	defer second.Close()

	msg := model.StateChanged{GameID: "g1", RoomCode: "ABCD", SequenceNum: 7, NodeID: "node-a"}
	s.Require().NoError(s.bus.Publish(s.ctx, msg))

	got, ok := s.receive(first)
	s.True(ok)
	s.Equal(msg, got)
	got, ok = s.receive(second)
	s.True(ok)
	s.Equal(msg, got)
}

func (s *BusSuite) TestOrderPerGame() {
	sub, err := s.bus.Subscribe(s.ctx)
	s.Require().NoError(err)
	defer sub.Close()

	for seq := range int64(5) {
		s.Require().NoError(s.bus.Publish(s.ctx, model.StateChanged{GameID: "g1", SequenceNum: seq}))
	}

	for seq := range int64(5) {
		got, ok := s.receive(sub)
		s.Require().True(ok)
		s.Equal(seq, got.SequenceNum)
	}
}

func (s *BusSuite) TestCloseEndsChannel() {
	sub, err := s.bus.Subscribe(s.ctx)
	s.Require().NoError(err)

	s.Require().NoError(sub.Close())
	s.NoError(sub.Close())

	_, ok := s.receive(sub)
	s.False(ok)
	s.NoError(s.bus.Publish(s.ctx, model.StateChanged{GameID: "g1"}))
}

func (s *BusSuite) TestContextCancelEndsSubscription() {
	ctx, cancel := context.WithCancel(s.ctx)
	sub, err := s.bus.Subscribe(ctx)
	s.Require().NoError(err)

	cancel()

	_, ok := s.receive(sub)
	s.False(ok)
}
