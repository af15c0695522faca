// Package worker runs background jobs off a bounded queue
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

var (
	ErrQueueFull   = errors.New("work queue full")
	ErrQueueClosed = errors.New("work queue closed")
)

// Handler processes one item. It must not block indefinitely.
type Handler[T any] func(ctx context.Context, item T)

// Queue feeds items to a fixed pool of workers through a bounded buffer.
// Producers never wait: TrySubmit fails fast when the buffer is full.
type Queue[T any] struct {
	items   chan T
	handler Handler[T]
	logger  *slog.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewQueue starts workers goroutines reading from a buffer of size items
func NewQueue[T any](size, workers int, handler Handler[T], logger *slog.Logger) *Queue[T] {
	if size < 1 {
		size = 1
	}
	if workers < 1 {
		workers = 1
	}
	q := &Queue[T]{
		items:   make(chan T, size),
		handler: handler,
		logger:  logger.With(slog.String("component", "worker")),
	}
	q.wg.Add(workers)
	for range workers {
		go q.work()
	}
	return q
}

func (q *Queue[T]) work() {
	defer q.wg.Done()
	for item := range q.items {
		q.run(item)
	}
}

func (q *Queue[T]) run(item T) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("worker handler panicked", slog.Any("panic", r))
		}
	}()
	q.handler(context.Background(), item)
}

// TrySubmit queues the item only if there is room right now
func (q *Queue[T]) TrySubmit(item T) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.items <- item:
		return nil
	default:
		return ErrQueueFull
	}
}

// Len returns the number of items waiting
func (q *Queue[T]) Len() int {
	return len(q.items)
}

// Close stops accepting items and waits for everything queued to be handled
func (q *Queue[T]) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.items)
	q.mu.Unlock()
	q.wg.Wait()
}
