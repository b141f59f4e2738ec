// Package session runs every mutation of the map engine on one goroutine.
//
// The engine and the in-memory surface are single-threaded. Kafka snapshots,
// HTTP interaction, and debounce timers all arrive on other goroutines and are
// funneled through a Loop, which also settles the surface after each task so
// that queued camera moves fire their bounds-changed events in order.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
)

// ErrStopped is returned by Do once the loop has exited.
var ErrStopped = errors.New("session loop stopped")

// maxSettleRounds bounds the settle cascade after one task. A fit that gets
// zoom-clamped needs two rounds.
const maxSettleRounds = 4

// Settler is implemented by surfaces that defer camera moves.
type Settler interface {
	Settle() bool
}

// Loop serializes tasks onto a single goroutine.
type Loop struct {
	tasks   chan func()
	done    chan struct{}
	settler Settler
	running atomic.Bool
	logger  *slog.Logger
}

// New creates a Loop with room for buffer queued tasks. settler may be nil.
func New(buffer int, settler Settler, logger *slog.Logger) *Loop {
	if buffer <= 0 {
		buffer = 64
	}
	return &Loop{
		tasks:   make(chan func(), buffer),
		done:    make(chan struct{}),
		settler: settler,
		logger:  logger,
	}
}

// Run executes tasks until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	l.running.Store(true)
	defer func() {
		l.running.Store(false)
		close(l.done)
	}()
	l.logger.Info("session loop started")

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("session loop stopping", "reason", ctx.Err())
			return nil
		case fn := <-l.tasks:
			l.run(fn)
		}
	}
}

func (l *Loop) run(fn func()) {
	fn()
	if l.settler == nil {
		return
	}
	for i := 0; i < maxSettleRounds; i++ {
		if !l.settler.Settle() {
			return
		}
	}
	l.logger.Warn("surface still moving after settle rounds", "rounds", maxSettleRounds)
}

// Dispatch queues fn without waiting. Tasks dispatched after the loop has
// stopped are dropped.
func (l *Loop) Dispatch(fn func()) {
	select {
	case l.tasks <- fn:
	case <-l.done:
	}
}

// Do runs fn on the loop and waits for it to finish.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	task := func() {
		defer close(finished)
		fn()
	}

	select {
	case l.tasks <- task:
	case <-l.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-finished:
		return nil
	case <-l.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CheckReadiness returns nil while the loop is running.
func (l *Loop) CheckReadiness(_ context.Context) error {
	if !l.running.Load() {
		return errors.New("session loop is not running")
	}
	return nil
}
