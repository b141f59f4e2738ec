package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/couchcryptid/listing-map-sync/internal/domain"
	"github.com/couchcryptid/listing-map-sync/internal/observability"
	"github.com/jonboulle/clockwork"
)

// BatchLoader writes multiple output events to the destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, events []domain.OutputEvent) error
}

// Publisher forwards engine callbacks to the sink topic. The callbacks run on
// the session loop, so they only enqueue; Run does the writing.
type Publisher struct {
	loader    BatchLoader
	events    chan domain.MapEvent
	batchSize int
	flush     time.Duration
	clock     clockwork.Clock
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// NewPublisher creates a Publisher that writes up to batchSize events at a
// time, and at least every flush interval while events are queued.
func NewPublisher(l BatchLoader, batchSize int, flush time.Duration, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Publisher {
	if batchSize <= 0 {
		batchSize = 1
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Publisher{
		loader:    l,
		events:    make(chan domain.MapEvent, batchSize*4),
		batchSize: batchSize,
		flush:     flush,
		clock:     clock,
		logger:    logger,
		metrics:   metrics,
	}
}

// Activated records a marker activation.
func (p *Publisher) Activated(id string) {
	p.enqueue(domain.MapEvent{Type: domain.MapEventActivate, EntityID: id, At: domain.Now()})
}

// IndicatorsChanged records a new indicator set.
func (p *Publisher) IndicatorsChanged(ind domain.Indicators) {
	p.enqueue(domain.MapEvent{Type: domain.MapEventIndicators, Indicators: &ind, At: domain.Now()})
}

// enqueue never blocks the caller. Events that do not fit are dropped.
func (p *Publisher) enqueue(e domain.MapEvent) {
	select {
	case p.events <- e:
	default:
		p.metrics.EventsDropped.Inc()
		p.logger.Warn("map event queue full, dropping event", "type", e.Type, "entity_id", e.EntityID)
	}
}

// drainTimeout bounds the final flush after Run's context is cancelled.
const drainTimeout = 5 * time.Second

// Run writes queued events until ctx is cancelled, then makes one last
// attempt to flush what is left.
func (p *Publisher) Run(ctx context.Context) error {
	ticker := p.clock.NewTicker(p.flush)
	defer ticker.Stop()

	pending := make([]domain.MapEvent, 0, p.batchSize)
	backoff := initialBackoff
	for {
		select {
		case <-ctx.Done():
			p.drain(ctx, pending)
			return nil
		case e := <-p.events:
			pending = append(pending, e)
			if len(pending) < p.batchSize {
				continue
			}
		case <-ticker.Chan():
			if len(pending) == 0 {
				continue
			}
		}

		if err := p.write(ctx, pending); err != nil {
			p.logger.Error("publish map events failed", "error", err, "batch_size", len(pending))
			if !waitBackoff(ctx, &backoff) {
				p.drain(ctx, pending)
				return nil
			}
			continue
		}
		backoff = initialBackoff
		pending = pending[:0]
	}
}

func (p *Publisher) drain(ctx context.Context, pending []domain.MapEvent) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), drainTimeout)
	defer cancel()

	for len(p.events) > 0 {
		pending = append(pending, <-p.events)
	}
	if len(pending) == 0 {
		return
	}
	if err := p.write(ctx, pending); err != nil {
		p.logger.Error("flush map events on shutdown failed", "error", err, "dropped", len(pending))
	}
}

func (p *Publisher) write(ctx context.Context, events []domain.MapEvent) error {
	out := make([]domain.OutputEvent, 0, len(events))
	for _, e := range events {
		o, err := domain.SerializeMapEvent(e)
		if err != nil {
			p.logger.Warn("serialize map event failed, dropping", "type", e.Type, "error", err)
			continue
		}
		out = append(out, o)
	}
	if err := p.loader.LoadBatch(ctx, out); err != nil {
		return err
	}
	p.metrics.EventsProduced.Add(float64(len(out)))
	return nil
}
