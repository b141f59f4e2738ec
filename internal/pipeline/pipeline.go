package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/listing-map-sync/internal/domain"
	"github.com/couchcryptid/listing-map-sync/internal/observability"
	"github.com/couchcryptid/storm-data-shared/retry"
)

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// BatchExtractor reads up to batchSize raw events from the source.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawEvent, error)
}

// Transformer decodes and enriches a raw event into a snapshot.
type Transformer interface {
	Transform(ctx context.Context, raw domain.RawEvent) (domain.Snapshot, error)
}

// SnapshotLoader applies a snapshot to the map.
type SnapshotLoader interface {
	Apply(ctx context.Context, s domain.Snapshot) error
}

// Pipeline feeds listing snapshots into the map engine. Each snapshot is the
// full desired state, so only the newest one of a batch is applied; the older
// ones are committed without being decoded.
type Pipeline struct {
	extractor   BatchExtractor
	transformer Transformer
	loader      SnapshotLoader
	logger      *slog.Logger
	metrics     *observability.Metrics
	ready       atomic.Bool
	batchSize   int
}

// New creates a Pipeline with the given stages and observability.
func New(e BatchExtractor, t Transformer, l SnapshotLoader, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Pipeline {
	if batchSize <= 0 {
		batchSize = 1
	}
	return &Pipeline{
		extractor:   e,
		transformer: t,
		loader:      l,
		logger:      logger,
		metrics:     metrics,
		batchSize:   batchSize,
	}
}

// CheckReadiness returns nil once a snapshot has been applied.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not applied any snapshot yet")
	}
	return nil
}

// Run executes the snapshot loop until the context is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "batch_size", p.batchSize)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	backoff := initialBackoff
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		default:
		}

		if !p.processBatch(ctx, &backoff) {
			return nil
		}
	}
}

// processBatch runs one extract-transform-load cycle. Returns false if the pipeline should stop.
func (p *Pipeline) processBatch(ctx context.Context, backoff *time.Duration) bool {
	rawBatch, err := p.extractor.ExtractBatch(ctx, p.batchSize)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("extract batch failed", "error", err)
		return waitBackoff(ctx, backoff)
	}

	if len(rawBatch) == 0 {
		return ctx.Err() == nil
	}

	p.metrics.SnapshotsConsumed.Add(float64(len(rawBatch)))
	p.metrics.BatchSize.Observe(float64(len(rawBatch)))
	*backoff = initialBackoff

	return p.applyNewest(ctx, rawBatch, backoff)
}

// applyNewest walks the batch from newest to oldest and applies the first
// snapshot that decodes. Everything is committed once that snapshot has been
// applied, or immediately when nothing in the batch decodes.
func (p *Pipeline) applyNewest(ctx context.Context, rawBatch []domain.RawEvent, backoff *time.Duration) bool {
	ordered := make([]domain.RawEvent, len(rawBatch))
	copy(ordered, rawBatch)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Timestamp.Before(ordered[j].Timestamp)
	})

	for i := len(ordered) - 1; i >= 0; i-- {
		raw := ordered[i]
		snapshot, err := p.transformer.Transform(ctx, raw)
		if err != nil {
			p.logger.Warn("transform failed, skipping message",
				"error", err,
				"topic", raw.Topic,
				"partition", raw.Partition,
				"offset", raw.Offset,
			)
			p.metrics.SnapshotErrors.Inc()
			continue
		}

		// The reader has already moved past this batch, so the snapshot is
		// retried here until it lands or the pipeline stops.
		for {
			err := p.loader.Apply(ctx, snapshot)
			if err == nil {
				break
			}
			p.logger.Error("apply snapshot failed", "error", err, "listings", len(snapshot.Listings), "backoff", *backoff)
			if !waitBackoff(ctx, backoff) {
				return false
			}
		}
		*backoff = initialBackoff
		p.ready.Store(true)
		p.logger.Debug("snapshot applied",
			"listings", len(snapshot.Listings),
			"highlighted_id", snapshot.HighlightedID,
			"superseded", i,
		)
		break
	}

	for _, raw := range rawBatch {
		p.commitOffset(ctx, raw)
	}
	return true
}

// waitBackoff checks for context cancellation, sleeps with the current backoff,
// and advances the backoff. Returns false if the caller should stop.
func waitBackoff(ctx context.Context, backoff *time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if !retry.SleepWithContext(ctx, *backoff) {
		return false
	}
	*backoff = retry.NextBackoff(*backoff, maxBackoff)
	return true
}

// commitOffset commits the message offset if a commit function is available.
func (p *Pipeline) commitOffset(ctx context.Context, raw domain.RawEvent) {
	if raw.Commit == nil {
		return
	}
	if err := raw.Commit(ctx); err != nil {
		p.logger.Warn("commit offset failed", "error", err,
			"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
	}
}
