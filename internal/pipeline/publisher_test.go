package pipeline_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/couchcryptid/listing-map-sync/internal/domain"
	"github.com/couchcryptid/listing-map-sync/internal/pipeline"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingLoader struct {
	mu      sync.Mutex
	batches [][]domain.OutputEvent
	failN   int
	written chan struct{}
}

func newRecordingLoader() *recordingLoader {
	return &recordingLoader{written: make(chan struct{}, 16)}
}

func (r *recordingLoader) LoadBatch(_ context.Context, events []domain.OutputEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failN > 0 {
		r.failN--
		return errors.New("broker unavailable")
	}
	r.batches = append(r.batches, append([]domain.OutputEvent(nil), events...))
	r.written <- struct{}{}
	return nil
}

func (r *recordingLoader) snapshot() [][]domain.OutputEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]domain.OutputEvent(nil), r.batches...)
}

func (r *recordingLoader) wait(t *testing.T) {
	t.Helper()
	select {
	case <-r.written:
	case <-time.After(time.Second):
		t.Fatal("no batch written")
	}
}

func startPublisher(t *testing.T, p *pipeline.Publisher) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		assert.NoError(t, p.Run(ctx))
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return cancel
}

func TestPublisher_FlushesFullBatch(t *testing.T) {
	at := time.Date(2024, 4, 26, 15, 10, 0, 0, time.UTC)
	domain.SetClock(clockwork.NewFakeClockAt(at))
	t.Cleanup(func() { domain.SetClock(nil) })

	ldr := newRecordingLoader()
	metrics := newTestMetrics()
	p := pipeline.NewPublisher(ldr, 2, time.Minute, clockwork.NewFakeClock(), discardLogger(), metrics)
	startPublisher(t, p)

	p.Activated("lst-1")
	p.IndicatorsChanged(domain.Indicators{Top: true})
	ldr.wait(t)

	batches := ldr.snapshot()
	require.Len(t, batches, 1)
	require.Len(t, batches[0], 2)

	first := batches[0][0]
	assert.Equal(t, []byte("lst-1"), first.Key)
	assert.Equal(t, "activate", first.Headers["type"])
	assert.Equal(t, at.Format(time.RFC3339), first.Headers["at"])

	var ev domain.MapEvent
	require.NoError(t, json.Unmarshal(batches[0][1].Value, &ev))
	assert.Equal(t, domain.MapEventIndicators, ev.Type)
	require.NotNil(t, ev.Indicators)
	assert.True(t, ev.Indicators.Top)
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.EventsProduced))
}

func TestPublisher_FlushesOnTick(t *testing.T) {
	clock := clockwork.NewFakeClock()
	ldr := newRecordingLoader()
	p := pipeline.NewPublisher(ldr, 10, time.Second, clock, discardLogger(), newTestMetrics())
	startPublisher(t, p)

	p.Activated("lst-1")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))

	// The event may still be in the queue when the tick lands, so keep
	// ticking until it is written.
	require.Eventually(t, func() bool {
		clock.Advance(time.Second)
		return len(ldr.snapshot()) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestPublisher_DrainsOnShutdown(t *testing.T) {
	ldr := newRecordingLoader()
	p := pipeline.NewPublisher(ldr, 10, time.Minute, clockwork.NewFakeClock(), discardLogger(), newTestMetrics())
	cancel := startPublisher(t, p)

	p.Activated("lst-1")
	p.Activated("lst-2")
	cancel()
	ldr.wait(t)

	batches := ldr.snapshot()
	require.Len(t, batches, 1)
	assert.Len(t, batches[0], 2)
}

func TestPublisher_RetriesFailedWrite(t *testing.T) {
	ldr := newRecordingLoader()
	ldr.failN = 1
	p := pipeline.NewPublisher(ldr, 1, time.Minute, clockwork.NewFakeClock(), discardLogger(), newTestMetrics())
	startPublisher(t, p)

	p.Activated("lst-1")
	// First write fails; the batch is kept and goes out with the next event.
	require.Eventually(t, func() bool {
		ldr.mu.Lock()
		defer ldr.mu.Unlock()
		return ldr.failN == 0
	}, time.Second, time.Millisecond)
	p.Activated("lst-2")
	ldr.wait(t)

	batches := ldr.snapshot()
	require.Len(t, batches, 1)
	assert.Len(t, batches[0], 2)
}

func TestPublisher_DropsWhenQueueFull(t *testing.T) {
	metrics := newTestMetrics()
	// Not running: the queue holds batchSize*4 events.
	p := pipeline.NewPublisher(newRecordingLoader(), 1, time.Minute, clockwork.NewFakeClock(), discardLogger(), metrics)

	for range 5 {
		p.Activated("lst-1")
	}
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.EventsDropped))
}
