package mapsync

import (
	"github.com/couchcryptid/listing-map-sync/internal/domain"
	"github.com/couchcryptid/listing-map-sync/internal/observability"
)

// viewportTracker derives the off-screen indicators for the highlighted
// marker. recompute is O(1) and runs on every bounds change.
type viewportTracker struct {
	surface Surface

	target  func() (domain.Coordinate, bool)
	current domain.Indicators
	notify  func(domain.Indicators)

	metrics *observability.Metrics
}

func newViewportTracker(s Surface, metrics *observability.Metrics) *viewportTracker {
	return &viewportTracker{
		surface: s,
		target:  func() (domain.Coordinate, bool) { return domain.Coordinate{}, false },
		notify:  func(domain.Indicators) {},
		metrics: metrics,
	}
}

func (v *viewportTracker) recompute() {
	var next domain.Indicators
	if at, ok := v.target(); ok {
		next = domain.OffscreenIndicators(at, v.surface.ViewportBounds(), v.surface.ViewportCenter())
	}
	if next == v.current {
		return
	}
	v.current = next
	v.metrics.IndicatorChanges.Inc()
	v.notify(next)
}
