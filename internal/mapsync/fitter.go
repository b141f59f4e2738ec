package mapsync

import (
	"log/slog"

	"github.com/couchcryptid/listing-map-sync/internal/domain"
	"github.com/couchcryptid/listing-map-sync/internal/observability"
)

// boundsFitter frames a set of markers. The zoom ceiling is enforced after
// the surface reports that the fit has settled, never inline.
type boundsFitter struct {
	surface Surface
	padding int
	maxZoom float64

	// cancelCheck unsubscribes the pending zoom-ceiling check, if any.
	cancelCheck func()

	logger  *slog.Logger
	metrics *observability.Metrics
}

func newBoundsFitter(s Surface, padding int, maxZoom float64, logger *slog.Logger, metrics *observability.Metrics) *boundsFitter {
	return &boundsFitter{
		surface: s,
		padding: padding,
		maxZoom: maxZoom,
		logger:  logger,
		metrics: metrics,
	}
}

func (f *boundsFitter) fit(b domain.Bounds) {
	if b.IsEmpty() {
		return
	}
	f.cancel()

	var unsubscribe func()
	unsubscribe = f.surface.OnBoundsChanged(func() {
		unsubscribe()
		f.cancelCheck = nil
		f.clampZoom()
	})
	f.cancelCheck = unsubscribe

	if err := f.surface.FitBounds(b.Region(), f.padding); err != nil {
		f.logger.Warn("fit bounds failed", "markers", b.Len(), "error", err)
		f.metrics.SurfaceErrors.WithLabelValues("fit").Inc()
		f.cancel()
	}
}

func (f *boundsFitter) cancel() {
	if f.cancelCheck != nil {
		f.cancelCheck()
		f.cancelCheck = nil
	}
}

// pending reports whether a zoom-ceiling check is waiting for the surface.
func (f *boundsFitter) pending() bool {
	return f.cancelCheck != nil
}

func (f *boundsFitter) clampZoom() {
	zoom := f.surface.Zoom()
	if zoom <= f.maxZoom {
		return
	}
	if err := f.surface.SetZoom(f.maxZoom); err != nil {
		f.logger.Warn("clamp zoom failed", "zoom", zoom, "max_zoom", f.maxZoom, "error", err)
		f.metrics.SurfaceErrors.WithLabelValues("zoom").Inc()
		return
	}
	f.metrics.ZoomClamps.Inc()
	f.logger.Debug("zoom clamped after fit", "zoom", zoom, "max_zoom", f.maxZoom)
}
