package mapsync

import (
	"log/slog"

	"github.com/couchcryptid/listing-map-sync/internal/domain"
	"github.com/couchcryptid/listing-map-sync/internal/observability"
)

// marker is the registry entry for one live handle. applied is the tier last
// pushed to the surface, kept only to skip redundant icon calls; the tier
// itself is always derived fresh from the hover and highlight signals.
type marker struct {
	id      string
	coord   domain.Coordinate
	handle  MarkerHandle
	applied domain.Tier
}

// reconciler owns the marker registry. No other component creates or
// destroys handles.
type reconciler struct {
	surface Surface
	markers map[string]*marker
	bounds  domain.Bounds

	tierOf   func(id string) domain.Tier
	bridge   func(id string, h MarkerHandle)
	onRemove func(id string)

	logger  *slog.Logger
	metrics *observability.Metrics
}

func newReconciler(s Surface, logger *slog.Logger, metrics *observability.Metrics) *reconciler {
	return &reconciler{
		surface:  s,
		markers:  make(map[string]*marker),
		tierOf:   func(string) domain.Tier { return domain.TierDefault },
		bridge:   func(string, MarkerHandle) {},
		onRemove: func(string) {},
		logger:   logger,
		metrics:  metrics,
	}
}

// reconcile makes the registry match entities and reports whether the set of
// marker ids changed. Entities with non-numeric coordinates are dropped;
// out-of-region coordinates are clamped. Surface failures skip the affected
// entity only.
func (r *reconciler) reconcile(entities []domain.GeoEntity) bool {
	incoming := make(map[string]domain.Coordinate, len(entities))
	order := make([]string, 0, len(entities))
	for _, e := range entities {
		if e.ID == "" || !e.Coordinate().IsNumeric() {
			r.logger.Debug("dropping entity without usable coordinate", "entity_id", e.ID)
			continue
		}
		if _, dup := incoming[e.ID]; dup {
			r.logger.Warn("duplicate entity id in sync input, keeping first", "entity_id", e.ID)
			continue
		}
		incoming[e.ID] = domain.SupportedRegion.Clamp(e.Coordinate())
		order = append(order, e.ID)
	}

	changed := false
	for id, m := range r.markers {
		if _, ok := incoming[id]; !ok {
			r.destroy(m)
			changed = true
		}
	}

	var bounds domain.Bounds
	for _, id := range order {
		at := incoming[id]
		m, ok := r.markers[id]
		switch {
		case ok:
			r.move(m, at)
			r.refresh(m)
		case r.create(id, at):
			changed = true
		default:
			continue
		}
		bounds = bounds.Extend(at)
	}
	r.bounds = bounds
	r.metrics.MarkersLive.Set(float64(len(r.markers)))

	return changed
}

func (r *reconciler) create(id string, at domain.Coordinate) bool {
	tier := r.tierOf(id)
	h, err := r.surface.CreateMarker(at, domain.StyleFor(tier))
	if err != nil {
		r.logger.Warn("create marker failed, skipping entity", "entity_id", id, "error", err)
		r.metrics.SurfaceErrors.WithLabelValues("create").Inc()
		return false
	}
	r.markers[id] = &marker{id: id, coord: at, handle: h, applied: tier}
	r.bridge(id, h)
	r.metrics.MarkersCreated.Inc()
	return true
}

func (r *reconciler) destroy(m *marker) {
	r.onRemove(m.id)
	if err := r.surface.DestroyMarker(m.handle); err != nil {
		r.logger.Warn("destroy marker failed", "entity_id", m.id, "error", err)
		r.metrics.SurfaceErrors.WithLabelValues("destroy").Inc()
	}
	delete(r.markers, m.id)
	r.metrics.MarkersDestroyed.Inc()
}

func (r *reconciler) move(m *marker, to domain.Coordinate) {
	if m.coord == to {
		return
	}
	if err := r.surface.MoveMarker(m.handle, to); err != nil {
		r.logger.Warn("move marker failed", "entity_id", m.id, "error", err)
		r.metrics.SurfaceErrors.WithLabelValues("move").Inc()
		return
	}
	m.coord = to
}

// refresh pushes the current tier of m to the surface if it differs from the
// one last applied.
func (r *reconciler) refresh(m *marker) {
	tier := r.tierOf(m.id)
	if tier == m.applied {
		return
	}
	if err := r.surface.SetIcon(m.handle, domain.StyleFor(tier)); err != nil {
		r.logger.Warn("set icon failed", "entity_id", m.id, "tier", tier.String(), "error", err)
		r.metrics.SurfaceErrors.WithLabelValues("icon").Inc()
		return
	}
	if err := r.surface.SetZOrder(m.handle, tier); err != nil {
		r.logger.Warn("set z-order failed", "entity_id", m.id, "tier", tier.String(), "error", err)
		r.metrics.SurfaceErrors.WithLabelValues("zorder").Inc()
	}
	m.applied = tier
}

// refreshID is refresh for an id that may not have a marker.
func (r *reconciler) refreshID(id string) {
	if m, ok := r.markers[id]; ok {
		r.refresh(m)
	}
}

func (r *reconciler) lookup(id string) (*marker, bool) {
	if id == "" {
		return nil, false
	}
	m, ok := r.markers[id]
	return m, ok
}
