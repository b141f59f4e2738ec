package mapsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/listing-map-sync/internal/domain"
	"github.com/couchcryptid/listing-map-sync/internal/observability"
	"github.com/jonboulle/clockwork"
)

// Engine defaults.
const (
	DefaultHoverDebounce = 150 * time.Millisecond
	DefaultFitPadding    = 50
	DefaultMaxZoom       = 15.0
)

var (
	// ErrNotReady is returned by operations that need an attached surface.
	ErrNotReady = errors.New("map surface not attached")
	// ErrIndicatorHidden is returned when clicking an indicator that is not shown.
	ErrIndicatorHidden = errors.New("indicator not visible")
	// ErrUnknownEntity is returned for interaction on an id with no marker.
	ErrUnknownEntity = errors.New("no marker for entity")
)

// Options tune an Engine. Zero fields take the package defaults.
type Options struct {
	Clock         clockwork.Clock
	HoverDebounce time.Duration
	FitPadding    int
	MaxZoom       float64

	// Dispatch runs fn on the goroutine that owns the engine. The hover
	// timer hands its expiry through it. Defaults to calling fn directly,
	// which is only correct when nothing else touches the engine meanwhile.
	Dispatch func(fn func())
}

func (o Options) withDefaults() Options {
	if o.Clock == nil {
		o.Clock = clockwork.NewRealClock()
	}
	if o.HoverDebounce <= 0 {
		o.HoverDebounce = DefaultHoverDebounce
	}
	if o.FitPadding <= 0 {
		o.FitPadding = DefaultFitPadding
	}
	if o.MaxZoom <= 0 {
		o.MaxZoom = DefaultMaxZoom
	}
	if o.Dispatch == nil {
		o.Dispatch = func(fn func()) { fn() }
	}
	return o
}

// SyncInput is the full desired map state. Empty HighlightedID means none.
type SyncInput struct {
	Entities      []domain.GeoEntity
	HighlightedID string
	InitialCenter *domain.Coordinate
	InitialZoom   *float64
}

// Engine keeps a Surface consistent with the entities passed to Sync.
type Engine struct {
	opts    Options
	logger  *slog.Logger
	metrics *observability.Metrics

	surface    Surface
	ready      atomic.Bool
	pending    *SyncInput
	unsubBound func()

	reconciler *reconciler
	hover      *hoverController
	tracker    *viewportTracker
	fitter     *boundsFitter

	highlighted  string
	placedCenter *domain.Coordinate
	placedZoom   *float64
	onActivate   []func(id string)
	onIndicators []func(domain.Indicators)
}

// New creates an Engine. It stays not-ready until Attach is called.
func New(opts Options, logger *slog.Logger, metrics *observability.Metrics) *Engine {
	return &Engine{
		opts:    opts.withDefaults(),
		logger:  logger,
		metrics: metrics,
	}
}

// Attach binds the engine to a rendering surface and replays the latest
// input received before the surface was available.
func (e *Engine) Attach(s Surface) {
	if e.surface != nil {
		e.logger.Warn("surface already attached, ignoring")
		return
	}
	e.surface = s

	e.reconciler = newReconciler(s, e.logger, e.metrics)
	e.hover = newHoverController(s, newDebounceTimer(e.opts.Clock, e.opts.Dispatch), e.opts.HoverDebounce, e.logger, e.metrics)
	e.tracker = newViewportTracker(s, e.metrics)
	e.fitter = newBoundsFitter(s, e.opts.FitPadding, e.opts.MaxZoom, e.logger, e.metrics)

	e.reconciler.tierOf = func(id string) domain.Tier {
		return domain.TierFor(id, e.hover.hovered, e.highlighted)
	}
	e.reconciler.bridge = e.bridgeMarker
	e.reconciler.onRemove = e.hover.forget

	e.hover.handleOf = func(id string) (MarkerHandle, bool) {
		m, ok := e.reconciler.lookup(id)
		if !ok {
			return nil, false
		}
		return m.handle, true
	}
	e.hover.onChange = func(prev, next string) {
		e.reconciler.refreshID(prev)
		e.reconciler.refreshID(next)
	}

	e.tracker.target = e.highlightedCoordinate
	e.tracker.notify = func(ind domain.Indicators) {
		for _, fn := range e.onIndicators {
			fn(ind)
		}
	}
	e.unsubBound = s.OnBoundsChanged(e.tracker.recompute)

	e.ready.Store(true)
	e.logger.Info("map surface attached")

	if e.pending != nil {
		in := *e.pending
		e.pending = nil
		e.Sync(in)
	}
}

// CheckReadiness returns nil once a surface is attached.
func (e *Engine) CheckReadiness(_ context.Context) error {
	if !e.ready.Load() {
		return ErrNotReady
	}
	return nil
}

// OnActivate registers fn to be called with the entity id whenever the user
// activates (clicks) a marker.
func (e *Engine) OnActivate(fn func(id string)) {
	e.onActivate = append(e.onActivate, fn)
}

// OnIndicators registers fn to be called whenever the indicator set changes.
func (e *Engine) OnIndicators(fn func(domain.Indicators)) {
	e.onIndicators = append(e.onIndicators, fn)
}

// Sync applies the desired state. It is idempotent: repeating the same input
// issues no surface calls beyond reading the viewport.
func (e *Engine) Sync(in SyncInput) {
	if e.surface == nil {
		e.pending = &in
		return
	}
	start := time.Now()
	defer func() { e.metrics.SyncDuration.Observe(time.Since(start).Seconds()) }()

	// Set before reconciling so new and retained markers pick up the tier.
	e.highlighted = in.HighlightedID
	changed := e.reconciler.reconcile(in.Entities)

	e.applyPlacement(in.InitialCenter, in.InitialZoom)
	if changed && in.InitialCenter == nil {
		e.fitter.fit(e.reconciler.bounds)
	}

	e.tracker.recompute()

	e.logger.Debug("sync applied",
		"entities", len(in.Entities),
		"markers", len(e.reconciler.markers),
		"changed", changed,
		"highlighted_id", e.highlighted,
	)
}

// applyPlacement moves the camera to an explicit initial center and zoom,
// once per distinct value.
func (e *Engine) applyPlacement(center *domain.Coordinate, zoom *float64) {
	if center != nil && (e.placedCenter == nil || *e.placedCenter != *center) {
		if err := e.surface.PanTo(*center); err != nil {
			e.logger.Warn("pan to initial center failed", "error", err)
			e.metrics.SurfaceErrors.WithLabelValues("pan").Inc()
		} else {
			c := *center
			e.placedCenter = &c
		}
	}
	if zoom != nil && (e.placedZoom == nil || *e.placedZoom != *zoom) {
		if err := e.surface.SetZoom(*zoom); err != nil {
			e.logger.Warn("set initial zoom failed", "error", err)
			e.metrics.SurfaceErrors.WithLabelValues("zoom").Inc()
		} else {
			z := *zoom
			e.placedZoom = &z
		}
	}
}

// ClickIndicator pans toward the highlighted marker. It does not change any
// state itself; the next bounds change clears the indicator.
func (e *Engine) ClickIndicator(d domain.Direction) error {
	if e.surface == nil {
		return ErrNotReady
	}
	if !e.tracker.current.Visible(d) {
		return fmt.Errorf("%w: %s", ErrIndicatorHidden, d)
	}
	at, ok := e.highlightedCoordinate()
	if !ok {
		return fmt.Errorf("%w: %s", ErrIndicatorHidden, d)
	}
	if err := e.surface.PanTo(at); err != nil {
		e.metrics.SurfaceErrors.WithLabelValues("pan").Inc()
		return fmt.Errorf("pan to highlighted marker: %w", err)
	}
	return nil
}

// Close releases the surface subscriptions and the pending hover timer.
// Markers are left on the surface.
func (e *Engine) Close() {
	if e.surface == nil {
		return
	}
	e.hover.timer.Cancel()
	e.fitter.cancel()
	if e.unsubBound != nil {
		e.unsubBound()
		e.unsubBound = nil
	}
}

// PointerEnter reports that the pointer entered the marker for id. Hosts whose
// surface reports pointer events by entity id, such as a remote browser
// client, use it instead of the per-handle bridges.
func (e *Engine) PointerEnter(id string) error {
	if err := e.known(id); err != nil {
		return err
	}
	e.hover.pointerEnter(id)
	return nil
}

// PointerLeave reports that the pointer left the marker for id.
func (e *Engine) PointerLeave(id string) error {
	if err := e.known(id); err != nil {
		return err
	}
	e.hover.pointerLeave(id)
	return nil
}

// Activate reports a click on the marker for id.
func (e *Engine) Activate(id string) error {
	if err := e.known(id); err != nil {
		return err
	}
	e.activate(id)
	return nil
}

func (e *Engine) known(id string) error {
	if e.surface == nil {
		return ErrNotReady
	}
	if _, ok := e.reconciler.lookup(id); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownEntity, id)
	}
	return nil
}

func (e *Engine) bridgeMarker(id string, h MarkerHandle) {
	e.surface.OnMarkerPointerEnter(h, func() { e.hover.pointerEnter(id) })
	e.surface.OnMarkerPointerLeave(h, func() { e.hover.pointerLeave(id) })
	e.surface.OnMarkerActivate(h, func() { e.activate(id) })
}

func (e *Engine) activate(id string) {
	if _, ok := e.reconciler.lookup(id); !ok {
		return
	}
	e.logger.Debug("marker activated", "entity_id", id)
	for _, fn := range e.onActivate {
		fn(id)
	}
}

func (e *Engine) highlightedCoordinate() (domain.Coordinate, bool) {
	m, ok := e.reconciler.lookup(e.highlighted)
	if !ok {
		return domain.Coordinate{}, false
	}
	return m.coord, true
}

// MarkerState describes one live marker.
type MarkerState struct {
	ID         string            `json:"id"`
	Coordinate domain.Coordinate `json:"coordinate"`
	Tier       string            `json:"tier"`
}

// State is a read-only view of the engine.
type State struct {
	Ready         bool              `json:"ready"`
	Markers       []MarkerState     `json:"markers"`
	HighlightedID string            `json:"highlighted_id,omitempty"`
	HoveredID     string            `json:"hovered_id,omitempty"`
	OpenTooltip   string            `json:"open_tooltip,omitempty"`
	HoverPending  bool              `json:"hover_pending"`
	FitPending    bool              `json:"fit_pending"`
	Indicators    domain.Indicators `json:"indicators"`
	Bounds        *domain.Region    `json:"bounds,omitempty"`
}

// Snapshot returns the current state, markers sorted by id.
func (e *Engine) Snapshot() State {
	if e.surface == nil {
		return State{Markers: []MarkerState{}}
	}
	st := State{
		Ready:         true,
		Markers:       make([]MarkerState, 0, len(e.reconciler.markers)),
		HighlightedID: e.highlighted,
		HoveredID:     e.hover.hovered,
		OpenTooltip:   e.hover.open,
		HoverPending:  e.hover.timer.Pending(),
		FitPending:    e.fitter.pending(),
		Indicators:    e.tracker.current,
	}
	for _, m := range e.reconciler.markers {
		st.Markers = append(st.Markers, MarkerState{
			ID:         m.id,
			Coordinate: m.coord,
			Tier:       domain.TierFor(m.id, e.hover.hovered, e.highlighted).String(),
		})
	}
	sort.Slice(st.Markers, func(i, j int) bool { return st.Markers[i].ID < st.Markers[j].ID })
	if !e.reconciler.bounds.IsEmpty() {
		r := e.reconciler.bounds.Region()
		st.Bounds = &r
	}
	return st
}
