package mapsync

import (
	"errors"
	"io"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/couchcryptid/listing-map-sync/internal/domain"
	"github.com/couchcryptid/listing-map-sync/internal/observability"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

// --- recording surface ---

type fakeHandle struct {
	at      domain.Coordinate
	style   domain.IconStyle
	tier    domain.Tier
	tooltip bool
	dead    bool

	enter, leave, activate func()
}

type fakeSurface struct {
	handles []*fakeHandle

	creates, destroys, moves, icons, zorders int

	opened, closed []*fakeHandle
	maxOpen        int

	pans     []domain.Coordinate
	fits     []domain.Region
	zoomSets []float64

	bounds domain.Region
	center domain.Coordinate
	zoom   float64

	subs    map[int]func()
	nextSub int

	failCreateAt map[domain.Coordinate]bool
	failTooltip  bool
}

var errSurface = errors.New("surface failure")

func newFakeSurface() *fakeSurface {
	return &fakeSurface{
		bounds:       domain.SupportedRegion,
		center:       domain.SupportedRegion.Center(),
		zoom:         4,
		subs:         make(map[int]func()),
		failCreateAt: make(map[domain.Coordinate]bool),
	}
}

func (f *fakeSurface) CreateMarker(at domain.Coordinate, style domain.IconStyle) (MarkerHandle, error) {
	if f.failCreateAt[at] {
		return nil, errSurface
	}
	h := &fakeHandle{at: at, style: style, tier: style.Tier}
	f.handles = append(f.handles, h)
	f.creates++
	return h, nil
}

func (f *fakeSurface) DestroyMarker(h MarkerHandle) error {
	fh := h.(*fakeHandle)
	fh.dead = true
	fh.tooltip = false
	f.destroys++
	return nil
}

func (f *fakeSurface) MoveMarker(h MarkerHandle, to domain.Coordinate) error {
	h.(*fakeHandle).at = to
	f.moves++
	return nil
}

func (f *fakeSurface) SetIcon(h MarkerHandle, style domain.IconStyle) error {
	h.(*fakeHandle).style = style
	f.icons++
	return nil
}

func (f *fakeSurface) SetZOrder(h MarkerHandle, tier domain.Tier) error {
	h.(*fakeHandle).tier = tier
	f.zorders++
	return nil
}

func (f *fakeSurface) OpenTooltip(h MarkerHandle) error {
	if f.failTooltip {
		return errSurface
	}
	fh := h.(*fakeHandle)
	fh.tooltip = true
	f.opened = append(f.opened, fh)
	if n := f.openCount(); n > f.maxOpen {
		f.maxOpen = n
	}
	return nil
}

func (f *fakeSurface) CloseTooltip(h MarkerHandle) error {
	fh := h.(*fakeHandle)
	fh.tooltip = false
	f.closed = append(f.closed, fh)
	return nil
}

// PanTo arrives immediately but, like a real map, only reports the move when
// the test fires the bounds-changed event.
func (f *fakeSurface) PanTo(at domain.Coordinate) error {
	f.pans = append(f.pans, at)
	f.center = at
	f.bounds = domain.Region{North: at.Lat + 1, South: at.Lat - 1, East: at.Lng + 1, West: at.Lng - 1}
	return nil
}

func (f *fakeSurface) FitBounds(box domain.Region, _ int) error {
	f.fits = append(f.fits, box)
	return nil
}

func (f *fakeSurface) ViewportBounds() domain.Region     { return f.bounds }
func (f *fakeSurface) ViewportCenter() domain.Coordinate { return f.center }
func (f *fakeSurface) Zoom() float64                     { return f.zoom }

func (f *fakeSurface) SetZoom(zoom float64) error {
	f.zoomSets = append(f.zoomSets, zoom)
	f.zoom = zoom
	return nil
}

func (f *fakeSurface) OnBoundsChanged(fn func()) func() {
	id := f.nextSub
	f.nextSub++
	f.subs[id] = fn
	return func() { delete(f.subs, id) }
}

func (f *fakeSurface) OnMarkerPointerEnter(h MarkerHandle, fn func()) { h.(*fakeHandle).enter = fn }
func (f *fakeSurface) OnMarkerPointerLeave(h MarkerHandle, fn func()) { h.(*fakeHandle).leave = fn }
func (f *fakeSurface) OnMarkerActivate(h MarkerHandle, fn func())     { h.(*fakeHandle).activate = fn }

func (f *fakeSurface) fireBoundsChanged() {
	ids := make([]int, 0, len(f.subs))
	for id := range f.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		if fn, ok := f.subs[id]; ok {
			fn()
		}
	}
}

func (f *fakeSurface) live() int {
	n := 0
	for _, h := range f.handles {
		if !h.dead {
			n++
		}
	}
	return n
}

func (f *fakeSurface) openCount() int {
	n := 0
	for _, h := range f.handles {
		if h.tooltip {
			n++
		}
	}
	return n
}

var _ Surface = (*fakeSurface)(nil)

// --- harness ---

type harness struct {
	engine   *Engine
	surface  *fakeSurface
	clock    *clockwork.FakeClock
	dispatch chan func()
	metrics  *observability.Metrics
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		surface:  newFakeSurface(),
		clock:    clockwork.NewFakeClock(),
		dispatch: make(chan func(), 16),
		metrics:  observability.NewMetricsForTesting(),
	}
	h.engine = New(Options{
		Clock:    h.clock,
		Dispatch: func(fn func()) { h.dispatch <- fn },
	}, discardLogger(), h.metrics)
	h.engine.Attach(h.surface)
	t.Cleanup(h.engine.Close)
	return h
}

func (h *harness) handle(t *testing.T, id string) *fakeHandle {
	t.Helper()
	m, ok := h.engine.reconciler.lookup(id)
	require.True(t, ok, "no marker for %q", id)
	return m.handle.(*fakeHandle)
}

// runDispatched waits for the next timer expiry handed to the engine
// goroutine and runs it.
func (h *harness) runDispatched(t *testing.T) {
	t.Helper()
	select {
	case fn := <-h.dispatch:
		fn()
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}
}

func (h *harness) assertNothingDispatched(t *testing.T) {
	t.Helper()
	select {
	case <-h.dispatch:
		t.Fatal("unexpected timer fire")
	case <-time.After(50 * time.Millisecond):
	}
}

func entity(id string, lat, lng float64) domain.GeoEntity {
	return domain.GeoEntity{ID: id, Lat: lat, Lng: lng}
}
