package memsurface

import (
	"math"
	"testing"

	"github.com/couchcryptid/listing-map-sync/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectRoundTrip(t *testing.T) {
	for _, c := range []domain.Coordinate{
		{Lat: 0, Lng: 0},
		{Lat: 40.7, Lng: -74.0},
		{Lat: -33.9, Lng: 151.2},
	} {
		got := unproject(project(c))
		assert.InDelta(t, c.Lat, got.Lat, 1e-9)
		assert.InDelta(t, c.Lng, got.Lng, 1e-9)
	}
}

func TestMarkerLifecycle(t *testing.T) {
	s := New(DefaultOptions())

	h, err := s.CreateMarker(domain.Coordinate{Lat: 40, Lng: -100}, domain.StyleFor(domain.TierDefault))
	require.NoError(t, err)
	require.NoError(t, s.MoveMarker(h, domain.Coordinate{Lat: 41, Lng: -101}))
	require.NoError(t, s.SetIcon(h, domain.StyleFor(domain.TierHovered)))
	require.NoError(t, s.SetZOrder(h, domain.TierHovered))
	require.NoError(t, s.OpenTooltip(h))

	views := s.Markers()
	require.Len(t, views, 1)
	assert.Equal(t, domain.Coordinate{Lat: 41, Lng: -101}, views[0].At)
	assert.Equal(t, domain.TierHovered, views[0].Style.Tier)
	assert.True(t, views[0].TooltipOpen)
	assert.Equal(t, 1, s.OpenTooltips())

	require.NoError(t, s.DestroyMarker(h))
	assert.Empty(t, s.Markers())
	assert.ErrorIs(t, s.DestroyMarker(h), ErrUnknownMarker)
	assert.ErrorIs(t, s.SetIcon(h, domain.StyleFor(domain.TierDefault)), ErrUnknownMarker)
	assert.ErrorIs(t, s.OpenTooltip("not a handle"), ErrUnknownMarker)
}

func TestCreateMarker_RejectsNaN(t *testing.T) {
	s := New(DefaultOptions())
	_, err := s.CreateMarker(domain.Coordinate{Lat: math.NaN(), Lng: 0}, domain.StyleFor(domain.TierDefault))
	require.Error(t, err)
	assert.Empty(t, s.Markers())
}

func TestPointerTriggers(t *testing.T) {
	s := New(DefaultOptions())
	h, err := s.CreateMarker(domain.Coordinate{Lat: 40, Lng: -100}, domain.StyleFor(domain.TierDefault))
	require.NoError(t, err)

	var events []string
	s.OnMarkerPointerEnter(h, func() { events = append(events, "enter") })
	s.OnMarkerPointerLeave(h, func() { events = append(events, "leave") })
	s.OnMarkerActivate(h, func() { events = append(events, "activate") })

	require.NoError(t, s.PointerEnter(h))
	require.NoError(t, s.PointerLeave(h))
	require.NoError(t, s.Activate(h))
	assert.Equal(t, []string{"enter", "leave", "activate"}, events)

	require.NoError(t, s.DestroyMarker(h))
	assert.ErrorIs(t, s.Activate(h), ErrUnknownMarker)
}

func TestCameraMovesWaitForSettle(t *testing.T) {
	s := New(DefaultOptions())
	start := s.ViewportCenter()

	fired := 0
	s.OnBoundsChanged(func() { fired++ })

	to := domain.Coordinate{Lat: 40.7, Lng: -74.0}
	require.NoError(t, s.PanTo(to))
	require.NoError(t, s.SetZoom(10))

	assert.Equal(t, start, s.ViewportCenter())
	assert.True(t, s.Pending())
	assert.Zero(t, fired)

	assert.True(t, s.Settle())
	assert.Equal(t, to, s.ViewportCenter())
	assert.InDelta(t, 10.0, s.Zoom(), 1e-9)
	assert.Equal(t, 1, fired)

	assert.False(t, s.Settle())
	assert.Equal(t, 1, fired)
}

func TestSetZoom_ClampedToSurfaceRange(t *testing.T) {
	s := New(DefaultOptions())
	require.NoError(t, s.SetZoom(40))
	s.Settle()
	assert.InDelta(t, 22.0, s.Zoom(), 1e-9)

	require.NoError(t, s.SetZoom(-3))
	s.Settle()
	assert.InDelta(t, 0.0, s.Zoom(), 1e-9)

	assert.Error(t, s.SetZoom(math.Inf(1)))
}

func TestViewportBounds_ContainCenter(t *testing.T) {
	s := New(DefaultOptions())
	require.NoError(t, s.PanTo(domain.Coordinate{Lat: 37, Lng: -95}))
	require.NoError(t, s.SetZoom(6))
	s.Settle()

	b := s.ViewportBounds()
	assert.True(t, b.Contains(s.ViewportCenter()))
	assert.Greater(t, b.North, b.South)
	assert.Greater(t, b.East, b.West)
	// 1280px at zoom 6 spans 1280/(256*64) of the world.
	assert.InDelta(t, 360*1280/(256*64.0), b.East-b.West, 1e-9)
}

func TestFitBounds(t *testing.T) {
	s := New(DefaultOptions())
	box := domain.Region{North: 40.7, South: 34.0, East: -74.0, West: -118.2}
	require.NoError(t, s.FitBounds(box, 50))
	s.Settle()

	assert.InDelta(t, 5.0, s.Zoom(), 1e-9)
	vb := s.ViewportBounds()
	assert.True(t, vb.Contains(domain.Coordinate{Lat: box.North, Lng: box.West}))
	assert.True(t, vb.Contains(domain.Coordinate{Lat: box.South, Lng: box.East}))
}

func TestFitBounds_PointUsesMaxZoom(t *testing.T) {
	s := New(DefaultOptions())
	p := domain.Coordinate{Lat: 40, Lng: -100}
	require.NoError(t, s.FitBounds(domain.Region{North: p.Lat, South: p.Lat, East: p.Lng, West: p.Lng}, 50))
	s.Settle()

	assert.InDelta(t, 22.0, s.Zoom(), 1e-9)
	assert.InDelta(t, p.Lat, s.ViewportCenter().Lat, 1e-9)
	assert.InDelta(t, p.Lng, s.ViewportCenter().Lng, 1e-9)
}

func TestFitBounds_InvalidBox(t *testing.T) {
	s := New(DefaultOptions())
	assert.Error(t, s.FitBounds(domain.Region{North: 30, South: 40, East: -70, West: -80}, 0))
	assert.Error(t, s.FitBounds(domain.Region{North: math.NaN(), South: 40, East: -70, West: -80}, 0))
	assert.False(t, s.Pending())
}

func TestUnsubscribeDuringNotify(t *testing.T) {
	s := New(DefaultOptions())

	var calls []string
	var unsubA func()
	unsubA = s.OnBoundsChanged(func() {
		calls = append(calls, "a")
		unsubA()
	})
	unsubB := s.OnBoundsChanged(func() { calls = append(calls, "b") })

	require.NoError(t, s.PanTo(domain.Coordinate{Lat: 35, Lng: -90}))
	s.Settle()
	require.NoError(t, s.PanTo(domain.Coordinate{Lat: 36, Lng: -90}))
	s.Settle()

	assert.Equal(t, []string{"a", "b", "b"}, calls)

	unsubB()
	unsubB()
	assert.Empty(t, s.subs)
}
