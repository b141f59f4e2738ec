package mapsync

import (
	"context"
	"testing"

	"github.com/couchcryptid/listing-map-sync/internal/domain"
	"github.com/couchcryptid/listing-map-sync/internal/observability"
	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_NotReadyUntilAttached(t *testing.T) {
	e := New(Options{Clock: clockwork.NewFakeClock()}, discardLogger(), observability.NewMetricsForTesting())

	require.ErrorIs(t, e.CheckReadiness(context.Background()), ErrNotReady)
	assert.ErrorIs(t, e.ClickIndicator(domain.DirectionTop), ErrNotReady)
	assert.False(t, e.Snapshot().Ready)

	// Input received before the surface exists is kept, newest wins.
	e.Sync(SyncInput{Entities: []domain.GeoEntity{entity("old", 40, -100)}})
	e.Sync(SyncInput{Entities: []domain.GeoEntity{entity("a", 40, -100), entity("b", 30, -90)}, HighlightedID: "b"})

	s := newFakeSurface()
	e.Attach(s)
	t.Cleanup(e.Close)

	require.NoError(t, e.CheckReadiness(context.Background()))
	assert.Equal(t, []string{"a", "b"}, liveIDs(e))
	assert.Equal(t, 2, s.creates)
	assert.Len(t, s.fits, 1)
}

func TestEngine_AttachTwiceIgnored(t *testing.T) {
	h := newHarness(t)
	other := newFakeSurface()
	h.engine.Attach(other)

	h.engine.Sync(SyncInput{Entities: []domain.GeoEntity{entity("a", 40, -100)}})
	assert.Equal(t, 1, h.surface.creates)
	assert.Zero(t, other.creates)
}

func TestEngine_OnActivate(t *testing.T) {
	h := newHarness(t)
	h.engine.Sync(SyncInput{Entities: []domain.GeoEntity{entity("a", 40, -100)}})

	var got []string
	h.engine.OnActivate(func(id string) { got = append(got, id) })

	h.handle(t, "a").activate()
	assert.Equal(t, []string{"a"}, got)
}

func TestEngine_ActivateAfterRemovalIgnored(t *testing.T) {
	h := newHarness(t)
	h.engine.Sync(SyncInput{Entities: []domain.GeoEntity{entity("a", 40, -100)}})
	a := h.handle(t, "a")

	var got []string
	h.engine.OnActivate(func(id string) { got = append(got, id) })
	h.engine.Sync(SyncInput{})

	a.activate()
	assert.Empty(t, got)
}

func TestEngine_HighlightSwapsIcons(t *testing.T) {
	h := newHarness(t)
	entities := []domain.GeoEntity{entity("a", 40, -100), entity("b", 30, -90)}
	h.engine.Sync(SyncInput{Entities: entities, HighlightedID: "a"})
	a, b := h.handle(t, "a"), h.handle(t, "b")
	assert.Equal(t, domain.TierHighlighted, a.style.Tier)
	assert.Equal(t, domain.TierDefault, b.style.Tier)

	h.engine.Sync(SyncInput{Entities: entities, HighlightedID: "b"})
	assert.Equal(t, domain.TierDefault, a.style.Tier)
	assert.Equal(t, domain.TierHighlighted, b.style.Tier)
	assert.Equal(t, domain.TierHighlighted, b.tier)
	assert.Equal(t, 2, h.surface.icons)
}

func TestEngine_Snapshot(t *testing.T) {
	h := newHarness(t)
	h.surface.bounds = domain.Region{North: 41, South: 39, East: -73, West: -76}
	h.surface.center = domain.Coordinate{Lat: 40, Lng: -74.5}
	h.engine.Sync(SyncInput{
		Entities:      []domain.GeoEntity{entity("b", 45, -70), entity("a", 40, -74)},
		HighlightedID: "b",
	})
	h.handle(t, "a").enter()

	got := h.engine.Snapshot()
	want := State{
		Ready: true,
		Markers: []MarkerState{
			{ID: "a", Coordinate: domain.Coordinate{Lat: 40, Lng: -74}, Tier: "hovered"},
			{ID: "b", Coordinate: domain.Coordinate{Lat: 45, Lng: -70}, Tier: "highlighted"},
		},
		HighlightedID: "b",
		HoveredID:     "a",
		OpenTooltip:   "a",
		FitPending:    true,
		Indicators:    domain.Indicators{Top: true, Right: true},
		Bounds:        &domain.Region{North: 45, South: 40, East: -70, West: -74},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestEngine_CloseUnsubscribes(t *testing.T) {
	h := newHarness(t)
	h.engine.Sync(SyncInput{Entities: []domain.GeoEntity{entity("a", 40, -100)}})
	h.handle(t, "a").enter()
	h.handle(t, "a").leave()

	h.engine.Close()

	assert.Empty(t, h.surface.subs)
	assert.False(t, h.engine.hover.timer.Pending())
}

func TestEngine_InteractionByID(t *testing.T) {
	h := newHarness(t)
	h.engine.Sync(SyncInput{Entities: []domain.GeoEntity{entity("a", 40, -100)}})

	var got []string
	h.engine.OnActivate(func(id string) { got = append(got, id) })

	require.NoError(t, h.engine.PointerEnter("a"))
	assert.Equal(t, "a", h.engine.Snapshot().HoveredID)
	assert.True(t, h.handle(t, "a").tooltip)

	require.NoError(t, h.engine.PointerLeave("a"))
	assert.True(t, h.engine.Snapshot().HoverPending)

	require.NoError(t, h.engine.Activate("a"))
	assert.Equal(t, []string{"a"}, got)

	assert.ErrorIs(t, h.engine.PointerEnter("missing"), ErrUnknownEntity)
	assert.ErrorIs(t, h.engine.Activate(""), ErrUnknownEntity)

	idle := New(Options{Clock: clockwork.NewFakeClock()}, discardLogger(), observability.NewMetricsForTesting())
	assert.ErrorIs(t, idle.PointerLeave("a"), ErrNotReady)
}
