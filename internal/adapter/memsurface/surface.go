// Package memsurface is an in-process map rendering surface. It keeps marker
// state in memory and models a Web-Mercator camera the way browser map
// libraries do: camera commands are queued and only take effect, and only
// notify bounds listeners, when Settle is called.
//
// A Surface is not safe for concurrent use.
package memsurface

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/couchcryptid/listing-map-sync/internal/domain"
	"github.com/couchcryptid/listing-map-sync/internal/mapsync"
)

const tileSize = 256.0

// ErrUnknownMarker is returned for handles this surface did not issue or has
// already destroyed.
var ErrUnknownMarker = errors.New("unknown marker handle")

// Options configure the viewport and camera limits.
type Options struct {
	Width   int
	Height  int
	MinZoom float64
	MaxZoom float64
	Center  domain.Coordinate
	Zoom    float64
}

// DefaultOptions frames the supported region in a 1280x800 viewport.
func DefaultOptions() Options {
	return Options{
		Width:   1280,
		Height:  800,
		MinZoom: 0,
		MaxZoom: 22,
		Center:  domain.SupportedRegion.Center(),
		Zoom:    4,
	}
}

type camera struct {
	center domain.Coordinate
	zoom   float64
}

type marker struct {
	seq     int
	at      domain.Coordinate
	style   domain.IconStyle
	tier    domain.Tier
	tooltip bool

	enter, leave, activate func()
}

// Surface implements mapsync.Surface in memory.
type Surface struct {
	width, height    float64
	minZoom, maxZoom float64

	cam    camera
	queued *camera

	markers map[*marker]struct{}
	seq     int

	subs    map[int]func()
	nextSub int
}

var _ mapsync.Surface = (*Surface)(nil)

// New creates a surface. Zero sizes and an unset MaxZoom take DefaultOptions.
func New(opts Options) *Surface {
	def := DefaultOptions()
	if opts.Width <= 0 || opts.Height <= 0 {
		opts.Width, opts.Height = def.Width, def.Height
	}
	if opts.MaxZoom <= 0 {
		opts.MaxZoom = def.MaxZoom
	}
	if !opts.Center.IsNumeric() || opts.Center == (domain.Coordinate{}) {
		opts.Center = def.Center
	}
	s := &Surface{
		width:   float64(opts.Width),
		height:  float64(opts.Height),
		minZoom: opts.MinZoom,
		maxZoom: opts.MaxZoom,
		markers: make(map[*marker]struct{}),
		subs:    make(map[int]func()),
	}
	s.cam = camera{center: opts.Center, zoom: s.clampZoom(opts.Zoom)}
	return s
}

func (s *Surface) resolve(h mapsync.MarkerHandle) (*marker, error) {
	m, ok := h.(*marker)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrUnknownMarker, h)
	}
	if _, live := s.markers[m]; !live {
		return nil, fmt.Errorf("%w: #%d", ErrUnknownMarker, m.seq)
	}
	return m, nil
}

func (s *Surface) CreateMarker(at domain.Coordinate, style domain.IconStyle) (mapsync.MarkerHandle, error) {
	if !at.IsNumeric() {
		return nil, fmt.Errorf("create marker: invalid coordinate %v", at)
	}
	s.seq++
	m := &marker{seq: s.seq, at: at, style: style, tier: style.Tier}
	s.markers[m] = struct{}{}
	return m, nil
}

func (s *Surface) DestroyMarker(h mapsync.MarkerHandle) error {
	m, err := s.resolve(h)
	if err != nil {
		return err
	}
	delete(s.markers, m)
	return nil
}

func (s *Surface) MoveMarker(h mapsync.MarkerHandle, to domain.Coordinate) error {
	m, err := s.resolve(h)
	if err != nil {
		return err
	}
	if !to.IsNumeric() {
		return fmt.Errorf("move marker: invalid coordinate %v", to)
	}
	m.at = to
	return nil
}

func (s *Surface) SetIcon(h mapsync.MarkerHandle, style domain.IconStyle) error {
	m, err := s.resolve(h)
	if err != nil {
		return err
	}
	m.style = style
	return nil
}

func (s *Surface) SetZOrder(h mapsync.MarkerHandle, tier domain.Tier) error {
	m, err := s.resolve(h)
	if err != nil {
		return err
	}
	m.tier = tier
	return nil
}

func (s *Surface) OpenTooltip(h mapsync.MarkerHandle) error {
	m, err := s.resolve(h)
	if err != nil {
		return err
	}
	m.tooltip = true
	return nil
}

func (s *Surface) CloseTooltip(h mapsync.MarkerHandle) error {
	m, err := s.resolve(h)
	if err != nil {
		return err
	}
	m.tooltip = false
	return nil
}

func (s *Surface) OnMarkerPointerEnter(h mapsync.MarkerHandle, fn func()) {
	if m, err := s.resolve(h); err == nil {
		m.enter = fn
	}
}

func (s *Surface) OnMarkerPointerLeave(h mapsync.MarkerHandle, fn func()) {
	if m, err := s.resolve(h); err == nil {
		m.leave = fn
	}
}

func (s *Surface) OnMarkerActivate(h mapsync.MarkerHandle, fn func()) {
	if m, err := s.resolve(h); err == nil {
		m.activate = fn
	}
}

func (s *Surface) OnBoundsChanged(fn func()) func() {
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() { delete(s.subs, id) }
}

// MarkerView is a read-only copy of a live marker.
type MarkerView struct {
	Seq         int
	At          domain.Coordinate
	Style       domain.IconStyle
	Tier        domain.Tier
	TooltipOpen bool
}

// Markers lists live markers in creation order.
func (s *Surface) Markers() []MarkerView {
	out := make([]MarkerView, 0, len(s.markers))
	for m := range s.markers {
		out = append(out, MarkerView{Seq: m.seq, At: m.at, Style: m.style, Tier: m.tier, TooltipOpen: m.tooltip})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}

// OpenTooltips counts markers with an open tooltip.
func (s *Surface) OpenTooltips() int {
	n := 0
	for m := range s.markers {
		if m.tooltip {
			n++
		}
	}
	return n
}

// PointerEnter simulates the pointer entering the marker at h.
func (s *Surface) PointerEnter(h mapsync.MarkerHandle) error { return s.trigger(h, func(m *marker) func() { return m.enter }) }

// PointerLeave simulates the pointer leaving the marker at h.
func (s *Surface) PointerLeave(h mapsync.MarkerHandle) error { return s.trigger(h, func(m *marker) func() { return m.leave }) }

// Activate simulates a click on the marker at h.
func (s *Surface) Activate(h mapsync.MarkerHandle) error { return s.trigger(h, func(m *marker) func() { return m.activate }) }

func (s *Surface) trigger(h mapsync.MarkerHandle, pick func(*marker) func()) error {
	m, err := s.resolve(h)
	if err != nil {
		return err
	}
	if fn := pick(m); fn != nil {
		fn()
	}
	return nil
}

// fire notifies bounds listeners in subscription order. Listeners may
// unsubscribe while being notified.
func (s *Surface) fire() {
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		if fn, ok := s.subs[id]; ok {
			fn()
		}
	}
}

func (s *Surface) clampZoom(z float64) float64 {
	return math.Max(s.minZoom, math.Min(s.maxZoom, z))
}
