package memsurface

import (
	"fmt"
	"math"

	"github.com/couchcryptid/listing-map-sync/internal/domain"
)

// maxMercatorLat is where Web-Mercator tiles end.
const maxMercatorLat = 85.05112878

// project maps a coordinate to normalized Web-Mercator space, both axes in
// [0,1] with y growing southward.
func project(c domain.Coordinate) (x, y float64) {
	lat := math.Max(-maxMercatorLat, math.Min(maxMercatorLat, c.Lat))
	sin := math.Sin(lat * math.Pi / 180)
	x = (c.Lng + 180) / 360
	y = 0.5 - math.Log((1+sin)/(1-sin))/(4*math.Pi)
	return x, y
}

func unproject(x, y float64) domain.Coordinate {
	n := math.Pi * (1 - 2*y)
	return domain.Coordinate{
		Lat: math.Atan(math.Sinh(n)) * 180 / math.Pi,
		Lng: x*360 - 180,
	}
}

func worldSize(zoom float64) float64 {
	return tileSize * math.Exp2(zoom)
}

// next is the camera the queued commands will produce.
func (s *Surface) next() camera {
	if s.queued != nil {
		return *s.queued
	}
	return s.cam
}

func (s *Surface) queue(c camera) {
	s.queued = &c
}

// Settle applies the queued camera move and notifies bounds listeners. It
// reports whether anything was applied.
func (s *Surface) Settle() bool {
	if s.queued == nil {
		return false
	}
	s.cam = *s.queued
	s.queued = nil
	s.fire()
	return true
}

// Pending reports whether a camera move is waiting for Settle.
func (s *Surface) Pending() bool { return s.queued != nil }

func (s *Surface) PanTo(at domain.Coordinate) error {
	if !at.IsNumeric() {
		return fmt.Errorf("pan: invalid coordinate %v", at)
	}
	c := s.next()
	c.center = at
	s.queue(c)
	return nil
}

func (s *Surface) SetZoom(zoom float64) error {
	if math.IsNaN(zoom) || math.IsInf(zoom, 0) {
		return fmt.Errorf("set zoom: invalid zoom %v", zoom)
	}
	c := s.next()
	c.zoom = s.clampZoom(zoom)
	s.queue(c)
	return nil
}

// FitBounds centers box and picks the largest whole zoom at which it fits
// inside the viewport minus padding on every side. A degenerate box fits at
// the surface's maximum zoom.
func (s *Surface) FitBounds(box domain.Region, padding int) error {
	nw := domain.Coordinate{Lat: box.North, Lng: box.West}
	se := domain.Coordinate{Lat: box.South, Lng: box.East}
	if !nw.IsNumeric() || !se.IsNumeric() || box.North < box.South || box.East < box.West {
		return fmt.Errorf("fit bounds: invalid box %+v", box)
	}

	x1, y1 := project(nw)
	x2, y2 := project(se)
	availW := math.Max(1, s.width-2*float64(padding))
	availH := math.Max(1, s.height-2*float64(padding))

	zoom := s.maxZoom
	if dx := x2 - x1; dx > 0 {
		zoom = math.Min(zoom, math.Log2(availW/(dx*tileSize)))
	}
	if dy := y2 - y1; dy > 0 {
		zoom = math.Min(zoom, math.Log2(availH/(dy*tileSize)))
	}

	s.queue(camera{
		center: unproject((x1+x2)/2, (y1+y2)/2),
		zoom:   s.clampZoom(math.Floor(zoom)),
	})
	return nil
}

func (s *Surface) ViewportCenter() domain.Coordinate { return s.cam.center }

func (s *Surface) Zoom() float64 { return s.cam.zoom }

// ViewportBounds is the lat/lng box currently visible.
func (s *Surface) ViewportBounds() domain.Region {
	cx, cy := project(s.cam.center)
	ws := worldSize(s.cam.zoom)
	halfW := s.width / 2 / ws
	halfH := s.height / 2 / ws

	top := math.Max(0, cy-halfH)
	bottom := math.Min(1, cy+halfH)
	return domain.Region{
		North: unproject(cx, top).Lat,
		South: unproject(cx, bottom).Lat,
		East:  unproject(cx+halfW, cy).Lng,
		West:  unproject(cx-halfW, cy).Lng,
	}
}
