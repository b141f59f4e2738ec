package domain

import "fmt"

// Direction names one of the four viewport edges.
type Direction string

const (
	DirectionTop    Direction = "top"
	DirectionRight  Direction = "right"
	DirectionBottom Direction = "bottom"
	DirectionLeft   Direction = "left"
)

// ParseDirection validates an edge name.
func ParseDirection(s string) (Direction, error) {
	switch d := Direction(s); d {
	case DirectionTop, DirectionRight, DirectionBottom, DirectionLeft:
		return d, nil
	default:
		return "", fmt.Errorf("unknown direction %q", s)
	}
}

// Indicators is the full set of off-screen arrows. It is always recomputed
// as a whole.
type Indicators struct {
	Top    bool `json:"top"`
	Right  bool `json:"right"`
	Bottom bool `json:"bottom"`
	Left   bool `json:"left"`
}

// Any reports whether at least one indicator is visible.
func (i Indicators) Any() bool {
	return i.Top || i.Right || i.Bottom || i.Left
}

// Visible reports the state of a single edge.
func (i Indicators) Visible(d Direction) bool {
	switch d {
	case DirectionTop:
		return i.Top
	case DirectionRight:
		return i.Right
	case DirectionBottom:
		return i.Bottom
	case DirectionLeft:
		return i.Left
	}
	return false
}

// OffscreenIndicators decides which edges point at target. Nothing is shown
// when target is inside viewport. Otherwise each axis is compared with the
// viewport center on its own, so a diagonal target lights two edges.
func OffscreenIndicators(target Coordinate, viewport Region, center Coordinate) Indicators {
	if viewport.Contains(target) {
		return Indicators{}
	}
	return Indicators{
		Top:    target.Lat > center.Lat,
		Bottom: target.Lat < center.Lat,
		Right:  target.Lng > center.Lng,
		Left:   target.Lng < center.Lng,
	}
}
