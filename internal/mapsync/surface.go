package mapsync

import "github.com/couchcryptid/listing-map-sync/internal/domain"

// MarkerHandle is an opaque marker reference issued by a Surface. Only the
// reconciler holds handles.
type MarkerHandle any

// Surface is the rendering side of the map: a map library, a test double, or
// the in-process memsurface.
//
// Camera commands (PanTo, FitBounds, SetZoom) may complete asynchronously;
// completion is observed through OnBoundsChanged.
type Surface interface {
	CreateMarker(at domain.Coordinate, style domain.IconStyle) (MarkerHandle, error)
	DestroyMarker(h MarkerHandle) error
	MoveMarker(h MarkerHandle, to domain.Coordinate) error
	SetIcon(h MarkerHandle, style domain.IconStyle) error
	SetZOrder(h MarkerHandle, tier domain.Tier) error
	OpenTooltip(h MarkerHandle) error
	CloseTooltip(h MarkerHandle) error

	PanTo(at domain.Coordinate) error
	FitBounds(box domain.Region, padding int) error
	ViewportBounds() domain.Region
	ViewportCenter() domain.Coordinate
	Zoom() float64
	SetZoom(zoom float64) error

	// OnBoundsChanged subscribes fn to viewport changes. The returned func
	// unsubscribes and is safe to call more than once, including from fn.
	OnBoundsChanged(fn func()) (unsubscribe func())
	OnMarkerPointerEnter(h MarkerHandle, fn func())
	OnMarkerPointerLeave(h MarkerHandle, fn func())
	OnMarkerActivate(h MarkerHandle, fn func())
}
