// Package domain models the geo-located property listings shown on the
// listing map, and the pure rules the map engine applies to them.
//
// # Supported Region
//
// Listings are only ever drawn inside [SupportedRegion], the contiguous
// United States:
//
//	north  49.38   (Lake of the Woods, MN)
//	south  24.52   (Key West, FL)
//	east  -66.95   (West Quoddy Head, ME)
//	west -124.77   (Cape Alava, WA)
//
// The region is a fixed table, not configuration. A listing whose coordinate
// falls outside it is moved to the nearest point on the region boundary
// ([Region.Clamp]) rather than dropped, so slightly mis-geocoded listings near
// a border still appear. A listing whose coordinate is not a number at all
// (missing, NaN, ±Inf) is dropped.
//
// # Visual Tiers
//
// Every marker is drawn in exactly one of three tiers, in strict priority:
//
//	hovered > highlighted > default
//
// The tier is never stored as truth. It is derived from two signals, the
// id under the pointer and the id the host application highlights, by
// [TierFor] whenever either signal changes. A marker that is highlighted
// while another marker is hovered keeps its highlight; a marker that is both
// hovered and highlighted renders as hovered.
//
// # Off-screen Indicators
//
// When the highlighted listing is outside the visible viewport, up to two of
// four edge indicators (top, right, bottom, left) point toward it. The
// direction is taken per axis relative to the viewport center, see
// [OffscreenIndicators].
//
// # Snapshot Feed
//
// Listings arrive as full snapshots (never diffs) on the source topic. Each
// snapshot replaces the previous one; lat/lng may be absent, in which case
// the listing is forward-geocoded from its address when a geocoder is
// configured.
package domain
