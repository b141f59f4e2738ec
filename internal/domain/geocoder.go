package domain

import "context"

// GeocodingResult contains location data returned by a geocoding provider.
type GeocodingResult struct {
	Lat              float64
	Lng              float64
	FormattedAddress string
	Confidence       float64 // 0.0–1.0 provider confidence score
}

// Found reports whether the provider returned a usable match.
func (r GeocodingResult) Found() bool {
	return r.FormattedAddress != ""
}

// Geocoder resolves listing addresses to coordinates.
type Geocoder interface {
	// ForwardGeocode converts a free-form street address to coordinates.
	ForwardGeocode(ctx context.Context, address string) (GeocodingResult, error)
}
