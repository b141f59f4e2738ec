package domain

import (
	"context"
	"log/slog"
	"strings"
)

// FullAddress joins the listing address parts into one geocoder query.
// It returns "" when there is no street address.
func (l Listing) FullAddress() string {
	if strings.TrimSpace(l.Address) == "" {
		return ""
	}
	parts := []string{strings.TrimSpace(l.Address)}
	for _, p := range []string{l.City, strings.TrimSpace(l.State + " " + l.Zip)} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// EnrichWithGeocoding fills in missing coordinates from the listing address.
// Listings that already have numeric coordinates are left as they are. If
// geocoder is nil or geocoding fails, the listing keeps its NaN coordinates
// and GeoSource records why (graceful degradation).
func EnrichWithGeocoding(ctx context.Context, listing Listing, geocoder Geocoder, logger *slog.Logger) Listing {
	if listing.Coordinate().IsNumeric() {
		listing.GeoSource = "original"
		return listing
	}

	address := listing.FullAddress()
	if geocoder == nil || address == "" {
		listing.GeoSource = "none"
		return listing
	}

	result, err := geocoder.ForwardGeocode(ctx, address)
	if err != nil {
		logger.Warn("forward geocoding failed",
			"listing_id", listing.ID,
			"address", address,
			"error", err,
		)
		listing.GeoSource = "failed"
		return listing
	}
	if !result.Found() {
		listing.GeoSource = "none"
		return listing
	}

	listing.Lat = result.Lat
	listing.Lng = result.Lng
	listing.FormattedAddress = result.FormattedAddress
	listing.GeoConfidence = result.Confidence
	listing.GeoSource = "forward"
	return listing
}
