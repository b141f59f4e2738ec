package domain

import (
	"context"
	"time"
)

// RawEvent represents an unprocessed message from the source topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// OutputEvent is the serialized form destined for the sink topic.
type OutputEvent struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}

// Listing is one property listing as carried in a snapshot. Lat and Lng are
// NaN when the feed did not supply them.
type Listing struct {
	ID      string  `json:"id"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address,omitempty"`
	City    string  `json:"city,omitempty"`
	State   string  `json:"state,omitempty"`
	Zip     string  `json:"zip,omitempty"`
	Price   float64 `json:"price,omitempty"`

	// Geocoding enrichment fields.
	FormattedAddress string  `json:"formatted_address,omitempty"`
	GeoConfidence    float64 `json:"geo_confidence,omitempty"`
	GeoSource        string  `json:"geo_source,omitempty"` // "original", "forward", "failed", "none"
}

// Coordinate returns the listing position.
func (l Listing) Coordinate() Coordinate {
	return Coordinate{Lat: l.Lat, Lng: l.Lng}
}

// Snapshot is the full desired map state published by the listing service.
type Snapshot struct {
	Listings      []Listing
	HighlightedID string
	InitialCenter *Coordinate
	InitialZoom   *float64
	ReceivedAt    time.Time
}

// Entities converts the listings into engine input. The listing itself is
// carried as the entity attributes.
func (s Snapshot) Entities() []GeoEntity {
	out := make([]GeoEntity, 0, len(s.Listings))
	for _, l := range s.Listings {
		out = append(out, GeoEntity{ID: l.ID, Lat: l.Lat, Lng: l.Lng, Attributes: l})
	}
	return out
}

// Map event types published to the sink topic.
const (
	MapEventActivate   = "activate"
	MapEventIndicators = "indicators"
)

// MapEvent is a user-facing signal emitted by the map engine.
type MapEvent struct {
	Type       string      `json:"type"`
	EntityID   string      `json:"entity_id,omitempty"`
	Indicators *Indicators `json:"indicators,omitempty"`
	At         time.Time   `json:"at"`
}
