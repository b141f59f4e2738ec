package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// wireSnapshot is the JSON shape published by the listing service. Pointer
// fields distinguish "absent" from zero.
type wireSnapshot struct {
	Listings      []wireListing `json:"listings"`
	HighlightedID string        `json:"highlighted_id"`
	InitialCenter *struct {
		Lat *float64 `json:"lat"`
		Lng *float64 `json:"lng"`
	} `json:"initial_center"`
	InitialZoom *float64 `json:"initial_zoom"`
}

type wireListing struct {
	ID      string   `json:"id"`
	Lat     *float64 `json:"lat"`
	Lng     *float64 `json:"lng"`
	Address string   `json:"address"`
	City    string   `json:"city"`
	State   string   `json:"state"`
	Zip     string   `json:"zip"`
	Price   float64  `json:"price"`
}

// ParseSnapshot decodes a raw message into a Snapshot. Listings without an id
// are dropped; missing coordinates become NaN.
func ParseSnapshot(raw RawEvent) (Snapshot, error) {
	var w wireSnapshot
	if err := json.Unmarshal(raw.Value, &w); err != nil {
		return Snapshot{}, fmt.Errorf("parse snapshot: %w", err)
	}
	if w.Listings == nil {
		return Snapshot{}, errors.New("parse snapshot: missing listings")
	}

	s := Snapshot{
		Listings:      make([]Listing, 0, len(w.Listings)),
		HighlightedID: strings.TrimSpace(w.HighlightedID),
		InitialZoom:   w.InitialZoom,
		ReceivedAt:    raw.Timestamp,
	}
	if s.ReceivedAt.IsZero() {
		s.ReceivedAt = Now()
	}
	if c := w.InitialCenter; c != nil && c.Lat != nil && c.Lng != nil {
		s.InitialCenter = &Coordinate{Lat: *c.Lat, Lng: *c.Lng}
	}

	for _, wl := range w.Listings {
		id := strings.TrimSpace(wl.ID)
		if id == "" {
			continue
		}
		s.Listings = append(s.Listings, Listing{
			ID:      id,
			Lat:     floatOrNaN(wl.Lat),
			Lng:     floatOrNaN(wl.Lng),
			Address: wl.Address,
			City:    wl.City,
			State:   wl.State,
			Zip:     wl.Zip,
			Price:   wl.Price,
		})
	}
	return s, nil
}

func floatOrNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

// SerializeMapEvent marshals a MapEvent into a sink message keyed by entity id.
func SerializeMapEvent(event MapEvent) (OutputEvent, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return OutputEvent{}, fmt.Errorf("serialize map event: %w", err)
	}
	return OutputEvent{
		Key:   []byte(event.EntityID),
		Value: data,
		Headers: map[string]string{
			"type": event.Type,
			"at":   event.At.Format(time.RFC3339),
		},
	}, nil
}
