package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/listing-map-sync/internal/domain"
)

// SnapshotTransformer implements Transformer by decoding the snapshot and
// geocoding listings that arrived without coordinates.
type SnapshotTransformer struct {
	geocoder domain.Geocoder
	logger   *slog.Logger
}

// NewTransformer creates a SnapshotTransformer. Pass a nil geocoder to disable
// geocoding enrichment.
func NewTransformer(geocoder domain.Geocoder, logger *slog.Logger) *SnapshotTransformer {
	return &SnapshotTransformer{
		geocoder: geocoder,
		logger:   logger,
	}
}

func (t *SnapshotTransformer) Transform(ctx context.Context, raw domain.RawEvent) (domain.Snapshot, error) {
	snapshot, err := domain.ParseSnapshot(raw)
	if err != nil {
		return domain.Snapshot{}, err
	}

	for i, l := range snapshot.Listings {
		snapshot.Listings[i] = domain.EnrichWithGeocoding(ctx, l, t.geocoder, t.logger)
	}
	return snapshot, nil
}
