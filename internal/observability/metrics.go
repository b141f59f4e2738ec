package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "listing_map"

// Metrics holds the Prometheus counters, histograms, and gauges for the map
// engine and the snapshot feed that drives it.
type Metrics struct {
	// Marker engine metrics.
	MarkersLive      prometheus.Gauge
	MarkersCreated   prometheus.Counter
	MarkersDestroyed prometheus.Counter
	SurfaceErrors    *prometheus.CounterVec // labels: op={create,destroy,move,icon,zorder,tooltip,pan,fit,zoom}
	SyncDuration     prometheus.Histogram
	TooltipOpens     prometheus.Counter
	IndicatorChanges prometheus.Counter
	ZoomClamps       prometheus.Counter

	// Snapshot feed metrics.
	SnapshotsConsumed prometheus.Counter
	SnapshotErrors    prometheus.Counter
	EventsProduced    prometheus.Counter
	EventsDropped     prometheus.Counter
	PipelineRunning   prometheus.Gauge
	BatchSize         prometheus.Histogram

	// Geocoding metrics.
	GeocodeRequests    *prometheus.CounterVec // labels: outcome={success,error,empty}
	GeocodeCache       *prometheus.CounterVec // labels: tier={memory,redis}, result={hit,miss}
	GeocodeAPIDuration prometheus.Histogram
	GeocodeEnabled     prometheus.Gauge
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	return newMetrics(prometheus.DefaultRegisterer)
}

// NewMetricsForTesting creates Metrics on a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics(prometheus.NewRegistry())
}

// NewMetricsWith registers all metrics on reg.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	return newMetrics(reg)
}

func newMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		MarkersLive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "markers_live",
			Help:      "Markers currently held by the reconciler.",
		}),
		MarkersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "markers_created_total",
			Help:      "Marker handles created on the rendering surface.",
		}),
		MarkersDestroyed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "markers_destroyed_total",
			Help:      "Marker handles destroyed on the rendering surface.",
		}),
		SurfaceErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "surface_errors_total",
			Help:      "Failed rendering surface calls by operation.",
		}, []string{"op"}),
		SyncDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sync_duration_seconds",
			Help:      "Duration of one engine sync.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}),
		TooltipOpens: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tooltip_opens_total",
			Help:      "Tooltips opened by the hover controller.",
		}),
		IndicatorChanges: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "indicator_changes_total",
			Help:      "Published changes of the off-screen indicator set.",
		}),
		ZoomClamps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "zoom_clamps_total",
			Help:      "Bounds fits whose zoom was clamped to the ceiling.",
		}),
		SnapshotsConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_consumed_total",
			Help:      "Listing snapshots read from the source topic.",
		}),
		SnapshotErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_errors_total",
			Help:      "Listing snapshots that could not be decoded.",
		}),
		EventsProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_produced_total",
			Help:      "Map events written to the sink topic.",
		}),
		EventsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dropped_total",
			Help:      "Map events dropped because the publish queue was full.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 when the snapshot feed is active, 0 when shut down.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Number of snapshots per batch extracted from Kafka.",
			Buckets:   []float64{1, 2, 5, 10, 20, 50},
		}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_requests_total",
			Help:      "Geocoding API requests by outcome.",
		}, []string{"outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_cache_total",
			Help:      "Geocoding cache lookups by tier and result.",
		}, []string{"tier", "result"}),
		GeocodeAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "geocode_api_duration_seconds",
			Help:      "Mapbox API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		GeocodeEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "geocode_enabled",
			Help:      "1 when geocoding enrichment is enabled, 0 otherwise.",
		}),
	}

	reg.MustRegister(
		m.MarkersLive,
		m.MarkersCreated,
		m.MarkersDestroyed,
		m.SurfaceErrors,
		m.SyncDuration,
		m.TooltipOpens,
		m.IndicatorChanges,
		m.ZoomClamps,
		m.SnapshotsConsumed,
		m.SnapshotErrors,
		m.EventsProduced,
		m.EventsDropped,
		m.PipelineRunning,
		m.BatchSize,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.GeocodeAPIDuration,
		m.GeocodeEnabled,
	)

	return m
}
