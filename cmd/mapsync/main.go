package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/couchcryptid/listing-map-sync/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/listing-map-sync/internal/adapter/kafka"
	"github.com/couchcryptid/listing-map-sync/internal/adapter/mapbox"
	"github.com/couchcryptid/listing-map-sync/internal/adapter/memsurface"
	"github.com/couchcryptid/listing-map-sync/internal/config"
	"github.com/couchcryptid/listing-map-sync/internal/domain"
	"github.com/couchcryptid/listing-map-sync/internal/mapsync"
	"github.com/couchcryptid/listing-map-sync/internal/observability"
	"github.com/couchcryptid/listing-map-sync/internal/pipeline"
	"github.com/couchcryptid/listing-map-sync/internal/session"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
)

func main() {
	// A missing .env is fine; the environment wins over it anyway.
	_ = godotenv.Load(".env")

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	geocoder, closeGeocoder := newGeocoder(cfg, logger, metrics)
	defer closeGeocoder()

	surface := memsurface.New(memsurface.Options{
		Width:   cfg.ViewportWidth,
		Height:  cfg.ViewportHeight,
		MaxZoom: 22,
		Center:  domain.SupportedRegion.Center(),
		Zoom:    4,
	})
	loop := session.New(256, surface, logger)

	clock := clockwork.NewRealClock()
	engine := mapsync.New(mapsync.Options{
		Clock:         clock,
		HoverDebounce: cfg.HoverDebounce,
		FitPadding:    cfg.FitPadding,
		MaxZoom:       cfg.MaxZoom,
		Dispatch:      loop.Dispatch,
	}, logger, metrics)
	// Nothing else touches the engine until the loop starts.
	engine.Attach(surface)

	writer := kafkaadapter.NewWriter(cfg, logger)
	publisher := pipeline.NewPublisher(writer, cfg.BatchSize, cfg.BatchFlushInterval, clock, logger, metrics)
	engine.OnActivate(publisher.Activated)
	engine.OnIndicators(publisher.IndicatorsChanged)

	ctl := session.NewController(loop, engine, surface)

	reader := kafkaadapter.NewReader(cfg, logger)
	transformer := pipeline.NewTransformer(geocoder, logger)
	p := pipeline.New(reader, transformer, ctl, logger, metrics, cfg.BatchSize)

	srv := httpadapter.NewServer(cfg.HTTPAddr, ctl, ctl, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	goRun := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil {
				logger.Error(name+" error", "error", err)
			}
		}()
	}

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	goRun("session loop", loop.Run)
	goRun("publisher", publisher.Run)
	goRun("pipeline", p.Run)

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	wg.Wait()
	engine.Close()

	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}

	logger.Info("shutdown complete")
}

// newGeocoder is feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN. The
// returned func releases the Redis client, if any.
func newGeocoder(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (domain.Geocoder, func()) {
	if !cfg.MapboxEnabled {
		metrics.GeocodeEnabled.Set(0)
		logger.Info("mapbox geocoding disabled")
		return nil, func() {}
	}
	metrics.GeocodeEnabled.Set(1)

	client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, metrics, logger)
	cached := mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics, logger)
	logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)

	rc := mapbox.OpenRedis(cfg.GeocodeRedisAddr)
	if rc == nil {
		return cached, func() {}
	}
	remote := mapbox.NewRedisCache(rc, cfg.GeocodeRedisTTL)
	if err := remote.Ping(context.Background()); err != nil {
		logger.Warn("geocode redis unreachable, continuing with memory cache only", "addr", cfg.GeocodeRedisAddr, "error", err)
	} else {
		logger.Info("geocode redis cache enabled", "addr", cfg.GeocodeRedisAddr, "ttl", cfg.GeocodeRedisTTL)
	}
	cached.WithRemote(remote)
	return cached, func() {
		if err := remote.Close(); err != nil {
			logger.Error("redis close error", "error", err)
		}
	}
}
