package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/MBL11/transit-app-sub002/internal/app"
	"github.com/MBL11/transit-app-sub002/internal/appconf"
	"github.com/MBL11/transit-app-sub002/internal/clock"
	"github.com/MBL11/transit-app-sub002/internal/geocode"
	"github.com/MBL11/transit-app-sub002/internal/gtfs"
	"github.com/MBL11/transit-app-sub002/internal/logging"
	"github.com/MBL11/transit-app-sub002/internal/metrics"
	"github.com/MBL11/transit-app-sub002/internal/planner"
	"github.com/MBL11/transit-app-sub002/internal/restapi"
	"github.com/MBL11/transit-app-sub002/internal/webui"
)

const dbStatsInterval = 15 * time.Second

func newLogger(cfg appconf.Config) *slog.Logger {
	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

// BuildApplication imports the feed and wires the planner and its
// collaborators. The caller owns the returned application and must Close it.
func BuildApplication(cfg appconf.Config, gtfsCfg gtfs.Config) (*app.Application, error) {
	logger := newLogger(cfg)

	profile := planner.DefaultCostProfile()
	if cfg.CostProfilePath != "" {
		loaded, err := planner.LoadCostProfile(cfg.CostProfilePath)
		if err != nil {
			return nil, fmt.Errorf("failed to load cost profile: %w", err)
		}
		profile = loaded
	}
	if cfg.PlannerBudget > 0 {
		profile.SearchBudget = planner.Duration{Duration: cfg.PlannerBudget}
	}

	gtfsManager, err := gtfs.InitGTFSManager(gtfsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize GTFS manager: %w", err)
	}

	m := metrics.NewWithLogger(logger)
	if gtfsManager.GtfsDB != nil {
		m.StartDBStatsCollector(gtfsManager.GtfsDB.DB, dbStatsInterval)
	}

	coreApp := &app.Application{
		Config:      cfg,
		GtfsConfig:  gtfsCfg,
		Logger:      logger,
		GtfsManager: gtfsManager,
		Clock:       clock.NewPinnedClock(pinnedTimeEnv, cfg.PinnedTimeFile, gtfsManager.Location()),
		Metrics:     m,
	}

	opts := planner.Options{
		Schedule:  gtfsManager,
		Geography: gtfsManager,
		Reporter:  logging.NewSlogReporter(logger.With(slog.String("component", "planner"))),
		Observer:  m,
		Clock:     coreApp.Clock,
		Profile:   profile,
		Logger:    logger.With(slog.String("component", "planner")),
	}
	if cfg.GeocoderURL != "" {
		opts.Geocoder = geocode.NewNominatim(geocode.Config{
			BaseURL:           cfg.GeocoderURL,
			UserAgent:         cfg.GeocoderUserAgent,
			RequestsPerSecond: 1,
		}, buildGeocodeCache(coreApp), m)
	}
	coreApp.Planner = planner.New(opts)

	return coreApp, nil
}

// buildGeocodeCache prefers Redis when configured and reachable.
func buildGeocodeCache(coreApp *app.Application) geocode.Cache {
	addr := coreApp.Config.RedisAddr
	if addr == "" {
		return geocode.NewMemoryCache()
	}

	rdb := geocode.NewRedisClient(addr)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		coreApp.Logger.Warn("redis unreachable, using in-process geocoder cache",
			slog.String("addr", addr), slog.String("error", err.Error()))
		_ = rdb.Close()
		return geocode.NewMemoryCache()
	}
	coreApp.OnClose(rdb)
	return geocode.NewRedisCache(rdb, "")
}

// CreateServer builds the HTTP server and its middleware chain.
func CreateServer(coreApp *app.Application, cfg appconf.Config) (*http.Server, *restapi.RestAPI) {
	api := restapi.NewRestAPI(coreApp)

	mux := http.NewServeMux()
	api.SetRoutes(mux)
	webui.NewWebUI(coreApp).SetWebUIRoutes(mux)

	var handler http.Handler = mux
	compress, err := restapi.NewCompressionMiddleware(0)
	if err != nil {
		logging.LogError(coreApp.Logger, "gzip disabled", err)
	} else {
		handler = compress(handler)
	}
	handler = restapi.NewCORSMiddleware(cfg.CORSOrigins)(handler)
	handler = restapi.MetricsHandler(coreApp.Metrics)(handler)
	handler = restapi.NewRequestLoggingMiddleware(coreApp.Logger)(handler)
	handler = restapi.RequestIDMiddleware(handler)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 15 * time.Second,
		ErrorLog:     slog.NewLogLogger(coreApp.Logger.Handler(), slog.LevelError),
	}
	return srv, api
}

// Run serves until ctx is canceled, then drains in-flight requests.
func Run(ctx context.Context, srv *http.Server, coreApp *app.Application, api *restapi.RestAPI, shutdownTimeout time.Duration) error {
	logger := coreApp.Logger
	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("addr", srv.Addr), slog.String("env", coreApp.Config.Env.String()))
		errCh <- srv.ListenAndServe()
	}()

	var serveErr error
	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr = err
		}
	case <-ctx.Done():
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			serveErr = fmt.Errorf("server shutdown failed: %w", err)
		}
	}

	api.Shutdown()
	coreApp.Close()
	return serveErr
}
