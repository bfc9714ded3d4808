// Package app holds the dependencies shared by HTTP handlers, helpers and
// middleware.
package app

import (
	"io"
	"log/slog"

	"github.com/MBL11/transit-app-sub002/internal/appconf"
	"github.com/MBL11/transit-app-sub002/internal/clock"
	"github.com/MBL11/transit-app-sub002/internal/gtfs"
	"github.com/MBL11/transit-app-sub002/internal/logging"
	"github.com/MBL11/transit-app-sub002/internal/metrics"
	"github.com/MBL11/transit-app-sub002/internal/planner"
)

type Application struct {
	Config      appconf.Config
	GtfsConfig  gtfs.Config
	Logger      *slog.Logger
	GtfsManager *gtfs.Manager
	Planner     *planner.Planner
	Clock       clock.Clock
	Metrics     *metrics.Metrics

	closers []io.Closer
}

// OnClose registers c to be closed by Close.
func (a *Application) OnClose(c io.Closer) {
	a.closers = append(a.closers, c)
}

// Close releases registered resources in reverse order, then stops the
// metrics collector and the GTFS manager.
func (a *Application) Close() {
	logger := a.Logger
	if logger == nil {
		logger = slog.Default()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		logging.SafeCloseWithLogging(a.closers[i], logger, "application")
	}
	a.closers = nil

	if a.Metrics != nil {
		a.Metrics.Shutdown()
	}
	if a.GtfsManager != nil {
		a.GtfsManager.Shutdown()
	}
}
