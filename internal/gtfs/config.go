package gtfs

import (
	"strings"
	"time"

	"github.com/MBL11/transit-app-sub002/internal/appconf"
)

const defaultUpdateInterval = 24 * time.Hour

// Config holds GTFS configuration for the manager.
type Config struct {
	// GtfsURL is an http(s) URL or a local path to a static GTFS zip.
	GtfsURL               string
	StaticAuthHeaderKey   string
	StaticAuthHeaderValue string
	GTFSDataPath          string
	Env                   appconf.Environment
	Verbose               bool
	EnableGTFSTidy        bool

	// UpdateInterval is how often a remote feed is re-imported. Zero selects
	// the default; local files are never re-read on a schedule.
	UpdateInterval time.Duration
}

func (config Config) isLocalFile() bool {
	return !strings.HasPrefix(config.GtfsURL, "http://") && !strings.HasPrefix(config.GtfsURL, "https://")
}

func (config Config) updateInterval() time.Duration {
	if config.UpdateInterval <= 0 {
		return defaultUpdateInterval
	}
	return config.UpdateInterval
}
