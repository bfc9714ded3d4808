package main

import (
	"flag"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/MBL11/transit-app-sub002/internal/appconf"
	"github.com/MBL11/transit-app-sub002/internal/gtfs"
)

// pinnedTimeEnv pins the planner clock, e.g. to plan against an old feed.
const pinnedTimeEnv = "TRANSIT_PINNED_TIME"

// options are the process settings that do not belong to appconf.Config.
type options struct {
	shutdownTimeout time.Duration
}

// ParseAPIKeys splits a comma separated key list, trimming whitespace.
func ParseAPIKeys(apiKeysFlag string) []string {
	if apiKeysFlag == "" {
		return []string{}
	}
	keys := strings.Split(apiKeysFlag, ",")
	for i, key := range keys {
		keys[i] = strings.TrimSpace(key)
	}
	return keys
}

func parseList(value string) []string {
	var out []string
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

type envLookup func(string) string

func (env envLookup) str(key, def string) string {
	if v := strings.TrimSpace(env(key)); v != "" {
		return v
	}
	return def
}

func (env envLookup) int(key string, def int) int {
	if v, err := strconv.Atoi(env.str(key, "")); err == nil {
		return v
	}
	return def
}

func (env envLookup) bool(key string, def bool) bool {
	if v, err := strconv.ParseBool(env.str(key, "")); err == nil {
		return v
	}
	return def
}

func (env envLookup) duration(key string, def time.Duration) time.Duration {
	if v, err := time.ParseDuration(env.str(key, "")); err == nil {
		return v
	}
	return def
}

// parseConfig reads the command line. Every flag defaults to an environment
// variable so the server can be configured through .env files.
func parseConfig(fs *flag.FlagSet, args []string, getenv func(string) string) (appconf.Config, gtfs.Config, options, error) {
	env := envLookup(getenv)

	port := fs.Int("port", env.int("PORT", 4000), "API server port")
	envName := fs.String("env", env.str("ENV", "development"), "Environment (development|test|production)")
	apiKeys := fs.String("api-keys", env.str("API_KEYS", "test"), "Comma separated API keys")
	exemptKeys := fs.String("exempt-api-keys", env.str("EXEMPT_API_KEYS", ""), "Comma separated API keys that are not rate limited")
	rateLimit := fs.Int("rate-limit", env.int("RATE_LIMIT", 100), "Requests per second per API key (negative disables)")
	verbose := fs.Bool("verbose", env.bool("VERBOSE", false), "Debug logging")

	gtfsURL := fs.String("gtfs-url", env.str("GTFS_URL", ""), "URL or path of the static GTFS zip")
	authKey := fs.String("gtfs-auth-header", env.str("GTFS_AUTH_HEADER", ""), "Header name sent when downloading the feed")
	authValue := fs.String("gtfs-auth-value", env.str("GTFS_AUTH_VALUE", ""), "Header value sent when downloading the feed")
	dataPath := fs.String("data-path", env.str("GTFS_DATA_PATH", "./gtfs.db"), "SQLite file for the schedule, or :memory:")
	updateInterval := fs.Duration("gtfs-update-interval", env.duration("GTFS_UPDATE_INTERVAL", 0), "Re-import interval for remote feeds")
	tidy := fs.Bool("enable-gtfs-tidy", env.bool("ENABLE_GTFS_TIDY", false), "Run imported feeds through gtfstidy")

	costProfile := fs.String("cost-profile", env.str("COST_PROFILE", ""), "YAML file overriding planner constants")
	budget := fs.Duration("planner-budget", env.duration("PLANNER_BUDGET", 0), "Time budget of one free-form search")
	geocoderURL := fs.String("geocoder-url", env.str("GEOCODER_URL", ""), "Nominatim compatible search API; empty disables addresses")
	geocoderUA := fs.String("geocoder-user-agent", env.str("GEOCODER_USER_AGENT", "transit-planner"), "User-Agent sent to the geocoder")
	redisAddr := fs.String("redis-addr", env.str("REDIS_ADDR", ""), "Redis address for the shared geocoder cache")
	corsOrigins := fs.String("cors-origins", env.str("CORS_ORIGINS", ""), "Comma separated allowed browser origins")

	pinnedFile := fs.String("pinned-time-file", env.str("PINNED_TIME_FILE", ""), "File holding a fixed current time")
	shutdownTimeout := fs.Duration("shutdown-timeout", env.duration("SHUTDOWN_TIMEOUT", 30*time.Second), "Graceful shutdown timeout")

	if err := fs.Parse(args); err != nil {
		return appconf.Config{}, gtfs.Config{}, options{}, err
	}

	environment, err := appconf.EnvFlagToEnvironment(*envName)
	if err != nil {
		return appconf.Config{}, gtfs.Config{}, options{}, err
	}
	if *gtfsURL == "" {
		return appconf.Config{}, gtfs.Config{}, options{}, fmt.Errorf("a GTFS feed is required (-gtfs-url or GTFS_URL)")
	}

	cfg := appconf.Config{
		Port:              *port,
		Env:               environment,
		ApiKeys:           ParseAPIKeys(*apiKeys),
		ExemptApiKeys:     parseList(*exemptKeys),
		Verbose:           *verbose,
		RateLimit:         *rateLimit,
		PlannerBudget:     *budget,
		CostProfilePath:   *costProfile,
		GeocoderURL:       *geocoderURL,
		GeocoderUserAgent: *geocoderUA,
		RedisAddr:         *redisAddr,
		CORSOrigins:       parseList(*corsOrigins),
		PinnedTimeFile:    *pinnedFile,
	}
	gtfsCfg := gtfs.Config{
		GtfsURL:               *gtfsURL,
		StaticAuthHeaderKey:   *authKey,
		StaticAuthHeaderValue: *authValue,
		GTFSDataPath:          *dataPath,
		Env:                   environment,
		Verbose:               *verbose,
		UpdateInterval:        *updateInterval,
		EnableGTFSTidy:        *tidy,
	}
	return cfg, gtfsCfg, options{shutdownTimeout: *shutdownTimeout}, nil
}
