// Package geocode resolves free-text addresses through a Nominatim-compatible
// search API.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/MBL11/transit-app-sub002/internal/logging"
	"github.com/MBL11/transit-app-sub002/internal/planner"
	"github.com/MBL11/transit-app-sub002/internal/utils"
	"golang.org/x/time/rate"
)

const (
	defaultResultLimit = 5
	defaultCacheTTL    = 24 * time.Hour
	maxResponseSize    = 1 << 20
)

// Recorder receives geocoder measurements. *metrics.Metrics satisfies it.
type Recorder interface {
	GeocoderRequest(status int)
	GeocoderCacheHit()
}

type Config struct {
	BaseURL   string
	UserAgent string
	// RequestsPerSecond paces upstream calls; the public Nominatim service
	// allows one per second.
	RequestsPerSecond float64
	Limit             int
	CountryCodes      string
	CacheTTL          time.Duration
	Timeout           time.Duration
}

// Nominatim is a planner.Geocoder.
type Nominatim struct {
	config   Config
	client   *http.Client
	limiter  *rate.Limiter
	cache    Cache
	recorder Recorder
	logger   *slog.Logger
}

var _ planner.Geocoder = (*Nominatim)(nil)

// NewNominatim builds a geocoder. cache and recorder may be nil.
func NewNominatim(config Config, cache Cache, recorder Recorder) *Nominatim {
	if config.Limit <= 0 {
		config.Limit = defaultResultLimit
	}
	if config.CacheTTL <= 0 {
		config.CacheTTL = defaultCacheTTL
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	limit := rate.Inf
	if config.RequestsPerSecond > 0 {
		limit = rate.Limit(config.RequestsPerSecond)
	}

	return &Nominatim{
		config:   config,
		client:   &http.Client{Timeout: config.Timeout},
		limiter:  rate.NewLimiter(limit, 1),
		cache:    cache,
		recorder: recorder,
		logger:   slog.Default().With(slog.String("component", "geocoder")),
	}
}

type nominatimResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Geocode returns the places matching text, best match first. An empty
// result is not an error.
func (n *Nominatim) Geocode(ctx context.Context, text string) ([]planner.Place, error) {
	key := utils.NormalizeName(text)
	if key == "" {
		return []planner.Place{}, nil
	}

	if places, ok := n.cached(ctx, key); ok {
		return places, nil
	}

	if err := n.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("geocoder rate limit wait: %w", err)
	}

	places, err := n.search(ctx, text)
	if err != nil {
		return nil, err
	}

	if n.cache != nil {
		if err := n.cache.Set(ctx, key, places, n.config.CacheTTL); err != nil {
			logging.LogError(n.logger, "failed to cache geocoder answer", err, slog.String("query", key))
		}
	}
	return places, nil
}

func (n *Nominatim) cached(ctx context.Context, key string) ([]planner.Place, bool) {
	if n.cache == nil {
		return nil, false
	}
	places, ok, err := n.cache.Get(ctx, key)
	if err != nil {
		logging.LogError(n.logger, "geocoder cache unavailable", err, slog.String("query", key))
		return nil, false
	}
	if ok && n.recorder != nil {
		n.recorder.GeocoderCacheHit()
	}
	return places, ok
}

func (n *Nominatim) search(ctx context.Context, text string) ([]planner.Place, error) {
	params := url.Values{}
	params.Set("format", "json")
	params.Set("q", text)
	params.Set("limit", strconv.Itoa(n.config.Limit))
	if n.config.CountryCodes != "" {
		params.Set("countrycodes", n.config.CountryCodes)
	}
	endpoint := strings.TrimSuffix(n.config.BaseURL, "/") + "/search?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating geocoder request: %w", err)
	}
	if n.config.UserAgent != "" {
		req.Header.Set("User-Agent", n.config.UserAgent)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		n.record(0)
		return nil, fmt.Errorf("geocoder request failed: %w", err)
	}
	defer logging.SafeCloseWithLogging(resp.Body, n.logger, "geocoder_response_body")
	n.record(resp.StatusCode)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocoder returned HTTP status %s", resp.Status)
	}

	var results []nominatimResult
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&results); err != nil {
		return nil, fmt.Errorf("failed to decode geocoder response: %w", err)
	}

	places := make([]planner.Place, 0, len(results))
	for _, r := range results {
		lat, latErr := strconv.ParseFloat(r.Lat, 64)
		lon, lonErr := strconv.ParseFloat(r.Lon, 64)
		if latErr != nil || lonErr != nil || !utils.ValidCoordinate(lat, lon) {
			logging.LogDebug(n.logger, "geocoder_result_skipped",
				slog.String("lat", r.Lat), slog.String("lon", r.Lon))
			continue
		}
		places = append(places, planner.Place{Lat: lat, Lon: lon, DisplayName: r.DisplayName})
	}
	return places, nil
}

func (n *Nominatim) record(status int) {
	if n.recorder != nil {
		n.recorder.GeocoderRequest(status)
	}
}
