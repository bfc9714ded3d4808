package restapi

import "net/http"

// protected wraps a handler with rate limiting, the API key check and a
// Cache-Control policy.
func (api *RestAPI) protected(cacheSeconds int, handler http.HandlerFunc) http.Handler {
	var h http.Handler = CacheControlMiddleware(cacheSeconds, handler)
	h = api.requireAPIKey(h)
	if api.rateLimiter != nil {
		h = api.rateLimiter.Handler()(h)
	}
	return h
}

// SetRoutes registers every API endpoint on mux.
func (api *RestAPI) SetRoutes(mux *http.ServeMux) {
	mux.Handle("GET /api/plan/journeys.json", api.protected(cacheNone, api.journeysHandler))
	mux.Handle("GET /api/plan/stop-to-stop.json", api.protected(cacheNone, api.stopToStopHandler))
	mux.Handle("GET /api/where/stops-search.json", api.protected(cacheStops, api.searchStopsHandler))
	mux.Handle("GET /api/where/config.json", api.protected(cacheConfig, api.configHandler))

	mux.HandleFunc("GET /healthz", api.healthHandler)
	if api.Application != nil && api.Metrics != nil {
		mux.Handle("GET /metrics", metricsEndpoint(api.Metrics))
	}
}
