package restapi

import (
	"time"

	"github.com/MBL11/transit-app-sub002/internal/app"
	"github.com/MBL11/transit-app-sub002/internal/clock"
)

// RestAPI serves the journey planner over HTTP.
type RestAPI struct {
	*app.Application
	rateLimiter *RateLimitMiddleware
}

func NewRestAPI(application *app.Application) *RestAPI {
	if application != nil && application.Clock == nil {
		application.Clock = clock.RealClock{}
	}

	api := &RestAPI{Application: application}
	if application != nil {
		api.rateLimiter = NewRateLimitMiddleware(
			application.Config.RateLimit,
			time.Second,
			application.Config.ExemptApiKeys,
			application.Clock,
		)
	}
	return api
}

// Shutdown stops background work owned by the API.
func (api *RestAPI) Shutdown() {
	if api.rateLimiter != nil {
		api.rateLimiter.Stop()
	}
}
