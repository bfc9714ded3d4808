package planner

import (
	"context"
	"time"
)

// Schedule is the read-only data-access surface over the stored timetable.
// Minutes are minutes since midnight of the service day.
type Schedule interface {
	StopByID(ctx context.Context, id string) (Stop, bool, error)
	RoutesForStop(ctx context.Context, stopID string, includeBus bool) ([]Route, error)
	RoutesForStops(ctx context.Context, stopIDs []string, includeBus bool) (map[string][]Route, error)
	// StopsForRoute returns the stops of a route ordered by sequence.
	StopsForRoute(ctx context.Context, routeID string) ([]Stop, error)
	// FindTransferStops pairs stops of the from routes with stops of the to
	// routes no further than maxDistance apart, nearest first.
	FindTransferStops(ctx context.Context, fromRouteIDs, toRouteIDs []string, maxDistance float64, maxResults int) ([]TransferPoint, error)
	NextDeparture(ctx context.Context, routeID, stopID string, afterMinute int, services ServiceSet, windowMinutes int) (int, bool, error)
	// HasDepartures reports whether any trip of routeID stops at stopID,
	// whatever its service or time.
	HasDepartures(ctx context.Context, routeID, stopID string) (bool, error)
	ActualTravelTime(ctx context.Context, routeID, fromStopID, toStopID string) (int, bool, error)
	AnyRouteTravelTime(ctx context.Context, fromStopID, toStopID string) (int, bool, error)
	ActiveServices(ctx context.Context, date time.Time) (ServiceSet, error)
	IntermediateStops(ctx context.Context, routeID, fromStopID, toStopID string) ([]Stop, error)
	TripHeadsign(ctx context.Context, routeID, fromStopID, toStopID string) (string, error)
}

// Geography answers spatial and name questions about stops.
type Geography interface {
	NearbyStops(ctx context.Context, lat, lon float64, count int, radius float64) ([]NearbyStop, error)
	// ExpandCoLocated returns stops plus every mode-specific stop sharing a
	// base name with one of them at the same place.
	ExpandCoLocated(ctx context.Context, stops []Stop) ([]Stop, error)
	SearchStops(ctx context.Context, name string, limit int) ([]Stop, error)
}

// Geocoder resolves a free-text address.
type Geocoder interface {
	Geocode(ctx context.Context, text string) ([]Place, error)
}

// ErrorReporter receives upstream failures with module/action tags.
type ErrorReporter interface {
	Report(ctx context.Context, err error, tags map[string]string)
}

// Observer receives planner measurements.
type Observer interface {
	ObserveSearch(operation string, duration time.Duration, outcome string)
	TierResults(tier string, count int)
	PairsEvaluated(count int)
	BudgetExhausted()
}

type nopObserver struct{}

func (nopObserver) ObserveSearch(string, time.Duration, string) {}
func (nopObserver) TierResults(string, int)                     {}
func (nopObserver) PairsEvaluated(int)                          {}
func (nopObserver) BudgetExhausted()                            {}
