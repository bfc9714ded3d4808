package gtfs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/MBL11/transit-app-sub002/gtfsdb"
	"github.com/MBL11/transit-app-sub002/internal/planner"
)

const (
	minutesPerDay = 24 * 60

	// earlyMorningMinute is the minute of day before which departures of
	// the previous service day running past midnight are also considered.
	earlyMorningMinute = 6 * 60
)

func (manager *Manager) StopByID(ctx context.Context, id string) (planner.Stop, bool, error) {
	manager.staticMutex.RLock()
	defer manager.staticMutex.RUnlock()
	queries, _, err := manager.reader()
	if err != nil {
		return planner.Stop{}, false, err
	}

	row, err := queries.GetStop(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return planner.Stop{}, false, nil
	}
	if err != nil {
		return planner.Stop{}, false, fmt.Errorf("failed to get stop %s: %w", id, err)
	}
	return toPlannerStop(row), true, nil
}

func (manager *Manager) RoutesForStop(ctx context.Context, stopID string, includeBus bool) ([]planner.Route, error) {
	manager.staticMutex.RLock()
	defer manager.staticMutex.RUnlock()
	queries, _, err := manager.reader()
	if err != nil {
		return nil, err
	}

	rows, err := queries.GetRoutesForStop(ctx, stopID, includeBus)
	if err != nil {
		return nil, fmt.Errorf("failed to get routes for stop %s: %w", stopID, err)
	}
	return toPlannerRoutes(rows), nil
}

func (manager *Manager) RoutesForStops(ctx context.Context, stopIDs []string, includeBus bool) (map[string][]planner.Route, error) {
	manager.staticMutex.RLock()
	defer manager.staticMutex.RUnlock()
	queries, _, err := manager.reader()
	if err != nil {
		return nil, err
	}

	rows, err := queries.GetRoutesForStops(ctx, stopIDs, includeBus)
	if err != nil {
		return nil, fmt.Errorf("failed to get routes for %d stops: %w", len(stopIDs), err)
	}
	result := make(map[string][]planner.Route, len(rows))
	for stopID, routes := range rows {
		result[stopID] = toPlannerRoutes(routes)
	}
	return result, nil
}

func (manager *Manager) StopsForRoute(ctx context.Context, routeID string) ([]planner.Stop, error) {
	manager.staticMutex.RLock()
	defer manager.staticMutex.RUnlock()
	queries, _, err := manager.reader()
	if err != nil {
		return nil, err
	}

	rows, err := queries.GetStopsForRoute(ctx, routeID)
	if err != nil {
		return nil, fmt.Errorf("failed to get stops for route %s: %w", routeID, err)
	}
	return toPlannerStops(rows), nil
}

// NextDeparture returns the first departure of routeID at stopID in
// [afterMinute, afterMinute+windowMinutes]. Before earlyMorningMinute the
// previous day's trips running past midnight are searched as well, using
// the same service set.
func (manager *Manager) NextDeparture(ctx context.Context, routeID, stopID string, afterMinute int, services planner.ServiceSet, windowMinutes int) (int, bool, error) {
	if services.Empty() {
		return 0, false, nil
	}
	manager.staticMutex.RLock()
	defer manager.staticMutex.RUnlock()
	queries, _, err := manager.reader()
	if err != nil {
		return 0, false, err
	}

	params := gtfsdb.GetNextDepartureParams{
		RouteID:    routeID,
		StopID:     stopID,
		After:      int64(afterMinute) * 60,
		Before:     int64(afterMinute+windowMinutes) * 60,
		ServiceIDs: serviceIDs(services),
	}
	seconds, ok, err := queries.GetNextDeparture(ctx, params)
	if err != nil {
		return 0, false, fmt.Errorf("failed to get next departure of %s at %s: %w", routeID, stopID, err)
	}
	best := math.MaxInt
	if ok {
		best = int(seconds / 60)
	}

	if afterMinute < earlyMorningMinute {
		params.After += minutesPerDay * 60
		params.Before += minutesPerDay * 60
		overnight, found, err := queries.GetNextDeparture(ctx, params)
		if err != nil {
			return 0, false, fmt.Errorf("failed to get overnight departure of %s at %s: %w", routeID, stopID, err)
		}
		if found && int(overnight/60)-minutesPerDay < best {
			best = int(overnight/60) - minutesPerDay
		}
	}

	if best == math.MaxInt {
		return 0, false, nil
	}
	return best, true, nil
}

// HasDepartures reports whether the timetable has any stop time of routeID
// at stopID.
func (manager *Manager) HasDepartures(ctx context.Context, routeID, stopID string) (bool, error) {
	manager.staticMutex.RLock()
	defer manager.staticMutex.RUnlock()
	queries, _, err := manager.reader()
	if err != nil {
		return false, err
	}

	found, err := queries.HasStopTimes(ctx, routeID, stopID)
	if err != nil {
		return false, fmt.Errorf("failed to check stop times of %s at %s: %w", routeID, stopID, err)
	}
	return found, nil
}

// serviceIDs lists services in a stable order; nil means every service.
func serviceIDs(services planner.ServiceSet) []string {
	if services.All {
		return nil
	}
	ids := make([]string, 0, len(services.IDs))
	for id := range services.IDs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ActualTravelTime is the mean scheduled ride in whole minutes from
// fromStopID to toStopID on routeID.
func (manager *Manager) ActualTravelTime(ctx context.Context, routeID, fromStopID, toStopID string) (int, bool, error) {
	return manager.travelTime(ctx, routeID, fromStopID, toStopID)
}

// AnyRouteTravelTime is ActualTravelTime over every route.
func (manager *Manager) AnyRouteTravelTime(ctx context.Context, fromStopID, toStopID string) (int, bool, error) {
	return manager.travelTime(ctx, "", fromStopID, toStopID)
}

func (manager *Manager) travelTime(ctx context.Context, routeID, fromStopID, toStopID string) (int, bool, error) {
	manager.staticMutex.RLock()
	defer manager.staticMutex.RUnlock()
	queries, _, err := manager.reader()
	if err != nil {
		return 0, false, err
	}

	seconds, ok, err := queries.GetActualTravelTime(ctx, routeID, fromStopID, toStopID)
	if err != nil {
		return 0, false, fmt.Errorf("failed to get travel time from %s to %s: %w", fromStopID, toStopID, err)
	}
	if !ok {
		return 0, false, nil
	}
	return int(math.Round(seconds / 60)), true, nil
}

func (manager *Manager) ActiveServices(ctx context.Context, date time.Time) (planner.ServiceSet, error) {
	manager.staticMutex.RLock()
	defer manager.staticMutex.RUnlock()
	queries, _, err := manager.reader()
	if err != nil {
		return planner.ServiceSet{}, err
	}

	ids, all, err := queries.GetActiveServiceIDs(ctx, date)
	if err != nil {
		return planner.ServiceSet{}, fmt.Errorf("failed to get services active on %s: %w", date.Format("2006-01-02"), err)
	}
	if all {
		return planner.AllServices(), nil
	}
	return planner.NewServiceSet(ids...), nil
}

func (manager *Manager) IntermediateStops(ctx context.Context, routeID, fromStopID, toStopID string) ([]planner.Stop, error) {
	manager.staticMutex.RLock()
	defer manager.staticMutex.RUnlock()
	queries, _, err := manager.reader()
	if err != nil {
		return nil, err
	}

	rows, err := queries.GetIntermediateStops(ctx, routeID, fromStopID, toStopID)
	if err != nil {
		return nil, fmt.Errorf("failed to get stops of %s between %s and %s: %w", routeID, fromStopID, toStopID, err)
	}
	return toPlannerStops(rows), nil
}

func (manager *Manager) TripHeadsign(ctx context.Context, routeID, fromStopID, toStopID string) (string, error) {
	manager.staticMutex.RLock()
	defer manager.staticMutex.RUnlock()
	queries, _, err := manager.reader()
	if err != nil {
		return "", err
	}

	headsign, err := queries.GetTripHeadsign(ctx, routeID, fromStopID, toStopID)
	if err != nil {
		return "", fmt.Errorf("failed to get headsign of %s from %s: %w", routeID, fromStopID, err)
	}
	return headsign, nil
}
