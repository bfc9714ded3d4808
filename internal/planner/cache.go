package planner

import (
	"context"
	"time"
)

type routeKey struct {
	stopID     string
	includeBus bool
}

type cachedStop struct {
	stop  Stop
	found bool
}

// Cache memoises schedule lookups for the duration of one planning call.
// It is not safe for concurrent use and must not outlive the call.
type Cache struct {
	stops         map[string]cachedStop
	routes        map[routeKey][]Route
	stopsForRoute map[string][]Stop
	services      map[string]ServiceSet
}

func NewCache() *Cache {
	return &Cache{
		stops:         make(map[string]cachedStop),
		routes:        make(map[routeKey][]Route),
		stopsForRoute: make(map[string][]Stop),
		services:      make(map[string]ServiceSet),
	}
}

func (c *Cache) stop(ctx context.Context, s Schedule, id string) (Stop, bool, error) {
	if hit, ok := c.stops[id]; ok {
		return hit.stop, hit.found, nil
	}
	stop, found, err := s.StopByID(ctx, id)
	if err != nil {
		return Stop{}, false, err
	}
	c.stops[id] = cachedStop{stop: stop, found: found}
	return stop, found, nil
}

func (c *Cache) routesForStop(ctx context.Context, s Schedule, stopID string, includeBus bool) ([]Route, error) {
	key := routeKey{stopID: stopID, includeBus: includeBus}
	if hit, ok := c.routes[key]; ok {
		return hit, nil
	}
	routes, err := s.RoutesForStop(ctx, stopID, includeBus)
	if err != nil {
		return nil, err
	}
	c.routes[key] = routes
	return routes, nil
}

// routesForStops batches the stop ids not yet cached into one lookup.
func (c *Cache) routesForStops(ctx context.Context, s Schedule, stopIDs []string, includeBus bool) (map[string][]Route, error) {
	out := make(map[string][]Route, len(stopIDs))
	var missing []string
	for _, id := range stopIDs {
		if hit, ok := c.routes[routeKey{stopID: id, includeBus: includeBus}]; ok {
			out[id] = hit
			continue
		}
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return out, nil
	}

	fetched, err := s.RoutesForStops(ctx, missing, includeBus)
	if err != nil {
		return nil, err
	}
	for _, id := range missing {
		routes := fetched[id]
		c.routes[routeKey{stopID: id, includeBus: includeBus}] = routes
		out[id] = routes
	}
	return out, nil
}

func (c *Cache) routeStops(ctx context.Context, s Schedule, routeID string) ([]Stop, error) {
	if hit, ok := c.stopsForRoute[routeID]; ok {
		return hit, nil
	}
	stops, err := s.StopsForRoute(ctx, routeID)
	if err != nil {
		return nil, err
	}
	c.stopsForRoute[routeID] = stops
	return stops, nil
}

func (c *Cache) activeServices(ctx context.Context, s Schedule, day time.Time) (ServiceSet, error) {
	key := day.Format("20060102")
	if hit, ok := c.services[key]; ok {
		return hit, nil
	}
	set, err := s.ActiveServices(ctx, day)
	if err != nil {
		return ServiceSet{}, err
	}
	c.services[key] = set
	return set, nil
}
