package gtfs

import (
	"context"
	"fmt"
	"sort"

	"github.com/MBL11/transit-app-sub002/internal/planner"
	"github.com/MBL11/transit-app-sub002/internal/utils"
)

const defaultStopSearchLimit = 20

// NearbyStops returns boardable stops within radius meters of lat/lon,
// nearest first, at most count of them when count is positive.
func (manager *Manager) NearbyStops(ctx context.Context, lat, lon float64, count int, radius float64) ([]planner.NearbyStop, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	manager.staticMutex.RLock()
	defer manager.staticMutex.RUnlock()
	_, index, err := manager.reader()
	if err != nil {
		return nil, err
	}

	var nearby []planner.NearbyStop
	searchRadius(index.stops, lat, lon, radius, func(stop planner.Stop, distance float64) {
		if boardable(stop) {
			nearby = append(nearby, planner.NearbyStop{Stop: stop, Distance: distance})
		}
	})

	sort.Slice(nearby, func(i, j int) bool {
		if nearby[i].Distance != nearby[j].Distance {
			return nearby[i].Distance < nearby[j].Distance
		}
		return nearby[i].ID < nearby[j].ID
	})
	if count > 0 && len(nearby) > count {
		nearby = nearby[:count]
	}
	return nearby, nil
}

// ExpandCoLocated returns stops followed by the stops co-located with each
// of them, without duplicates.
func (manager *Manager) ExpandCoLocated(ctx context.Context, stops []planner.Stop) ([]planner.Stop, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	manager.staticMutex.RLock()
	defer manager.staticMutex.RUnlock()
	_, index, err := manager.reader()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(stops))
	expanded := make([]planner.Stop, 0, len(stops))
	for _, stop := range stops {
		if !seen[stop.ID] {
			seen[stop.ID] = true
			expanded = append(expanded, stop)
		}
	}
	for _, stop := range stops {
		for _, other := range index.coLocated[stop.ID] {
			if !seen[other.ID] {
				seen[other.ID] = true
				expanded = append(expanded, other)
			}
		}
	}
	return expanded, nil
}

// SearchStops finds stops by name, ignoring case and diacritics. Exact
// matches come first, then prefix matches.
func (manager *Manager) SearchStops(ctx context.Context, name string, limit int) ([]planner.Stop, error) {
	if limit <= 0 {
		limit = defaultStopSearchLimit
	}
	term := utils.NormalizeName(name)
	if term == "" {
		return []planner.Stop{}, nil
	}

	manager.staticMutex.RLock()
	defer manager.staticMutex.RUnlock()
	queries, _, err := manager.reader()
	if err != nil {
		return nil, err
	}

	rows, err := queries.SearchStopsByName(ctx, term, limit)
	if err != nil {
		return nil, fmt.Errorf("stop search failed for %q: %w", term, err)
	}
	return toPlannerStops(rows), nil
}

func sortStopsByID(stops []planner.Stop) {
	sort.Slice(stops, func(i, j int) bool { return stops[i].ID < stops[j].ID })
}
