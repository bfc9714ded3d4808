package gtfs

import (
	"context"
	"fmt"
	"sort"

	"github.com/MBL11/transit-app-sub002/gtfsdb"
	"github.com/MBL11/transit-app-sub002/internal/planner"
	"github.com/MBL11/transit-app-sub002/internal/utils"
	"github.com/tidwall/rtree"
)

type transferKey struct {
	fromRoute, toRoute, fromStop, toStop string
}

// FindTransferStops pairs every stop of the from routes with the stops of
// the to routes within maxDistance meters, nearest first. A route is never
// paired with itself. maxResults <= 0 returns every pair.
func (manager *Manager) FindTransferStops(ctx context.Context, fromRouteIDs, toRouteIDs []string, maxDistance float64, maxResults int) ([]planner.TransferPoint, error) {
	if len(fromRouteIDs) == 0 || len(toRouteIDs) == 0 {
		return nil, nil
	}
	manager.staticMutex.RLock()
	defer manager.staticMutex.RUnlock()
	queries, _, err := manager.reader()
	if err != nil {
		return nil, err
	}

	fromSet := stringSet(fromRouteIDs)
	toSet := stringSet(toRouteIDs)
	all := make([]string, 0, len(fromSet)+len(toSet))
	for id := range fromSet {
		all = append(all, id)
	}
	for id := range toSet {
		if !fromSet[id] {
			all = append(all, id)
		}
	}
	sort.Strings(all)

	rows, err := queries.GetRouteStopsForRoutes(ctx, all)
	if err != nil {
		return nil, fmt.Errorf("failed to get stops for %d routes: %w", len(all), err)
	}

	toTree := &rtree.RTreeG[gtfsdb.RouteStop]{}
	var fromStops []gtfsdb.RouteStop
	for _, row := range rows {
		if !utils.ValidCoordinate(row.Stop.Lat, row.Stop.Lon) {
			continue
		}
		if toSet[row.RouteID] {
			point := [2]float64{row.Stop.Lat, row.Stop.Lon}
			toTree.Insert(point, point, row)
		}
		if fromSet[row.RouteID] {
			fromStops = append(fromStops, row)
		}
	}

	seen := make(map[transferKey]bool)
	var points []planner.TransferPoint
	for _, from := range fromStops {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		b := utils.CalculateBounds(from.Stop.Lat, from.Stop.Lon, maxDistance)
		toTree.Search([2]float64{b.MinLat, b.MinLon}, [2]float64{b.MaxLat, b.MaxLon},
			func(_, _ [2]float64, to gtfsdb.RouteStop) bool {
				if to.RouteID == from.RouteID {
					return true
				}
				key := transferKey{from.RouteID, to.RouteID, from.Stop.ID, to.Stop.ID}
				if seen[key] {
					return true
				}
				d := utils.Distance(from.Stop.Lat, from.Stop.Lon, to.Stop.Lat, to.Stop.Lon)
				if d > maxDistance {
					return true
				}
				seen[key] = true
				points = append(points, planner.TransferPoint{
					FromRouteID:     from.RouteID,
					ToRouteID:       to.RouteID,
					FromStop:        toPlannerStop(from.Stop),
					ToStop:          toPlannerStop(to.Stop),
					WalkingDistance: d,
				})
				return true
			})
	}

	sort.SliceStable(points, func(i, j int) bool {
		a, b := points[i], points[j]
		if a.WalkingDistance != b.WalkingDistance {
			return a.WalkingDistance < b.WalkingDistance
		}
		if a.FromRouteID != b.FromRouteID {
			return a.FromRouteID < b.FromRouteID
		}
		if a.ToRouteID != b.ToRouteID {
			return a.ToRouteID < b.ToRouteID
		}
		if a.FromStop.ID != b.FromStop.ID {
			return a.FromStop.ID < b.FromStop.ID
		}
		return a.ToStop.ID < b.ToStop.ID
	})
	if maxResults > 0 && len(points) > maxResults {
		points = points[:maxResults]
	}
	return points, nil
}

func stringSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}
