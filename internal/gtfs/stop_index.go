package gtfs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/MBL11/transit-app-sub002/gtfsdb"
	"github.com/MBL11/transit-app-sub002/internal/logging"
	"github.com/MBL11/transit-app-sub002/internal/planner"
	"github.com/MBL11/transit-app-sub002/internal/utils"
	"github.com/tidwall/rtree"
)

// coLocatedRadius bounds how far apart two stops may be and still count as
// the same place.
const coLocatedRadius = 300.0

// ErrNotLoaded is returned by reads before any data is loaded or after Shutdown.
var ErrNotLoaded = errors.New("gtfs data not loaded")

// staticIndex is everything derived from the store at load time.
type staticIndex struct {
	stops        *rtree.RTreeG[planner.Stop]
	coLocated    map[string][]planner.Stop
	regionBounds *RegionBounds
	timezone     *time.Location
}

func buildStaticIndex(ctx context.Context, queries *gtfsdb.Queries) (*staticIndex, error) {
	rows, err := queries.ListStops(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list stops: %w", err)
	}

	index := &staticIndex{
		stops:        buildStopSpatialIndex(rows),
		regionBounds: ComputeRegionBounds(rows),
		timezone:     time.UTC,
	}
	index.coLocated = buildCoLocatedIndex(index.stops, rows)

	agencies, err := queries.ListAgencies(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list agencies: %w", err)
	}
	if len(agencies) > 0 && agencies[0].Timezone != "" {
		loc, err := time.LoadLocation(agencies[0].Timezone)
		if err != nil {
			logging.LogError(slog.Default().With(slog.String("component", "gtfs_manager")),
				"Unknown agency timezone, using UTC", err,
				slog.String("timezone", agencies[0].Timezone))
		} else {
			index.timezone = loc
		}
	}
	return index, nil
}

// buildStopSpatialIndex indexes every positioned stop as a point, keyed
// [lat, lon].
func buildStopSpatialIndex(rows []gtfsdb.Stop) *rtree.RTreeG[planner.Stop] {
	tree := &rtree.RTreeG[planner.Stop]{}
	for _, row := range rows {
		if !utils.ValidCoordinate(row.Lat, row.Lon) {
			continue
		}
		point := [2]float64{row.Lat, row.Lon}
		tree.Insert(point, point, toPlannerStop(row))
	}
	return tree
}

// searchRadius visits every indexed stop within radius meters of lat/lon.
func searchRadius(tree *rtree.RTreeG[planner.Stop], lat, lon, radius float64, visit func(stop planner.Stop, distance float64)) {
	b := utils.CalculateBounds(lat, lon, radius)
	tree.Search([2]float64{b.MinLat, b.MinLon}, [2]float64{b.MaxLat, b.MaxLon},
		func(_, _ [2]float64, stop planner.Stop) bool {
			if d := utils.Distance(lat, lon, stop.Lat, stop.Lon); d <= radius {
				visit(stop, d)
			}
			return true
		})
}

// baseStopID strips the mode prefix of mode-specific stop ids, so that
// "metro_sants" and "rail_sants" share "sants".
func baseStopID(id string) string {
	for _, prefix := range []string{"rail_", "metro_", "ferry_", "tram_", "bus_"} {
		if strings.HasPrefix(id, prefix) {
			return strings.TrimPrefix(id, prefix)
		}
	}
	return id
}

func sameStation(a, b gtfsdb.Stop) bool {
	if a.NormalizedName != "" && a.NormalizedName == b.NormalizedName {
		return true
	}
	if baseStopID(a.ID) == baseStopID(b.ID) {
		return true
	}
	ap, bp := a.ParentStation.String, b.ParentStation.String
	return ap == b.ID || bp == a.ID || (ap != "" && ap == bp)
}

// buildCoLocatedIndex maps each stop id to the boardable stops that stand at
// the same place and belong to the same station: same base name, same base
// id, or the same parent station.
func buildCoLocatedIndex(tree *rtree.RTreeG[planner.Stop], rows []gtfsdb.Stop) map[string][]planner.Stop {
	byID := make(map[string]gtfsdb.Stop, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}

	index := make(map[string][]planner.Stop)
	for _, row := range rows {
		if !utils.ValidCoordinate(row.Lat, row.Lon) {
			continue
		}
		searchRadius(tree, row.Lat, row.Lon, coLocatedRadius, func(other planner.Stop, _ float64) {
			if other.ID == row.ID || !boardable(other) {
				return
			}
			if sameStation(row, byID[other.ID]) {
				index[row.ID] = append(index[row.ID], other)
			}
		})
	}
	for id := range index {
		sortStopsByID(index[id])
	}
	return index
}

// boardable excludes stations, entrances and generic nodes.
func boardable(stop planner.Stop) bool {
	return stop.LocationType == 0 || stop.LocationType == 4
}

func toPlannerStop(row gtfsdb.Stop) planner.Stop {
	return planner.Stop{
		ID:                 row.ID,
		Name:               row.Name.String,
		Lat:                row.Lat,
		Lon:                row.Lon,
		LocationType:       int(row.LocationType.Int64),
		ParentStation:      row.ParentStation.String,
		WheelchairBoarding: int(row.WheelchairBoarding.Int64),
	}
}

func toPlannerStops(rows []gtfsdb.Stop) []planner.Stop {
	stops := make([]planner.Stop, 0, len(rows))
	for _, row := range rows {
		stops = append(stops, toPlannerStop(row))
	}
	return stops
}

func toPlannerRoute(row gtfsdb.Route) planner.Route {
	return planner.Route{
		ID:        row.ID,
		ShortName: row.ShortName.String,
		LongName:  row.LongName.String,
		Type:      int(row.Type),
		Mode:      planner.ModeForRouteType(int(row.Type)),
		Color:     row.Color.String,
		TextColor: row.TextColor.String,
	}
}

func toPlannerRoutes(rows []gtfsdb.Route) []planner.Route {
	routes := make([]planner.Route, 0, len(rows))
	for _, row := range rows {
		routes = append(routes, toPlannerRoute(row))
	}
	return routes
}
