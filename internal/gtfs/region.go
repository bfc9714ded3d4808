package gtfs

import (
	"github.com/MBL11/transit-app-sub002/gtfsdb"
	"github.com/MBL11/transit-app-sub002/internal/utils"
)

// regionMargin is how far outside the outermost stops a coordinate may lie
// and still be considered inside the served region.
const regionMargin = 20000.0

type RegionBounds struct {
	Lat     float64
	Lon     float64
	LatSpan float64
	LonSpan float64
}

// ComputeRegionBounds calculates the geographic boundaries of the feed from
// its stop positions. Returns nil if no stop has a usable position.
func ComputeRegionBounds(stops []gtfsdb.Stop) *RegionBounds {
	var minLat, maxLat, minLon, maxLon float64
	first := true

	for _, stop := range stops {
		if !utils.ValidCoordinate(stop.Lat, stop.Lon) {
			continue
		}
		if first {
			minLat, maxLat = stop.Lat, stop.Lat
			minLon, maxLon = stop.Lon, stop.Lon
			first = false
			continue
		}
		if stop.Lat < minLat {
			minLat = stop.Lat
		}
		if stop.Lat > maxLat {
			maxLat = stop.Lat
		}
		if stop.Lon < minLon {
			minLon = stop.Lon
		}
		if stop.Lon > maxLon {
			maxLon = stop.Lon
		}
	}
	if first {
		return nil
	}

	return &RegionBounds{
		Lat:     (minLat + maxLat) / 2,
		Lon:     (minLon + maxLon) / 2,
		LatSpan: maxLat - minLat,
		LonSpan: maxLon - minLon,
	}
}

func (b *RegionBounds) bounds() utils.CoordinateBounds {
	return utils.CoordinateBounds{
		MinLat: b.Lat - b.LatSpan/2,
		MaxLat: b.Lat + b.LatSpan/2,
		MinLon: b.Lon - b.LonSpan/2,
		MaxLon: b.Lon + b.LonSpan/2,
	}
}

// GetRegionBounds returns the center and span of the served region, all zero
// before data is loaded.
func (manager *Manager) GetRegionBounds() (lat, lon, latSpan, lonSpan float64) {
	manager.staticMutex.RLock()
	defer manager.staticMutex.RUnlock()
	if manager.index == nil || manager.index.regionBounds == nil {
		return 0, 0, 0, 0
	}
	b := manager.index.regionBounds
	return b.Lat, b.Lon, b.LatSpan, b.LonSpan
}

// InRegion reports whether lat/lon is a valid coordinate near the served
// region. Without region data every valid coordinate is accepted.
func (manager *Manager) InRegion(lat, lon float64) bool {
	if !utils.ValidCoordinate(lat, lon) {
		return false
	}
	manager.staticMutex.RLock()
	defer manager.staticMutex.RUnlock()
	if manager.index == nil || manager.index.regionBounds == nil {
		return true
	}
	return manager.index.regionBounds.bounds().Expand(regionMargin).Contains(lat, lon)
}
