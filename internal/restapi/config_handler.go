package restapi

import (
	"net/http"
	"runtime/debug"

	"github.com/MBL11/transit-app-sub002/internal/models"
	"github.com/MBL11/transit-app-sub002/internal/planner"
)

func (api *RestAPI) configHandler(w http.ResponseWriter, r *http.Request) {
	var info *debug.BuildInfo
	if bi, ok := debug.ReadBuildInfo(); ok {
		info = bi
	}

	modes := make([]string, 0, len(planner.AllModes))
	for _, m := range planner.AllModes {
		modes = append(modes, string(m))
	}

	entry := models.ConfigModel{
		GitProperties: models.NewGitProperties(info),
		Id:            "transit-planner",
		Name:          "Transit Journey Planner",
		Timezone:      api.GtfsManager.Location().String(),
		StopCount:     api.GtfsManager.StopCount(),
		Modes:         modes,
	}
	if updated := api.GtfsManager.LastUpdated(); !updated.IsZero() {
		entry.LastUpdated = updated.UnixMilli()
	}
	if lat, lon, latSpan, lonSpan := api.GtfsManager.GetRegionBounds(); latSpan > 0 || lonSpan > 0 {
		entry.RegionBounds = &models.RegionBounds{Lat: lat, Lon: lon, LatSpan: latSpan, LonSpan: lonSpan}
	}

	api.sendResponse(w, r, models.NewEntryResponse(entry, models.NewEmptyReferences(), api.Clock))
}
