package restapi

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/MBL11/transit-app-sub002/internal/planner"
	"github.com/MBL11/transit-app-sub002/internal/utils"
)

const (
	maxTransfersLimit  = 5
	maxWaitingLimit    = 240
	maxRoutesLimit     = 10
	defaultSearchLimit = 20
	maxSearchLimit     = 100
)

// parseLocation reads one journey endpoint from the <prefix>Stop,
// <prefix>Lat/<prefix>Lon, <prefix>Address and <prefix>Name parameters.
// Several may be given; the planner uses the first of them in that order
// and keeps Name as the label.
func parseLocation(query url.Values, prefix string, errs *utils.FieldErrors) planner.Location {
	loc := planner.Location{
		StopID:  strings.TrimSpace(query.Get(prefix + "Stop")),
		Address: strings.TrimSpace(query.Get(prefix + "Address")),
		Name:    strings.TrimSpace(query.Get(prefix + "Name")),
	}

	latName, lonName := prefix+"Lat", prefix+"Lon"
	rawLat, rawLon := strings.TrimSpace(query.Get(latName)), strings.TrimSpace(query.Get(lonName))
	lat, latOK := utils.ParseFloatParam(query, latName, errs)
	lon, lonOK := utils.ParseFloatParam(query, lonName, errs)
	switch {
	case latOK && lonOK:
		if utils.ValidCoordinate(lat, lon) {
			loc.Lat, loc.Lon, loc.HasPos = lat, lon, true
		} else {
			errs.Add(latName, "not a valid coordinate")
		}
	case (rawLat == "") != (rawLon == ""):
		errs.Add(latName, fmt.Sprintf("%s and %s must be given together", latName, lonName))
	}

	if loc.StopID == "" && !loc.HasPos && loc.Address == "" && loc.Name == "" && rawLat == "" && rawLon == "" {
		errs.Add(prefix, fmt.Sprintf("one of %sStop, %s/%s, %sAddress or %sName is required",
			prefix, latName, lonName, prefix, prefix))
	}
	return loc
}

// parsePreferences reads the journey filters. modes lists the allowed
// transport modes; walk-only journeys are offered when it includes walk.
func parsePreferences(query url.Values, errs *utils.FieldErrors) planner.Preferences {
	prefs := planner.DefaultPreferences()

	if modes := utils.ParseListParam(query, "modes"); len(modes) > 0 {
		allowed := planner.AllowedModes{}
		for _, m := range modes {
			if !allowMode(&allowed, m) {
				errs.Add("modes", fmt.Sprintf("unknown mode %q", m))
			}
		}
		prefs.Modes = allowed
	}

	if raw := strings.TrimSpace(query.Get("optimize")); raw != "" {
		optimize, ok := planner.ParseOptimizeFor(raw)
		if ok {
			prefs.Optimize = optimize
		} else {
			errs.Add("optimize", "must be one of fastest, least-transfers, least-walking, most-accessible")
		}
	}

	prefs.MaxTransfers = utils.ParseIntParam(query, "maxTransfers", -1, 0, maxTransfersLimit, errs)
	if meters, ok := utils.ParseFloatParam(query, "maxWalkingDistance", errs); ok {
		if meters > 0 {
			prefs.MaxWalkingDistance = meters
		} else {
			errs.Add("maxWalkingDistance", "must be greater than zero")
		}
	}
	prefs.MaxWaitingTime = utils.ParseIntParam(query, "maxWaitingTime", 0, 1, maxWaitingLimit, errs)
	prefs.Wheelchair = utils.ParseBoolParam(query, "wheelchair", false, errs)
	prefs.AvoidStairs = utils.ParseBoolParam(query, "avoidStairs", false, errs)
	return prefs
}

func allowMode(allowed *planner.AllowedModes, name string) bool {
	if n := strings.ToLower(strings.TrimSpace(name)); n == "walk" || n == "walking" {
		allowed.Walking = true
		return true
	}
	mode, ok := planner.ParseMode(name)
	if !ok {
		return false
	}
	switch mode {
	case planner.ModeTram:
		allowed.Tram = true
	case planner.ModeMetro:
		allowed.Metro = true
	case planner.ModeRail:
		allowed.Rail = true
	case planner.ModeBus:
		allowed.Bus = true
	case planner.ModeFerry:
		allowed.Ferry = true
	}
	return true
}

// departureTime reads the time parameter and expresses it in the feed
// timezone, defaulting to now.
func (api *RestAPI) departureTime(query url.Values, errs *utils.FieldErrors) time.Time {
	loc := time.UTC
	if api.GtfsManager != nil {
		loc = api.GtfsManager.Location()
	}
	now := api.Clock.Now().In(loc)
	return utils.ParseTimeParam(query, "time", now, errs).In(loc)
}

// checkRegion rejects coordinates far outside the served area.
func (api *RestAPI) checkRegion(loc planner.Location, prefix string, errs *utils.FieldErrors) {
	if !loc.HasPos || api.GtfsManager == nil {
		return
	}
	if !api.GtfsManager.InRegion(loc.Lat, loc.Lon) {
		errs.Add(prefix+"Lat", "outside the service region")
	}
}
