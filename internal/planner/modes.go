package planner

import "strings"

// Mode is the transport type of a route.
type Mode string

const (
	ModeTram  Mode = "tram"
	ModeMetro Mode = "metro"
	ModeRail  Mode = "rail"
	ModeBus   Mode = "bus"
	ModeFerry Mode = "ferry"
)

// AllModes lists every transit mode in pair-priority order.
var AllModes = []Mode{ModeRail, ModeFerry, ModeMetro, ModeTram, ModeBus}

// ParseMode accepts a mode name, case-insensitively.
func ParseMode(s string) (Mode, bool) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	switch m {
	case ModeTram, ModeMetro, ModeRail, ModeBus, ModeFerry:
		return m, true
	}
	return "", false
}

// ModeForRouteType maps a GTFS route_type, basic or extended, to a Mode.
func ModeForRouteType(routeType int) Mode {
	switch {
	case routeType == 0, routeType >= 900 && routeType < 1000:
		return ModeTram
	case routeType == 1, routeType >= 400 && routeType < 500:
		return ModeMetro
	case routeType == 2, routeType >= 100 && routeType < 200:
		return ModeRail
	case routeType == 4, routeType >= 1000 && routeType < 1100, routeType == 1200:
		return ModeFerry
	}
	return ModeBus
}

// ModeForStopID derives a mode from the prefix convention of stop ids
// (rail_, metro_, ferry_, tram_); anything else is a bus stop.
func ModeForStopID(id string) Mode {
	switch {
	case strings.HasPrefix(id, "rail_"):
		return ModeRail
	case strings.HasPrefix(id, "metro_"):
		return ModeMetro
	case strings.HasPrefix(id, "ferry_"):
		return ModeFerry
	case strings.HasPrefix(id, "tram_"):
		return ModeTram
	}
	return ModeBus
}

// priority ranks modes for candidate pair ordering; lower runs first.
func (m Mode) priority() int {
	for i, mode := range AllModes {
		if mode == m {
			return i
		}
	}
	return len(AllModes)
}
