package planner

import (
	"math"
	"strings"
	"unicode"

	"github.com/MBL11/transit-app-sub002/internal/utils"
)

// CostModel turns distances and modes into minutes using a CostProfile.
type CostModel struct {
	profile *CostProfile
	nights  map[string]struct{}
}

func NewCostModel(profile *CostProfile) *CostModel {
	if profile == nil {
		profile = DefaultCostProfile()
	}
	nights := make(map[string]struct{}, len(profile.NightLines.RouteIDs))
	for _, id := range profile.NightLines.RouteIDs {
		nights[id] = struct{}{}
	}
	return &CostModel{profile: profile, nights: nights}
}

// Distance between two stops in meters.
func Distance(a, b Stop) float64 {
	return utils.Distance(a.Lat, a.Lon, b.Lat, b.Lon)
}

// WalkingMinutes converts a walking distance to whole minutes. Any positive
// distance costs at least a minute.
func (c *CostModel) WalkingMinutes(meters float64) int {
	if meters <= 0 {
		return 0
	}
	minutes := int(math.Round(meters / c.profile.WalkingSpeedMetersPerMin))
	if minutes < 1 {
		minutes = 1
	}
	return minutes
}

// WalkLegMinutes is WalkingMinutes for a walk shown as its own leg, with the
// leg floor applied to any positive distance.
func (c *CostModel) WalkLegMinutes(meters float64) int {
	if meters <= 0 {
		return 0
	}
	return c.floorLeg(c.WalkingMinutes(meters))
}

// TransitMinutes estimates riding time over a straight-line distance: running
// time at the mode's average speed plus dwell at the implied intermediate stops.
func (c *CostModel) TransitMinutes(mode Mode, meters float64) int {
	mp := c.profile.mode(mode)
	running := mp.SpeedMinPerKm * meters / 1000
	stops := math.Round(meters/mp.StopSpacingMeters) - 1
	if stops < 0 {
		stops = 0
	}
	return c.floorLeg(int(math.Round(running + stops*mp.DwellMinutes)))
}

// AverageWaitMinutes is half the mode's scheduled headway.
func (c *CostModel) AverageWaitMinutes(mode Mode) int {
	return int(math.Round(c.profile.mode(mode).HeadwayMinutes / 2))
}

// EstimatesDepartures reports whether routes of mode may be ridden on an
// estimated departure when the timetable has no stop times for them.
func (c *CostModel) EstimatesDepartures(mode Mode) bool {
	for _, m := range c.profile.EstimatedDepartureModes {
		if m == mode {
			return true
		}
	}
	return false
}

// ModeTransferMinutes looks up the interchange time between two modes.
func (c *CostModel) ModeTransferMinutes(from, to Mode) float64 {
	if from == to {
		return c.profile.SameModeTransferMinutes
	}
	for _, rule := range c.profile.Transfers {
		if matchesPair(rule, from, to) || matchesPair(rule, to, from) {
			return rule.Minutes
		}
	}
	return c.profile.DefaultTransferMinutes
}

func matchesPair(rule TransferRule, a, b Mode) bool {
	return (rule.From == a || rule.From == AnyMode) && (rule.To == b || rule.To == AnyMode)
}

// TransferMinutes is the cost of changing from one line to another when the
// two boarding stops are walkMeters apart.
func (c *CostModel) TransferMinutes(from, to Mode, walkMeters float64) int {
	table := int(math.Round(c.ModeTransferMinutes(from, to)))
	walk := c.WalkingMinutes(walkMeters) + c.profile.MinTransferMinutes
	if walk > table {
		return walk
	}
	return table
}

func (c *CostModel) floorLeg(minutes int) int {
	if minutes < c.profile.MinLegMinutes {
		return c.profile.MinLegMinutes
	}
	return minutes
}

// IsNightLine reports routes of the night-only line groups: listed ids, or a
// short name made of the configured prefix followed by a digit.
func (c *CostModel) IsNightLine(r Route) bool {
	if _, ok := c.nights[r.ID]; ok {
		return true
	}
	prefix := c.profile.NightLines.ShortNamePrefix
	if prefix == "" || !strings.HasPrefix(r.ShortName, prefix) {
		return false
	}
	rest := r.ShortName[len(prefix):]
	return rest != "" && unicode.IsDigit(rune(rest[0]))
}

// IsOperating reports whether a route's mode runs at minute of day. Night
// lines follow their own hours.
func (c *CostModel) IsOperating(r Route, minute int) bool {
	if c.IsNightLine(r) {
		return c.profile.NightLines.OperatingHours.Contains(minute)
	}
	return c.profile.mode(r.Mode).OperatingHours.Contains(minute)
}

// InLateNightWindow reports whether minute of day falls in the window where
// the night tier is tried.
func (c *CostModel) InLateNightWindow(minute int) bool {
	return c.profile.LateNightWindow.Contains(minute)
}
