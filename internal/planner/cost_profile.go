package planner

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ClockTime is a time of day in minutes since midnight. In YAML it is written "HH:MM".
type ClockTime int

func (c *ClockTime) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	v, err := ParseClockTime(s)
	if err != nil {
		return err
	}
	*c = v
	return nil
}

func (c ClockTime) MarshalYAML() (interface{}, error) {
	return c.String(), nil
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// ParseClockTime parses "HH:MM". Hours up to 24 are accepted.
func ParseClockTime(s string) (ClockTime, error) {
	var h, m int
	if _, err := fmt.Sscanf(strings.TrimSpace(s), "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("invalid clock time %q: %w", s, err)
	}
	if h < 0 || h > 24 || m < 0 || m > 59 || (h == 24 && m != 0) {
		return 0, fmt.Errorf("invalid clock time %q", s)
	}
	return ClockTime(h*60 + m), nil
}

// Window is a daily time range. End before Start wraps past midnight.
type Window struct {
	Start ClockTime `yaml:"start"`
	End   ClockTime `yaml:"end"`
}

// Contains reports whether minute (of day) falls within the window.
func (w Window) Contains(minute int) bool {
	minute = ((minute % 1440) + 1440) % 1440
	start, end := int(w.Start), int(w.End)
	if start == end {
		return true
	}
	if start < end {
		return minute >= start && minute < end
	}
	return minute >= start || minute < end
}

// ModeProfile holds the fixed per-mode tables.
type ModeProfile struct {
	SpeedMinPerKm     float64 `yaml:"speed_min_per_km"`
	HeadwayMinutes    float64 `yaml:"headway_minutes"`
	DwellMinutes      float64 `yaml:"dwell_minutes"`
	StopSpacingMeters float64 `yaml:"stop_spacing_meters"`
	OperatingHours    Window  `yaml:"operating_hours"`
}

// TransferRule is the transfer time between two modes, in either direction.
type TransferRule struct {
	From    Mode    `yaml:"from"`
	To      Mode    `yaml:"to"`
	Minutes float64 `yaml:"minutes"`
}

// AnyMode matches every mode in a TransferRule.
const AnyMode Mode = "any"

// Duration decodes YAML strings such as "10s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// NightLines identifies night-only line groups.
type NightLines struct {
	ShortNamePrefix string   `yaml:"short_name_prefix"`
	RouteIDs        []string `yaml:"route_ids"`
	OperatingHours  Window   `yaml:"operating_hours"`
}

// CostProfile collects every constant of the cost model and search limits.
// Distances are meters, times are minutes unless typed otherwise.
type CostProfile struct {
	WalkingSpeedMetersPerMin float64              `yaml:"walking_speed_m_per_min"`
	Modes                    map[Mode]ModeProfile `yaml:"modes"`
	SameModeTransferMinutes  float64              `yaml:"same_mode_transfer_minutes"`
	Transfers                []TransferRule       `yaml:"transfers"`
	DefaultTransferMinutes   float64              `yaml:"default_transfer_minutes"`
	MinTransferMinutes       int                  `yaml:"min_transfer_minutes"`
	MinLegMinutes            int                  `yaml:"min_leg_minutes"`

	// EstimatedDepartureModes lists modes whose routes without any stop
	// times are ridden on an estimated departure half a headway out.
	EstimatedDepartureModes []Mode `yaml:"estimated_departure_modes"`

	DirectRouteCap       int     `yaml:"direct_route_cap"`
	DirectResultCap      int     `yaml:"direct_result_cap"`
	TransferRadius       float64 `yaml:"transfer_radius_m"`
	TransferPointCap     int     `yaml:"transfer_point_cap"`
	SingleTransferCap    int     `yaml:"single_transfer_cap"`
	CollapseRadius       float64 `yaml:"collapse_radius_m"`
	DoubleTransferRoutes int     `yaml:"double_transfer_max_routes"`
	DoubleTransferOrigin int     `yaml:"double_transfer_origin_routes"`
	DoubleTransferCap    int     `yaml:"double_transfer_cap"`
	DepartureWindow      int     `yaml:"departure_window_minutes"`
	NightDepartureWindow int     `yaml:"night_departure_window_minutes"`

	WalkOnlyRadius   float64  `yaml:"walk_only_radius_m"`
	WalkFallbackCap  int      `yaml:"walk_fallback_cap_minutes"`
	JourneyCeiling   int      `yaml:"journey_ceiling_minutes"`
	NearZeroWalk     float64  `yaml:"near_zero_walk_m"`
	NearbyStopCount  int      `yaml:"nearby_stop_count"`
	NearbyStopRadius float64  `yaml:"nearby_stop_radius_m"`
	MaxCandidates    int      `yaml:"max_candidates_per_side"`
	SearchBudget     Duration `yaml:"search_budget"`
	DiverseResults   int      `yaml:"diverse_results"`
	MaxResults       int      `yaml:"max_results"`
	LateNightWindow  Window   `yaml:"late_night_window"`
	EcoMaxWalking    float64  `yaml:"eco_max_walking_m"`
	EcoMaxTransfers  int      `yaml:"eco_max_transfers"`

	NightLines NightLines `yaml:"night_lines"`
}

// DefaultCostProfile returns the built-in tables.
func DefaultCostProfile() *CostProfile {
	allDay := Window{Start: 0, End: 0}
	return &CostProfile{
		WalkingSpeedMetersPerMin: 83.33,
		Modes: map[Mode]ModeProfile{
			ModeRail:  {SpeedMinPerKm: 1.0, HeadwayMinutes: 15, DwellMinutes: 0.5, StopSpacingMeters: 2000, OperatingHours: Window{Start: 5 * 60, End: 1 * 60}},
			ModeMetro: {SpeedMinPerKm: 2.0, HeadwayMinutes: 5, DwellMinutes: 0.3, StopSpacingMeters: 800, OperatingHours: Window{Start: 5 * 60, End: 1 * 60}},
			ModeTram:  {SpeedMinPerKm: 3.0, HeadwayMinutes: 8, DwellMinutes: 0.3, StopSpacingMeters: 500, OperatingHours: Window{Start: 5 * 60, End: 1 * 60}},
			ModeBus:   {SpeedMinPerKm: 3.5, HeadwayMinutes: 10, DwellMinutes: 0.4, StopSpacingMeters: 400, OperatingHours: allDay},
			ModeFerry: {SpeedMinPerKm: 2.5, HeadwayMinutes: 30, DwellMinutes: 1.0, StopSpacingMeters: 3000, OperatingHours: Window{Start: 6 * 60, End: 22 * 60}},
		},
		SameModeTransferMinutes: 2,
		Transfers: []TransferRule{
			{From: ModeBus, To: AnyMode, Minutes: 5},
			{From: ModeMetro, To: ModeRail, Minutes: 5},
			{From: ModeRail, To: ModeTram, Minutes: 6},
			{From: ModeMetro, To: ModeTram, Minutes: 6},
			{From: ModeMetro, To: ModeFerry, Minutes: 8},
			{From: ModeRail, To: ModeFerry, Minutes: 10},
			{From: ModeTram, To: ModeFerry, Minutes: 10},
		},
		DefaultTransferMinutes: 5,
		MinTransferMinutes:     2,
		MinLegMinutes:          2,

		EstimatedDepartureModes: []Mode{ModeRail, ModeFerry},

		DirectRouteCap:       5,
		DirectResultCap:      3,
		TransferRadius:       500,
		TransferPointCap:     30,
		SingleTransferCap:    5,
		CollapseRadius:       100,
		DoubleTransferRoutes: 6,
		DoubleTransferOrigin: 3,
		DoubleTransferCap:    2,
		DepartureWindow:      60,
		NightDepartureWindow: 90,

		WalkOnlyRadius:   500,
		WalkFallbackCap:  60,
		JourneyCeiling:   180,
		NearZeroWalk:     10,
		NearbyStopCount:  4,
		NearbyStopRadius: 800,
		MaxCandidates:    6,
		SearchBudget:     Duration{10 * time.Second},
		DiverseResults:   5,
		MaxResults:       5,
		LateNightWindow:  Window{Start: 23 * 60, End: 5 * 60},
		EcoMaxWalking:    500,
		EcoMaxTransfers:  1,

		NightLines: NightLines{
			ShortNamePrefix: "N",
			OperatingHours:  Window{Start: 22 * 60, End: 6 * 60},
		},
	}
}

// LoadCostProfile reads a YAML profile from path over the defaults. Mode
// entries that leave a field at zero keep the default for it; an all-day
// window is therefore spelled 00:00 to 24:00.
func LoadCostProfile(path string) (*CostProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read cost profile: %w", err)
	}
	return ParseCostProfile(data)
}

// ParseCostProfile decodes a YAML profile over the defaults.
func ParseCostProfile(data []byte) (*CostProfile, error) {
	defaults := DefaultCostProfile()
	profile := DefaultCostProfile()
	profile.Modes = map[Mode]ModeProfile{}

	if err := yaml.Unmarshal(data, profile); err != nil {
		return nil, fmt.Errorf("failed to parse cost profile: %w", err)
	}

	for mode, def := range defaults.Modes {
		mp, ok := profile.Modes[mode]
		if !ok {
			profile.Modes[mode] = def
			continue
		}
		if mp.SpeedMinPerKm == 0 {
			mp.SpeedMinPerKm = def.SpeedMinPerKm
		}
		if mp.HeadwayMinutes == 0 {
			mp.HeadwayMinutes = def.HeadwayMinutes
		}
		if mp.DwellMinutes == 0 {
			mp.DwellMinutes = def.DwellMinutes
		}
		if mp.StopSpacingMeters == 0 {
			mp.StopSpacingMeters = def.StopSpacingMeters
		}
		if mp.OperatingHours == (Window{}) {
			mp.OperatingHours = def.OperatingHours
		}
		profile.Modes[mode] = mp
	}

	if err := profile.Validate(); err != nil {
		return nil, err
	}
	return profile, nil
}

// Validate rejects profiles the cost model cannot work with.
func (p *CostProfile) Validate() error {
	if p.WalkingSpeedMetersPerMin <= 0 {
		return fmt.Errorf("walking_speed_m_per_min must be positive")
	}
	for mode, mp := range p.Modes {
		if _, ok := ParseMode(string(mode)); !ok {
			return fmt.Errorf("unknown mode %q in cost profile", mode)
		}
		if mp.SpeedMinPerKm <= 0 || mp.StopSpacingMeters <= 0 {
			return fmt.Errorf("mode %s: speed and stop spacing must be positive", mode)
		}
	}
	for _, mode := range p.EstimatedDepartureModes {
		if _, ok := ParseMode(string(mode)); !ok {
			return fmt.Errorf("unknown mode %q in estimated_departure_modes", mode)
		}
	}
	for _, rule := range p.Transfers {
		if rule.Minutes < 0 {
			return fmt.Errorf("transfer %s-%s: minutes must not be negative", rule.From, rule.To)
		}
	}
	if p.JourneyCeiling <= 0 {
		return fmt.Errorf("journey_ceiling_minutes must be positive")
	}
	return nil
}

func (p *CostProfile) mode(m Mode) ModeProfile {
	if mp, ok := p.Modes[m]; ok {
		return mp
	}
	return p.Modes[ModeBus]
}
