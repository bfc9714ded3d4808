package planner

import "time"

// Stop is a boarding location. Coordinates are WGS84 degrees.
type Stop struct {
	ID            string
	Name          string
	Lat           float64
	Lon           float64
	LocationType  int
	ParentStation string
	// WheelchairBoarding follows GTFS: 0 unknown, 1 accessible, 2 not accessible.
	WheelchairBoarding int
}

// Route is a transit line.
type Route struct {
	ID        string
	ShortName string
	LongName  string
	Type      int
	Mode      Mode
	Color     string
	TextColor string
}

// DisplayName is the rider-facing line label.
func (r Route) DisplayName() string {
	if r.ShortName != "" {
		return r.ShortName
	}
	if r.LongName != "" {
		return r.LongName
	}
	return r.ID
}

// TransferPoint pairs a stop of a "from" route with a stop of a "to" route
// within walking distance.
type TransferPoint struct {
	FromRouteID     string
	ToRouteID       string
	FromStop        Stop
	ToStop          Stop
	WalkingDistance float64
}

// NearbyStop is a stop with its distance in meters from a query point.
type NearbyStop struct {
	Stop
	Distance float64
}

// Place is a geocoded address.
type Place struct {
	Lat         float64
	Lon         float64
	DisplayName string
}

// ServiceSet is the set of service ids active on a date. All means the feed
// carries no calendar and every trip runs.
type ServiceSet struct {
	All bool
	IDs map[string]struct{}
}

// NewServiceSet builds a set from ids.
func NewServiceSet(ids ...string) ServiceSet {
	set := ServiceSet{IDs: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		set.IDs[id] = struct{}{}
	}
	return set
}

// AllServices is the set that matches every trip.
func AllServices() ServiceSet {
	return ServiceSet{All: true}
}

// Empty reports that no service runs.
func (s ServiceSet) Empty() bool {
	return !s.All && len(s.IDs) == 0
}

func (s ServiceSet) Contains(id string) bool {
	if s.All {
		return true
	}
	_, ok := s.IDs[id]
	return ok
}

// SegmentKind distinguishes walking from riding.
type SegmentKind string

const (
	SegmentWalk    SegmentKind = "walk"
	SegmentTransit SegmentKind = "transit"
)

// Segment is one leg of a journey. Duration is in whole minutes, Distance in meters.
type Segment struct {
	Kind      SegmentKind
	From      Stop
	To        Stop
	Route     *Route
	Headsign  string
	Departure time.Time
	Arrival   time.Time
	Duration  int
	Distance  float64

	IntermediateStopCount int
	IntermediateStops     []string

	// WaitMinutes is the time spent at the boarding stop before a transit
	// leg departs. It is not part of Duration.
	WaitMinutes int
	// Transfer marks the interchange walk between two transit legs; its
	// duration includes the scheduled wait for the next leg.
	Transfer bool
	// Estimated marks a duration derived from the distance model rather
	// than from scheduled times.
	Estimated bool
}

// Tag labels a journey in a result set.
type Tag string

const (
	TagFastest          Tag = "fastest"
	TagLeastTransfers   Tag = "least-transfers"
	TagLeastWalking     Tag = "least-walking"
	TagEcoFriendly      Tag = "eco-friendly"
	TagNightBus         Tag = "night-bus"
	TagNoTransitService Tag = "no-transit-service"
)

// Journey is an itinerary. Totals are derived from Segments by Recompute.
type Journey struct {
	Segments        []Segment
	TotalDuration   int
	WalkingDistance float64
	Transfers       int
	Departure       time.Time
	Arrival         time.Time
	Tags            []Tag
}

// Recompute derives totals and timestamps from the segments.
func (j *Journey) Recompute() {
	j.TotalDuration = 0
	j.WalkingDistance = 0
	transit := 0
	for _, s := range j.Segments {
		j.TotalDuration += s.Duration
		if s.Kind == SegmentWalk {
			j.WalkingDistance += s.Distance
		} else {
			transit++
		}
	}
	j.Transfers = transit - 1
	if j.Transfers < 0 {
		j.Transfers = 0
	}
	if len(j.Segments) > 0 {
		j.Departure = j.Segments[0].Departure
		j.Arrival = j.Segments[len(j.Segments)-1].Arrival
	}
}

// TransitSegments counts the riding legs.
func (j Journey) TransitSegments() int {
	n := 0
	for _, s := range j.Segments {
		if s.Kind == SegmentTransit {
			n++
		}
	}
	return n
}

// WalkOnly reports a journey without any transit leg.
func (j Journey) WalkOnly() bool {
	return j.TransitSegments() == 0
}

func (j Journey) HasTag(tag Tag) bool {
	for _, t := range j.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

func (j *Journey) addTag(tag Tag) {
	if !j.HasTag(tag) {
		j.Tags = append(j.Tags, tag)
	}
}

// lineSignature identifies a journey by the ordered lines it rides.
func (j Journey) lineSignature() string {
	sig := ""
	for _, s := range j.Segments {
		if s.Kind != SegmentTransit || s.Route == nil {
			continue
		}
		if sig != "" {
			sig += ">"
		}
		sig += s.Route.DisplayName()
	}
	if sig == "" {
		return "walk"
	}
	return sig
}

// Location is a free-form journey endpoint. Exactly one way of locating it
// is used, in this order: StopID, coordinates, Address, Name.
type Location struct {
	StopID  string
	Lat     float64
	Lon     float64
	HasPos  bool
	Address string
	Name    string
}

// label names the endpoint in NO_STOPS_NEAR codes.
func (l Location) label() string {
	switch {
	case l.Name != "":
		return l.Name
	case l.Address != "":
		return l.Address
	}
	return l.StopID
}
