package models

import (
	"math"

	"github.com/MBL11/transit-app-sub002/internal/planner"
	"github.com/google/uuid"
	"github.com/twpayne/go-polyline"
)

// Journey is a planned itinerary. Times are Unix milliseconds.
type Journey struct {
	ID              string   `json:"id"`
	DepartureTime   int64    `json:"departureTime"`
	ArrivalTime     int64    `json:"arrivalTime"`
	DurationMinutes int      `json:"durationMinutes"`
	WalkingDistance int      `json:"walkingDistanceMeters"`
	Transfers       int      `json:"transfers"`
	Tags            []string `json:"tags"`
	Legs            []Leg    `json:"legs"`
}

// Leg is one segment of a Journey. Endpoints without a stop id (coordinates,
// addresses) are only described by name and position.
type Leg struct {
	Mode              string   `json:"mode"`
	From              LegPlace `json:"from"`
	To                LegPlace `json:"to"`
	RouteID           string   `json:"routeId,omitempty"`
	RouteName         string   `json:"routeName,omitempty"`
	Headsign          string   `json:"headsign,omitempty"`
	DepartureTime     int64    `json:"departureTime"`
	ArrivalTime       int64    `json:"arrivalTime"`
	DurationMinutes   int      `json:"durationMinutes"`
	DistanceMeters    int      `json:"distanceMeters"`
	WaitMinutes       int      `json:"waitMinutes,omitempty"`
	IntermediateStops []string `json:"intermediateStops"`
	NumIntermediate   int      `json:"numIntermediateStops"`
	Transfer          bool     `json:"transfer,omitempty"`
	Estimated         bool     `json:"estimated"`
	Geometry          string   `json:"geometry"`
}

type LegPlace struct {
	StopID string  `json:"stopId,omitempty"`
	Name   string  `json:"name"`
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
}

// NewJourneys converts planner results and collects their references.
func NewJourneys(journeys []planner.Journey, refs *ReferenceCollector) []Journey {
	out := make([]Journey, 0, len(journeys))
	for _, j := range journeys {
		out = append(out, NewJourney(j, refs))
	}
	return out
}

// NewJourney converts one planner journey. refs may be nil.
func NewJourney(j planner.Journey, refs *ReferenceCollector) Journey {
	tags := make([]string, 0, len(j.Tags))
	for _, t := range j.Tags {
		tags = append(tags, string(t))
	}

	legs := make([]Leg, 0, len(j.Segments))
	for _, s := range j.Segments {
		legs = append(legs, newLeg(s))
		if refs != nil {
			refs.AddStop(s.From)
			refs.AddStop(s.To)
			refs.AddRoute(s.Route)
		}
	}

	return Journey{
		ID:              uuid.NewString(),
		DepartureTime:   j.Departure.UnixMilli(),
		ArrivalTime:     j.Arrival.UnixMilli(),
		DurationMinutes: j.TotalDuration,
		WalkingDistance: int(math.Round(j.WalkingDistance)),
		Transfers:       j.Transfers,
		Tags:            tags,
		Legs:            legs,
	}
}

func newLeg(s planner.Segment) Leg {
	leg := Leg{
		Mode:              "walk",
		From:              newLegPlace(s.From),
		To:                newLegPlace(s.To),
		Headsign:          s.Headsign,
		DepartureTime:     s.Departure.UnixMilli(),
		ArrivalTime:       s.Arrival.UnixMilli(),
		DurationMinutes:   s.Duration,
		DistanceMeters:    int(math.Round(s.Distance)),
		WaitMinutes:       s.WaitMinutes,
		IntermediateStops: s.IntermediateStops,
		NumIntermediate:   s.IntermediateStopCount,
		Transfer:          s.Transfer,
		Estimated:         s.Estimated,
		Geometry:          EncodeLine(s.From, s.To),
	}
	if leg.IntermediateStops == nil {
		leg.IntermediateStops = []string{}
	}
	if s.Kind == planner.SegmentTransit && s.Route != nil {
		leg.Mode = string(s.Route.Mode)
		leg.RouteID = s.Route.ID
		leg.RouteName = s.Route.DisplayName()
	}
	return leg
}

func newLegPlace(s planner.Stop) LegPlace {
	return LegPlace{StopID: s.ID, Name: s.Name, Lat: s.Lat, Lon: s.Lon}
}

// EncodeLine returns the Google encoded polyline through the given stops.
func EncodeLine(stops ...planner.Stop) string {
	coords := make([][]float64, 0, len(stops))
	for _, s := range stops {
		coords = append(coords, []float64{s.Lat, s.Lon})
	}
	return string(polyline.EncodeCoords(coords))
}
