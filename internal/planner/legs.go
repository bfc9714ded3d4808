package planner

import (
	"context"
	"log/slog"
	"time"
)

// engine is the shared state of the search tiers.
type engine struct {
	schedule Schedule
	model    *CostModel
	profile  *CostProfile
	logger   *slog.Logger
	observer Observer
}

// PairRequest is the input of one stop-to-stop search. Minute counts from
// ServiceDay, the local midnight of the departure date.
type PairRequest struct {
	From       Stop
	To         Stop
	Departure  time.Time
	ServiceDay time.Time
	Minute     int
	Services   ServiceSet
	Cache      *Cache
}

func (r *PairRequest) at(minute int) time.Time {
	return r.ServiceDay.Add(time.Duration(minute) * time.Minute)
}

// leg is a ride on one route, in minutes of the service day.
type leg struct {
	route     Route
	from      Stop
	to        Stop
	departure int
	duration  int
	wait      int
	estimated bool
}

func (l leg) arrival() int {
	return l.departure + l.duration
}

// planLeg finds the next ride on route from one stop to another leaving no
// earlier than afterMinute. ok is false when the route is not running or has
// no departure within window minutes. Routes of the estimated departure
// modes that have no stop times at all leave half a headway out instead.
func (e *engine) planLeg(ctx context.Context, req *PairRequest, route Route, from, to Stop, afterMinute, window int) (leg, bool, error) {
	if !e.model.IsOperating(route, afterMinute) {
		return leg{}, false, nil
	}
	departure, ok, err := e.schedule.NextDeparture(ctx, route.ID, from.ID, afterMinute, req.Services, window)
	if err != nil {
		return leg{}, false, err
	}
	estimated := false
	if !ok {
		departure, ok, err = e.estimateDeparture(ctx, route, from, afterMinute)
		if err != nil || !ok {
			return leg{}, false, err
		}
		estimated = true
	}

	l := leg{route: route, from: from, to: to, departure: departure, wait: departure - afterMinute, estimated: estimated}

	duration, ok, err := e.schedule.ActualTravelTime(ctx, route.ID, from.ID, to.ID)
	if err != nil {
		return leg{}, false, err
	}
	if !ok {
		duration, ok, err = e.schedule.AnyRouteTravelTime(ctx, from.ID, to.ID)
		if err != nil {
			return leg{}, false, err
		}
	}
	if ok && duration > 0 {
		l.duration = e.model.floorLeg(duration)
	} else {
		l.duration = e.model.TransitMinutes(route.Mode, Distance(from, to))
		l.estimated = true
	}
	return l, true, nil
}

// estimateDeparture places a departure half a headway after afterMinute for
// a route whose timetable has no stop times at from.
func (e *engine) estimateDeparture(ctx context.Context, route Route, from Stop, afterMinute int) (int, bool, error) {
	if !e.model.EstimatesDepartures(route.Mode) {
		return 0, false, nil
	}
	scheduled, err := e.schedule.HasDepartures(ctx, route.ID, from.ID)
	if err != nil || scheduled {
		return 0, false, err
	}
	return afterMinute + e.model.AverageWaitMinutes(route.Mode), true, nil
}

func (e *engine) transitSegment(req *PairRequest, l leg) Segment {
	route := l.route
	return Segment{
		Kind:        SegmentTransit,
		From:        l.from,
		To:          l.to,
		Route:       &route,
		Departure:   req.at(l.departure),
		Arrival:     req.at(l.arrival()),
		Duration:    l.duration,
		Distance:    Distance(l.from, l.to),
		WaitMinutes: l.wait,
		Estimated:   l.estimated,
	}
}

func (e *engine) walkSegment(from, to Stop, at time.Time) Segment {
	distance := Distance(from, to)
	minutes := e.model.WalkLegMinutes(distance)
	return Segment{
		Kind:      SegmentWalk,
		From:      from,
		To:        to,
		Departure: at,
		Arrival:   at.Add(time.Duration(minutes) * time.Minute),
		Duration:  minutes,
		Distance:  distance,
	}
}

// transferSegment is the interchange between two legs. Its duration covers
// the transfer cost and the wait for the next departure.
func (e *engine) transferSegment(req *PairRequest, from, to Stop, walkMeters float64, arrived, departs int) Segment {
	return Segment{
		Kind:      SegmentWalk,
		From:      from,
		To:        to,
		Departure: req.at(arrived),
		Arrival:   req.at(departs),
		Duration:  departs - arrived,
		Distance:  walkMeters,
		Transfer:  true,
	}
}

func (e *engine) walkJourney(from, to Stop, at time.Time) Journey {
	return newJourney(e.walkSegment(from, to, at))
}

func newJourney(segments ...Segment) Journey {
	j := Journey{Segments: segments}
	j.Recompute()
	return j
}

// chain builds a journey riding legs in order with a transfer between each
// pair of consecutive legs.
func (e *engine) chain(req *PairRequest, legs []leg, transferWalks []float64) Journey {
	segments := make([]Segment, 0, 2*len(legs)-1)
	for i, l := range legs {
		if i > 0 {
			prev := legs[i-1]
			segments = append(segments, e.transferSegment(req, prev.to, l.from, transferWalks[i-1], prev.arrival(), l.departure))
		}
		segments = append(segments, e.transitSegment(req, l))
	}
	return newJourney(segments...)
}

func routeIDs(routes []Route) []string {
	ids := make([]string, len(routes))
	for i, r := range routes {
		ids[i] = r.ID
	}
	return ids
}

func routesByID(groups ...[]Route) map[string]Route {
	out := make(map[string]Route)
	for _, routes := range groups {
		for _, r := range routes {
			out[r.ID] = r
		}
	}
	return out
}

// commonRoutes returns routes of a also in b, in a's order.
func commonRoutes(a, b []Route) []Route {
	inB := make(map[string]struct{}, len(b))
	for _, r := range b {
		inB[r.ID] = struct{}{}
	}
	var out []Route
	for _, r := range a {
		if _, ok := inB[r.ID]; ok {
			out = append(out, r)
		}
	}
	return out
}
