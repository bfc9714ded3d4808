package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/MBL11/transit-app-sub002/internal/clock"
	"github.com/MBL11/transit-app-sub002/internal/logging"
	"github.com/MBL11/transit-app-sub002/internal/utils"
)

// candidate is a stop considered for one side of a trip, with the walking
// distance from the true endpoint.
type candidate struct {
	stop   Stop
	access float64
}

// endpoint is a resolved journey end. point is where the traveller really is;
// it has an id only when the endpoint is a stop.
type endpoint struct {
	point      Stop
	candidates []candidate
}

type stopPair struct {
	from candidate
	to   candidate
}

// priority ranks a pair by its fastest mode, then by its slower one.
func (sp stopPair) priority() (best, other int) {
	a, b := ModeForStopID(sp.from.stop.ID).priority(), ModeForStopID(sp.to.stop.ID).priority()
	if b < a {
		return b, a
	}
	return a, b
}

// FindRouteFromLocations plans between two free-form endpoints. Each side is
// expanded into nearby and co-located stops; candidate pairs are evaluated in
// order of mode speed until enough distinct itineraries are found or the
// search budget runs out. Results are wrapped with access and egress walks
// and sorted by duration. When nothing is found the error is ErrNoRouteFound;
// an endpoint without stops yields ErrNoStopsNearPosition or a
// *NoStopsNearError.
func (p *Planner) FindRouteFromLocations(ctx context.Context, from, to Location, departure time.Time) ([]Journey, error) {
	started := p.clock.Now()
	journeys, err := p.findRouteFromLocations(ctx, from, to, departure, NewCache())
	p.engine.observer.ObserveSearch("find_route_from_locations", p.clock.Now().Sub(started), Code(err))
	return journeys, err
}

func (p *Planner) findRouteFromLocations(ctx context.Context, from, to Location, departure time.Time, cache *Cache) ([]Journey, error) {
	origin, err := p.resolve(ctx, from, "resolve_origin", cache)
	if err != nil {
		return nil, err
	}
	dest, err := p.resolve(ctx, to, "resolve_destination", cache)
	if err != nil {
		return nil, err
	}
	return p.searchEndpoints(ctx, origin, dest, departure, cache)
}

func (p *Planner) searchEndpoints(ctx context.Context, origin, dest *endpoint, departure time.Time, cache *Cache) ([]Journey, error) {
	e := p.engine
	profile := e.profile

	if Distance(origin.point, dest.point) <= profile.WalkOnlyRadius {
		return []Journey{e.walkJourney(origin.point, dest.point, departure)}, nil
	}

	pairs := rankPairs(origin, dest)
	budget := clock.StartBudget(p.clock, profile.SearchBudget.Duration)
	seen := make(map[string]bool)
	var results []Journey
	evaluated := 0

	for _, pair := range pairs {
		if len(results) >= profile.DiverseResults {
			break
		}
		if budget.Exceeded() {
			e.observer.BudgetExhausted()
			logging.LogOperation(p.logger, "search_budget_exhausted",
				slog.Int("pairs_evaluated", evaluated),
				slog.Int("pairs_total", len(pairs)),
				slog.Int("results", len(results)))
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if pair.from.stop.ID == pair.to.stop.ID {
			continue
		}

		leave := departure.Add(time.Duration(p.accessMinutes(pair.from)) * time.Minute)
		journeys, err := p.findBetween(ctx, pair.from.stop, pair.to.stop, leave, cache)
		evaluated++
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			p.fail(ctx, err, "find_route_pair",
				slog.String("from", pair.from.stop.ID), slog.String("to", pair.to.stop.ID))
			return nil, err
		}

		for _, j := range journeys {
			wrapped, ok := p.wrap(j, origin, dest, pair, departure)
			if !ok {
				continue
			}
			sig := wrapped.lineSignature()
			if seen[sig] {
				continue
			}
			seen[sig] = true
			results = append(results, wrapped)
		}
	}
	e.observer.PairsEvaluated(evaluated)

	kept := results[:0]
	for _, j := range results {
		if j.TotalDuration <= profile.JourneyCeiling {
			kept = append(kept, j)
		}
	}
	if len(kept) == 0 {
		logging.LogDebug(p.logger, "no_route_found", slog.Int("pairs_evaluated", evaluated))
		return nil, ErrNoRouteFound
	}
	sortByDuration(kept)
	kept = capJourneys(kept, profile.MaxResults)
	p.enrich(ctx, kept)
	return kept, nil
}

// rankPairs builds every origin x destination pair, fastest modes first,
// then shortest access and egress.
func rankPairs(origin, dest *endpoint) []stopPair {
	pairs := make([]stopPair, 0, len(origin.candidates)*len(dest.candidates))
	for _, o := range origin.candidates {
		for _, d := range dest.candidates {
			pairs = append(pairs, stopPair{from: o, to: d})
		}
	}
	sort.SliceStable(pairs, func(i, k int) bool {
		bestI, otherI := pairs[i].priority()
		bestK, otherK := pairs[k].priority()
		if bestI != bestK {
			return bestI < bestK
		}
		if otherI != otherK {
			return otherI < otherK
		}
		return pairs[i].from.access+pairs[i].to.access < pairs[k].from.access+pairs[k].to.access
	})
	return pairs
}

// accessMinutes is the walk wrap puts before the first stop of a pair.
func (p *Planner) accessMinutes(c candidate) int {
	if c.access < p.engine.profile.NearZeroWalk {
		return 0
	}
	return p.engine.model.WalkLegMinutes(c.access)
}

// wrap adds the walk from the true origin to the first stop and from the
// last stop to the true destination. A walk-only result becomes a single
// walk between the true endpoints.
func (p *Planner) wrap(j Journey, origin, dest *endpoint, pair stopPair, departure time.Time) (Journey, bool) {
	e := p.engine
	if j.WalkOnly() {
		walk := e.walkJourney(origin.point, dest.point, departure)
		if walk.TotalDuration > e.profile.WalkFallbackCap {
			return Journey{}, false
		}
		walk.Tags = j.Tags
		return walk, true
	}

	segments := make([]Segment, 0, len(j.Segments)+2)
	if pair.from.access >= e.profile.NearZeroWalk {
		first := j.Segments[0]
		walk := e.walkSegment(origin.point, pair.from.stop, first.Departure)
		walk.Departure = first.Departure.Add(-time.Duration(walk.Duration) * time.Minute)
		walk.Arrival = first.Departure
		segments = append(segments, walk)
	}
	segments = append(segments, j.Segments...)
	if pair.to.access >= e.profile.NearZeroWalk {
		last := j.Segments[len(j.Segments)-1]
		segments = append(segments, e.walkSegment(pair.to.stop, dest.point, last.Arrival))
	}

	out := newJourney(segments...)
	out.Tags = j.Tags
	return out, true
}

// enrich adds headsigns and intermediate stops to transit legs. Lookups that
// fail leave the leg as it is.
func (p *Planner) enrich(ctx context.Context, journeys []Journey) {
	schedule := p.engine.schedule
	for i := range journeys {
		for k := range journeys[i].Segments {
			s := &journeys[i].Segments[k]
			if s.Kind != SegmentTransit || s.Route == nil {
				continue
			}
			headsign, err := schedule.TripHeadsign(ctx, s.Route.ID, s.From.ID, s.To.ID)
			if err != nil {
				logging.LogError(p.logger, "failed to load trip headsign", err,
					slog.String("route_id", s.Route.ID), slog.String("from", s.From.ID))
			} else if headsign != "" {
				s.Headsign = headsign
			}

			stops, err := schedule.IntermediateStops(ctx, s.Route.ID, s.From.ID, s.To.ID)
			if err != nil {
				logging.LogError(p.logger, "failed to load intermediate stops", err,
					slog.String("route_id", s.Route.ID), slog.String("from", s.From.ID))
				continue
			}
			s.IntermediateStopCount = len(stops)
			s.IntermediateStops = make([]string, len(stops))
			for n, st := range stops {
				s.IntermediateStops[n] = st.Name
			}
		}
	}
}

// resolve turns a Location into its candidate stops.
func (p *Planner) resolve(ctx context.Context, loc Location, action string, cache *Cache) (*endpoint, error) {
	e := p.engine
	profile := e.profile

	var point Stop
	var seeds []Stop
	switch {
	case loc.StopID != "":
		s, err := p.stop(ctx, cache, loc.StopID)
		if err != nil {
			return nil, err
		}
		point, seeds = s, []Stop{s}

	case loc.HasPos:
		if !utils.ValidCoordinate(loc.Lat, loc.Lon) {
			return nil, noStopsNear(loc)
		}
		point = Stop{Name: loc.label(), Lat: loc.Lat, Lon: loc.Lon}
		nearby, err := p.nearby(ctx, point, action)
		if err != nil {
			return nil, err
		}
		seeds = nearby

	case loc.Address != "":
		if p.geocoder == nil {
			return nil, fmt.Errorf("cannot resolve address %q: no geocoder configured", loc.Address)
		}
		places, err := p.geocoder.Geocode(ctx, loc.Address)
		if err != nil {
			p.fail(ctx, err, action, slog.String("address", loc.Address))
			return nil, fmt.Errorf("failed to geocode %q: %w", loc.Address, err)
		}
		if len(places) == 0 {
			logging.LogDebug(p.logger, "address_not_found", slog.String("address", loc.Address))
			return nil, &NoStopsNearError{Label: loc.Address}
		}
		name := loc.label()
		if loc.Name == "" && places[0].DisplayName != "" {
			name = places[0].DisplayName
		}
		point = Stop{Name: name, Lat: places[0].Lat, Lon: places[0].Lon}
		nearby, err := p.nearby(ctx, point, action)
		if err != nil {
			return nil, err
		}
		seeds = nearby

	case loc.Name != "":
		if p.geography == nil {
			return nil, errors.New("cannot resolve stop names: no geography configured")
		}
		found, err := p.geography.SearchStops(ctx, loc.Name, profile.MaxCandidates)
		if err != nil {
			p.fail(ctx, err, action, slog.String("name", loc.Name))
			return nil, fmt.Errorf("failed to search stops named %q: %w", loc.Name, err)
		}
		if len(found) == 0 {
			return nil, &NoStopsNearError{Label: loc.Name}
		}
		point, seeds = found[0], found

	default:
		return nil, errors.New("location has no stop, position, address or name")
	}

	if len(seeds) == 0 {
		logging.LogDebug(p.logger, "no_stops_near_endpoint",
			slog.String("label", loc.label()), slog.Float64("lat", point.Lat), slog.Float64("lon", point.Lon))
		return nil, noStopsNear(loc)
	}

	if limit := profile.MaxCandidates; limit > 0 && len(seeds) > limit {
		seeds = seeds[:limit]
	}
	expanded := seeds
	if p.geography != nil {
		more, err := p.geography.ExpandCoLocated(ctx, seeds)
		if err != nil {
			p.fail(ctx, err, action, slog.String("label", loc.label()))
			return nil, fmt.Errorf("failed to expand co-located stops: %w", err)
		}
		expanded = append(append([]Stop{}, seeds...), more...)
	}

	return &endpoint{point: point, candidates: candidates(point, expanded)}, nil
}

func (p *Planner) nearby(ctx context.Context, point Stop, action string) ([]Stop, error) {
	if p.geography == nil {
		return nil, errors.New("cannot resolve positions: no geography configured")
	}
	profile := p.engine.profile
	found, err := p.geography.NearbyStops(ctx, point.Lat, point.Lon, profile.NearbyStopCount, profile.NearbyStopRadius)
	if err != nil {
		p.fail(ctx, err, action, slog.Float64("lat", point.Lat), slog.Float64("lon", point.Lon))
		return nil, fmt.Errorf("failed to find stops near %.5f,%.5f: %w", point.Lat, point.Lon, err)
	}
	stops := make([]Stop, len(found))
	for i, n := range found {
		stops[i] = n.Stop
	}
	return stops, nil
}

// candidates dedupes stops and orders them by access distance. Every
// co-located stop of a seed is kept.
func candidates(point Stop, stops []Stop) []candidate {
	seen := make(map[string]bool, len(stops))
	out := make([]candidate, 0, len(stops))
	for _, s := range stops {
		if seen[s.ID] {
			continue
		}
		seen[s.ID] = true
		out = append(out, candidate{stop: s, access: Distance(point, s)})
	}
	sort.SliceStable(out, func(i, k int) bool { return out[i].access < out[k].access })
	return out
}

func noStopsNear(loc Location) error {
	if label := strings.TrimSpace(loc.Name); label != "" {
		return &NoStopsNearError{Label: label}
	}
	if label := strings.TrimSpace(loc.Address); label != "" {
		return &NoStopsNearError{Label: label}
	}
	return ErrNoStopsNearPosition
}

// fail forwards an upstream failure to the error reporter, which owns the
// single error log line. attrs travel as extra tags.
func (p *Planner) fail(ctx context.Context, err error, action string, attrs ...slog.Attr) {
	tags := make(map[string]string, len(attrs)+2)
	for _, a := range attrs {
		tags[a.Key] = a.Value.String()
	}
	tags["module"] = "routing"
	tags["action"] = action
	p.reporter.Report(ctx, err, tags)
}
