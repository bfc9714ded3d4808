package planner

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/MBL11/transit-app-sub002/internal/logging"
)

// Tier is one strategy of the stop-to-stop search.
type Tier interface {
	Name() string
	Search(ctx context.Context, req *PairRequest) ([]Journey, error)
}

// stage runs a tier when its condition holds for what earlier stages found.
type stage struct {
	tier Tier
	when func(found []Journey, req *PairRequest) bool
}

// pipeline tries its stages in order and merges their results.
type pipeline struct {
	stages   []stage
	logger   *slog.Logger
	observer Observer
}

func newPipeline(e *engine) *pipeline {
	nothingYet := func(found []Journey, _ *PairRequest) bool { return len(found) == 0 }
	return &pipeline{
		logger:   e.logger,
		observer: e.observer,
		stages: []stage{
			{tier: &directTier{e}},
			{tier: &singleTransferTier{e}, when: func(found []Journey, _ *PairRequest) bool { return !hasRailDirect(found) }},
			{tier: &doubleTransferTier{e}, when: nothingYet},
			{tier: &nightTier{e}, when: func(found []Journey, req *PairRequest) bool {
				return len(found) == 0 && e.model.InLateNightWindow(req.Minute)
			}},
			{tier: &walkTier{e}, when: nothingYet},
		},
	}
}

func (p *pipeline) run(ctx context.Context, req *PairRequest) ([]Journey, error) {
	var found []Journey
	for _, st := range p.stages {
		if st.when != nil && !st.when(found, req) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		journeys, err := st.tier.Search(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("%s search from %s to %s: %w", st.tier.Name(), req.From.ID, req.To.ID, err)
		}
		p.observer.TierResults(st.tier.Name(), len(journeys))
		if len(journeys) > 0 {
			logging.LogDebug(p.logger, "tier_results",
				slog.String("tier", st.tier.Name()),
				slog.String("from", req.From.ID),
				slog.String("to", req.To.ID),
				slog.Int("count", len(journeys)))
		}
		found = append(found, journeys...)
	}
	return found, nil
}

// hasRailDirect reports a single-leg commuter rail result. Metro directs do
// not count.
func hasRailDirect(found []Journey) bool {
	for _, j := range found {
		if j.TransitSegments() != 1 {
			continue
		}
		for _, s := range j.Segments {
			if s.Kind == SegmentTransit && s.Route != nil && s.Route.Mode == ModeRail {
				return true
			}
		}
	}
	return false
}

func sortByDuration(journeys []Journey) {
	sort.SliceStable(journeys, func(i, k int) bool {
		return journeys[i].TotalDuration < journeys[k].TotalDuration
	})
}

func capJourneys(journeys []Journey, n int) []Journey {
	if n > 0 && len(journeys) > n {
		return journeys[:n]
	}
	return journeys
}

type directTier struct{ *engine }

func (t *directTier) Name() string { return "direct" }

func (t *directTier) Search(ctx context.Context, req *PairRequest) ([]Journey, error) {
	return t.searchCommon(ctx, req, t.profile.DepartureWindow, nil)
}

// searchCommon rides every route serving both endpoints that passes keep.
func (e *engine) searchCommon(ctx context.Context, req *PairRequest, window int, keep func(Route) bool) ([]Journey, error) {
	origin, err := req.Cache.routesForStop(ctx, e.schedule, req.From.ID, true)
	if err != nil {
		return nil, err
	}
	dest, err := req.Cache.routesForStop(ctx, e.schedule, req.To.ID, true)
	if err != nil {
		return nil, err
	}

	var candidates []Route
	for _, r := range commonRoutes(origin, dest) {
		if keep == nil || keep(r) {
			candidates = append(candidates, r)
		}
	}
	if keep == nil && len(candidates) > e.profile.DirectRouteCap {
		candidates = candidates[:e.profile.DirectRouteCap]
	}

	var out []Journey
	for _, route := range candidates {
		l, ok, err := e.planLeg(ctx, req, route, req.From, req.To, req.Minute, window)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, newJourney(e.transitSegment(req, l)))
		}
	}
	sortByDuration(out)
	return capJourneys(out, e.profile.DirectResultCap), nil
}

type singleTransferTier struct{ *engine }

func (t *singleTransferTier) Name() string { return "single_transfer" }

func (t *singleTransferTier) Search(ctx context.Context, req *PairRequest) ([]Journey, error) {
	origin, err := req.Cache.routesForStop(ctx, t.schedule, req.From.ID, true)
	if err != nil {
		return nil, err
	}
	dest, err := req.Cache.routesForStop(ctx, t.schedule, req.To.ID, true)
	if err != nil {
		return nil, err
	}
	if len(origin) == 0 || len(dest) == 0 {
		return nil, nil
	}

	points, err := t.schedule.FindTransferStops(ctx, routeIDs(origin), routeIDs(dest), t.profile.TransferRadius, t.profile.TransferPointCap)
	if err != nil {
		return nil, err
	}
	byID := routesByID(origin, dest)

	done := make(map[[2]string]bool)
	var out []Journey
	for _, tp := range points {
		pair := [2]string{tp.FromRouteID, tp.ToRouteID}
		if tp.FromRouteID == tp.ToRouteID || done[pair] {
			continue
		}
		if tp.FromStop.ID == req.From.ID || tp.FromStop.ID == req.To.ID {
			continue
		}
		first, second := byID[tp.FromRouteID], byID[tp.ToRouteID]

		leg1, ok, err := t.planLeg(ctx, req, first, req.From, tp.FromStop, req.Minute, t.profile.DepartureWindow)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		if tp.ToStop.ID == req.To.ID || Distance(tp.ToStop, req.To) <= t.profile.CollapseRadius {
			ride := t.transitSegment(req, leg1)
			out = append(out, newJourney(ride, t.walkSegment(tp.FromStop, req.To, ride.Arrival)))
			done[pair] = true
			continue
		}

		readyAt := leg1.arrival() + t.model.TransferMinutes(first.Mode, second.Mode, tp.WalkingDistance)
		leg2, ok, err := t.planLeg(ctx, req, second, tp.ToStop, req.To, readyAt, t.profile.DepartureWindow)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		out = append(out, t.chain(req, []leg{leg1, leg2}, []float64{tp.WalkingDistance}))
		done[pair] = true
	}

	sortByDuration(out)
	return capJourneys(out, t.profile.SingleTransferCap), nil
}

type doubleTransferTier struct{ *engine }

func (t *doubleTransferTier) Name() string { return "double_transfer" }

// link is a stop where an origin route meets an intermediate route.
type link struct {
	first Route
	at    Stop
}

func (t *doubleTransferTier) Search(ctx context.Context, req *PairRequest) ([]Journey, error) {
	origin, err := req.Cache.routesForStop(ctx, t.schedule, req.From.ID, true)
	if err != nil {
		return nil, err
	}
	dest, err := req.Cache.routesForStop(ctx, t.schedule, req.To.ID, true)
	if err != nil {
		return nil, err
	}
	limit := t.profile.DoubleTransferRoutes
	if len(origin) == 0 || len(dest) == 0 || len(origin) > limit || len(dest) > limit {
		return nil, nil
	}

	excluded := routesByID(origin, dest)
	firsts := origin
	if len(firsts) > t.profile.DoubleTransferOrigin {
		firsts = firsts[:t.profile.DoubleTransferOrigin]
	}

	stopsByID := make(map[string]Stop)
	servedBy := make(map[string][]Route)
	var stopIDs []string
	for _, r := range firsts {
		stops, err := req.Cache.routeStops(ctx, t.schedule, r.ID)
		if err != nil {
			return nil, err
		}
		for _, s := range stops {
			if s.ID == req.From.ID {
				continue
			}
			if _, seen := stopsByID[s.ID]; !seen {
				stopsByID[s.ID] = s
				stopIDs = append(stopIDs, s.ID)
			}
			servedBy[s.ID] = append(servedBy[s.ID], r)
		}
	}
	if len(stopIDs) == 0 {
		return nil, nil
	}

	routesAt, err := req.Cache.routesForStops(ctx, t.schedule, stopIDs, false)
	if err != nil {
		return nil, err
	}
	middles := make(map[string]Route)
	links := make(map[string][]link)
	var middleIDs []string
	for _, id := range stopIDs {
		for _, r := range routesAt[id] {
			if _, skip := excluded[r.ID]; skip {
				continue
			}
			if _, seen := middles[r.ID]; !seen {
				middles[r.ID] = r
				middleIDs = append(middleIDs, r.ID)
			}
			for _, first := range servedBy[id] {
				links[r.ID] = append(links[r.ID], link{first: first, at: stopsByID[id]})
			}
		}
	}
	if len(middleIDs) == 0 {
		return nil, nil
	}

	points, err := t.schedule.FindTransferStops(ctx, middleIDs, routeIDs(dest), t.profile.TransferRadius, t.profile.TransferPointCap)
	if err != nil {
		return nil, err
	}
	destByID := routesByID(dest)

	done := make(map[[3]string]bool)
	var out []Journey
	for _, tp := range points {
		middle, ok := middles[tp.FromRouteID]
		if !ok {
			continue
		}
		last := destByID[tp.ToRouteID]
		for _, lk := range links[middle.ID] {
			key := [3]string{lk.first.ID, middle.ID, last.ID}
			if done[key] || lk.at.ID == tp.FromStop.ID {
				continue
			}
			j, ok, err := t.threeLegs(ctx, req, lk, middle, last, tp)
			if err != nil {
				return nil, err
			}
			if ok {
				out = append(out, j)
				done[key] = true
				break
			}
		}
		if len(out) >= t.profile.DoubleTransferCap {
			break
		}
	}

	sortByDuration(out)
	return capJourneys(out, t.profile.DoubleTransferCap), nil
}

func (t *doubleTransferTier) threeLegs(ctx context.Context, req *PairRequest, lk link, middle, last Route, tp TransferPoint) (Journey, bool, error) {
	window := t.profile.DepartureWindow
	leg1, ok, err := t.planLeg(ctx, req, lk.first, req.From, lk.at, req.Minute, window)
	if err != nil || !ok {
		return Journey{}, false, err
	}
	ready := leg1.arrival() + t.model.TransferMinutes(lk.first.Mode, middle.Mode, 0)
	leg2, ok, err := t.planLeg(ctx, req, middle, lk.at, tp.FromStop, ready, window)
	if err != nil || !ok {
		return Journey{}, false, err
	}
	ready = leg2.arrival() + t.model.TransferMinutes(middle.Mode, last.Mode, tp.WalkingDistance)
	leg3, ok, err := t.planLeg(ctx, req, last, tp.ToStop, req.To, ready, window)
	if err != nil || !ok {
		return Journey{}, false, err
	}
	return t.chain(req, []leg{leg1, leg2, leg3}, []float64{0, tp.WalkingDistance}), true, nil
}

type nightTier struct{ *engine }

func (t *nightTier) Name() string { return "night" }

func (t *nightTier) Search(ctx context.Context, req *PairRequest) ([]Journey, error) {
	out, err := t.searchCommon(ctx, req, t.profile.NightDepartureWindow, t.model.IsNightLine)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].addTag(TagNightBus)
	}
	return out, nil
}

type walkTier struct{ *engine }

func (t *walkTier) Name() string { return "walk" }

func (t *walkTier) Search(_ context.Context, req *PairRequest) ([]Journey, error) {
	if t.model.WalkingMinutes(Distance(req.From, req.To)) > t.profile.WalkFallbackCap {
		return nil, nil
	}
	return []Journey{t.walkJourney(req.From, req.To, req.Departure)}, nil
}
