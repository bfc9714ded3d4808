package planner

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/MBL11/transit-app-sub002/internal/logging"
)

// OptimizeFor selects the scoring criterion of FindMultipleRoutes.
type OptimizeFor string

const (
	OptimizeFastest        OptimizeFor = "fastest"
	OptimizeLeastTransfers OptimizeFor = "least-transfers"
	OptimizeLeastWalking   OptimizeFor = "least-walking"
	OptimizeMostAccessible OptimizeFor = "most-accessible"
)

func ParseOptimizeFor(s string) (OptimizeFor, bool) {
	o := OptimizeFor(strings.ToLower(strings.TrimSpace(s)))
	switch o {
	case OptimizeFastest, OptimizeLeastTransfers, OptimizeLeastWalking, OptimizeMostAccessible:
		return o, true
	}
	return "", false
}

// AllowedModes holds one flag per mode. Walking governs walk-only journeys.
type AllowedModes struct {
	Tram    bool
	Metro   bool
	Rail    bool
	Bus     bool
	Ferry   bool
	Walking bool
}

// AllModesAllowed enables every mode and walking.
func AllModesAllowed() AllowedModes {
	return AllowedModes{Tram: true, Metro: true, Rail: true, Bus: true, Ferry: true, Walking: true}
}

func (a AllowedModes) Allows(m Mode) bool {
	switch m {
	case ModeTram:
		return a.Tram
	case ModeMetro:
		return a.Metro
	case ModeRail:
		return a.Rail
	case ModeBus:
		return a.Bus
	case ModeFerry:
		return a.Ferry
	}
	return false
}

// Preferences constrain and rank FindMultipleRoutes results. Wheelchair and
// AvoidStairs only filter on the step-free flag of boarding and alighting
// stops; they do not change the search.
type Preferences struct {
	Modes    AllowedModes
	Optimize OptimizeFor
	// MaxTransfers of -1 means unlimited.
	MaxTransfers int
	// MaxWalkingDistance in meters and MaxWaitingTime in minutes are
	// unlimited when not positive.
	MaxWalkingDistance float64
	MaxWaitingTime     int
	Wheelchair         bool
	AvoidStairs        bool
}

func DefaultPreferences() Preferences {
	return Preferences{
		Modes:        AllModesAllowed(),
		Optimize:     OptimizeFastest,
		MaxTransfers: -1,
	}
}

// FindMultipleRoutes plans between two endpoints and returns up to maxRoutes
// journeys filtered by prefs, best score first and tagged. When no service
// runs on the departure date the result is a single walk tagged
// no-transit-service.
func (p *Planner) FindMultipleRoutes(ctx context.Context, from, to Location, departure time.Time, prefs Preferences, maxRoutes int) ([]Journey, error) {
	started := p.clock.Now()
	journeys, err := p.findMultipleRoutes(ctx, from, to, departure, prefs, maxRoutes)
	p.engine.observer.ObserveSearch("find_multiple_routes", p.clock.Now().Sub(started), Code(err))
	return journeys, err
}

func (p *Planner) findMultipleRoutes(ctx context.Context, from, to Location, departure time.Time, prefs Preferences, maxRoutes int) ([]Journey, error) {
	e := p.engine
	cache := NewCache()

	origin, err := p.resolve(ctx, from, "resolve_origin", cache)
	if err != nil {
		return nil, err
	}
	dest, err := p.resolve(ctx, to, "resolve_destination", cache)
	if err != nil {
		return nil, err
	}

	services, err := cache.activeServices(ctx, e.schedule, serviceDay(departure))
	if err != nil {
		p.fail(ctx, err, "active_services")
		return nil, err
	}
	if services.Empty() {
		logging.LogOperation(p.logger, "no_transit_service",
			slog.String("date", departure.Format("2006-01-02")))
		walk := e.walkJourney(origin.point, dest.point, departure)
		walk.addTag(TagNoTransitService)
		return []Journey{walk}, nil
	}

	raw, err := p.searchEndpoints(ctx, origin, dest, departure, cache)
	if err != nil && !errors.Is(err, ErrNoRouteFound) {
		return nil, err
	}
	if prefs.Modes.Walking {
		walk := e.walkJourney(origin.point, dest.point, departure)
		if walk.TotalDuration <= e.profile.WalkFallbackCap {
			raw = append(raw, walk)
		}
	}

	ranked := rank(filterJourneys(raw, prefs), prefs.Optimize)
	if maxRoutes <= 0 {
		maxRoutes = e.profile.MaxResults
	}
	ranked = capJourneys(ranked, maxRoutes)
	if len(ranked) == 0 {
		return nil, ErrNoRouteFound
	}
	tagResults(ranked, e.profile)
	return ranked, nil
}

// filterJourneys drops journeys violating prefs and keeps only the best
// walk-only journey.
func filterJourneys(journeys []Journey, prefs Preferences) []Journey {
	var out []Journey
	bestWalk := -1
	for _, j := range journeys {
		if !satisfies(j, prefs) {
			continue
		}
		if j.WalkOnly() {
			if bestWalk >= 0 {
				if j.TotalDuration < out[bestWalk].TotalDuration {
					out[bestWalk] = j
				}
				continue
			}
			bestWalk = len(out)
		}
		out = append(out, j)
	}
	return out
}

func satisfies(j Journey, prefs Preferences) bool {
	if prefs.MaxTransfers >= 0 && j.Transfers > prefs.MaxTransfers {
		return false
	}
	if prefs.MaxWalkingDistance > 0 && j.WalkingDistance > prefs.MaxWalkingDistance {
		return false
	}
	if j.WalkOnly() {
		return prefs.Modes.Walking
	}
	for _, s := range j.Segments {
		if s.Kind != SegmentTransit {
			continue
		}
		if s.Route != nil && !prefs.Modes.Allows(s.Route.Mode) {
			return false
		}
		if prefs.MaxWaitingTime > 0 && s.WaitMinutes > prefs.MaxWaitingTime {
			return false
		}
		if (prefs.Wheelchair || prefs.AvoidStairs) && (notStepFree(s.From) || notStepFree(s.To)) {
			return false
		}
	}
	return true
}

func notStepFree(s Stop) bool {
	return s.WheelchairBoarding == 2
}

// Score rates a journey under an optimization criterion; higher is better.
func Score(j Journey, optimize OptimizeFor) float64 {
	duration := float64(j.TotalDuration)
	transfers := float64(j.Transfers)
	switch optimize {
	case OptimizeLeastTransfers:
		score := 100 - 25*transfers - 0.1*duration
		if j.Transfers == 0 {
			score += 20
		}
		return score
	case OptimizeLeastWalking:
		return 100 - j.WalkingDistance/10
	case OptimizeMostAccessible:
		return 100 - j.WalkingDistance/20 - 15*transfers
	}
	return 100 - duration
}

// rank orders by score, then duration. A walk-only journey stays below the
// transit ones unless it is at least as fast as all of them.
func rank(journeys []Journey, optimize OptimizeFor) []Journey {
	scores := make(map[int]float64, len(journeys))
	idx := make([]int, len(journeys))
	for i := range journeys {
		idx[i] = i
		scores[i] = Score(journeys[i], optimize)
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ja, jb := journeys[idx[a]], journeys[idx[b]]
		if scores[idx[a]] != scores[idx[b]] {
			return scores[idx[a]] > scores[idx[b]]
		}
		return ja.TotalDuration < jb.TotalDuration
	})

	bestTransit := -1
	for _, j := range journeys {
		if !j.WalkOnly() && (bestTransit < 0 || j.TotalDuration < bestTransit) {
			bestTransit = j.TotalDuration
		}
	}

	ordered := make([]Journey, 0, len(journeys))
	var demoted []Journey
	for _, i := range idx {
		j := journeys[i]
		if j.WalkOnly() && bestTransit >= 0 && j.TotalDuration > bestTransit {
			demoted = append(demoted, j)
			continue
		}
		ordered = append(ordered, j)
	}
	return append(ordered, demoted...)
}

// tagResults marks the minimisers of duration, transfers and walking, and
// the eco-friendly journeys. Existing night-bus and no-service tags stay.
func tagResults(journeys []Journey, profile *CostProfile) {
	fastest, fewest, leastWalk := 0, 0, 0
	for i := range journeys {
		var kept []Tag
		for _, t := range journeys[i].Tags {
			if t == TagNightBus || t == TagNoTransitService {
				kept = append(kept, t)
			}
		}
		journeys[i].Tags = kept

		if journeys[i].TotalDuration < journeys[fastest].TotalDuration {
			fastest = i
		}
		if journeys[i].Transfers < journeys[fewest].Transfers {
			fewest = i
		}
		if journeys[i].WalkingDistance < journeys[leastWalk].WalkingDistance {
			leastWalk = i
		}
	}
	journeys[fastest].addTag(TagFastest)
	journeys[fewest].addTag(TagLeastTransfers)
	journeys[leastWalk].addTag(TagLeastWalking)
	for i := range journeys {
		j := &journeys[i]
		if j.WalkingDistance < profile.EcoMaxWalking && j.Transfers <= profile.EcoMaxTransfers {
			j.addTag(TagEcoFriendly)
		}
	}
}
