// Package planner computes multi-modal transit journeys over a static
// timetable. Searches are bounded heuristics: a stop-to-stop pipeline of
// tiers (direct, one transfer, two transfers, night lines, walking), an
// orchestration layer that expands free-form endpoints into candidate stop
// pairs evaluated in order under a time budget, and a preference layer that
// filters, scores and tags the results.
//
// A Planner is safe for concurrent use; every call owns its Cache.
package planner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/MBL11/transit-app-sub002/internal/clock"
	"github.com/MBL11/transit-app-sub002/internal/logging"
)

// Options wires a Planner to its collaborators. Schedule is required when
// stop-to-stop search is used; Geography for free-form endpoints. Without a
// Reporter, upstream failures are logged through Logger.
type Options struct {
	Schedule  Schedule
	Geography Geography
	Geocoder  Geocoder
	Reporter  ErrorReporter
	Observer  Observer
	Clock     clock.Clock
	Profile   *CostProfile
	Logger    *slog.Logger
}

type Planner struct {
	engine    *engine
	pipeline  *pipeline
	geography Geography
	geocoder  Geocoder
	reporter  ErrorReporter
	clock     clock.Clock
	logger    *slog.Logger
}

func New(opts Options) *Planner {
	if opts.Profile == nil {
		opts.Profile = DefaultCostProfile()
	}
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}
	if opts.Clock == nil {
		opts.Clock = clock.RealClock{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default().With(slog.String("component", "planner"))
	}
	if opts.Reporter == nil {
		opts.Reporter = logging.NewSlogReporter(opts.Logger)
	}

	e := &engine{
		schedule: opts.Schedule,
		model:    NewCostModel(opts.Profile),
		profile:  opts.Profile,
		logger:   opts.Logger,
		observer: opts.Observer,
	}
	return &Planner{
		engine:    e,
		pipeline:  newPipeline(e),
		geography: opts.Geography,
		geocoder:  opts.Geocoder,
		reporter:  opts.Reporter,
		clock:     opts.Clock,
		logger:    opts.Logger,
	}
}

// Profile returns the cost profile in use.
func (p *Planner) Profile() *CostProfile {
	return p.engine.profile
}

// CostModel returns the model derived from the profile.
func (p *Planner) CostModel() *CostModel {
	return p.engine.model
}

// Now reads the planner's clock.
func (p *Planner) Now() time.Time {
	return p.clock.Now()
}

// FindRoute returns journeys between two stops leaving at departure, sorted
// by total duration. An unknown stop id is an error wrapping
// ErrStopNotFound. cache may be nil.
func (p *Planner) FindRoute(ctx context.Context, fromStopID, toStopID string, departure time.Time, cache *Cache) ([]Journey, error) {
	started := p.clock.Now()
	journeys, err := p.findRoute(ctx, fromStopID, toStopID, departure, cache)
	p.engine.observer.ObserveSearch("find_route", p.clock.Now().Sub(started), Code(err))
	return journeys, err
}

func (p *Planner) findRoute(ctx context.Context, fromStopID, toStopID string, departure time.Time, cache *Cache) ([]Journey, error) {
	if cache == nil {
		cache = NewCache()
	}
	from, err := p.stop(ctx, cache, fromStopID)
	if err != nil {
		return nil, err
	}
	to, err := p.stop(ctx, cache, toStopID)
	if err != nil {
		return nil, err
	}
	return p.findBetween(ctx, from, to, departure, cache)
}

func (p *Planner) stop(ctx context.Context, cache *Cache, id string) (Stop, error) {
	s, found, err := cache.stop(ctx, p.engine.schedule, id)
	if err != nil {
		return Stop{}, fmt.Errorf("failed to load stop %s: %w", id, err)
	}
	if !found {
		return Stop{}, fmt.Errorf("%w: %s", ErrStopNotFound, id)
	}
	return s, nil
}

// findBetween runs the tier pipeline for two resolved stops.
func (p *Planner) findBetween(ctx context.Context, from, to Stop, departure time.Time, cache *Cache) ([]Journey, error) {
	e := p.engine
	if Distance(from, to) <= e.profile.WalkOnlyRadius {
		return []Journey{e.walkJourney(from, to, departure)}, nil
	}

	req, err := p.pairRequest(ctx, from, to, departure, cache)
	if err != nil {
		return nil, err
	}
	found, err := p.pipeline.run(ctx, req)
	if err != nil {
		return nil, err
	}
	return p.finish(found), nil
}

func (p *Planner) pairRequest(ctx context.Context, from, to Stop, departure time.Time, cache *Cache) (*PairRequest, error) {
	day := serviceDay(departure)
	services, err := cache.activeServices(ctx, p.engine.schedule, day)
	if err != nil {
		return nil, fmt.Errorf("failed to load active services for %s: %w", day.Format("2006-01-02"), err)
	}
	return &PairRequest{
		From:       from,
		To:         to,
		Departure:  departure,
		ServiceDay: day,
		Minute:     int(departure.Sub(day) / time.Minute),
		Services:   services,
		Cache:      cache,
	}, nil
}

// finish sanitises, drops journeys over the ceiling and sorts by duration.
func (p *Planner) finish(found []Journey) []Journey {
	profile := p.engine.profile
	out := make([]Journey, 0, len(found))
	for _, j := range found {
		j = Sanitize(j, profile.NearZeroWalk)
		if j.TotalDuration > profile.JourneyCeiling {
			logging.LogDebug(p.logger, "journey_over_ceiling_dropped",
				slog.Int("duration", j.TotalDuration),
				slog.String("lines", j.lineSignature()))
			continue
		}
		out = append(out, j)
	}
	sortByDuration(out)
	return out
}

// serviceDay is local midnight of t's date.
func serviceDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
