package planner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindMultipleRoutes_NoTransitService(t *testing.T) {
	net := transferNetwork()
	net.services = NewServiceSet()
	f := newPlannerFixture(t, net)

	at2 := time.Date(2024, 6, 18, 2, 0, 0, 0, time.UTC)
	journeys, err := f.planner.FindMultipleRoutes(context.Background(),
		Location{StopID: "o"}, Location{StopID: "d"}, at2, DefaultPreferences(), 5)
	require.NoError(t, err)
	require.Len(t, journeys, 1)

	j := journeys[0]
	assert.True(t, j.WalkOnly())
	assert.True(t, j.HasTag(TagNoTransitService))
	assert.Equal(t, f.planner.CostModel().WalkingMinutes(3336), j.TotalDuration)
	assert.Zero(t, net.callCount("NextDeparture"), "the search is not run")
}

func TestFindMultipleRoutes_RanksAndTags(t *testing.T) {
	f := newPlannerFixture(t, transferNetwork())

	journeys, err := f.planner.FindMultipleRoutes(context.Background(),
		Location{StopID: "o"}, Location{StopID: "d"}, at8, DefaultPreferences(), 5)
	require.NoError(t, err)
	require.Len(t, journeys, 2)

	transit, walk := journeys[0], journeys[1]
	assert.False(t, transit.WalkOnly())
	assert.Equal(t, 25, transit.TotalDuration)
	assert.True(t, walk.WalkOnly())
	assert.Equal(t, 40, walk.TotalDuration)

	assert.ElementsMatch(t, []Tag{TagFastest, TagLeastWalking, TagEcoFriendly}, transit.Tags)
	assert.ElementsMatch(t, []Tag{TagLeastTransfers}, walk.Tags)
	assert.Equal(t, []string{"find_multiple_routes:OK"}, f.observer.searches)
}

func TestFindMultipleRoutes_Filters(t *testing.T) {
	tests := []struct {
		name   string
		prefs  func(p *Preferences)
		tweak  func(n *fakeNetwork)
		expect []int
	}{
		{
			name:   "no transfers allowed keeps the walk",
			prefs:  func(p *Preferences) { p.MaxTransfers = 0 },
			expect: []int{40},
		},
		{
			name:   "walking limit drops the walk",
			prefs:  func(p *Preferences) { p.MaxWalkingDistance = 100 },
			expect: []int{25},
		},
		{
			name:   "metro disallowed",
			prefs:  func(p *Preferences) { p.Modes.Metro = false },
			expect: []int{40},
		},
		{
			name:   "walking disallowed",
			prefs:  func(p *Preferences) { p.Modes.Walking = false },
			expect: []int{25},
		},
		{
			name:   "waiting limit",
			prefs:  func(p *Preferences) { p.MaxWaitingTime = 1 },
			expect: []int{40},
		},
		{
			name:   "wheelchair avoids stops without step-free access",
			prefs:  func(p *Preferences) { p.Wheelchair = true },
			tweak:  func(n *fakeNetwork) { s := n.stops["d"]; s.WheelchairBoarding = 2; n.stops["d"] = s },
			expect: []int{40},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			net := transferNetwork()
			if tt.tweak != nil {
				tt.tweak(net)
			}
			f := newPlannerFixture(t, net)
			prefs := DefaultPreferences()
			tt.prefs(&prefs)

			journeys, err := f.planner.FindMultipleRoutes(context.Background(),
				Location{StopID: "o"}, Location{StopID: "d"}, at8, prefs, 5)
			require.NoError(t, err)

			var durations []int
			for _, j := range journeys {
				durations = append(durations, j.TotalDuration)
				if prefs.MaxTransfers >= 0 {
					assert.LessOrEqual(t, j.Transfers, prefs.MaxTransfers)
				}
				if prefs.MaxWalkingDistance > 0 {
					assert.LessOrEqual(t, j.WalkingDistance, prefs.MaxWalkingDistance)
				}
			}
			assert.Equal(t, tt.expect, durations)
		})
	}
}

func TestFindMultipleRoutes_NothingLeft(t *testing.T) {
	f := newPlannerFixture(t, transferNetwork())
	prefs := DefaultPreferences()
	prefs.MaxTransfers = 0
	prefs.Modes.Walking = false

	_, err := f.planner.FindMultipleRoutes(context.Background(),
		Location{StopID: "o"}, Location{StopID: "d"}, at8, prefs, 5)
	assert.ErrorIs(t, err, ErrNoRouteFound)
}

func TestFindMultipleRoutes_MaxRoutes(t *testing.T) {
	f := newPlannerFixture(t, transferNetwork())

	journeys, err := f.planner.FindMultipleRoutes(context.Background(),
		Location{StopID: "o"}, Location{StopID: "d"}, at8, DefaultPreferences(), 1)
	require.NoError(t, err)
	require.Len(t, journeys, 1)
	assert.Equal(t, 25, journeys[0].TotalDuration)
}

func TestScore(t *testing.T) {
	j := Journey{TotalDuration: 30, Transfers: 1, WalkingDistance: 400}
	direct := Journey{TotalDuration: 30, WalkingDistance: 400}

	assert.InDelta(t, 70, Score(j, OptimizeFastest), 1e-9)
	assert.InDelta(t, 72, Score(j, OptimizeLeastTransfers), 1e-9)
	assert.InDelta(t, 117, Score(direct, OptimizeLeastTransfers), 1e-9)
	assert.InDelta(t, 60, Score(j, OptimizeLeastWalking), 1e-9)
	assert.InDelta(t, 65, Score(j, OptimizeMostAccessible), 1e-9)
	assert.InDelta(t, 70, Score(j, ""), 1e-9, "unknown criteria rank by duration")
}

func TestRank_WalkDemotion(t *testing.T) {
	ride := newJourney(Segment{Kind: SegmentTransit, From: Stop{ID: "a"}, To: Stop{ID: "b"}, Route: &Route{ID: "R"}, Duration: 25})
	ride.Transfers = 1

	tests := []struct {
		name      string
		walk      int
		walkFirst bool
	}{
		{name: "slower walk goes below transit", walk: 40, walkFirst: false},
		{name: "walk as fast as transit keeps its score", walk: 25, walkFirst: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			walk := newJourney(Segment{Kind: SegmentWalk, Duration: tt.walk, Distance: 2000})
			ranked := rank([]Journey{ride, walk}, OptimizeLeastTransfers)
			require.Len(t, ranked, 2)
			assert.Equal(t, tt.walkFirst, ranked[0].WalkOnly())
		})
	}
}

func TestParseOptimizeFor(t *testing.T) {
	o, ok := ParseOptimizeFor(" Least-Walking ")
	assert.True(t, ok)
	assert.Equal(t, OptimizeLeastWalking, o)

	_, ok = ParseOptimizeFor("cheapest")
	assert.False(t, ok)
}

func TestAllowedModes(t *testing.T) {
	modes := AllModesAllowed()
	for _, m := range AllModes {
		assert.True(t, modes.Allows(m), m)
	}
	modes.Ferry = false
	assert.False(t, modes.Allows(ModeFerry))
	assert.False(t, modes.Allows(Mode("hovercraft")))
}
