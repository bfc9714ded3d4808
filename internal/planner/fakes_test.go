package planner

import (
	"context"
	"math"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/MBL11/transit-app-sub002/internal/clock"
	"github.com/MBL11/transit-app-sub002/internal/utils"
)

// metersPerDegreeLat matches utils.Distance along a meridian.
const metersPerDegreeLat = utils.RadiusOfEarthInMeters * math.Pi / 180

func north(lat, meters float64) float64 {
	return lat + meters/metersPerDegreeLat
}

// fakeNetwork is an in-memory Schedule and Geography.
type fakeNetwork struct {
	mu         sync.Mutex
	stops      map[string]Stop
	order      []string
	routes     map[string]Route
	routeStops map[string][]string
	departures map[string][]int
	travel     map[string]int
	anyTravel  map[string]int
	headsigns  map[string]string
	services   ServiceSet
	calls      map[string]int

	// failWith is returned by every lookup named in failOn.
	failWith error
	failOn   map[string]bool
}

func newFakeNetwork() *fakeNetwork {
	return &fakeNetwork{
		stops:      map[string]Stop{},
		routes:     map[string]Route{},
		routeStops: map[string][]string{},
		departures: map[string][]int{},
		travel:     map[string]int{},
		anyTravel:  map[string]int{},
		headsigns:  map[string]string{},
		services:   NewServiceSet("WK"),
		calls:      map[string]int{},
		failOn:     map[string]bool{},
	}
}

func (n *fakeNetwork) addStop(id, name string, lat, lon float64) Stop {
	s := Stop{ID: id, Name: name, Lat: lat, Lon: lon}
	n.stops[id] = s
	n.order = append(n.order, id)
	return s
}

func (n *fakeNetwork) addRoute(id, shortName string, mode Mode, stopIDs ...string) Route {
	r := Route{ID: id, ShortName: shortName, Mode: mode}
	n.routes[id] = r
	n.routeStops[id] = stopIDs
	return r
}

func (n *fakeNetwork) addDepartures(routeID, stopID string, minutes ...int) {
	key := routeID + "|" + stopID
	n.departures[key] = append(n.departures[key], minutes...)
	sort.Ints(n.departures[key])
}

func (n *fakeNetwork) setTravel(routeID, from, to string, minutes int) {
	n.travel[routeID+"|"+from+"|"+to] = minutes
}

func (n *fakeNetwork) record(name string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls[name]++
	if n.failOn[name] {
		return n.failWith
	}
	return nil
}

func (n *fakeNetwork) callCount(name string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls[name]
}

func (n *fakeNetwork) StopByID(_ context.Context, id string) (Stop, bool, error) {
	if err := n.record("StopByID"); err != nil {
		return Stop{}, false, err
	}
	s, ok := n.stops[id]
	return s, ok, nil
}

func (n *fakeNetwork) routesAt(stopID string, includeBus bool) []Route {
	var out []Route
	ids := make([]string, 0, len(n.routes))
	for id := range n.routes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		r := n.routes[id]
		if !includeBus && r.Mode == ModeBus {
			continue
		}
		for _, s := range n.routeStops[id] {
			if s == stopID {
				out = append(out, r)
				break
			}
		}
	}
	return out
}

func (n *fakeNetwork) RoutesForStop(_ context.Context, stopID string, includeBus bool) ([]Route, error) {
	if err := n.record("RoutesForStop"); err != nil {
		return nil, err
	}
	return n.routesAt(stopID, includeBus), nil
}

func (n *fakeNetwork) RoutesForStops(_ context.Context, stopIDs []string, includeBus bool) (map[string][]Route, error) {
	if err := n.record("RoutesForStops"); err != nil {
		return nil, err
	}
	out := make(map[string][]Route, len(stopIDs))
	for _, id := range stopIDs {
		out[id] = n.routesAt(id, includeBus)
	}
	return out, nil
}

func (n *fakeNetwork) StopsForRoute(_ context.Context, routeID string) ([]Stop, error) {
	if err := n.record("StopsForRoute"); err != nil {
		return nil, err
	}
	var out []Stop
	for _, id := range n.routeStops[routeID] {
		out = append(out, n.stops[id])
	}
	return out, nil
}

func (n *fakeNetwork) FindTransferStops(_ context.Context, fromRouteIDs, toRouteIDs []string, maxDistance float64, maxResults int) ([]TransferPoint, error) {
	if err := n.record("FindTransferStops"); err != nil {
		return nil, err
	}
	var out []TransferPoint
	for _, fr := range fromRouteIDs {
		for _, tr := range toRouteIDs {
			for _, fs := range n.routeStops[fr] {
				for _, ts := range n.routeStops[tr] {
					d := Distance(n.stops[fs], n.stops[ts])
					if d <= maxDistance {
						out = append(out, TransferPoint{
							FromRouteID:     fr,
							ToRouteID:       tr,
							FromStop:        n.stops[fs],
							ToStop:          n.stops[ts],
							WalkingDistance: d,
						})
					}
				}
			}
		}
	}
	sort.SliceStable(out, func(i, k int) bool { return out[i].WalkingDistance < out[k].WalkingDistance })
	if maxResults > 0 && len(out) > maxResults {
		out = out[:maxResults]
	}
	return out, nil
}

func (n *fakeNetwork) NextDeparture(_ context.Context, routeID, stopID string, afterMinute int, services ServiceSet, windowMinutes int) (int, bool, error) {
	if err := n.record("NextDeparture"); err != nil {
		return 0, false, err
	}
	if services.Empty() {
		return 0, false, nil
	}
	for _, m := range n.departures[routeID+"|"+stopID] {
		if m >= afterMinute && m <= afterMinute+windowMinutes {
			return m, true, nil
		}
	}
	return 0, false, nil
}

func (n *fakeNetwork) HasDepartures(_ context.Context, routeID, stopID string) (bool, error) {
	if err := n.record("HasDepartures"); err != nil {
		return false, err
	}
	return len(n.departures[routeID+"|"+stopID]) > 0, nil
}

func (n *fakeNetwork) ActualTravelTime(_ context.Context, routeID, from, to string) (int, bool, error) {
	if err := n.record("ActualTravelTime"); err != nil {
		return 0, false, err
	}
	m, ok := n.travel[routeID+"|"+from+"|"+to]
	return m, ok, nil
}

func (n *fakeNetwork) AnyRouteTravelTime(_ context.Context, from, to string) (int, bool, error) {
	if err := n.record("AnyRouteTravelTime"); err != nil {
		return 0, false, err
	}
	m, ok := n.anyTravel[from+"|"+to]
	return m, ok, nil
}

func (n *fakeNetwork) ActiveServices(_ context.Context, _ time.Time) (ServiceSet, error) {
	if err := n.record("ActiveServices"); err != nil {
		return ServiceSet{}, err
	}
	return n.services, nil
}

func (n *fakeNetwork) IntermediateStops(_ context.Context, routeID, from, to string) ([]Stop, error) {
	if err := n.record("IntermediateStops"); err != nil {
		return nil, err
	}
	var out []Stop
	inside := false
	for _, id := range n.routeStops[routeID] {
		if id == to && inside {
			return out, nil
		}
		if inside {
			out = append(out, n.stops[id])
		}
		if id == from {
			inside = true
		}
	}
	return nil, nil
}

func (n *fakeNetwork) TripHeadsign(_ context.Context, routeID, _, _ string) (string, error) {
	if err := n.record("TripHeadsign"); err != nil {
		return "", err
	}
	return n.headsigns[routeID], nil
}

func (n *fakeNetwork) NearbyStops(_ context.Context, lat, lon float64, count int, radius float64) ([]NearbyStop, error) {
	if err := n.record("NearbyStops"); err != nil {
		return nil, err
	}
	var out []NearbyStop
	for _, id := range n.order {
		s := n.stops[id]
		if d := utils.Distance(lat, lon, s.Lat, s.Lon); d <= radius {
			out = append(out, NearbyStop{Stop: s, Distance: d})
		}
	}
	sort.SliceStable(out, func(i, k int) bool { return out[i].Distance < out[k].Distance })
	if count > 0 && len(out) > count {
		out = out[:count]
	}
	return out, nil
}

func (n *fakeNetwork) ExpandCoLocated(_ context.Context, stops []Stop) ([]Stop, error) {
	if err := n.record("ExpandCoLocated"); err != nil {
		return nil, err
	}
	out := append([]Stop{}, stops...)
	for _, seed := range stops {
		for _, id := range n.order {
			s := n.stops[id]
			if s.ID != seed.ID && utils.SameName(s.Name, seed.Name) && Distance(s, seed) <= 300 {
				out = append(out, s)
			}
		}
	}
	return out, nil
}

func (n *fakeNetwork) SearchStops(_ context.Context, name string, limit int) ([]Stop, error) {
	if err := n.record("SearchStops"); err != nil {
		return nil, err
	}
	var out []Stop
	for _, id := range n.order {
		if utils.SameName(n.stops[id].Name, name) {
			out = append(out, n.stops[id])
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeGeocoder struct {
	places []Place
	err    error
}

func (g *fakeGeocoder) Geocode(context.Context, string) ([]Place, error) {
	return g.places, g.err
}

type reported struct {
	err  error
	tags map[string]string
}

type fakeReporter struct {
	reports []reported
}

func (r *fakeReporter) Report(_ context.Context, err error, tags map[string]string) {
	r.reports = append(r.reports, reported{err: err, tags: tags})
}

type recordingObserver struct {
	tiers     []string
	searches  []string
	pairs     []int
	exhausted int
}

func (o *recordingObserver) ObserveSearch(op string, _ time.Duration, outcome string) {
	o.searches = append(o.searches, op+":"+outcome)
}

func (o *recordingObserver) TierResults(tier string, _ int) {
	o.tiers = append(o.tiers, tier)
}

func (o *recordingObserver) PairsEvaluated(n int) {
	o.pairs = append(o.pairs, n)
}

func (o *recordingObserver) BudgetExhausted() {
	o.exhausted++
}

// at8 is a weekday morning in the local zone of the fixtures.
var at8 = time.Date(2024, 6, 18, 8, 0, 0, 0, time.UTC)

type plannerFixture struct {
	net      *fakeNetwork
	observer *recordingObserver
	reporter *fakeReporter
	geocoder *fakeGeocoder
	planner  *Planner
}

func newPlannerFixture(t *testing.T, net *fakeNetwork) *plannerFixture {
	t.Helper()
	f := &plannerFixture{
		net:      net,
		observer: &recordingObserver{},
		reporter: &fakeReporter{},
		geocoder: &fakeGeocoder{},
	}
	f.planner = New(Options{
		Schedule:  net,
		Geography: net,
		Geocoder:  f.geocoder,
		Reporter:  f.reporter,
		Observer:  f.observer,
		Clock:     clock.NewMockClock(at8),
	})
	return f
}

const baseLat, baseLon = 41.3800, 2.1700
