package restapi

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MBL11/transit-app-sub002/gtfsdb"
	"github.com/MBL11/transit-app-sub002/internal/app"
	"github.com/MBL11/transit-app-sub002/internal/appconf"
	"github.com/MBL11/transit-app-sub002/internal/clock"
	"github.com/MBL11/transit-app-sub002/internal/gtfs"
	"github.com/MBL11/transit-app-sub002/internal/gtfstest"
	"github.com/MBL11/transit-app-sub002/internal/metrics"
	"github.com/MBL11/transit-app-sub002/internal/models"
	"github.com/MBL11/transit-app-sub002/internal/planner"
	"github.com/stretchr/testify/require"
)

func newFixtureManager(t *testing.T) *gtfs.Manager {
	t.Helper()
	ctx := context.Background()
	client, err := gtfsdb.NewClient(gtfsdb.NewConfig(":memory:", appconf.Test, false))
	require.NoError(t, err)
	require.NoError(t, client.ImportFromBytes(ctx, gtfstest.Zip(t, gtfstest.Files()), "fixture.zip"))

	manager, err := gtfs.NewManager(ctx, client)
	require.NoError(t, err)
	t.Cleanup(manager.Shutdown)
	return manager
}

// createTestApi serves the fixture feed on Tuesday 2024-06-18 at 08:00
// agency time.
func createTestApi(t *testing.T) *RestAPI {
	t.Helper()
	return createTestApiWithClock(t, nil)
}

func createTestApiWithClock(t *testing.T, c clock.Clock) *RestAPI {
	t.Helper()
	manager := newFixtureManager(t)
	if c == nil {
		c = clock.NewMockClock(time.Date(2024, 6, 18, 8, 0, 0, 0, manager.Location()))
	}

	application := &app.Application{
		Config: appconf.Config{
			Env:       appconf.Test,
			ApiKeys:   []string{"TEST"},
			RateLimit: 100,
		},
		Logger:      slog.Default(),
		GtfsManager: manager,
		Planner: planner.New(planner.Options{
			Schedule:  manager,
			Geography: manager,
			Clock:     c,
		}),
		Clock:   c,
		Metrics: metrics.New(),
	}

	api := NewRestAPI(application)
	t.Cleanup(api.Shutdown)
	return api
}

func serveApiAndRetrieveEndpoint(t *testing.T, api *RestAPI, path string) (*http.Response, models.ResponseModel) {
	t.Helper()
	mux := http.NewServeMux()
	api.SetRoutes(mux)
	server := httptest.NewServer(mux)
	defer server.Close()

	resp, err := http.Get(server.URL + path)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var model models.ResponseModel
	require.NoError(t, json.Unmarshal(body, &model), string(body))
	return resp, model
}

func serveAndRetrieveEndpoint(t *testing.T, path string) (*RestAPI, *http.Response, models.ResponseModel) {
	t.Helper()
	api := createTestApi(t)
	resp, model := serveApiAndRetrieveEndpoint(t, api, path)
	return api, resp, model
}

// listOf returns data.list of a list response.
func listOf(t *testing.T, model models.ResponseModel) []interface{} {
	t.Helper()
	data, ok := model.Data.(map[string]interface{})
	require.True(t, ok, "data is not an object: %T", model.Data)
	list, ok := data["list"].([]interface{})
	require.True(t, ok, "data.list is not an array: %T", data["list"])
	return list
}

func referencesOf(t *testing.T, model models.ResponseModel) map[string]interface{} {
	t.Helper()
	data, ok := model.Data.(map[string]interface{})
	require.True(t, ok)
	refs, ok := data["references"].(map[string]interface{})
	require.True(t, ok)
	return refs
}

// collectAllIdsFromObjects extracts the string field key of every object in list.
func collectAllIdsFromObjects(t *testing.T, list []interface{}, key string) (ids []string) {
	t.Helper()
	for i, item := range list {
		object, ok := item.(map[string]interface{})
		require.True(t, ok, "item %d is not an object", i)
		id, ok := object[key].(string)
		require.True(t, ok, "item %d key %q is not a string: %T", i, key, object[key])
		ids = append(ids, id)
	}
	return ids
}

// legRouteIDs lists the routes ridden by each journey, in leg order.
func legRouteIDs(t *testing.T, journeys []interface{}) [][]string {
	t.Helper()
	out := make([][]string, 0, len(journeys))
	for _, j := range journeys {
		legs, ok := j.(map[string]interface{})["legs"].([]interface{})
		require.True(t, ok)
		var routes []string
		for _, l := range legs {
			if id, ok := l.(map[string]interface{})["routeId"].(string); ok {
				routes = append(routes, id)
			}
		}
		out = append(out, routes)
	}
	return out
}
