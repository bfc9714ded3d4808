package restapi

import (
	"encoding/json"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const journeysPath = "/api/plan/journeys.json"

func journeysURL(params map[string]string) string {
	q := url.Values{}
	q.Set("key", "TEST")
	for k, v := range params {
		q.Set(k, v)
	}
	return journeysPath + "?" + q.Encode()
}

func TestJourneysHandlerRequiresValidApiKey(t *testing.T) {
	api := createTestApi(t)

	resp, model := serveApiAndRetrieveEndpoint(t, api, journeysPath+"?fromStop=a&toStop=c")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "permission denied", model.Text)

	resp, _ = serveApiAndRetrieveEndpoint(t, api, journeysPath+"?fromStop=a&toStop=c&key=invalid")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestJourneysHandlerFromCoordinatesToStop(t *testing.T) {
	api := createTestApi(t)

	resp, model := serveApiAndRetrieveEndpoint(t, api, journeysURL(map[string]string{
		"fromLat": "41.3870",
		"fromLon": "2.1701",
		"toStop":  "c",
		"time":    "2024-06-18T08:00:00+02:00",
	}))
	require.Equal(t, http.StatusOK, resp.StatusCode, model.Text)
	assert.Equal(t, "no-cache, no-store, must-revalidate", resp.Header.Get("Cache-Control"))

	journeys := listOf(t, model)
	require.NotEmpty(t, journeys)
	assert.Contains(t, legRouteIDs(t, journeys), []string{"L1"})

	for _, j := range journeys {
		assert.NotEmpty(t, j.(map[string]interface{})["id"])
	}

	refs := referencesOf(t, model)
	routeIDs := collectAllIdsFromObjects(t, refs["routes"].([]interface{}), "id")
	assert.Contains(t, routeIDs, "L1")
	stopIDs := collectAllIdsFromObjects(t, refs["stops"].([]interface{}), "id")
	assert.Contains(t, stopIDs, "c")
}

func TestJourneysHandlerNoTransitService(t *testing.T) {
	_, resp, model := serveAndRetrieveEndpoint(t, journeysURL(map[string]string{
		"fromStop": "a",
		"toStop":   "c",
		"time":     "2024-06-17T08:00:00+02:00",
	}))
	require.Equal(t, http.StatusOK, resp.StatusCode, model.Text)

	journeys := listOf(t, model)
	require.Len(t, journeys, 1)
	journey := journeys[0].(map[string]interface{})
	assert.Contains(t, journey["tags"], "no-transit-service")
	legs := journey["legs"].([]interface{})
	require.Len(t, legs, 1)
	assert.Equal(t, "walk", legs[0].(map[string]interface{})["mode"])
}

func TestJourneysHandlerEmptyOutcomes(t *testing.T) {
	tests := []struct {
		name   string
		params map[string]string
		text   string
	}{
		{
			name:   "position without stops",
			params: map[string]string{"fromLat": "41.35", "fromLon": "2.10", "toStop": "c"},
			text:   "NO_STOPS_NEAR_POSITION",
		},
		{
			name:   "named position without stops",
			params: map[string]string{"fromLat": "41.35", "fromLon": "2.10", "fromName": "Zona Franca", "toStop": "c"},
			text:   "NO_STOPS_NEAR:Zona Franca",
		},
		{
			name:   "unknown stop name",
			params: map[string]string{"fromName": "Atlantis", "toStop": "c"},
			text:   "NO_STOPS_NEAR:Atlantis",
		},
		{
			name: "only excluded modes connect",
			params: map[string]string{
				"fromStop": "a", "toStop": "c", "modes": "bus",
				"time": "2024-06-18T08:00:00+02:00",
			},
			text: "NO_ROUTE_FOUND",
		},
	}

	api := createTestApi(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, model := serveApiAndRetrieveEndpoint(t, api, journeysURL(tt.params))
			assert.Equal(t, http.StatusNotFound, resp.StatusCode)
			assert.Equal(t, http.StatusNotFound, model.Code)
			assert.Equal(t, tt.text, model.Text)
		})
	}
}

func TestJourneysHandlerValidation(t *testing.T) {
	tests := []struct {
		name   string
		params map[string]string
		field  string
	}{
		{"missing origin", map[string]string{"toStop": "c"}, "from"},
		{"missing destination", map[string]string{"fromStop": "a"}, "to"},
		{"latitude without longitude", map[string]string{"fromLat": "41.38", "toStop": "c"}, "fromLat"},
		{"unparsable latitude", map[string]string{"fromLat": "north", "fromLon": "2.17", "toStop": "c"}, "fromLat"},
		{"outside the region", map[string]string{"fromLat": "48.8566", "fromLon": "2.3522", "toStop": "c"}, "fromLat"},
		{"unknown mode", map[string]string{"fromStop": "a", "toStop": "c", "modes": "metro,zeppelin"}, "modes"},
		{"unknown optimization", map[string]string{"fromStop": "a", "toStop": "c", "optimize": "cheapest"}, "optimize"},
		{"transfers out of range", map[string]string{"fromStop": "a", "toStop": "c", "maxTransfers": "9"}, "maxTransfers"},
		{"non positive walking distance", map[string]string{"fromStop": "a", "toStop": "c", "maxWalkingDistance": "0"}, "maxWalkingDistance"},
		{"bad wheelchair flag", map[string]string{"fromStop": "a", "toStop": "c", "wheelchair": "maybe"}, "wheelchair"},
		{"bad time", map[string]string{"fromStop": "a", "toStop": "c", "time": "tomorrow"}, "time"},
		{"too many routes", map[string]string{"fromStop": "a", "toStop": "c", "maxRoutes": "50"}, "maxRoutes"},
	}

	api := createTestApi(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, model := serveApiAndRetrieveEndpoint(t, api, journeysURL(tt.params))
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

			raw, err := json.Marshal(model.Data)
			require.NoError(t, err)
			var data struct {
				FieldErrors map[string][]string `json:"fieldErrors"`
			}
			require.NoError(t, json.Unmarshal(raw, &data))
			assert.Contains(t, data.FieldErrors, tt.field)
		})
	}
}

func TestJourneysHandlerMaxRoutes(t *testing.T) {
	_, resp, model := serveAndRetrieveEndpoint(t, journeysURL(map[string]string{
		"fromLat":   "41.3870",
		"fromLon":   "2.1701",
		"toStop":    "c",
		"time":      "2024-06-18T08:00:00+02:00",
		"maxRoutes": "1",
	}))
	require.Equal(t, http.StatusOK, resp.StatusCode, model.Text)
	assert.Len(t, listOf(t, model), 1)
}

func TestStopToStopHandler(t *testing.T) {
	api := createTestApi(t)

	t.Run("direct metro", func(t *testing.T) {
		resp, model := serveApiAndRetrieveEndpoint(t, api,
			"/api/plan/stop-to-stop.json?key=TEST&fromStop=a&toStop=c&time=2024-06-18T08:00:00%2B02:00")
		require.Equal(t, http.StatusOK, resp.StatusCode, model.Text)

		journeys := listOf(t, model)
		require.NotEmpty(t, journeys)
		best := journeys[0].(map[string]interface{})
		assert.Equal(t, float64(12), best["durationMinutes"])
		assert.Equal(t, []string{"L1"}, legRouteIDs(t, journeys[:1])[0])
	})

	t.Run("unknown stop", func(t *testing.T) {
		resp, model := serveApiAndRetrieveEndpoint(t, api, "/api/plan/stop-to-stop.json?key=TEST&fromStop=nowhere&toStop=c")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "STOP_NOT_FOUND", model.Text)
	})

	t.Run("missing stops", func(t *testing.T) {
		resp, _ := serveApiAndRetrieveEndpoint(t, api, "/api/plan/stop-to-stop.json?key=TEST")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}
