package restapi

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchStopsHandlerRequiresValidApiKey(t *testing.T) {
	api := createTestApi(t)

	resp, model := serveApiAndRetrieveEndpoint(t, api, "/api/where/stops-search.json?input=sants")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, http.StatusUnauthorized, model.Code)
	assert.Equal(t, "permission denied", model.Text)
}

func TestSearchStopsHandlerMissingInput(t *testing.T) {
	_, resp, model := serveAndRetrieveEndpoint(t, "/api/where/stops-search.json?key=TEST")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	data, ok := model.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, data["fieldErrors"], "input")
}

func TestSearchStopsHandler(t *testing.T) {
	api := createTestApi(t)

	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"exact name", "Plaça Catalunya", []string{"a"}},
		{"without diacritics or case", "PLACA catalunya", []string{"a"}},
		{"partial name", "gràcia", []string{"b"}},
		{"station before platforms", "sants", []string{"sants", "metro_sants", "rail_sants"}},
		{"no match", "Atlantis", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, model := serveApiAndRetrieveEndpoint(t, api,
				"/api/where/stops-search.json?key=TEST&input="+url.QueryEscape(tt.input))
			require.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, "public, max-age=300", resp.Header.Get("Cache-Control"))

			ids := collectAllIdsFromObjects(t, listOf(t, model), "id")
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestSearchStopsHandlerLimit(t *testing.T) {
	_, resp, model := serveAndRetrieveEndpoint(t, "/api/where/stops-search.json?key=TEST&input=sants&maxCount=1")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Len(t, listOf(t, model), 1)
	data := model.Data.(map[string]interface{})
	assert.Equal(t, true, data["limitExceeded"])
}
