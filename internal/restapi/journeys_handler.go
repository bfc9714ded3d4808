package restapi

import (
	"log/slog"
	"net/http"

	"github.com/MBL11/transit-app-sub002/internal/logging"
	"github.com/MBL11/transit-app-sub002/internal/models"
	"github.com/MBL11/transit-app-sub002/internal/planner"
	"github.com/MBL11/transit-app-sub002/internal/utils"
)

// journeysHandler plans between two free-form endpoints with preferences.
func (api *RestAPI) journeysHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var fieldErrors utils.FieldErrors
	from := parseLocation(query, "from", &fieldErrors)
	to := parseLocation(query, "to", &fieldErrors)
	api.checkRegion(from, "from", &fieldErrors)
	api.checkRegion(to, "to", &fieldErrors)
	departure := api.departureTime(query, &fieldErrors)
	prefs := parsePreferences(query, &fieldErrors)
	maxRoutes := utils.ParseIntParam(query, "maxRoutes", 0, 1, maxRoutesLimit, &fieldErrors)
	if len(fieldErrors) > 0 {
		api.validationErrorResponse(w, r, fieldErrors)
		return
	}

	journeys, err := api.Planner.FindMultipleRoutes(r.Context(), from, to, departure, prefs, maxRoutes)
	if err != nil {
		api.plannerErrorResponse(w, r, err)
		return
	}

	logging.LogDebug(logging.FromContext(r.Context()), "journeys_planned",
		slog.Int("count", len(journeys)),
		slog.String("optimize", string(prefs.Optimize)))
	api.sendJourneys(w, r, journeys)
}

// stopToStopHandler plans between two stop ids.
func (api *RestAPI) stopToStopHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var fieldErrors utils.FieldErrors
	fromStop, toStop := query.Get("fromStop"), query.Get("toStop")
	if fromStop == "" {
		fieldErrors.Add("fromStop", "required")
	}
	if toStop == "" {
		fieldErrors.Add("toStop", "required")
	}
	departure := api.departureTime(query, &fieldErrors)
	if len(fieldErrors) > 0 {
		api.validationErrorResponse(w, r, fieldErrors)
		return
	}

	journeys, err := api.Planner.FindRoute(r.Context(), fromStop, toStop, departure, nil)
	if err == nil && len(journeys) == 0 {
		err = planner.ErrNoRouteFound
	}
	if err != nil {
		api.plannerErrorResponse(w, r, err)
		return
	}
	api.sendJourneys(w, r, journeys)
}

func (api *RestAPI) sendJourneys(w http.ResponseWriter, r *http.Request, journeys []planner.Journey) {
	refs := models.NewReferenceCollector()
	list := models.NewJourneys(journeys, refs)
	api.sendResponse(w, r, models.NewListResponse(list, refs.References(), false, api.Clock))
}
