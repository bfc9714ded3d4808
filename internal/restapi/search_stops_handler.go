package restapi

import (
	"net/http"
	"strings"

	"github.com/MBL11/transit-app-sub002/internal/models"
	"github.com/MBL11/transit-app-sub002/internal/utils"
)

// searchStopsHandler finds stops by name, ignoring case and diacritics.
func (api *RestAPI) searchStopsHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var fieldErrors utils.FieldErrors
	input := strings.TrimSpace(query.Get("input"))
	if input == "" {
		fieldErrors.Add("input", "required")
	}
	maxCount := utils.ParseIntParam(query, "maxCount", defaultSearchLimit, 1, maxSearchLimit, &fieldErrors)
	if len(fieldErrors) > 0 {
		api.validationErrorResponse(w, r, fieldErrors)
		return
	}

	// One extra row tells whether the limit cut the answer.
	stops, err := api.GtfsManager.SearchStops(r.Context(), input, maxCount+1)
	if err != nil {
		api.serverErrorResponse(w, r, err)
		return
	}
	limitExceeded := len(stops) > maxCount
	if limitExceeded {
		stops = stops[:maxCount]
	}

	list := make([]models.StopReference, 0, len(stops))
	for _, s := range stops {
		list = append(list, models.NewStopReference(s))
	}
	api.sendResponse(w, r, models.NewListResponse(list, models.NewEmptyReferences(), limitExceeded, api.Clock))
}
