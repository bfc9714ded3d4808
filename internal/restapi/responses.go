package restapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/MBL11/transit-app-sub002/internal/logging"
	"github.com/MBL11/transit-app-sub002/internal/models"
	"github.com/MBL11/transit-app-sub002/internal/planner"
	"github.com/MBL11/transit-app-sub002/internal/utils"
)

func setJSONResponseType(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
}

func (api *RestAPI) sendResponse(w http.ResponseWriter, r *http.Request, response models.ResponseModel) {
	setJSONResponseType(w)
	if response.Code != 0 && response.Code != http.StatusOK {
		w.WriteHeader(response.Code)
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		logging.LogError(api.logger(), "failed to encode response", err,
			slog.String("path", r.URL.Path))
	}
}

func (api *RestAPI) sendError(w http.ResponseWriter, r *http.Request, code int, message string) {
	api.sendResponse(w, r, models.NewResponse(code, nil, message, api.Clock))
}

func (api *RestAPI) sendNotFound(w http.ResponseWriter, r *http.Request) {
	api.sendError(w, r, http.StatusNotFound, "resource not found")
}

func (api *RestAPI) sendUnauthorized(w http.ResponseWriter, r *http.Request) {
	api.sendError(w, r, http.StatusUnauthorized, "permission denied")
}

func (api *RestAPI) validationErrorResponse(w http.ResponseWriter, r *http.Request, fieldErrors utils.FieldErrors) {
	data := models.FieldErrorsData{FieldErrors: fieldErrors}
	api.sendResponse(w, r, models.NewResponse(http.StatusBadRequest, data, "invalid request parameters", api.Clock))
}

func (api *RestAPI) serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	logging.LogError(api.logger(), "internal server error", err,
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("request_id", GetRequestID(r.Context())))
	api.sendError(w, r, http.StatusInternalServerError, "internal server error")
}

// plannerErrorResponse maps a planner failure to its HTTP answer. Empty
// outcomes are 404s carrying the result code as text.
func (api *RestAPI) plannerErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	code := planner.Code(err)
	switch {
	case planner.IsExpected(err):
		logging.LogDebug(api.logger(), "no_journey", slog.String("code", code),
			slog.String("request_id", GetRequestID(r.Context())))
		api.sendError(w, r, http.StatusNotFound, code)
	case errors.Is(err, planner.ErrStopNotFound):
		api.sendError(w, r, http.StatusNotFound, code)
	case code == planner.CodeCanceled:
		// The client is gone or the server is shutting down.
		api.sendError(w, r, http.StatusServiceUnavailable, code)
	default:
		api.serverErrorResponse(w, r, err)
	}
}

func (api *RestAPI) logger() *slog.Logger {
	if api.Application != nil && api.Logger != nil {
		return api.Logger
	}
	return slog.Default()
}
