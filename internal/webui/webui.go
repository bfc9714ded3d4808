// Package webui serves operator pages that sit next to the JSON API.
package webui

import (
	"net/http"

	"github.com/MBL11/transit-app-sub002/internal/app"
)

type WebUI struct {
	*app.Application
}

func NewWebUI(application *app.Application) *WebUI {
	return &WebUI{Application: application}
}

// SetWebUIRoutes registers the debug pages on mux.
func (webUI *WebUI) SetWebUIRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /debug", webUI.debugIndexHandler)
	mux.HandleFunc("GET /debug/{dataType}", webUI.debugIndexHandler)
}
