package webui

import (
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/MBL11/transit-app-sub002/internal/appconf"
	"github.com/MBL11/transit-app-sub002/internal/planner"
	"github.com/davecgh/go-spew/spew"
)

//go:embed debug_index.html
var templateFS embed.FS

var debugTemplate = template.Must(template.ParseFS(templateFS, "debug_index.html"))

type debugData struct {
	Title string
	Pre   string
}

type regionInfo struct {
	Timezone    string
	StopCount   int
	LastUpdated time.Time
	Healthy     bool
	Lat         float64
	Lon         float64
	LatSpan     float64
	LonSpan     float64
}

// configInfo is appconf.Config without the secrets.
type configInfo struct {
	Env             string
	Port            int
	ApiKeyCount     int
	ExemptKeyCount  int
	RateLimit       int
	PlannerBudget   time.Duration
	CostProfilePath string
	GeocoderURL     string
	RedisEnabled    bool
	CORSOrigins     []string
}

// spewConfig dumps values without pointer addresses so pages are stable.
var spewConfig = spew.ConfigState{Indent: "  ", DisablePointerAddresses: true, SortKeys: true}

func writeDebugData(w http.ResponseWriter, title string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := debugTemplate.Execute(w, debugData{
		Title: title,
		Pre:   spewConfig.Sdump(data),
	})
	if err != nil {
		slog.Error("failed to execute debug template", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

func (webUI *WebUI) debugIndexHandler(w http.ResponseWriter, r *http.Request) {
	if webUI.Application == nil || webUI.Config.Env == appconf.Production {
		http.NotFound(w, r)
		return
	}

	var data interface{}
	var title string

	dataType := r.PathValue("dataType")
	if dataType == "" {
		dataType = r.URL.Query().Get("dataType")
	}

	switch dataType {
	case "cost-profile":
		data, title = webUI.profile(), "Planner - Cost Profile"
	case "modes":
		modes := map[planner.Mode]planner.ModeProfile{}
		if profile := webUI.profile(); profile != nil {
			modes = profile.Modes
		}
		data, title = modes, "Planner - Modes"
	case "region":
		data, title = webUI.region(), "GTFS Static - Region"
	case "tables":
		data, title = webUI.tableCounts(r), "GTFS Static - Table Counts"
	case "config":
		data, title = webUI.config(), "Server - Config"
	default:
		data = map[string]string{
			"error": "Please use one of the following: cost-profile, modes, region, tables, config.",
		}
		title = "Choose a data type"
	}

	writeDebugData(w, title, data)
}

func (webUI *WebUI) profile() *planner.CostProfile {
	if webUI.Planner == nil {
		return nil
	}
	return webUI.Planner.Profile()
}

func (webUI *WebUI) region() regionInfo {
	manager := webUI.GtfsManager
	if manager == nil {
		return regionInfo{}
	}
	info := regionInfo{
		Timezone:    manager.Location().String(),
		StopCount:   manager.StopCount(),
		LastUpdated: manager.LastUpdated(),
		Healthy:     manager.IsHealthy(),
	}
	info.Lat, info.Lon, info.LatSpan, info.LonSpan = manager.GetRegionBounds()
	return info
}

func (webUI *WebUI) tableCounts(r *http.Request) interface{} {
	if webUI.GtfsManager == nil || webUI.GtfsManager.GtfsDB == nil {
		return map[string]string{"error": "database not initialized"}
	}
	counts, err := webUI.GtfsManager.GtfsDB.TableCounts(r.Context())
	if err != nil {
		return map[string]string{"error": err.Error()}
	}
	return counts
}

func (webUI *WebUI) config() configInfo {
	cfg := webUI.Config
	return configInfo{
		Env:             cfg.Env.String(),
		Port:            cfg.Port,
		ApiKeyCount:     len(cfg.ApiKeys),
		ExemptKeyCount:  len(cfg.ExemptApiKeys),
		RateLimit:       cfg.RateLimit,
		PlannerBudget:   cfg.PlannerBudget,
		CostProfilePath: cfg.CostProfilePath,
		GeocoderURL:     cfg.GeocoderURL,
		RedisEnabled:    cfg.RedisAddr != "",
		CORSOrigins:     cfg.CORSOrigins,
	}
}
