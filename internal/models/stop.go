package models

import (
	"sort"

	"github.com/MBL11/transit-app-sub002/internal/planner"
)

// StopReference is a stop as served to clients. Synthetic journey endpoints
// (coordinates, geocoded addresses) have no id and never appear here.
type StopReference struct {
	ID                 string  `json:"id"`
	Name               string  `json:"name"`
	Lat                float64 `json:"lat"`
	Lon                float64 `json:"lon"`
	Mode               string  `json:"mode"`
	LocationType       int     `json:"locationType"`
	Parent             string  `json:"parent,omitempty"`
	WheelchairBoarding string  `json:"wheelchairBoarding"`
}

// RouteReference is a transit line as served to clients.
type RouteReference struct {
	ID        string `json:"id"`
	ShortName string `json:"shortName,omitempty"`
	LongName  string `json:"longName,omitempty"`
	Type      int    `json:"type"`
	Mode      string `json:"mode"`
	Color     string `json:"color,omitempty"`
	TextColor string `json:"textColor,omitempty"`
}

func NewStopReference(s planner.Stop) StopReference {
	return StopReference{
		ID:                 s.ID,
		Name:               s.Name,
		Lat:                s.Lat,
		Lon:                s.Lon,
		Mode:               string(planner.ModeForStopID(s.ID)),
		LocationType:       s.LocationType,
		Parent:             s.ParentStation,
		WheelchairBoarding: wheelchairBoarding(s.WheelchairBoarding),
	}
}

func NewRouteReference(r planner.Route) RouteReference {
	return RouteReference{
		ID:        r.ID,
		ShortName: r.ShortName,
		LongName:  r.LongName,
		Type:      r.Type,
		Mode:      string(r.Mode),
		Color:     r.Color,
		TextColor: r.TextColor,
	}
}

func wheelchairBoarding(v int) string {
	switch v {
	case 1:
		return "ACCESSIBLE"
	case 2:
		return "NOT_ACCESSIBLE"
	}
	return "UNKNOWN"
}

// ReferenceCollector accumulates the stops and routes of a response without
// duplicates.
type ReferenceCollector struct {
	stops  map[string]StopReference
	routes map[string]RouteReference
}

func NewReferenceCollector() *ReferenceCollector {
	return &ReferenceCollector{
		stops:  make(map[string]StopReference),
		routes: make(map[string]RouteReference),
	}
}

func (c *ReferenceCollector) AddStop(s planner.Stop) {
	if s.ID == "" {
		return
	}
	if _, ok := c.stops[s.ID]; !ok {
		c.stops[s.ID] = NewStopReference(s)
	}
}

func (c *ReferenceCollector) AddRoute(r *planner.Route) {
	if r == nil || r.ID == "" {
		return
	}
	if _, ok := c.routes[r.ID]; !ok {
		c.routes[r.ID] = NewRouteReference(*r)
	}
}

// References returns the collected objects sorted by id.
func (c *ReferenceCollector) References() References {
	refs := NewEmptyReferences()
	for _, s := range c.stops {
		refs.Stops = append(refs.Stops, s)
	}
	for _, r := range c.routes {
		refs.Routes = append(refs.Routes, r)
	}
	sort.Slice(refs.Stops, func(i, j int) bool { return refs.Stops[i].ID < refs.Stops[j].ID })
	sort.Slice(refs.Routes, func(i, j int) bool { return refs.Routes[i].ID < refs.Routes[j].ID })
	return refs
}
