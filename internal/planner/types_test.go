package planner

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestServiceSet(t *testing.T) {
	assert.True(t, NewServiceSet().Empty())
	assert.False(t, AllServices().Empty())
	assert.True(t, AllServices().Contains("anything"))

	set := NewServiceSet("WK", "SAT")
	assert.True(t, set.Contains("WK"))
	assert.False(t, set.Contains("SUN"))
}

func TestModeForRouteType(t *testing.T) {
	tests := []struct {
		routeType int
		mode      Mode
	}{
		{0, ModeTram},
		{900, ModeTram},
		{1, ModeMetro},
		{401, ModeMetro},
		{2, ModeRail},
		{109, ModeRail},
		{3, ModeBus},
		{700, ModeBus},
		{4, ModeFerry},
		{1200, ModeFerry},
		{7, ModeBus},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.mode, ModeForRouteType(tt.routeType), "route_type %d", tt.routeType)
	}
}

func TestModeForStopID(t *testing.T) {
	assert.Equal(t, ModeRail, ModeForStopID("rail_pc"))
	assert.Equal(t, ModeFerry, ModeForStopID("ferry_1"))
	assert.Equal(t, ModeMetro, ModeForStopID("metro_L1_12"))
	assert.Equal(t, ModeTram, ModeForStopID("tram_x"))
	assert.Equal(t, ModeBus, ModeForStopID("1234"))

	m, ok := ParseMode(" FERRY")
	assert.True(t, ok)
	assert.Equal(t, ModeFerry, m)
	_, ok = ParseMode("zeppelin")
	assert.False(t, ok)
}

func TestCode(t *testing.T) {
	tests := []struct {
		err      error
		code     string
		expected bool
	}{
		{nil, CodeOK, false},
		{ErrNoRouteFound, CodeNoRouteFound, true},
		{fmt.Errorf("wrapped: %w", ErrNoStopsNearPosition), CodeNoStopsNearPos, true},
		{&NoStopsNearError{Label: "Sants"}, "NO_STOPS_NEAR:Sants", true},
		{fmt.Errorf("%w: x", ErrStopNotFound), CodeStopNotFound, false},
		{context.DeadlineExceeded, CodeCanceled, false},
		{errors.New("boom"), CodeUpstreamFailure, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.code, Code(tt.err))
		assert.Equal(t, tt.expected, IsExpected(tt.err))
	}
}

func TestRouteDisplayName(t *testing.T) {
	assert.Equal(t, "V15", Route{ID: "r", ShortName: "V15", LongName: "Vertical"}.DisplayName())
	assert.Equal(t, "Vertical", Route{ID: "r", LongName: "Vertical"}.DisplayName())
	assert.Equal(t, "r", Route{ID: "r"}.DisplayName())
}
