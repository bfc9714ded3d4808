package planner

import (
	"context"
	"errors"
)

// Expected empty outcomes. They are results, not failures: callers show a
// message and nothing is logged as an error.
var (
	ErrNoRouteFound        = errors.New("NO_ROUTE_FOUND")
	ErrNoStopsNearPosition = errors.New("NO_STOPS_NEAR_POSITION")
)

// ErrStopNotFound is returned by FindRoute for an unknown stop id.
var ErrStopNotFound = errors.New("stop not found")

// NoStopsNearError reports that a labelled endpoint has no stops around it.
type NoStopsNearError struct {
	Label string
}

func (e *NoStopsNearError) Error() string {
	return "NO_STOPS_NEAR:" + e.Label
}

// Result codes returned by Code.
const (
	CodeOK              = "OK"
	CodeNoRouteFound    = "NO_ROUTE_FOUND"
	CodeNoStopsNearPos  = "NO_STOPS_NEAR_POSITION"
	CodeStopNotFound    = "STOP_NOT_FOUND"
	CodeCanceled        = "CANCELED"
	CodeUpstreamFailure = "UPSTREAM_FAILURE"
)

// Code maps an error returned by the planner to its result code.
func Code(err error) string {
	var near *NoStopsNearError
	switch {
	case err == nil:
		return CodeOK
	case errors.Is(err, ErrNoRouteFound):
		return CodeNoRouteFound
	case errors.As(err, &near):
		return near.Error()
	case errors.Is(err, ErrNoStopsNearPosition):
		return CodeNoStopsNearPos
	case errors.Is(err, ErrStopNotFound):
		return CodeStopNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return CodeCanceled
	}
	return CodeUpstreamFailure
}

// IsExpected reports whether err is an empty outcome rather than a failure.
func IsExpected(err error) bool {
	var near *NoStopsNearError
	return errors.Is(err, ErrNoRouteFound) ||
		errors.Is(err, ErrNoStopsNearPosition) ||
		errors.As(err, &near)
}
