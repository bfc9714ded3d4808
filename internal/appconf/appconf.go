// Package appconf holds process-wide configuration for the journey planner server.
package appconf

import (
	"fmt"
	"strings"
	"time"
)

type Environment int

const (
	Development Environment = iota
	Test
	Production
)

func (e Environment) String() string {
	switch e {
	case Test:
		return "test"
	case Production:
		return "production"
	default:
		return "development"
	}
}

// EnvFlagToEnvironment converts a command line / env value into an Environment.
func EnvFlagToEnvironment(env string) (Environment, error) {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "", "development", "dev":
		return Development, nil
	case "test":
		return Test, nil
	case "production", "prod":
		return Production, nil
	default:
		return Development, fmt.Errorf("unknown environment %q", env)
	}
}

// Config holds the settings shared by the HTTP layer and the planner.
type Config struct {
	Port          int
	Env           Environment
	ApiKeys       []string
	ExemptApiKeys []string // not rate limited
	Verbose       bool
	RateLimit     int // requests per second per API key

	// PlannerBudget caps the wall-clock time spent on candidate-pair search.
	// Zero means the cost profile default.
	PlannerBudget   time.Duration
	CostProfilePath string

	GeocoderURL       string
	GeocoderUserAgent string
	RedisAddr         string

	CORSOrigins []string

	// PinnedTimeFile holds a fixed current time for planning against feeds
	// whose calendar has expired.
	PinnedTimeFile string
}
