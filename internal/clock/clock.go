// Package clock abstracts wall-clock time so planner budgets and default
// departure instants can be driven deterministically in tests.
package clock

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

// Clock provides the current time.
type Clock interface {
	Now() time.Time
	NowUnixMilli() int64
}

// RealClock reads the system clock.
type RealClock struct{}

func (RealClock) Now() time.Time {
	return time.Now()
}

func (RealClock) NowUnixMilli() int64 {
	return time.Now().UnixMilli()
}

// MockClock is a thread-safe, manually driven clock for tests.
// When a step is configured, every call to Now advances the clock by it,
// which lets tests exhaust a Budget without sleeping.
type MockClock struct {
	mu          sync.Mutex
	currentTime time.Time
	step        time.Duration
}

func NewMockClock(t time.Time) *MockClock {
	return &MockClock{currentTime: t}
}

// NewSteppingMockClock returns a MockClock that advances by step after each read.
func NewSteppingMockClock(t time.Time, step time.Duration) *MockClock {
	return &MockClock{currentTime: t, step: step}
}

func (m *MockClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.currentTime
	m.currentTime = m.currentTime.Add(m.step)
	return now
}

func (m *MockClock) NowUnixMilli() int64 {
	return m.Now().UnixMilli()
}

func (m *MockClock) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.currentTime = t
}

// Advance moves the clock by d. Negative durations move it backwards.
func (m *MockClock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.currentTime = m.currentTime.Add(d)
}

// PinnedClock returns an instant read from an environment variable or a file,
// falling back to system time. It is used to plan against feeds whose service
// calendar does not cover today.
// Priority: environment variable > file > system time.
type PinnedClock struct {
	envVar   string
	filePath string
	location *time.Location
}

func NewPinnedClock(envVar string, filePath string, location *time.Location) *PinnedClock {
	return &PinnedClock{
		envVar:   envVar,
		filePath: filePath,
		location: location,
	}
}

func (p *PinnedClock) Now() time.Time {
	if t, err := p.fromEnvVar(); err == nil {
		return t
	}
	if t, err := p.fromFile(); err == nil {
		return t
	}
	slog.Warn("PinnedClock: no pinned instant available, using system time",
		slog.String("envVar", p.envVar), slog.String("filePath", p.filePath))
	return time.Now()
}

func (p *PinnedClock) NowUnixMilli() int64 {
	return p.Now().UnixMilli()
}

func (p *PinnedClock) fromEnvVar() (time.Time, error) {
	if p.envVar == "" {
		return time.Time{}, errors.New("environment variable name not configured")
	}
	value := os.Getenv(p.envVar)
	if value == "" {
		return time.Time{}, errors.New("environment variable is empty: " + p.envVar)
	}
	return p.parse(value)
}

func (p *PinnedClock) fromFile() (time.Time, error) {
	if p.filePath == "" {
		return time.Time{}, errors.New("file path not configured")
	}
	data, err := os.ReadFile(p.filePath)
	if err != nil {
		return time.Time{}, err
	}
	return p.parse(string(data))
}

func (p *PinnedClock) parse(s string) (time.Time, error) {
	s = strings.TrimSpace(s)

	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}

	if p.location == nil {
		return time.Time{}, errors.New("timezone not configured")
	}

	for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02T15:04:05", "2006-01-02 15:04"} {
		if t, err := time.ParseInLocation(layout, s, p.location); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse time %q: expected RFC3339 or YYYY-MM-DD HH:MM[:SS]", s)
}
