package clock

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRealClock_Now(t *testing.T) {
	c := RealClock{}
	before := time.Now()
	result := c.Now()
	after := time.Now()

	assert.False(t, result.Before(before))
	assert.False(t, result.After(after))
}

func TestMockClock_SetAndAdvance(t *testing.T) {
	start := time.Date(2024, 6, 15, 8, 0, 0, 0, time.UTC)
	c := NewMockClock(start)
	assert.Equal(t, start, c.Now())
	assert.Equal(t, start, c.Now(), "a mock clock without step does not move on its own")

	c.Advance(90 * time.Minute)
	assert.Equal(t, start.Add(90*time.Minute), c.Now())

	c.Advance(-30 * time.Minute)
	assert.Equal(t, start.Add(time.Hour), c.Now())

	later := time.Date(2024, 12, 25, 12, 0, 0, 0, time.UTC)
	c.Set(later)
	assert.Equal(t, later.UnixMilli(), c.NowUnixMilli())
}

func TestSteppingMockClock(t *testing.T) {
	start := time.Date(2024, 6, 15, 8, 0, 0, 0, time.UTC)
	c := NewSteppingMockClock(start, time.Second)

	assert.Equal(t, start, c.Now())
	assert.Equal(t, start.Add(time.Second), c.Now())
	assert.Equal(t, start.Add(2*time.Second), c.Now())
}

func TestMockClock_ConcurrentAccess(t *testing.T) {
	c := NewMockClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			c.Advance(time.Second)
		}()
		go func() {
			defer wg.Done()
			_ = c.Now()
		}()
	}
	wg.Wait()

	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 50, 0, time.UTC), c.Now())
}

func TestPinnedClock_FromEnvVar(t *testing.T) {
	const envVar = "TEST_PLANNER_NOW"
	expected := time.Date(2024, 12, 25, 10, 30, 0, 0, time.UTC)
	t.Setenv(envVar, expected.Format(time.RFC3339))

	c := NewPinnedClock(envVar, "", time.UTC)
	assert.Equal(t, expected, c.Now())
}

func TestPinnedClock_LocalLayoutNeedsLocation(t *testing.T) {
	const envVar = "TEST_PLANNER_NOW_LOCAL"
	t.Setenv(envVar, "2024-03-01 07:45")

	loc, err := time.LoadLocation("Europe/Madrid")
	require.NoError(t, err)

	c := NewPinnedClock(envVar, "", loc)
	assert.Equal(t, time.Date(2024, 3, 1, 7, 45, 0, 0, loc), c.Now())

	noLoc := NewPinnedClock(envVar, "", nil)
	before := time.Now()
	result := noLoc.Now()
	assert.False(t, result.Before(before), "falls back to system time without a location")
}

func TestPinnedClock_FromFile(t *testing.T) {
	expected := time.Date(2024, 6, 15, 14, 0, 0, 0, time.UTC)
	path := filepath.Join(t.TempDir(), "now.txt")
	require.NoError(t, os.WriteFile(path, []byte(expected.Format(time.RFC3339)+"\n"), 0o600))

	c := NewPinnedClock("", path, time.UTC)
	assert.Equal(t, expected, c.Now())
}

func TestPinnedClock_EnvVarWinsOverFile(t *testing.T) {
	const envVar = "TEST_PLANNER_NOW_PRIORITY"
	fromEnv := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	fromFile := time.Date(2023, 1, 1, 9, 0, 0, 0, time.UTC)
	t.Setenv(envVar, fromEnv.Format(time.RFC3339))

	path := filepath.Join(t.TempDir(), "now.txt")
	require.NoError(t, os.WriteFile(path, []byte(fromFile.Format(time.RFC3339)), 0o600))

	c := NewPinnedClock(envVar, path, time.UTC)
	assert.Equal(t, fromEnv, c.Now())
}

func TestBudget(t *testing.T) {
	start := time.Date(2024, 6, 15, 8, 0, 0, 0, time.UTC)
	c := NewMockClock(start)

	b := StartBudget(c, 10*time.Second)
	assert.False(t, b.Exceeded())

	c.Advance(10 * time.Second)
	assert.False(t, b.Exceeded(), "limit itself is still within budget")

	c.Advance(time.Millisecond)
	assert.True(t, b.Exceeded())
	assert.Equal(t, 10*time.Second+time.Millisecond, b.Elapsed())
}

func TestBudget_NonPositiveLimitNeverExpires(t *testing.T) {
	c := NewMockClock(time.Now())
	b := StartBudget(c, 0)
	c.Advance(24 * time.Hour)
	assert.False(t, b.Exceeded())
}
