package control

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_IncrAndSet(t *testing.T) {
	m := NewMetrics("test")
	m.Incr("accepted")
	m.Incr("accepted")
	m.Set("live", 7)

	assert.Equal(t, int64(2), m.Get("accepted"))
	assert.Equal(t, int64(7), m.Get("live"))
	assert.Equal(t, int64(0), m.Get("missing"))
	assert.False(t, m.Updated().IsZero())

	snap := m.GetSnapshot()
	snap["accepted"] = 100
	assert.Equal(t, int64(2), m.Get("accepted"), "snapshot is a copy")
}

func TestTickStats_Empty(t *testing.T) {
	s := NewTickStats(0)
	sum := s.Summary()
	assert.Equal(t, uint64(0), sum.Count)
	assert.Equal(t, 0, sum.Window)
}

func TestTickStats_Summary(t *testing.T) {
	s := NewTickStats(8)
	for _, ms := range []int{1, 2, 3, 4} {
		s.Observe(time.Duration(ms) * time.Millisecond)
	}
	sum := s.Summary()
	assert.Equal(t, uint64(4), sum.Count)
	assert.Equal(t, 4, sum.Window)
	assert.InDelta(t, float64(2500*time.Microsecond), float64(sum.Mean), float64(time.Microsecond))
	assert.Equal(t, 4*time.Millisecond, sum.Max)
	assert.Greater(t, sum.StdDev, time.Duration(0))
	assert.LessOrEqual(t, sum.P50, sum.P99)
}

func TestTickStats_WindowWraps(t *testing.T) {
	s := NewTickStats(2)
	s.Observe(100 * time.Millisecond)
	s.Observe(time.Millisecond)
	s.Observe(time.Millisecond)
	sum := s.Summary()
	assert.Equal(t, uint64(3), sum.Count)
	assert.Equal(t, 2, sum.Window)
	assert.Equal(t, time.Millisecond, sum.Max, "oldest sample evicted")
}

func TestTickStats_SingleSample(t *testing.T) {
	s := NewTickStats(4)
	s.Observe(5 * time.Millisecond)
	sum := s.Summary()
	assert.Equal(t, time.Duration(0), sum.StdDev)
	assert.Equal(t, 5*time.Millisecond, sum.P50)
}

func TestDebugProbes(t *testing.T) {
	dp := NewDebugProbes()
	dp.RegisterProbe("b", func() any { return 2 })
	dp.RegisterProbe("a", func() any { return "one" })
	assert.Equal(t, []string{"a", "b"}, dp.Names())

	state := dp.DumpState()
	require.Len(t, state, 2)
	assert.Equal(t, "one", state["a"])
	assert.Equal(t, 2, state["b"])
}

func TestRegisterPlatformProbes(t *testing.T) {
	dp := NewDebugProbes()
	RegisterPlatformProbes(dp)
	state := dp.DumpState()
	assert.Contains(t, state, "platform.cpus")
}
