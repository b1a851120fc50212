// control/tickstats.go
// Author: momentics <momentics@gmail.com>
//
// Rolling statistics over tick durations.

package control

import (
	"math"
	"sort"
	"sync"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DefaultTickWindow is the number of most recent ticks summarised.
const DefaultTickWindow = 1024

// TickSummary describes the durations in the current window.
type TickSummary struct {
	Count  uint64 // ticks observed since creation
	Window int    // samples in the summary
	Mean   time.Duration
	StdDev time.Duration
	P50    time.Duration
	P99    time.Duration
	Max    time.Duration
}

// TickStats keeps a fixed-size window of tick durations.
type TickStats struct {
	mu      sync.Mutex
	samples []float64 // seconds
	next    int
	full    bool
	count   uint64
}

// NewTickStats creates a window of the given size (DefaultTickWindow if <= 0).
func NewTickStats(window int) *TickStats {
	if window <= 0 {
		window = DefaultTickWindow
	}
	return &TickStats{samples: make([]float64, window)}
}

// Observe records one tick.
func (s *TickStats) Observe(d time.Duration) {
	s.mu.Lock()
	s.samples[s.next] = d.Seconds()
	s.next++
	if s.next == len(s.samples) {
		s.next = 0
		s.full = true
	}
	s.count++
	s.mu.Unlock()
}

// Summary computes statistics over the window.
func (s *TickStats) Summary() TickSummary {
	s.mu.Lock()
	n := s.next
	if s.full {
		n = len(s.samples)
	}
	x := make([]float64, n)
	copy(x, s.samples[:n])
	total := s.count
	s.mu.Unlock()

	sum := TickSummary{Count: total, Window: n}
	if n == 0 {
		return sum
	}
	sort.Float64s(x)
	mean, std := stat.MeanStdDev(x, nil)
	if n < 2 {
		std = 0
	}
	sum.Mean = seconds(mean)
	sum.StdDev = seconds(std)
	sum.P50 = seconds(stat.Quantile(0.5, stat.Empirical, x, nil))
	sum.P99 = seconds(stat.Quantile(0.99, stat.Empirical, x, nil))
	sum.Max = seconds(floats.Max(x))
	return sum
}

func seconds(f float64) time.Duration {
	return time.Duration(math.Round(f * float64(time.Second)))
}
