package predict

import (
	"sync"
	"time"
)

// Stats counts predictions by decision and reason.
type Stats struct {
	mu         sync.Mutex
	total      int
	byDecision map[Decision]int
	byReason   map[Reason]int
	elapsed    time.Duration
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	Total     int            `json:"total" yaml:"total" toml:"total"`
	Skipped   int            `json:"skipped" yaml:"skipped" toml:"skipped"`
	Executed  int            `json:"executed" yaml:"executed" toml:"executed"`
	ByReason  map[Reason]int `json:"byReason" yaml:"byReason" toml:"byReason"`
	ElapsedMs int64          `json:"elapsedMs" yaml:"elapsedMs" toml:"elapsedMs"`
	SkipRatio float64        `json:"skipRatio" yaml:"skipRatio" toml:"skipRatio"`
}

// NewStats returns zeroed counters.
func NewStats() *Stats {
	return &Stats{
		byDecision: make(map[Decision]int),
		byReason:   make(map[Reason]int),
	}
}

func (s *Stats) record(p Prediction, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total++
	s.byDecision[p.Decision]++
	s.byReason[p.Reason]++
	s.elapsed += d
}

// Snapshot copies the current counters.
func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := StatsSnapshot{
		Total:     s.total,
		Skipped:   s.byDecision[Skip],
		Executed:  s.byDecision[Execute],
		ByReason:  make(map[Reason]int, len(s.byReason)),
		ElapsedMs: s.elapsed.Milliseconds(),
	}
	for r, n := range s.byReason {
		snap.ByReason[r] = n
	}
	if s.total > 0 {
		snap.SkipRatio = float64(snap.Skipped) / float64(s.total)
	}
	return snap
}
