package router

import "sync"

// UsageStats counts successful executions per (model, task) pair. It is
// shared across concurrently-handled requests, so increments are
// mutex-guarded. Counts reset only on process restart.
type UsageStats struct {
	mu     sync.Mutex
	counts map[string]int
}

func NewUsageStats() *UsageStats {
	return &UsageStats{counts: make(map[string]int)}
}

func (s *UsageStats) Record(model string, task TaskType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[model+":"+string(task)]++
}

// Snapshot returns a copy of the raw usage map.
func (s *UsageStats) Snapshot() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.counts))
	for k, v := range s.counts {
		out[k] = v
	}
	return out
}
