package handler

import (
	"sync"
	"time"
)

// cpuSampler turns cumulative process CPU time into a usage percentage
// between successive calls.
type cpuSampler struct {
	mu       sync.Mutex
	lastCPU  time.Duration
	lastWall time.Time
	primed   bool
}

var processCPU cpuSampler

// sample records cpu (user + system time so far) taken at now and returns
// the percentage of one core used since the previous sample. The first
// sample returns 0.
func (s *cpuSampler) sample(cpu time.Duration, now time.Time) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.primed {
		s.lastCPU, s.lastWall, s.primed = cpu, now, true
		return 0
	}

	cpuDelta := cpu - s.lastCPU
	wallDelta := now.Sub(s.lastWall)
	s.lastCPU, s.lastWall = cpu, now

	if wallDelta <= 0 {
		return 0
	}

	// Capped at a single core.
	pct := float64(cpuDelta) / float64(wallDelta) * 100
	if pct > 100 {
		pct = 100
	}
	if pct < 0 {
		pct = 0
	}
	return pct
}

// getCPUUsage returns the CPU usage percentage for this process since the
// last call.
func getCPUUsage() float64 {
	cpu, ok := processCPUTime()
	if !ok {
		return 0
	}
	return processCPU.sample(cpu, time.Now())
}
