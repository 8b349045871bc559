package hardware

import (
	"sync"
	"time"

	"github.com/aegis-kernel/mcpkernel/internal/alerting"
)

// sampleHistory bounds how many historical samples the tracker retains per
// resource.
const sampleHistory = 120

// warningThrottle is how long a fired alert suppresses further alerts of any
// kind, regardless of which resource breached.
const warningThrottle = 60 * time.Second

// Sample pairs a resource reading with when it was taken.
type Sample struct {
	Value     float64
	Timestamp time.Time
}

// Tracker maintains bounded historical samples for CPU and memory and fans
// out alerts when either crosses its warning threshold. CPU and memory share
// a single throttle: at most one alert fires per 60-second window no matter
// which resource triggers it, and CPU is always checked first, so a CPU
// alert in a cycle suppresses that cycle's memory check entirely rather than
// deferring it.
type Tracker struct {
	mu          sync.Mutex
	cpu         []Sample
	memory      []Sample
	limits      Limits
	threshold   float64
	manager     *alerting.Manager
	lastWarning time.Time
}

// NewTracker creates a Tracker enforcing limits with the given warning
// threshold (fraction of the limit, e.g. 0.8), fanning alerts out through
// manager.
func NewTracker(limits Limits, threshold float64, manager *alerting.Manager) *Tracker {
	return &Tracker{
		limits:    limits,
		threshold: threshold,
		manager:   manager,
	}
}

// Observe records a new sample and, unless still inside the shared 60-second
// throttle window, checks CPU then memory against their warning thresholds.
// The first resource to breach emits the alert and starts a new throttle
// window; if CPU breaches, memory is not checked this cycle.
func (t *Tracker) Observe(stats ResourceStats) {
	t.mu.Lock()
	now := stats.Timestamp
	t.cpu = appendBounded(t.cpu, Sample{Value: stats.CPUPercent, Timestamp: now})
	t.memory = appendBounded(t.memory, Sample{Value: stats.MemoryMB, Timestamp: now})
	throttled := !t.lastWarning.IsZero() && now.Sub(t.lastWarning) < warningThrottle
	t.mu.Unlock()

	if throttled {
		return
	}
	if t.checkThreshold("cpu", stats.CPUPercent, t.limits.CPUPercent, now) {
		return
	}
	t.checkThreshold("memory", stats.MemoryMB, t.limits.MemoryMB, now)
}

// checkThreshold reports whether resource breached limit*threshold and, if
// so, emits a warning alert and arms the shared throttle.
func (t *Tracker) checkThreshold(resource string, value, limit float64, now time.Time) bool {
	trigger := limit * t.threshold
	if value < trigger {
		return false
	}

	t.mu.Lock()
	t.lastWarning = now
	t.mu.Unlock()

	if t.manager == nil {
		return true
	}
	t.manager.Emit(alerting.Alert{
		Level:     alerting.Warning,
		Resource:  resource,
		Message:   resource + " usage exceeded warning threshold",
		Timestamp: now,
	})
	return true
}

// CPUHistory returns a copy of the retained CPU samples.
func (t *Tracker) CPUHistory() []Sample {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Sample, len(t.cpu))
	copy(out, t.cpu)
	return out
}

// MemoryHistory returns a copy of the retained memory samples.
func (t *Tracker) MemoryHistory() []Sample {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Sample, len(t.memory))
	copy(out, t.memory)
	return out
}

func appendBounded(samples []Sample, s Sample) []Sample {
	samples = append(samples, s)
	if len(samples) > sampleHistory {
		samples = samples[len(samples)-sampleHistory:]
	}
	return samples
}
