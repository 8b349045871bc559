package hardware

import (
	"sync"

	kernelerr "github.com/aegis-kernel/mcpkernel/infrastructure/errors"
	"github.com/aegis-kernel/mcpkernel/infrastructure/metrics"
)

// Allocation is a per-agent reservation against the global CPU and memory
// limits, with a priority in [0,10] used by PriorityBased to weight shares.
type Allocation struct {
	AgentID    string
	CPUPercent float64
	MemoryMB   float64
	Priority   int
}

// Limits are the kernel-wide resource ceilings the ledger enforces.
type Limits struct {
	CPUPercent float64
	MemoryMB   float64
}

// Ledger tracks live allocations and admits new ones only if the resulting
// totals stay within Limits.
type Ledger struct {
	mu          sync.RWMutex
	limits      Limits
	allocations map[string]Allocation
}

// NewLedger creates an empty Ledger enforcing limits.
func NewLedger(limits Limits) *Ledger {
	return &Ledger{
		limits:      limits,
		allocations: make(map[string]Allocation),
	}
}

// Allocate admits alloc if, summed with every existing allocation (excluding
// any prior entry for the same agent, which is overwritten), neither the
// global CPU nor memory limit is exceeded.
func (l *Ledger) Allocate(alloc Allocation) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var cpuTotal, memTotal float64
	for id, existing := range l.allocations {
		if id == alloc.AgentID {
			continue
		}
		cpuTotal += existing.CPUPercent
		memTotal += existing.MemoryMB
	}
	cpuTotal += alloc.CPUPercent
	memTotal += alloc.MemoryMB

	recordAllocationRequest("cpu")
	recordAllocationRequest("memory")

	if cpuTotal > l.limits.CPUPercent {
		recordAllocationRejected("cpu")
		return kernelerr.ResourceLimitExceeded("cpu")
	}
	if memTotal > l.limits.MemoryMB {
		recordAllocationRejected("memory")
		return kernelerr.ResourceLimitExceeded("memory")
	}

	l.allocations[alloc.AgentID] = alloc
	return nil
}

// Release removes agentID's allocation, or ConfigError if none exists.
func (l *Ledger) Release(agentID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.allocations[agentID]; !ok {
		return kernelerr.ConfigError("no allocation for agent " + agentID)
	}
	delete(l.allocations, agentID)
	return nil
}

// Get returns agentID's current allocation, if any.
func (l *Ledger) Get(agentID string) (Allocation, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	alloc, ok := l.allocations[agentID]
	return alloc, ok
}

// All returns a snapshot of every live allocation.
func (l *Ledger) All() []Allocation {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Allocation, 0, len(l.allocations))
	for _, a := range l.allocations {
		out = append(out, a)
	}
	return out
}

// Count returns the number of live allocations.
func (l *Ledger) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.allocations)
}

func recordAllocationRequest(resource string) {
	if metrics.Enabled() {
		metrics.Global().RecordAllocationRequest("mcpkernel", resource)
	}
}

func recordAllocationRejected(resource string) {
	if metrics.Enabled() {
		metrics.Global().RecordAllocationRejected("mcpkernel", resource)
	}
}
