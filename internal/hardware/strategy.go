package hardware

// Share is a suggested per-agent CPU/memory allocation, clamped to the
// global limits before being returned.
type Share struct {
	CPUPercent float64
	MemoryMB   float64
}

// Strategy computes a suggested per-agent share given each agent's priority
// and the number of currently live agents.
type Strategy interface {
	Compute(limits Limits, priorities []int) []Share
}

func clamp(value, limit float64) float64 {
	if value > limit {
		return limit
	}
	if value < 0 {
		return 0
	}
	return value
}

// EvenStrategy distributes 90% of each limit equally across all agents.
type EvenStrategy struct{}

func (EvenStrategy) Compute(limits Limits, priorities []int) []Share {
	n := len(priorities)
	if n == 0 {
		return nil
	}
	cpuShare := clamp(limits.CPUPercent*0.9/float64(n), limits.CPUPercent)
	memShare := clamp(limits.MemoryMB*0.9/float64(n), limits.MemoryMB)

	shares := make([]Share, n)
	for i := range shares {
		shares[i] = Share{CPUPercent: cpuShare, MemoryMB: memShare}
	}
	return shares
}

// PriorityBasedStrategy floors every agent at min(floor, limit/agentCount)
// then distributes the remainder of 90% of the limit proportional to each
// agent's priority/sum(priorities). Flooring against limit/agentCount first
// guarantees floor*agentCount never exceeds the limit; when it exceeds 90%
// of the limit the remainder comes out negative and is clamped to 0.
type PriorityBasedStrategy struct {
	// CPUFloor and MemFloor are the configured per-agent minimum shares
	// before priority weighting, expressed in the same units as the resource
	// (CPU percent points, megabytes).
	CPUFloor float64
	MemFloor float64
}

func (s PriorityBasedStrategy) Compute(limits Limits, priorities []int) []Share {
	n := len(priorities)
	if n == 0 {
		return nil
	}

	cpuFloor := minFloat(s.CPUFloor, limits.CPUPercent/float64(n))
	memFloor := minFloat(s.MemFloor, limits.MemoryMB/float64(n))

	cpuRemainder := clamp(limits.CPUPercent*0.9-cpuFloor*float64(n), limits.CPUPercent)
	memRemainder := clamp(limits.MemoryMB*0.9-memFloor*float64(n), limits.MemoryMB)

	prioritySum := 0
	for _, p := range priorities {
		prioritySum += p
	}

	shares := make([]Share, n)
	for i, p := range priorities {
		weight := 0.0
		if prioritySum > 0 {
			weight = float64(p) / float64(prioritySum)
		}
		shares[i] = Share{
			CPUPercent: clamp(cpuFloor+cpuRemainder*weight, limits.CPUPercent),
			MemoryMB:   clamp(memFloor+memRemainder*weight, limits.MemoryMB),
		}
	}
	return shares
}

// FCFSStrategy returns only the priority-based floor for each agent, with no
// remainder distribution: first-come allocations get the minimum and
// nothing more.
type FCFSStrategy struct {
	CPUFloor float64
	MemFloor float64
}

func (s FCFSStrategy) Compute(limits Limits, priorities []int) []Share {
	n := len(priorities)
	if n == 0 {
		return nil
	}

	cpuFloor := minFloat(s.CPUFloor, limits.CPUPercent/float64(n))
	memFloor := minFloat(s.MemFloor, limits.MemoryMB/float64(n))

	shares := make([]Share, n)
	for i := range shares {
		shares[i] = Share{
			CPUPercent: clamp(cpuFloor, limits.CPUPercent),
			MemoryMB:   clamp(memFloor, limits.MemoryMB),
		}
	}
	return shares
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
