// Package hardware implements the sampling loop, reservation ledger, and
// allocation strategies that make up the Hardware Manager: periodic OS
// process metrics, an admission-checked allocation ledger, and a tracker
// that fans out throttled alerts when usage crosses a warning threshold.
package hardware

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/process"

	kernelerr "github.com/aegis-kernel/mcpkernel/infrastructure/errors"
	"github.com/aegis-kernel/mcpkernel/infrastructure/metrics"
)

// ResourceStats is a single point-in-time reading of the running process's
// resource usage.
type ResourceStats struct {
	CPUPercent float64
	MemoryMB   float64
	Timestamp  time.Time
}

// statsHolder guards the latest sample behind a mutex; readers never block
// the sampler for long since they only ever copy the struct out.
type statsHolder struct {
	mu    sync.RWMutex
	stats ResourceStats
}

func (h *statsHolder) set(s ResourceStats) {
	h.mu.Lock()
	h.stats = s
	h.mu.Unlock()
}

func (h *statsHolder) get() ResourceStats {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.stats
}

// sampleProcess reads the current process's CPU percent (over a short
// blocking window) and resident memory in megabytes.
func sampleProcess(ctx context.Context) (ResourceStats, error) {
	proc, err := process.NewProcessWithContext(ctx, int32(os.Getpid()))
	if err != nil {
		return ResourceStats{}, kernelerr.MonitoringError("process handle failed", err)
	}
	cpuPercent, err := proc.PercentWithContext(ctx, 100*time.Millisecond)
	if err != nil {
		return ResourceStats{}, kernelerr.MonitoringError("cpu sample failed", err)
	}
	memInfo, err := proc.MemoryInfoWithContext(ctx)
	if err != nil {
		return ResourceStats{}, kernelerr.MonitoringError("memory sample failed", err)
	}

	return ResourceStats{
		CPUPercent: cpuPercent,
		MemoryMB:   float64(memInfo.RSS) / (1024 * 1024),
		Timestamp:  time.Now(),
	}, nil
}

func (h *statsHolder) recordGauges(s ResourceStats) {
	if metrics.Enabled() {
		metrics.Global().SetCPUUsage("mcpkernel", "process", s.CPUPercent)
		metrics.Global().SetMemoryUsage("mcpkernel", "process", uint64(s.MemoryMB*1024*1024))
	}
}
