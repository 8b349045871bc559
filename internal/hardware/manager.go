package hardware

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	kernelerr "github.com/aegis-kernel/mcpkernel/infrastructure/errors"
	"github.com/aegis-kernel/mcpkernel/internal/alerting"
)

// Manager runs the periodic sampling loop and owns the reservation ledger
// and tracker that sit alongside it.
type Manager struct {
	stats   *statsHolder
	ledger  *Ledger
	tracker *Tracker
	cron    *cron.Cron
	entryID cron.EntryID
}

// NewManager creates a Manager that fans threshold breaches out through
// alertManager. refreshIntervalMS is not used here; the sampling interval is
// the one passed to Start.
func NewManager(limits Limits, refreshIntervalMS int, warningThreshold float64, alertManager *alerting.Manager) *Manager {
	return &Manager{
		stats:   &statsHolder{},
		ledger:  NewLedger(limits),
		tracker: NewTracker(limits, warningThreshold, alertManager),
		cron:    cron.New(),
	}
}

// Start schedules the sampling loop with an @every cron entry. refreshMS
// must be at least one second; cron's @every spec does not support
// sub-second intervals.
func (m *Manager) Start(refreshMS int) error {
	seconds := refreshMS / 1000
	if seconds < 1 {
		seconds = 1
	}
	spec := fmt.Sprintf("@every %ds", seconds)

	id, err := m.cron.AddFunc(spec, m.sampleOnce)
	if err != nil {
		return kernelerr.MonitoringError("failed to schedule sampling", err)
	}
	m.entryID = id
	m.cron.Start()
	return nil
}

func (m *Manager) sampleOnce() {
	stats, err := sampleProcess(context.Background())
	if err != nil {
		return
	}
	m.stats.set(stats)
	m.stats.recordGauges(stats)
	m.tracker.Observe(stats)
}

// Stop blocks until the in-flight sample (if any) finishes, then halts the
// scheduler. This is how sampling terminates cleanly when the kernel is
// dropped, without a bespoke cancellation token.
func (m *Manager) Stop() {
	<-m.cron.Stop().Done()
}

// Stats returns the most recently sampled resource usage.
func (m *Manager) Stats() ResourceStats {
	return m.stats.get()
}

// Ledger returns the manager's reservation ledger.
func (m *Manager) Ledger() *Ledger {
	return m.ledger
}

// Tracker returns the manager's alert tracker.
func (m *Manager) Tracker() *Tracker {
	return m.tracker
}
