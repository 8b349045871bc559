package alerting

import (
	"sync"

	"github.com/aegis-kernel/mcpkernel/infrastructure/metrics"
)

// Manager fans out emitted alerts to every registered Handler whose
// MinLevel is met.
type Manager struct {
	mu       sync.RWMutex
	handlers []Handler
}

// NewManager creates an empty Manager.
func NewManager() *Manager {
	return &Manager{}
}

// Register adds a handler to the fan-out set.
func (m *Manager) Register(h Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = append(m.handlers, h)
}

// Emit fans alert out to every handler whose MinLevel is at or below
// alert.Level. The first handler error is returned after all handlers have
// run; a handler failing does not stop the others from receiving the alert.
func (m *Manager) Emit(alert Alert) error {
	m.mu.RLock()
	handlers := make([]Handler, len(m.handlers))
	copy(handlers, m.handlers)
	m.mu.RUnlock()

	if metrics.Enabled() {
		metrics.Global().RecordAlert("mcpkernel", alert.Level.String(), alert.Resource)
	}

	var firstErr error
	for _, h := range handlers {
		if alert.Level < h.MinLevel() {
			continue
		}
		if err := h.Handle(alert); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
