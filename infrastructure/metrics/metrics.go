// Package metrics provides Prometheus metrics collection for the agent kernel,
// plugin host, ethical tree, trace chain, and hardware manager.
package metrics

import (
	"os"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aegis-kernel/mcpkernel/infrastructure/runtime"
)

// Metrics holds all Prometheus collectors exposed by the kernel.
type Metrics struct {
	// Agent lifecycle
	AgentsSpawnedTotal    *prometheus.CounterVec
	AgentsTerminatedTotal *prometheus.CounterVec
	AgentsActive          prometheus.Gauge

	// Plugin host
	PluginInvocationsTotal   *prometheus.CounterVec
	PluginInvocationDuration *prometheus.HistogramVec
	PluginCompilationsTotal  *prometheus.CounterVec

	// Ethical tree
	EthicalEvaluationsTotal *prometheus.CounterVec
	EthicalDenialsTotal     *prometheus.CounterVec

	// Trace chain
	TraceEventsTotal  *prometheus.CounterVec
	TraceChainsActive prometheus.Gauge

	// Hardware manager
	CPUUsagePercent         *prometheus.GaugeVec
	MemoryUsageBytes        *prometheus.GaugeVec
	AllocationRequestsTotal *prometheus.CounterVec
	AllocationRejectedTotal *prometheus.CounterVec
	AlertsEmittedTotal      *prometheus.CounterVec

	// Storage
	StorageOperationsTotal *prometheus.CounterVec

	// Errors
	ErrorsTotal *prometheus.CounterVec

	// Service health
	ServiceUptime prometheus.Gauge
	ServiceInfo   *prometheus.GaugeVec
}

// New creates a new Metrics instance with all collectors registered against
// the default Prometheus registerer.
func New(serviceName string) *Metrics {
	return NewWithRegistry(serviceName, prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a new Metrics instance registered against a custom
// registerer (tests typically pass prometheus.NewRegistry()).
func NewWithRegistry(serviceName string, registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		AgentsSpawnedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kernel_agents_spawned_total",
				Help: "Total number of agents spawned",
			},
			[]string{"service"},
		),
		AgentsTerminatedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kernel_agents_terminated_total",
				Help: "Total number of agents terminated, by reason",
			},
			[]string{"service", "reason"},
		),
		AgentsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "kernel_agents_active",
				Help: "Current number of agents registered in the kernel",
			},
		),

		PluginInvocationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kernel_plugin_invocations_total",
				Help: "Total number of plugin invocations, by outcome",
			},
			[]string{"service", "plugin_id", "status"},
		),
		PluginInvocationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "kernel_plugin_invocation_duration_seconds",
				Help:    "Plugin invocation duration in seconds",
				Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"service", "plugin_id"},
		),
		PluginCompilationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kernel_plugin_compilations_total",
				Help: "Total number of plugin bytecode compilations (cache misses)",
			},
			[]string{"service", "plugin_id"},
		),

		EthicalEvaluationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kernel_ethical_evaluations_total",
				Help: "Total number of ethical tree evaluations",
			},
			[]string{"service", "context"},
		),
		EthicalDenialsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kernel_ethical_denials_total",
				Help: "Total number of ethical tree evaluations resulting in denial",
			},
			[]string{"service", "context", "rule_path"},
		),

		TraceEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kernel_trace_events_total",
				Help: "Total number of trace chain events recorded",
			},
			[]string{"service", "event_type"},
		),
		TraceChainsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "kernel_trace_chains_active",
				Help: "Current number of open (unterminated) trace chains",
			},
		),

		CPUUsagePercent: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "kernel_cpu_usage_percent",
				Help: "Last sampled CPU usage percentage, by scope",
			},
			[]string{"service", "scope"},
		),
		MemoryUsageBytes: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "kernel_memory_usage_bytes",
				Help: "Last sampled resident memory usage in bytes, by scope",
			},
			[]string{"service", "scope"},
		),
		AllocationRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kernel_allocation_requests_total",
				Help: "Total number of hardware allocation requests",
			},
			[]string{"service", "resource"},
		),
		AllocationRejectedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kernel_allocation_rejected_total",
				Help: "Total number of hardware allocation requests rejected by admission control",
			},
			[]string{"service", "resource"},
		),
		AlertsEmittedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kernel_alerts_emitted_total",
				Help: "Total number of hardware alerts emitted, by level",
			},
			[]string{"service", "level", "resource"},
		),

		StorageOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kernel_storage_operations_total",
				Help: "Total number of storage backend operations, by outcome",
			},
			[]string{"service", "backend", "operation", "status"},
		),

		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kernel_errors_total",
				Help: "Total number of kernel errors, by kind",
			},
			[]string{"service", "kind"},
		),

		ServiceUptime: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "kernel_uptime_seconds",
				Help: "Kernel process uptime in seconds",
			},
		),
		ServiceInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "kernel_info",
				Help: "Kernel build and environment information",
			},
			[]string{"service", "version", "environment"},
		),
	}

	if registerer != nil {
		registerer.MustRegister(
			m.AgentsSpawnedTotal,
			m.AgentsTerminatedTotal,
			m.AgentsActive,
			m.PluginInvocationsTotal,
			m.PluginInvocationDuration,
			m.PluginCompilationsTotal,
			m.EthicalEvaluationsTotal,
			m.EthicalDenialsTotal,
			m.TraceEventsTotal,
			m.TraceChainsActive,
			m.CPUUsagePercent,
			m.MemoryUsageBytes,
			m.AllocationRequestsTotal,
			m.AllocationRejectedTotal,
			m.AlertsEmittedTotal,
			m.StorageOperationsTotal,
			m.ErrorsTotal,
			m.ServiceUptime,
			m.ServiceInfo,
		)
	}

	m.ServiceInfo.WithLabelValues(serviceName, "1.0.0", getEnvironment()).Set(1)

	return m
}

// RecordAgentSpawned records a successful agent spawn.
func (m *Metrics) RecordAgentSpawned(service string) {
	m.AgentsSpawnedTotal.WithLabelValues(service).Inc()
}

// RecordAgentTerminated records an agent leaving the registry.
func (m *Metrics) RecordAgentTerminated(service, reason string) {
	m.AgentsTerminatedTotal.WithLabelValues(service, reason).Inc()
}

// SetAgentsActive sets the current agent registry size.
func (m *Metrics) SetAgentsActive(count int) {
	m.AgentsActive.Set(float64(count))
}

// RecordPluginInvocation records a plugin invocation outcome and duration.
func (m *Metrics) RecordPluginInvocation(service, pluginID, status string, duration time.Duration) {
	m.PluginInvocationsTotal.WithLabelValues(service, pluginID, status).Inc()
	m.PluginInvocationDuration.WithLabelValues(service, pluginID).Observe(duration.Seconds())
}

// RecordPluginCompilation records a plugin bytecode cache miss.
func (m *Metrics) RecordPluginCompilation(service, pluginID string) {
	m.PluginCompilationsTotal.WithLabelValues(service, pluginID).Inc()
}

// RecordEthicalEvaluation records an ethical tree evaluation and, when denied,
// the rule path that produced the denial.
func (m *Metrics) RecordEthicalEvaluation(service, evalContext string, allowed bool, rulePath string) {
	m.EthicalEvaluationsTotal.WithLabelValues(service, evalContext).Inc()
	if !allowed {
		m.EthicalDenialsTotal.WithLabelValues(service, evalContext, rulePath).Inc()
	}
}

// RecordTraceEvent records a trace chain event of the given type.
func (m *Metrics) RecordTraceEvent(service, eventType string) {
	m.TraceEventsTotal.WithLabelValues(service, eventType).Inc()
}

// SetTraceChainsActive sets the number of currently open trace chains.
func (m *Metrics) SetTraceChainsActive(count int) {
	m.TraceChainsActive.Set(float64(count))
}

// SetCPUUsage records a sampled CPU usage percentage for the given scope
// ("system", "process", or an agent ID).
func (m *Metrics) SetCPUUsage(service, scope string, percent float64) {
	m.CPUUsagePercent.WithLabelValues(service, scope).Set(percent)
}

// SetMemoryUsage records sampled resident memory usage in bytes for the given scope.
func (m *Metrics) SetMemoryUsage(service, scope string, bytes uint64) {
	m.MemoryUsageBytes.WithLabelValues(service, scope).Set(float64(bytes))
}

// RecordAllocationRequest records an allocation request for a resource ("cpu", "memory").
func (m *Metrics) RecordAllocationRequest(service, resource string) {
	m.AllocationRequestsTotal.WithLabelValues(service, resource).Inc()
}

// RecordAllocationRejected records an allocation request rejected by admission control.
func (m *Metrics) RecordAllocationRejected(service, resource string) {
	m.AllocationRejectedTotal.WithLabelValues(service, resource).Inc()
}

// RecordAlert records an emitted hardware alert.
func (m *Metrics) RecordAlert(service, level, resource string) {
	m.AlertsEmittedTotal.WithLabelValues(service, level, resource).Inc()
}

// RecordStorageOperation records a storage backend operation outcome.
func (m *Metrics) RecordStorageOperation(service, backend, operation, status string) {
	m.StorageOperationsTotal.WithLabelValues(service, backend, operation, status).Inc()
}

// RecordError records a kernel error by kind.
func (m *Metrics) RecordError(service, kind string) {
	m.ErrorsTotal.WithLabelValues(service, kind).Inc()
}

// UpdateUptime updates the kernel uptime gauge from a process start time.
func (m *Metrics) UpdateUptime(startTime time.Time) {
	m.ServiceUptime.Set(time.Since(startTime).Seconds())
}

// Helper functions

func getEnvironment() string {
	return string(runtime.Env())
}

// Enabled returns whether Prometheus metrics should be exposed.
//
// Defaults:
// - production: disabled unless explicitly enabled via METRICS_ENABLED
// - non-production: enabled unless explicitly disabled via METRICS_ENABLED
func Enabled() bool {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv("METRICS_ENABLED")))
	if raw == "" {
		return !runtime.IsProduction()
	}
	switch raw {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// Global metrics instance

var (
	globalMetrics *Metrics
	globalMu      sync.Mutex
)

// Init initializes the global metrics instance.
func Init(serviceName string) *Metrics {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalMetrics == nil {
		globalMetrics = New(serviceName)
	}
	return globalMetrics
}

// Global returns the global metrics instance, lazily initializing it.
func Global() *Metrics {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalMetrics == nil {
		globalMetrics = New("mcpkernel")
	}
	return globalMetrics
}
