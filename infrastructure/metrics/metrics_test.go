package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, vec *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	m := &dto.Metric{}
	require.NoError(t, vec.WithLabelValues(labels...).Write(m))
	return m.GetCounter().GetValue()
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	m := &dto.Metric{}
	require.NoError(t, g.Write(m))
	return m.GetGauge().GetValue()
}

func TestRecordAgentLifecycle(t *testing.T) {
	m := NewWithRegistry("kernel", prometheus.NewRegistry())

	m.RecordAgentSpawned("kernel")
	m.RecordAgentSpawned("kernel")
	m.RecordAgentTerminated("kernel", "recovered")
	m.SetAgentsActive(3)

	require.Equal(t, float64(2), counterValue(t, m.AgentsSpawnedTotal, "kernel"))
	require.Equal(t, float64(1), counterValue(t, m.AgentsTerminatedTotal, "kernel", "recovered"))
	require.Equal(t, float64(3), gaugeValue(t, m.AgentsActive))
}

func TestRecordEthicalEvaluationOnlyCountsDenialOnDeny(t *testing.T) {
	m := NewWithRegistry("kernel", prometheus.NewRegistry())

	m.RecordEthicalEvaluation("kernel", "agent_spawn", true, "")
	m.RecordEthicalEvaluation("kernel", "agent_spawn", false, "root/harmful/deny")

	require.Equal(t, float64(2), counterValue(t, m.EthicalEvaluationsTotal, "kernel", "agent_spawn"))
	require.Equal(t, float64(1), counterValue(t, m.EthicalDenialsTotal, "kernel", "agent_spawn", "root/harmful/deny"))
}

func TestRecordPluginInvocation(t *testing.T) {
	m := NewWithRegistry("kernel", prometheus.NewRegistry())

	m.RecordPluginInvocation("kernel", "plugin_abc", "success", 5*time.Millisecond)

	require.Equal(t, float64(1), counterValue(t, m.PluginInvocationsTotal, "kernel", "plugin_abc", "success"))
}

func TestSetCPUAndMemoryUsage(t *testing.T) {
	m := NewWithRegistry("kernel", prometheus.NewRegistry())

	m.SetCPUUsage("kernel", "system", 42.5)
	m.SetMemoryUsage("kernel", "process", 1024)

	require.Equal(t, 42.5, gaugeValue(t, m.CPUUsagePercent.WithLabelValues("kernel", "system")))
	require.Equal(t, float64(1024), gaugeValue(t, m.MemoryUsageBytes.WithLabelValues("kernel", "process")))
}

func TestRecordAllocationAndAlert(t *testing.T) {
	m := NewWithRegistry("kernel", prometheus.NewRegistry())

	m.RecordAllocationRequest("kernel", "cpu")
	m.RecordAllocationRejected("kernel", "cpu")
	m.RecordAlert("kernel", "critical", "memory")

	require.Equal(t, float64(1), counterValue(t, m.AllocationRequestsTotal, "kernel", "cpu"))
	require.Equal(t, float64(1), counterValue(t, m.AllocationRejectedTotal, "kernel", "cpu"))
	require.Equal(t, float64(1), counterValue(t, m.AlertsEmittedTotal, "kernel", "critical", "memory"))
}

func TestEnabledDefaultsByEnvironment(t *testing.T) {
	t.Setenv("METRICS_ENABLED", "")
	t.Setenv("MARBLE_ENV", "development")
	require.True(t, Enabled())

	t.Setenv("METRICS_ENABLED", "false")
	require.False(t, Enabled())
}
