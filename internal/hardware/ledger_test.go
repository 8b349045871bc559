package hardware

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kernelerr "github.com/aegis-kernel/mcpkernel/infrastructure/errors"
)

func TestAllocateWithinLimitsSucceeds(t *testing.T) {
	ledger := NewLedger(Limits{CPUPercent: 100, MemoryMB: 1000})

	err := ledger.Allocate(Allocation{AgentID: "agent_1", CPUPercent: 40, MemoryMB: 400, Priority: 5})
	require.NoError(t, err)

	alloc, ok := ledger.Get("agent_1")
	require.True(t, ok)
	assert.Equal(t, 40.0, alloc.CPUPercent)
}

func TestAllocateExceedingCPULimitRejected(t *testing.T) {
	ledger := NewLedger(Limits{CPUPercent: 100, MemoryMB: 1000})
	require.NoError(t, ledger.Allocate(Allocation{AgentID: "agent_1", CPUPercent: 70, MemoryMB: 100}))

	err := ledger.Allocate(Allocation{AgentID: "agent_2", CPUPercent: 40, MemoryMB: 100})
	require.Error(t, err)
	assert.True(t, kernelerr.Is(err, kernelerr.KindResourceLimitExceeded))

	_, ok := ledger.Get("agent_2")
	assert.False(t, ok)
}

func TestAllocateOverwritesExistingAgentAllocation(t *testing.T) {
	ledger := NewLedger(Limits{CPUPercent: 100, MemoryMB: 1000})
	require.NoError(t, ledger.Allocate(Allocation{AgentID: "agent_1", CPUPercent: 90, MemoryMB: 100}))

	err := ledger.Allocate(Allocation{AgentID: "agent_1", CPUPercent: 95, MemoryMB: 100})
	require.NoError(t, err)

	alloc, _ := ledger.Get("agent_1")
	assert.Equal(t, 95.0, alloc.CPUPercent)
}

func TestReleaseRemovesAllocation(t *testing.T) {
	ledger := NewLedger(Limits{CPUPercent: 100, MemoryMB: 1000})
	require.NoError(t, ledger.Allocate(Allocation{AgentID: "agent_1", CPUPercent: 10, MemoryMB: 10}))

	require.NoError(t, ledger.Release("agent_1"))
	_, ok := ledger.Get("agent_1")
	assert.False(t, ok)
}

func TestReleaseMissingAllocationReturnsConfigError(t *testing.T) {
	ledger := NewLedger(Limits{CPUPercent: 100, MemoryMB: 1000})
	err := ledger.Release("agent_never_allocated")
	require.Error(t, err)
	assert.True(t, kernelerr.Is(err, kernelerr.KindConfigError))
}
