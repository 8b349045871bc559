package hardware

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvenStrategyDistributes90PercentEqually(t *testing.T) {
	shares := EvenStrategy{}.Compute(Limits{CPUPercent: 100, MemoryMB: 1000}, []int{5, 5, 5, 5})

	for _, s := range shares {
		assert.InDelta(t, 22.5, s.CPUPercent, 0.001)
		assert.InDelta(t, 225, s.MemoryMB, 0.001)
	}
}

func TestPriorityBasedStrategyNeverUnderflowsRemainder(t *testing.T) {
	strategy := PriorityBasedStrategy{CPUFloor: 20, MemFloor: 200}
	// floor*agentCount (20*10=200) would exceed limit (100) under the old
	// formula; the re-specified formula clamps the floor itself first.
	shares := strategy.Compute(Limits{CPUPercent: 100, MemoryMB: 1000}, make([]int, 10))

	for _, s := range shares {
		assert.GreaterOrEqual(t, s.CPUPercent, 0.0)
		assert.LessOrEqual(t, s.CPUPercent, 100.0)
	}
}

func TestPriorityBasedStrategyWeightsByPriority(t *testing.T) {
	strategy := PriorityBasedStrategy{CPUFloor: 5, MemFloor: 50}
	shares := strategy.Compute(Limits{CPUPercent: 100, MemoryMB: 1000}, []int{1, 9})

	assert.Greater(t, shares[1].CPUPercent, shares[0].CPUPercent)
}

func TestFCFSStrategyReturnsOnlyFloors(t *testing.T) {
	strategy := FCFSStrategy{CPUFloor: 10, MemFloor: 100}
	shares := strategy.Compute(Limits{CPUPercent: 100, MemoryMB: 1000}, []int{1, 9, 3})

	for _, s := range shares {
		assert.Equal(t, 10.0, s.CPUPercent)
		assert.Equal(t, 100.0, s.MemoryMB)
	}
}

func TestStrategiesClampToLimitsWhenFloorExceedsShare(t *testing.T) {
	strategy := FCFSStrategy{CPUFloor: 1000, MemFloor: 1000}
	shares := strategy.Compute(Limits{CPUPercent: 50, MemoryMB: 50}, []int{1})

	assert.LessOrEqual(t, shares[0].CPUPercent, 50.0)
}

func TestStrategiesReturnNilForZeroAgents(t *testing.T) {
	assert.Nil(t, EvenStrategy{}.Compute(Limits{CPUPercent: 100, MemoryMB: 1000}, nil))
	assert.Nil(t, PriorityBasedStrategy{}.Compute(Limits{CPUPercent: 100, MemoryMB: 1000}, nil))
	assert.Nil(t, FCFSStrategy{}.Compute(Limits{CPUPercent: 100, MemoryMB: 1000}, nil))
}
