package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeterministicID(t *testing.T) {
	cfg := Config{Name: "test_agent", Intents: []string{"greet"}}

	id1 := ID(cfg)
	id2 := ID(cfg)

	require.Equal(t, id1, id2)
	assert.Regexp(t, `^agent_[0-9a-f]{16}$`, id1)
}

func TestIDIgnoresMetadataOrdering(t *testing.T) {
	cfgA := Config{Name: "a", Metadata: map[string]interface{}{"x": 1, "y": 2}}
	cfgB := Config{Name: "a", Metadata: map[string]interface{}{"y": 2, "x": 1}}

	assert.Equal(t, ID(cfgA), ID(cfgB))
}

func TestDifferentConfigsDifferentIDs(t *testing.T) {
	id1 := ID(Config{Name: "agent_one"})
	id2 := ID(Config{Name: "agent_two"})
	assert.NotEqual(t, id1, id2)
}

func TestAllowsIntent(t *testing.T) {
	a := New(Config{Name: "test", Intents: []string{"greet", "wave"}})

	assert.True(t, a.AllowsIntent("greet"))
	assert.False(t, a.AllowsIntent("destroy"))
}

func TestAttachPluginIdempotent(t *testing.T) {
	a := New(Config{Name: "test"})

	a.AttachPlugin("plugin_1", true)
	a.AttachPlugin("plugin_1", true)

	assert.True(t, a.HasPlugin("plugin_1"))
}

func TestStateSnapshotIsCopy(t *testing.T) {
	a := New(Config{Name: "test"})
	a.SetState("counter", 1)

	snap := a.StateSnapshot()
	snap["counter"] = 99

	assert.Equal(t, 1, a.StateSnapshot()["counter"])
}

func TestRegistryUpsertCollapsesOnDeterministicID(t *testing.T) {
	r := NewRegistry()
	cfg := Config{Name: "dup"}

	r.Upsert(New(cfg))
	r.Upsert(New(cfg))

	assert.Equal(t, 1, r.Len())
}

func TestRegistryGetContainsRemove(t *testing.T) {
	r := NewRegistry()
	a := New(Config{Name: "one"})
	r.Upsert(a)

	assert.True(t, r.Contains(a.ID()))
	got, ok := r.Get(a.ID())
	require.True(t, ok)
	assert.Equal(t, a, got)

	r.Remove(a.ID())
	assert.False(t, r.Contains(a.ID()))
}
