package kernel

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegis-kernel/mcpkernel/infrastructure/logging"
	"github.com/aegis-kernel/mcpkernel/internal/agent"
	"github.com/aegis-kernel/mcpkernel/internal/ethics"
	"github.com/aegis-kernel/mcpkernel/internal/pluginhost"
	"github.com/aegis-kernel/mcpkernel/internal/storage"
	"github.com/aegis-kernel/mcpkernel/internal/trace"
)

const echoSource = `
function execute() {
    var buf = new Uint8Array(memory);
    var n = host.get_intent(0);
    var intent = "";
    for (var i = 0; i < n; i++) {
        intent += String.fromCharCode(buf[i]);
    }
    var payload = JSON.stringify({status: "executed", result: intent});
    var bytes = [];
    for (var i = 0; i < payload.length; i++) {
        bytes.push(payload.charCodeAt(i));
    }
    for (var i = 0; i < bytes.length; i++) {
        buf[100 + i] = bytes[i];
    }
    host.set_result(100, bytes.length);
}
`

func newTestKernel(t *testing.T) (*Kernel, string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "echo.wasm"), []byte(echoSource), 0o644))

	store, err := storage.NewFileStore(filepath.Join(dir, "store"))
	require.NoError(t, err)

	log := logging.New("test", "info", "text")
	host := pluginhost.New(dir, log)
	k := New(ethics.New(), host, trace.New(nil), store, log)
	return k, dir
}

func TestSpawnReturnsDeterministicID(t *testing.T) {
	k, _ := newTestKernel(t)
	cfg := agent.Config{Name: "greeter", Intents: []string{"greet"}}

	id1, err := k.Spawn(cfg)
	require.NoError(t, err)
	id2, err := k.Spawn(cfg)
	require.NoError(t, err)
	assert.Equal(t, id1, id2)
}

func TestSpawnDeniesBlocklistedName(t *testing.T) {
	k, _ := newTestKernel(t)
	cfg := agent.Config{Name: "attacker", Intents: []string{"harm_someone"}}

	_, err := k.Spawn(cfg)
	require.Error(t, err)
}

func TestAttachPluginSucceedsAndIsIdempotent(t *testing.T) {
	k, _ := newTestKernel(t)
	cfg := agent.Config{Name: "greeter", Intents: []string{"greet"}, EntryPlugin: "echo"}
	agentID, err := k.Spawn(cfg)
	require.NoError(t, err)

	require.NoError(t, k.Attach(agentID, "echo"))
	require.NoError(t, k.Attach(agentID, "echo"))
}

func TestAttachUnknownAgentFails(t *testing.T) {
	k, _ := newTestKernel(t)
	err := k.Attach("agent_does_not_exist", "echo")
	require.Error(t, err)
}

func TestExecuteRunsEntryPluginAndReturnsResult(t *testing.T) {
	k, _ := newTestKernel(t)
	cfg := agent.Config{Name: "greeter", Intents: []string{"greet"}, EntryPlugin: "echo"}
	agentID, err := k.Spawn(cfg)
	require.NoError(t, err)
	require.NoError(t, k.Attach(agentID, "echo"))

	result, err := k.Execute(agentID, "greet")
	require.NoError(t, err)
	assert.Contains(t, string(result), "greet")
}

func TestExecuteRejectsDisallowedIntent(t *testing.T) {
	k, _ := newTestKernel(t)
	cfg := agent.Config{Name: "greeter", Intents: []string{"greet"}, EntryPlugin: "echo"}
	agentID, err := k.Spawn(cfg)
	require.NoError(t, err)
	require.NoError(t, k.Attach(agentID, "echo"))

	_, err = k.Execute(agentID, "not_allowed")
	require.Error(t, err)
}

func TestExecuteWithoutEntryPluginFails(t *testing.T) {
	k, _ := newTestKernel(t)
	cfg := agent.Config{Name: "greeter", Intents: []string{"greet"}}
	agentID, err := k.Spawn(cfg)
	require.NoError(t, err)

	_, err = k.Execute(agentID, "greet")
	require.Error(t, err)
}

func TestSnapshotAndRecoverRoundTrip(t *testing.T) {
	k, _ := newTestKernel(t)
	cfg := agent.Config{Name: "greeter", Intents: []string{"greet"}, EntryPlugin: "echo"}
	agentID, err := k.Spawn(cfg)
	require.NoError(t, err)
	require.NoError(t, k.Attach(agentID, "echo"))

	require.NoError(t, k.Snapshot(agentID))

	k2 := &Kernel{registry: k.registry, tree: k.tree, plugins: k.plugins, chain: k.chain, store: k.store, log: k.log}
	k2.registry = newRegistryWithout(k.registry, agentID)

	status, err := k2.Recover(agentID)
	require.NoError(t, err)
	assert.Equal(t, agent.StatusRecovered, status)
}

func TestRecoverAlreadyRegisteredReturnsCurrentStatus(t *testing.T) {
	k, _ := newTestKernel(t)
	cfg := agent.Config{Name: "greeter", Intents: []string{"greet"}}
	agentID, err := k.Spawn(cfg)
	require.NoError(t, err)

	status, err := k.Recover(agentID)
	require.NoError(t, err)
	assert.Equal(t, agent.StatusActive, status)
}

func TestRecoverWithoutStorageOrRegistryFails(t *testing.T) {
	k, _ := newTestKernel(t)
	_, err := k.Recover("agent_never_spawned")
	require.Error(t, err)
}

func TestShutdownSnapshotsEveryAgent(t *testing.T) {
	k, dir := newTestKernel(t)
	cfg := agent.Config{Name: "greeter", Intents: []string{"greet"}, EntryPlugin: "echo"}
	agentID, err := k.Spawn(cfg)
	require.NoError(t, err)

	k.Shutdown()

	blob, err := k.store.Load(nil, agentID)
	_ = dir
	require.NoError(t, err)
	assert.NotEmpty(t, blob)
}

func newRegistryWithout(r *agent.Registry, excludeID string) *agent.Registry {
	fresh := agent.NewRegistry()
	for _, a := range r.All() {
		if a.ID() != excludeID {
			fresh.Upsert(a)
		}
	}
	return fresh
}
