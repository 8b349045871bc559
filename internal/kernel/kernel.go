// Package kernel implements the orchestrator that ties the agent registry,
// ethical tree, plugin host, trace chain, and storage together behind five
// operations: spawn, attach, execute, recover, and snapshot.
package kernel

import (
	"context"
	"encoding/json"

	kernelerr "github.com/aegis-kernel/mcpkernel/infrastructure/errors"
	"github.com/aegis-kernel/mcpkernel/infrastructure/logging"
	"github.com/aegis-kernel/mcpkernel/infrastructure/metrics"
	"github.com/aegis-kernel/mcpkernel/internal/agent"
	"github.com/aegis-kernel/mcpkernel/internal/ethics"
	"github.com/aegis-kernel/mcpkernel/internal/pluginhost"
	"github.com/aegis-kernel/mcpkernel/internal/storage"
	"github.com/aegis-kernel/mcpkernel/internal/trace"
)

// Kernel is the agent orchestrator: a concurrent agent registry guarded by
// the ethical tree at every entry point, recording every operation to the
// trace chain.
type Kernel struct {
	registry *agent.Registry
	tree     *ethics.Tree
	plugins  *pluginhost.Host
	chain    *trace.Chain
	store    storage.Store
	log      *logging.Logger
}

// New wires a Kernel from its component parts. store may be nil, in which
// case snapshot of a registered agent and recover of an agent that is not
// in the registry fail StorageError.
func New(tree *ethics.Tree, plugins *pluginhost.Host, chain *trace.Chain, store storage.Store, log *logging.Logger) *Kernel {
	return &Kernel{
		registry: agent.NewRegistry(),
		tree:     tree,
		plugins:  plugins,
		chain:    chain,
		store:    store,
		log:      log,
	}
}

// Spawn computes a deterministic agent id from cfg, validates the spawn
// against the ethical tree, and inserts an Active agent into the registry.
func (k *Kernel) Spawn(cfg agent.Config) (string, error) {
	agentID := agent.ID(cfg)

	decision, rulePath := k.tree.ValidateSpawn(cfg.Name, cfg.Intents)
	if decision == ethics.Deny {
		k.logDenial("spawn", agentID, rulePath)
		return "", kernelerr.EthicalConstraintViolated(rulePath)
	}

	if _, exists := k.registry.Get(agentID); !exists {
		k.registry.Upsert(agent.New(cfg))
	}
	k.chain.RecordEvent(agentID, "agent.spawn", map[string]interface{}{"name": cfg.Name})
	k.recordAgentSpawned()

	return agentID, nil
}

// Attach loads pluginID through the plugin host, validates it against the
// ethical tree, and registers it on the agent (idempotent by id).
func (k *Kernel) Attach(agentID, pluginID string) error {
	a, ok := k.registry.Get(agentID)
	if !ok {
		return kernelerr.AgentNotFound(agentID)
	}

	plugin, err := k.plugins.Load(pluginID)
	if err != nil {
		return err
	}

	decision, rulePath := k.tree.ValidatePlugin(plugin.Capabilities.ExternalAccess, plugin.Capabilities.PluginCall)
	if decision == ethics.Deny {
		k.logDenial("attach", agentID, rulePath)
		return kernelerr.EthicalConstraintViolated(rulePath)
	}

	a.AttachPlugin(pluginID, plugin.Loaded)
	k.chain.RecordEvent(agentID, "agent.attach_plugin", map[string]interface{}{"plugin_id": pluginID})
	return nil
}

// Execute runs intent against agentID's entry plugin and returns its result.
func (k *Kernel) Execute(agentID, intent string) (json.RawMessage, error) {
	a, ok := k.registry.Get(agentID)
	if !ok {
		return nil, kernelerr.AgentNotFound(agentID)
	}

	status := a.Status()
	if status != agent.StatusActive && status != agent.StatusRecovered {
		return nil, kernelerr.New(kernelerr.KindExecutionError, "agent is not in an executable state").
			WithDetails("agent_id", agentID).WithDetails("status", string(status))
	}

	if !a.AllowsIntent(intent) {
		return nil, kernelerr.New(kernelerr.KindExecutionError, "intent not permitted for this agent").
			WithDetails("agent_id", agentID).WithDetails("intent", intent)
	}

	decision, rulePath := k.tree.ValidateExecution(agentID, intent)
	if decision == ethics.Deny {
		k.logDenial("execute", agentID, rulePath)
		return nil, kernelerr.EthicalConstraintViolated(rulePath)
	}

	traceID := k.chain.Begin(agentID, intent)

	entryPluginID := a.EntryPlugin()
	if entryPluginID == "" || !a.HasPlugin(entryPluginID) {
		err := kernelerr.New(kernelerr.KindExecutionError, "no entry plugin attached").WithDetails("agent_id", agentID)
		k.chain.End(traceID, false, map[string]interface{}{"error": err.Error()})
		return nil, err
	}

	plugin, err := k.plugins.Load(entryPluginID)
	if err != nil {
		k.chain.End(traceID, false, map[string]interface{}{"error": err.Error()})
		return nil, err
	}

	result, err := k.plugins.Invoke(plugin, intent, agentID, a.StateSnapshot())
	if err != nil {
		k.chain.End(traceID, false, map[string]interface{}{"error": err.Error()})
		return nil, kernelerr.ExecutionError(err)
	}

	k.chain.End(traceID, true, result)

	encoded, marshalErr := json.Marshal(result)
	if marshalErr != nil {
		return nil, kernelerr.ExecutionError(marshalErr)
	}
	return encoded, nil
}

// Recover returns the agent's status if already registered, otherwise loads
// its blob from storage and re-inserts it as Recovered.
func (k *Kernel) Recover(agentID string) (agent.Status, error) {
	if a, ok := k.registry.Get(agentID); ok {
		return a.Status(), nil
	}

	if k.store == nil {
		return "", kernelerr.StorageError("recover", nil).WithDetails("agent_id", agentID)
	}

	blob, err := k.store.Load(context.Background(), agentID)
	if err != nil {
		return "", kernelerr.StorageError("recover", err).WithDetails("agent_id", agentID)
	}

	var snapshot agentSnapshot
	if err := json.Unmarshal(blob, &snapshot); err != nil {
		return "", kernelerr.StorageError("recover", err).WithDetails("agent_id", agentID)
	}

	decision, rulePath := k.tree.ValidateRecovery(agentID)
	if decision == ethics.Deny {
		k.logDenial("recover", agentID, rulePath)
		return "", kernelerr.EthicalConstraintViolated(rulePath)
	}

	restored := agent.Restore(snapshot.Config, snapshot.State, snapshot.CreatedAt)
	k.registry.Upsert(restored)
	k.chain.RecordEvent(agentID, "agent.recover", nil)

	return agent.StatusRecovered, nil
}

// Snapshot serializes agentID's current state and hands it to storage.
func (k *Kernel) Snapshot(agentID string) error {
	a, ok := k.registry.Get(agentID)
	if !ok {
		return kernelerr.AgentNotFound(agentID)
	}
	if k.store == nil {
		return kernelerr.StorageError("snapshot", nil).WithDetails("agent_id", agentID)
	}

	snapshot := agentSnapshot{
		Config:    a.Config(),
		State:     a.StateSnapshot(),
		CreatedAt: a.CreatedAt(),
	}
	blob, err := json.Marshal(snapshot)
	if err != nil {
		return kernelerr.StorageError("snapshot", err)
	}

	if err := k.store.Save(context.Background(), agentID, blob); err != nil {
		return kernelerr.StorageError("snapshot", err)
	}
	k.chain.RecordEvent(agentID, "agent.snapshot", nil)
	return nil
}

// Shutdown attempts a best-effort snapshot of every live agent; failures are
// logged only, never returned.
func (k *Kernel) Shutdown() {
	for _, a := range k.registry.All() {
		if err := k.Snapshot(a.ID()); err != nil && k.log != nil {
			k.log.Warn(context.Background(), "shutdown snapshot failed", map[string]interface{}{
				"agent_id": a.ID(),
				"error":    err.Error(),
			})
		}
	}
}

// Registry exposes the underlying agent registry for read-only inspection.
func (k *Kernel) Registry() *agent.Registry {
	return k.registry
}

type agentSnapshot struct {
	Config    agent.Config           `json:"config"`
	State     map[string]interface{} `json:"state"`
	CreatedAt int64                  `json:"created_at"`
}

func (k *Kernel) logDenial(operation, agentID, rulePath string) {
	if k.log != nil {
		k.log.LogSecurityEvent(context.Background(), "ethical_denial", map[string]interface{}{
			"operation": operation,
			"agent_id":  agentID,
			"rule_path": rulePath,
		})
	}
	if metrics.Enabled() {
		metrics.Global().RecordEthicalEvaluation("mcpkernel", operation, false, rulePath)
	}
}

func (k *Kernel) recordAgentSpawned() {
	if metrics.Enabled() {
		metrics.Global().RecordAgentSpawned("mcpkernel")
		metrics.Global().SetAgentsActive(k.registry.Len())
	}
}
