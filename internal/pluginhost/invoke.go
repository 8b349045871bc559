package pluginhost

import (
	"encoding/json"
	"time"

	"github.com/dop251/goja"
	"github.com/tidwall/gjson"

	kernelerr "github.com/aegis-kernel/mcpkernel/infrastructure/errors"
	"github.com/aegis-kernel/mcpkernel/infrastructure/metrics"
)

// invocationState is the per-call plugin state tuple bound into the
// sandbox: agent_id, intent, a state snapshot, and wherever the plugin's
// set_result call lands.
type invocationState struct {
	agentID       string
	intent        string
	stateSnapshot map[string]interface{}
	result        interface{}
	resultSet     bool
}

// defaultResult is returned when a plugin returns without ever calling
// host.set_result.
func defaultResult() map[string]interface{} {
	return map[string]interface{}{"status": "executed", "result": nil}
}

// Invoke runs plugin's compiled module in a fresh sandbox bound to the given
// intent, agent id, and state snapshot, and returns whatever the plugin
// stored via host.set_result (or the default result if nothing was stored).
//
// Each invocation gets its own goja.Runtime and its own linear-memory
// ArrayBuffer; nothing is shared across calls, and the plugin has no ambient
// access to the host environment beyond the set_result/get_intent ABI.
func (h *Host) Invoke(plugin *Plugin, intent, agentID string, stateSnapshot map[string]interface{}) (interface{}, error) {
	start := time.Now()
	if !plugin.Loaded || plugin.Module == nil {
		h.recordInvocation(plugin.ID, "failed", start)
		return nil, kernelerr.PluginNotFound(plugin.ID)
	}

	vm := goja.New()
	memory := make([]byte, memorySize)
	arrayBuffer := vm.NewArrayBuffer(memory)
	if err := vm.Set("memory", arrayBuffer); err != nil {
		return nil, kernelerr.Wrap(kernelerr.KindExecutionError, "failed to bind plugin memory", err)
	}

	state := &invocationState{
		agentID:       agentID,
		intent:        intent,
		stateSnapshot: stateSnapshot,
	}

	host := vm.NewObject()
	if err := host.Set("set_result", makeSetResult(vm, memory, state)); err != nil {
		h.recordInvocation(plugin.ID, "failed", start)
		return nil, kernelerr.Wrap(kernelerr.KindExecutionError, "failed to bind host.set_result", err)
	}
	if err := host.Set("get_intent", makeGetIntent(vm, memory, state)); err != nil {
		h.recordInvocation(plugin.ID, "failed", start)
		return nil, kernelerr.Wrap(kernelerr.KindExecutionError, "failed to bind host.get_intent", err)
	}
	if err := vm.Set("host", host); err != nil {
		h.recordInvocation(plugin.ID, "failed", start)
		return nil, kernelerr.Wrap(kernelerr.KindExecutionError, "failed to bind host object", err)
	}

	if _, err := vm.RunProgram(plugin.Module); err != nil {
		h.recordInvocation(plugin.ID, "failed", start)
		return nil, kernelerr.Wrap(kernelerr.KindExecutionError, "plugin module load failed", err).
			WithDetails("plugin_id", plugin.ID)
	}

	execute, ok := goja.AssertFunction(vm.Get("execute"))
	if !ok {
		h.recordInvocation(plugin.ID, "failed", start)
		return nil, kernelerr.New(kernelerr.KindExecutionError, "plugin does not export execute()").
			WithDetails("plugin_id", plugin.ID)
	}

	if _, err := execute(goja.Undefined()); err != nil {
		h.recordInvocation(plugin.ID, "failed", start)
		return nil, kernelerr.Wrap(kernelerr.KindExecutionError, "plugin execution failed", err).
			WithDetails("plugin_id", plugin.ID)
	}

	h.recordInvocation(plugin.ID, "success", start)
	if state.resultSet {
		return state.result, nil
	}
	return defaultResult(), nil
}

func (h *Host) recordInvocation(pluginID, status string, start time.Time) {
	if metrics.Enabled() {
		metrics.Global().RecordPluginInvocation("mcpkernel", pluginID, status, InvocationDuration(start))
	}
}

// makeSetResult implements host.set_result(ptr, len): parses memory[ptr:ptr+len]
// as JSON and stores it as the invocation's result.
func makeSetResult(vm *goja.Runtime, memory []byte, state *invocationState) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		ptr := int(call.Argument(0).ToInteger())
		length := int(call.Argument(1).ToInteger())

		if ptr < 0 || length < 0 || ptr+length > len(memory) {
			panic(vm.NewGoError(kernelerr.New(kernelerr.KindExecutionError, "set_result: out-of-bounds memory access")))
		}

		raw := memory[ptr : ptr+length]
		if !gjson.ValidBytes(raw) {
			panic(vm.NewGoError(kernelerr.New(kernelerr.KindExecutionError, "set_result: malformed JSON payload")))
		}

		var value interface{}
		if err := json.Unmarshal(raw, &value); err != nil {
			panic(vm.NewGoError(kernelerr.Wrap(kernelerr.KindExecutionError, "set_result: JSON decode failed", err)))
		}

		state.result = value
		state.resultSet = true
		return goja.Undefined()
	}
}

// makeGetIntent implements host.get_intent(ptr): writes the UTF-8 intent
// bytes starting at ptr and returns the byte count written.
func makeGetIntent(vm *goja.Runtime, memory []byte, state *invocationState) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		ptr := int(call.Argument(0).ToInteger())
		intentBytes := []byte(state.intent)

		if ptr < 0 || ptr+len(intentBytes) > len(memory) {
			panic(vm.NewGoError(kernelerr.New(kernelerr.KindExecutionError, "get_intent: out-of-bounds memory access")))
		}

		copy(memory[ptr:ptr+len(intentBytes)], intentBytes)
		return vm.ToValue(len(intentBytes))
	}
}
