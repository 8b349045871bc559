// Package pluginhost loads capability-scoped bytecode modules from a plugin
// directory and executes them inside an isolated sandbox with a narrow
// host-call ABI (set_result/get_intent over simulated linear memory).
package pluginhost

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aegis-kernel/mcpkernel/infrastructure/cache"
	kernelerr "github.com/aegis-kernel/mcpkernel/infrastructure/errors"
	"github.com/aegis-kernel/mcpkernel/infrastructure/logging"
	"github.com/aegis-kernel/mcpkernel/infrastructure/metrics"
	"github.com/dop251/goja"
)

// memorySize is the size of the simulated linear memory buffer handed to
// each plugin invocation, matching a single wasm page (64 KiB).
const memorySize = 64 * 1024

// compiledModuleTTL governs how long a compiled module stays cached before a
// subsequent Load recompiles it from disk, so a plugin directory update
// eventually takes effect without requiring a process restart.
const compiledModuleTTL = 30 * time.Minute

// Host loads and caches compiled plugin modules from a configured directory
// and executes intents against them through the plugin ABI.
type Host struct {
	dir   string
	log   *logging.Logger
	cache *cache.Cache
}

// New creates a Host rooted at pluginDir.
func New(pluginDir string, log *logging.Logger) *Host {
	return &Host{
		dir: pluginDir,
		log: log,
		cache: cache.New(cache.Config{
			DefaultTTL:      compiledModuleTTL,
			CleanupInterval: compiledModuleTTL,
		}),
	}
}

// AttachPlaceholder returns a not-yet-loaded Plugin record for id, used when
// an agent attaches a plugin by id before its module is resolved.
func (h *Host) AttachPlaceholder(id string) *Plugin {
	return placeholder(id)
}

// Load returns a cached Plugin handle for id, compiling and caching it on
// first access or after the cached entry's TTL lapses. Compile-on-miss may
// race under concurrent callers; both racers compile the same bytecode and
// the cache converges on whichever write lands last.
func (h *Host) Load(id string) (*Plugin, error) {
	if cached, ok := h.cache.Get(id); ok {
		return cached.(*Plugin), nil
	}

	modulePath := filepath.Join(h.dir, id+".wasm")
	source, err := os.ReadFile(modulePath)
	if err != nil {
		return nil, kernelerr.PluginNotFound(id)
	}

	program, err := goja.Compile(id+".wasm", string(source), false)
	if err != nil {
		return nil, kernelerr.Wrap(kernelerr.KindExecutionError, "plugin compilation failed", err).
			WithDetails("plugin_id", id)
	}

	caps, meta := h.loadManifest(id)

	plugin := &Plugin{
		ID:           id,
		Capabilities: caps,
		Metadata:     meta,
		Module:       program,
		Loaded:       true,
	}

	h.cache.Set(id, plugin, 0)

	if metrics.Enabled() {
		metrics.Global().RecordPluginCompilation("mcpkernel", id)
	}

	return plugin, nil
}

func (h *Host) loadManifest(id string) (Capabilities, Metadata) {
	manifestPath := filepath.Join(h.dir, id+".cap.yaml")
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return DefaultCapabilities(), Metadata{}
	}

	var manifest struct {
		Capabilities `yaml:",inline"`
		Metadata     `yaml:",inline"`
	}
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		if h.log != nil {
			h.log.Warn(context.Background(), "plugin manifest parse failed, using defaults", map[string]interface{}{
				"plugin_id": id,
				"error":     err.Error(),
			})
		}
		return DefaultCapabilities(), Metadata{}
	}
	return manifest.Capabilities, manifest.Metadata
}

// InvocationDuration measures how long an Invoke call took, for metrics and
// audit logging by callers.
func InvocationDuration(start time.Time) time.Duration {
	return time.Since(start)
}
