// Package agent defines the in-memory agent object the kernel orchestrates:
// identity, configuration, lifecycle status, attached plugins, and free-form
// state.
package agent

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"sync"
	"time"
)

// Status is the lifecycle state of an agent.
type Status string

const (
	StatusActive     Status = "active"
	StatusRecovered  Status = "recovered"
	StatusPaused     Status = "paused"
	StatusTerminated Status = "terminated"
)

// Config is the immutable configuration an agent is spawned from. Its
// canonical JSON serialization determines the agent's id.
type Config struct {
	Name          string                 `json:"name"`
	EntryPlugin   string                 `json:"entry_plugin,omitempty"`
	Intents       []string               `json:"intents"`
	MaxCPUPercent float64                `json:"max_cpu_percent,omitempty"`
	MaxMemoryMB   uint64                 `json:"max_memory_mb,omitempty"`
	Priority      int                    `json:"priority,omitempty"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
}

// PluginHandle is the agent-side record of an attached plugin. The plugin
// host owns the compiled module; the agent only tracks that it is attached.
type PluginHandle struct {
	PluginID string
	Loaded   bool
}

// Agent is the kernel's in-memory representation of a spawned or recovered
// orchestration unit.
type Agent struct {
	mu sync.RWMutex

	id        string
	config    Config
	status    Status
	plugins   map[string]*PluginHandle
	state     map[string]interface{}
	createdAt int64
	updatedAt int64
}

// ID returns the deterministic agent_<16-hex> identifier computed from Config.
func ID(cfg Config) string {
	return "agent_" + first16Hex(canonicalHash(cfg))
}

// New constructs an Agent in StatusActive from cfg. The id is derived
// deterministically from cfg; cfg itself must not be mutated afterward.
func New(cfg Config) *Agent {
	now := time.Now().Unix()
	return &Agent{
		id:        ID(cfg),
		config:    cfg,
		status:    StatusActive,
		plugins:   make(map[string]*PluginHandle),
		state:     make(map[string]interface{}),
		createdAt: now,
		updatedAt: now,
	}
}

// Restore reconstructs an Agent from a previously snapshotted Config/state
// pair, placing it in StatusRecovered.
func Restore(cfg Config, state map[string]interface{}, createdAt int64) *Agent {
	if state == nil {
		state = make(map[string]interface{})
	}
	now := time.Now().Unix()
	return &Agent{
		id:        ID(cfg),
		config:    cfg,
		status:    StatusRecovered,
		plugins:   make(map[string]*PluginHandle),
		state:     state,
		createdAt: createdAt,
		updatedAt: now,
	}
}

func (a *Agent) ID() string { return a.id }

// Config returns a copy of the agent's configuration. Config is immutable
// after construction; callers must not rely on mutating the returned value.
func (a *Agent) Config() Config {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.config
}

func (a *Agent) Status() Status {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.status
}

func (a *Agent) SetStatus(s Status) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.status = s
	a.updatedAt = time.Now().Unix()
}

// AllowsIntent reports whether intent is in the agent's allowed intent set.
func (a *Agent) AllowsIntent(intent string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for _, allowed := range a.config.Intents {
		if allowed == intent {
			return true
		}
	}
	return false
}

// AttachPlugin registers a plugin handle on the agent. Idempotent by id.
func (a *Agent) AttachPlugin(pluginID string, loaded bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if existing, ok := a.plugins[pluginID]; ok {
		existing.Loaded = existing.Loaded || loaded
		return
	}
	a.plugins[pluginID] = &PluginHandle{PluginID: pluginID, Loaded: loaded}
	a.updatedAt = time.Now().Unix()
}

// HasPlugin reports whether pluginID is attached.
func (a *Agent) HasPlugin(pluginID string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.plugins[pluginID]
	return ok
}

// EntryPlugin returns the configured entry plugin id, or "" if unset.
func (a *Agent) EntryPlugin() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.config.EntryPlugin
}

// StateSnapshot returns a shallow copy of the agent's state map, suitable for
// handing to a plugin invocation or to Storage.
func (a *Agent) StateSnapshot() map[string]interface{} {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make(map[string]interface{}, len(a.state))
	for k, v := range a.state {
		out[k] = v
	}
	return out
}

// SetState writes a single state key.
func (a *Agent) SetState(key string, value interface{}) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state[key] = value
	a.updatedAt = time.Now().Unix()
}

func (a *Agent) CreatedAt() int64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.createdAt
}

func (a *Agent) UpdatedAt() int64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.updatedAt
}

// canonicalHash hashes the canonical JSON form of cfg: keys in a stable
// struct field order plus sorted map keys within Metadata, so identical
// configs always hash identically regardless of map iteration order.
func canonicalHash(cfg Config) []byte {
	canonical := canonicalConfig{
		Name:          cfg.Name,
		EntryPlugin:   cfg.EntryPlugin,
		Intents:       append([]string(nil), cfg.Intents...),
		MaxCPUPercent: cfg.MaxCPUPercent,
		MaxMemoryMB:   cfg.MaxMemoryMB,
		Priority:      cfg.Priority,
		Metadata:      sortedMetadata(cfg.Metadata),
	}
	data, _ := json.Marshal(canonical)
	sum := sha256.Sum256(data)
	return sum[:]
}

type canonicalConfig struct {
	Name          string          `json:"name"`
	EntryPlugin   string          `json:"entry_plugin"`
	Intents       []string        `json:"intents"`
	MaxCPUPercent float64         `json:"max_cpu_percent"`
	MaxMemoryMB   uint64          `json:"max_memory_mb"`
	Priority      int             `json:"priority"`
	Metadata      []metadataEntry `json:"metadata"`
}

type metadataEntry struct {
	Key   string      `json:"key"`
	Value interface{} `json:"value"`
}

func sortedMetadata(m map[string]interface{}) []metadataEntry {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]metadataEntry, 0, len(keys))
	for _, k := range keys {
		out = append(out, metadataEntry{Key: k, Value: m[k]})
	}
	return out
}

func first16Hex(sum []byte) string {
	return hex.EncodeToString(sum)[:16]
}
