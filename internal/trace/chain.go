// Package trace implements the hash-linked per-agent event log: begin,
// record_event, and end build an append-only chain of entries per trace,
// and export_proof produces a verifiable summary of a completed or
// in-flight trace.
package trace

import (
	"fmt"
	"sync"
	"time"

	kernelerr "github.com/aegis-kernel/mcpkernel/infrastructure/errors"
	"github.com/aegis-kernel/mcpkernel/infrastructure/metrics"
)

// Status is the lifecycle state of a trace.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Entry is one hash-linked event in a trace.
type Entry struct {
	EventType string      `json:"event_type"`
	Data      interface{} `json:"data"`
	PrevHash  *string     `json:"prev_hash"`
	Hash      string      `json:"hash"`
}

// traceContext is the live bookkeeping for an in-progress (or completed)
// trace: its agent, last hash, status, and start time.
type traceContext struct {
	traceID   string
	agentID   string
	lastHash  string
	status    Status
	startTime time.Time
}

// Chain holds every trace's context and entries for the lifetime of the
// kernel process. Traces are held in memory only; export_proof is the
// mechanism by which a caller persists a durable summary elsewhere.
type Chain struct {
	mu      sync.RWMutex
	active  map[string]*traceContext // trace_id -> context, Active traces only
	byAgent map[string]string        // agent_id -> trace_id, Active traces only
	all     map[string]*traceContext // trace_id -> context, every trace ever begun
	entries map[string][]Entry       // trace_id -> entries in append order
	signer  *Signer
}

// New creates an empty Chain. If signer is non-nil, exported proofs carry an
// auxiliary ECDSA signature over their contract fields.
func New(signer *Signer) *Chain {
	return &Chain{
		active:  make(map[string]*traceContext),
		byAgent: make(map[string]string),
		all:     make(map[string]*traceContext),
		entries: make(map[string][]Entry),
		signer:  signer,
	}
}

// Begin starts a new trace for agentID with the given intent and returns its
// trace_id.
func (c *Chain) Begin(agentID, intent string) string {
	now := time.Now().Unix()
	sum := hashChain(agentID, intent, fmt.Sprintf("%d", now))
	initialHash := hashHex(sum)
	traceID := "trace_" + firstHexChars(sum, 16)

	ctx := &traceContext{
		traceID:   traceID,
		agentID:   agentID,
		lastHash:  initialHash,
		status:    StatusActive,
		startTime: time.Now(),
	}

	entry := Entry{
		EventType: "trace.begin",
		Data: map[string]interface{}{
			"intent":    intent,
			"timestamp": now,
		},
		PrevHash: nil,
		Hash:     initialHash,
	}

	c.mu.Lock()
	c.active[traceID] = ctx
	c.byAgent[agentID] = traceID
	c.all[traceID] = ctx
	c.entries[traceID] = append(c.entries[traceID], entry)
	c.mu.Unlock()

	c.recordTraceEvent("trace.begin")
	c.updateActiveGauge()
	return traceID
}

// RecordEvent appends event_type/data to agentID's active trace, beginning a
// new trace with intent "general" if none is active.
func (c *Chain) RecordEvent(agentID, eventType string, data interface{}) string {
	c.mu.RLock()
	traceID, ok := c.byAgent[agentID]
	c.mu.RUnlock()
	if !ok {
		traceID = c.Begin(agentID, "general")
	}

	now := time.Now().Unix()

	c.mu.Lock()
	ctx, found := c.active[traceID]
	if !found {
		c.mu.Unlock()
		traceID = c.Begin(agentID, "general")
		c.mu.Lock()
		ctx = c.active[traceID]
	}

	prevHash := ctx.lastHash
	hash := hashHex(hashChain(prevHash, eventType, canonicalize(data), fmt.Sprintf("%d", now)))
	ctx.lastHash = hash

	prev := prevHash
	c.entries[traceID] = append(c.entries[traceID], Entry{
		EventType: eventType,
		Data:      data,
		PrevHash:  &prev,
		Hash:      hash,
	})
	c.mu.Unlock()

	c.recordTraceEvent(eventType)
	return traceID
}

// End appends a trace.end entry recording success/result, closes traceID out
// of the active set, and marks the context Completed or Failed.
func (c *Chain) End(traceID string, success bool, result interface{}) error {
	c.mu.Lock()
	ctx, ok := c.active[traceID]
	if !ok {
		c.mu.Unlock()
		return kernelerr.TraceError("no active trace for id", nil).WithDetails("trace_id", traceID)
	}

	now := time.Now().Unix()
	durationMS := float64(time.Since(ctx.startTime).Microseconds()) / 1000.0

	data := map[string]interface{}{
		"success":     success,
		"duration_ms": durationMS,
	}
	if result != nil {
		data["result"] = result
	}

	prevHash := ctx.lastHash
	hash := hashHex(hashChain(prevHash, "trace.end", canonicalize(data), fmt.Sprintf("%d", now)))
	ctx.lastHash = hash

	prev := prevHash
	c.entries[traceID] = append(c.entries[traceID], Entry{
		EventType: "trace.end",
		Data:      data,
		PrevHash:  &prev,
		Hash:      hash,
	})

	if success {
		ctx.status = StatusCompleted
	} else {
		ctx.status = StatusFailed
	}
	delete(c.active, traceID)
	delete(c.byAgent, ctx.agentID)
	c.mu.Unlock()

	c.recordTraceEvent("trace.end")
	c.updateActiveGauge()
	return nil
}

// Proof is the exported summary of a trace; Signature is an auxiliary
// field beyond the five contract fields, ignorable by callers that only
// need {trace_id, agent_id, entries, root_hash, timestamp}.
type Proof struct {
	TraceID   string `json:"trace_id"`
	AgentID   string `json:"agent_id"`
	Entries   int    `json:"entries"`
	RootHash  string `json:"root_hash"`
	Timestamp int64  `json:"timestamp"`
	Signature string `json:"signature,omitempty"`
}

// ExportProof collects a trace's entries in append order and summarizes them
// as {trace_id, agent_id, entries: count, root_hash: last entry's hash,
// timestamp}. Callers verify independently by replaying H over the ordered
// entries and comparing against root_hash.
func (c *Chain) ExportProof(traceID string) (*Proof, error) {
	c.mu.RLock()
	ctx, ok := c.all[traceID]
	entries := c.entries[traceID]
	c.mu.RUnlock()

	if !ok || len(entries) == 0 {
		return nil, kernelerr.TraceError("no trace found for id", nil).WithDetails("trace_id", traceID)
	}

	proof := &Proof{
		TraceID:   traceID,
		AgentID:   ctx.agentID,
		Entries:   len(entries),
		RootHash:  entries[len(entries)-1].Hash,
		Timestamp: time.Now().Unix(),
	}

	if c.signer != nil {
		signature, err := c.signer.Sign(proof)
		if err != nil {
			return nil, err
		}
		proof.Signature = signature
	}

	return proof, nil
}

// Entries returns a copy of traceID's entries in append order.
func (c *Chain) Entries(traceID string) []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	src := c.entries[traceID]
	out := make([]Entry, len(src))
	copy(out, src)
	return out
}

// Status returns traceID's current lifecycle status.
func (c *Chain) Status(traceID string) (Status, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ctx, ok := c.all[traceID]
	if !ok {
		return "", false
	}
	return ctx.status, true
}

// ActiveCount returns the number of currently active traces.
func (c *Chain) ActiveCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.active)
}

func (c *Chain) recordTraceEvent(eventType string) {
	if metrics.Enabled() {
		metrics.Global().RecordTraceEvent("mcpkernel", eventType)
	}
}

func (c *Chain) updateActiveGauge() {
	if metrics.Enabled() {
		metrics.Global().SetTraceChainsActive(c.ActiveCount())
	}
}
