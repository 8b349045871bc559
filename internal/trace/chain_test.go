package trace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBeginCreatesActiveTraceWithTraceIDPrefix(t *testing.T) {
	chain := New(nil)
	traceID := chain.Begin("agent_1", "greet")

	assert.True(t, len(traceID) > len("trace_"))
	assert.Equal(t, "trace_", traceID[:6])

	status, ok := chain.Status(traceID)
	require.True(t, ok)
	assert.Equal(t, StatusActive, status)
	assert.Equal(t, 1, chain.ActiveCount())

	entries := chain.Entries(traceID)
	require.Len(t, entries, 1)
	assert.Equal(t, "trace.begin", entries[0].EventType)
	assert.Nil(t, entries[0].PrevHash)
}

func TestRecordEventChainsOffPreviousHash(t *testing.T) {
	chain := New(nil)
	traceID := chain.Begin("agent_1", "greet")

	chain.RecordEvent("agent_1", "plugin.invoke", map[string]interface{}{"plugin_id": "echo"})

	entries := chain.Entries(traceID)
	require.Len(t, entries, 2)
	require.NotNil(t, entries[1].PrevHash)
	assert.Equal(t, entries[0].Hash, *entries[1].PrevHash)
	assert.NotEqual(t, entries[0].Hash, entries[1].Hash)
}

func TestRecordEventWithoutActiveTraceBeginsGeneral(t *testing.T) {
	chain := New(nil)
	traceID := chain.RecordEvent("agent_2", "plugin.invoke", nil)

	entries := chain.Entries(traceID)
	require.Len(t, entries, 2)
	assert.Equal(t, "trace.begin", entries[0].EventType)
	assert.Equal(t, "general", entries[0].Data.(map[string]interface{})["intent"])
}

func TestEndClosesTraceAndRemovesFromActiveSet(t *testing.T) {
	chain := New(nil)
	traceID := chain.Begin("agent_1", "greet")

	err := chain.End(traceID, true, map[string]interface{}{"ok": true})
	require.NoError(t, err)

	status, ok := chain.Status(traceID)
	require.True(t, ok)
	assert.Equal(t, StatusCompleted, status)
	assert.Equal(t, 0, chain.ActiveCount())

	entries := chain.Entries(traceID)
	require.Len(t, entries, 2)
	assert.Equal(t, "trace.end", entries[1].EventType)
}

func TestEndOnFailureMarksFailed(t *testing.T) {
	chain := New(nil)
	traceID := chain.Begin("agent_1", "greet")

	err := chain.End(traceID, false, nil)
	require.NoError(t, err)

	status, _ := chain.Status(traceID)
	assert.Equal(t, StatusFailed, status)
}

func TestEndOnUnknownTraceReturnsTraceError(t *testing.T) {
	chain := New(nil)
	err := chain.End("trace_nonexistent", true, nil)
	require.Error(t, err)
}

func TestExportProofSummarizesEntryCountAndRootHash(t *testing.T) {
	chain := New(nil)
	traceID := chain.Begin("agent_1", "greet")
	chain.RecordEvent("agent_1", "plugin.invoke", nil)
	require.NoError(t, chain.End(traceID, true, nil))

	proof, err := chain.ExportProof(traceID)
	require.NoError(t, err)

	entries := chain.Entries(traceID)
	assert.Equal(t, traceID, proof.TraceID)
	assert.Equal(t, "agent_1", proof.AgentID)
	assert.Equal(t, len(entries), proof.Entries)
	assert.Equal(t, entries[len(entries)-1].Hash, proof.RootHash)
	assert.Empty(t, proof.Signature)
}

func TestExportProofWithSignerAttachesVerifiableSignature(t *testing.T) {
	signer, err := NewSigner()
	require.NoError(t, err)

	chain := New(signer)
	traceID := chain.Begin("agent_1", "greet")
	require.NoError(t, chain.End(traceID, true, nil))

	proof, err := chain.ExportProof(traceID)
	require.NoError(t, err)
	require.NotEmpty(t, proof.Signature)

	valid, err := signer.Verify(proof, proof.Signature)
	require.NoError(t, err)
	assert.True(t, valid)
}

func TestExportProofUnknownTraceFails(t *testing.T) {
	chain := New(nil)
	_, err := chain.ExportProof("trace_missing")
	require.Error(t, err)
}

func TestTwoAgentsGetIndependentTraces(t *testing.T) {
	chain := New(nil)
	first := chain.Begin("agent_1", "greet")
	second := chain.Begin("agent_2", "greet")

	assert.NotEqual(t, first, second)
	assert.Equal(t, 2, chain.ActiveCount())
}
