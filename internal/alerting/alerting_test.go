package alerting

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	minLevel Level
	received []Alert
}

func (r *recordingHandler) MinLevel() Level { return r.minLevel }
func (r *recordingHandler) Handle(alert Alert) error {
	r.received = append(r.received, alert)
	return nil
}

func TestEmitSkipsHandlersBelowMinLevel(t *testing.T) {
	manager := NewManager()
	info := &recordingHandler{minLevel: Info}
	critical := &recordingHandler{minLevel: Critical}
	manager.Register(info)
	manager.Register(critical)

	err := manager.Emit(Alert{Level: Warning, Resource: "cpu", Message: "high usage"})
	require.NoError(t, err)

	assert.Len(t, info.received, 1)
	assert.Len(t, critical.received, 0)
}

func TestLevelOrdering(t *testing.T) {
	assert.True(t, Info < Warning)
	assert.True(t, Warning < Critical)
	assert.True(t, Critical < Fatal)
}

func TestFileHandlerAppendsFormattedLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alerts.log")
	handler := NewFileHandler(path, Info)

	alert := Alert{Level: Warning, Resource: "memory", Message: "over threshold", Timestamp: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
	require.NoError(t, handler.Handle(alert))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "2026-01-02T03:04:05Z [WARNING] over threshold\n", string(content))
}

func TestFileHandlerAppendsAcrossMultipleAlerts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alerts.log")
	handler := NewFileHandler(path, Info)

	require.NoError(t, handler.Handle(Alert{Level: Info, Message: "first", Timestamp: time.Now()}))
	require.NoError(t, handler.Handle(Alert{Level: Warning, Message: "second", Timestamp: time.Now()}))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := 0
	for _, b := range content {
		if b == '\n' {
			lines++
		}
	}
	assert.Equal(t, 2, lines)
}
