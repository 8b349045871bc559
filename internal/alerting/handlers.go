package alerting

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/aegis-kernel/mcpkernel/infrastructure/logging"
)

// ConsoleHandler logs alerts through a structured logger at the
// severity-appropriate level.
type ConsoleHandler struct {
	log      *logging.Logger
	minLevel Level
}

// NewConsoleHandler creates a ConsoleHandler that logs through log, passing
// through alerts at or above minLevel.
func NewConsoleHandler(log *logging.Logger, minLevel Level) *ConsoleHandler {
	return &ConsoleHandler{log: log, minLevel: minLevel}
}

func (c *ConsoleHandler) MinLevel() Level { return c.minLevel }

func (c *ConsoleHandler) Handle(alert Alert) error {
	ctx := context.Background()
	fields := map[string]interface{}{
		"resource": alert.Resource,
		"level":    alert.Level.String(),
	}
	switch alert.Level {
	case Fatal, Critical:
		c.log.Error(ctx, alert.Message, nil, fields)
	case Warning:
		c.log.Warn(ctx, alert.Message, fields)
	default:
		c.log.Info(ctx, alert.Message, fields)
	}
	return nil
}

// FileHandler appends one line per alert to a file, creating it if needed:
// "{rfc3339 timestamp} [{LEVEL}] {message}\n".
type FileHandler struct {
	mu       sync.Mutex
	path     string
	minLevel Level
}

// NewFileHandler creates a FileHandler writing to path, passing through
// alerts at or above minLevel.
func NewFileHandler(path string, minLevel Level) *FileHandler {
	return &FileHandler{path: path, minLevel: minLevel}
}

func (f *FileHandler) MinLevel() Level { return f.minLevel }

func (f *FileHandler) Handle(alert Alert) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	file, err := os.OpenFile(f.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()

	line := fmt.Sprintf("%s [%s] %s\n", alert.Timestamp.Format(time.RFC3339), alert.Level.String(), alert.Message)
	_, err = file.WriteString(line)
	return err
}
