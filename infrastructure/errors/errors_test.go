package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAgentNotFoundDetails(t *testing.T) {
	err := AgentNotFound("agent_deadbeefcafebabe")
	require.Equal(t, KindAgentNotFound, err.Kind)
	assert.Equal(t, "agent_deadbeefcafebabe", err.Details["agent_id"])
	assert.Contains(t, err.Error(), "AGENT_NOT_FOUND")
}

func TestWrapUnwrap(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := StorageError("save", cause)
	require.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "disk full")
}

func TestIsAndAs(t *testing.T) {
	var err error = ExecutionError(errors.New("plugin panicked"))
	assert.True(t, Is(err, KindExecutionError))
	assert.False(t, Is(err, KindTraceError))

	ke, ok := As(err)
	require.True(t, ok)
	assert.Equal(t, KindExecutionError, ke.Kind)
}

func TestWithDetailsChaining(t *testing.T) {
	err := InvalidConfiguration("max_cpu_percent", "must be in (0,100]").
		WithDetails("got", 150.0)
	assert.Equal(t, "max_cpu_percent", err.Details["field"])
	assert.Equal(t, 150.0, err.Details["got"])
}
