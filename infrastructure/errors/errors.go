// Package errors provides the closed set of kernel-level error kinds used
// across the agent kernel, plugin host, trace chain, ethical tree, and
// hardware manager.
package errors

import (
	"errors"
	"fmt"
)

// Kind identifies one of the kernel's error categories (spec §7).
type Kind string

const (
	KindAgentNotFound             Kind = "AGENT_NOT_FOUND"
	KindPluginNotFound            Kind = "PLUGIN_NOT_FOUND"
	KindResourceLimitExceeded     Kind = "RESOURCE_LIMIT_EXCEEDED"
	KindPermissionDenied          Kind = "PERMISSION_DENIED"
	KindInvalidConfiguration      Kind = "INVALID_CONFIGURATION"
	KindStorageError              Kind = "STORAGE_ERROR"
	KindExecutionError            Kind = "EXECUTION_ERROR"
	KindEthicalConstraintViolated Kind = "ETHICAL_CONSTRAINT_VIOLATED"
	KindTraceError                Kind = "TRACE_ERROR"
	KindInternal                  Kind = "INTERNAL"

	// Hardware-manager-only kinds.
	KindMonitoringError Kind = "MONITORING_ERROR"
	KindConfigError     Kind = "CONFIG_ERROR"
	KindSystemError     Kind = "SYSTEM_ERROR"
)

// KernelError is a structured error carrying a Kind, a free-text message,
// an optional wrapped cause, and optional structured details.
type KernelError struct {
	Kind    Kind
	Message string
	Err     error
	Details map[string]interface{}
}

// Error implements the error interface.
func (e *KernelError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error, if any.
func (e *KernelError) Unwrap() error {
	return e.Err
}

// WithDetails attaches a key/value pair to the error and returns it for chaining.
func (e *KernelError) WithDetails(key string, value interface{}) *KernelError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates a KernelError with no wrapped cause.
func New(kind Kind, message string) *KernelError {
	return &KernelError{Kind: kind, Message: message}
}

// Wrap creates a KernelError that wraps an existing error.
func Wrap(kind Kind, message string, err error) *KernelError {
	return &KernelError{Kind: kind, Message: message, Err: err}
}

// Constructors for each kind, mirroring the shape kernel callers expect.

func AgentNotFound(agentID string) *KernelError {
	return New(KindAgentNotFound, "agent not found").WithDetails("agent_id", agentID)
}

func PluginNotFound(pluginID string) *KernelError {
	return New(KindPluginNotFound, "plugin not found").WithDetails("plugin_id", pluginID)
}

func ResourceLimitExceeded(resource string) *KernelError {
	return New(KindResourceLimitExceeded, "resource limit exceeded").WithDetails("resource", resource)
}

func PermissionDenied(reason string) *KernelError {
	return New(KindPermissionDenied, reason)
}

func InvalidConfiguration(field, reason string) *KernelError {
	return New(KindInvalidConfiguration, "invalid configuration").
		WithDetails("field", field).
		WithDetails("reason", reason)
}

func StorageError(operation string, err error) *KernelError {
	return Wrap(KindStorageError, "storage operation failed", err).WithDetails("operation", operation)
}

func ExecutionError(cause error) *KernelError {
	return Wrap(KindExecutionError, "execution failed", cause)
}

func EthicalConstraintViolated(rulePath string) *KernelError {
	return New(KindEthicalConstraintViolated, "denied by ethical constraint").WithDetails("rule_path", rulePath)
}

func TraceError(message string, err error) *KernelError {
	return Wrap(KindTraceError, message, err)
}

func Internal(message string, err error) *KernelError {
	return Wrap(KindInternal, message, err)
}

func MonitoringError(message string, err error) *KernelError {
	return Wrap(KindMonitoringError, message, err)
}

func ConfigError(message string) *KernelError {
	return New(KindConfigError, message)
}

func SystemError(message string, err error) *KernelError {
	return Wrap(KindSystemError, message, err)
}

// Is reports whether err is a *KernelError of the given kind.
func Is(err error, kind Kind) bool {
	var ke *KernelError
	if errors.As(err, &ke) {
		return ke.Kind == kind
	}
	return false
}

// As extracts a *KernelError from err's chain, if present.
func As(err error) (*KernelError, bool) {
	var ke *KernelError
	ok := errors.As(err, &ke)
	return ke, ok
}
