package component

import (
	"errors"
	"fmt"
)

// ConfigError indicates a config failed validation or had the wrong dynamic
// type for its kind.
type ConfigError struct {
	Kind   Kind
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("component: invalid %s configuration: %s", e.Kind, e.Reason)
}

// ErrorCode implements the stable-code contract used by telemetry.
func (e *ConfigError) ErrorCode() string { return "config_invalid" }

// IsConfigError reports whether err is (or wraps) a ConfigError.
func IsConfigError(err error) bool {
	var target *ConfigError
	return errors.As(err, &target)
}

// StateError indicates an operation was attempted from an illegal state.
type StateError struct {
	Kind Kind
	From State
	Op   string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("component: %s on %s component is illegal from state %s", e.Op, e.Kind, e.From)
}

func (e *StateError) ErrorCode() string { return "invalid_state" }

// CreationError wraps an adapter failure to construct a service.
type CreationError struct {
	Kind Kind
	Err  error
}

func (e *CreationError) Error() string {
	return fmt.Sprintf("component: create %s service: %v", e.Kind, e.Err)
}

func (e *CreationError) Unwrap() error { return e.Err }

func (e *CreationError) ErrorCode() string { return "service_creation_failed" }
