package core

import (
	"errors"
	"fmt"
)

// ErrNoRays is returned when a render call is given an empty batch
var ErrNoRays = &ConfigurationError{Field: "rays", Reason: "batch contains no rays"}

// ConfigurationError reports invalid render input detected before any field query
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsConfigurationError reports whether err wraps a ConfigurationError
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}
