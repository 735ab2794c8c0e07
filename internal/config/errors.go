package config

import (
	"errors"
	"fmt"
)

// ConfigurationError reports a missing or invalid setting
type ConfigurationError struct {
	Key    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Key, e.Reason)
}

// IsConfigurationError reports whether err is or wraps a *ConfigurationError
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}
