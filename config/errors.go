package config

import "fmt"

// ConfigurationError reports an invalid configuration value. A scan never
// starts with a configuration that produced one.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s %s", e.Field, e.Reason)
}
