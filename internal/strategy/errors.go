package strategy

import "fmt"

// ConfigError reports an invalid strategy override or restriction.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("strategy config error: %s", e.Message)
}
