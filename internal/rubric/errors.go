package rubric

import "fmt"

// ConfigError reports an unusable rubric definition.
type ConfigError struct {
	Version string
	Message string
}

func (e *ConfigError) Error() string {
	if e.Version != "" {
		return fmt.Sprintf("rubric config error (%s): %s", e.Version, e.Message)
	}
	return fmt.Sprintf("rubric config error: %s", e.Message)
}
