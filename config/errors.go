package config

import "errors"

// ErrInvalidConfig is returned when the gateway configuration document is
// structurally invalid: unknown actions, dangling relationship targets,
// duplicate role grants.
var ErrInvalidConfig = errors.New("tern/config: invalid configuration")

// IsInvalidConfigErr returns true if err is or wraps ErrInvalidConfig.
func IsInvalidConfigErr(err error) bool {
	return errors.Is(err, ErrInvalidConfig)
}
