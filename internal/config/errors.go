package config

import "errors"

// Sentinel error kinds. ErrLoadConfig covers unreadable sources;
// ErrInvalidConfig covers values that decode but cannot be used.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")
)
