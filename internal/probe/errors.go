package probe

import "errors"

// Sentinel kinds for probe failures.
var (
	ErrUnhealthy  = errors.New("service unhealthy")
	ErrNoPlayers  = errors.New("no players to probe")
	ErrViolations = errors.New("invariant violations found")
	ErrStatus     = errors.New("unexpected status")
)
