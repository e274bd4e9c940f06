package gatekeeper

import (
	"errors"
	"fmt"
)

// ConfigurationError reports an invalid registration. It can only occur while
// the engine is being configured, never while connections are served.
type ConfigurationError struct {
	Phase   Phase
	Handler string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("gatekeeper: configuration: phase %q handler %q: %s", e.Phase, e.Handler, e.Reason)
}

var (
	// ErrFrozen is returned by Register after the engine was frozen.
	ErrFrozen = errors.New("gatekeeper: registry is frozen")
	// ErrNotFrozen is returned by NewConnection before the engine was frozen.
	ErrNotFrozen = errors.New("gatekeeper: engine must be frozen before accepting connections")

	errConnClosed = errors.New("gatekeeper: connection closed")
	errNoDeadline = errors.New("gatekeeper: suspension without deadline")
)
