package formrelay

import (
	"errors"
	"fmt"

	"github.com/xraph/formrelay/form"
)

// Sentinel errors returned by Relay operations.
var (
	// ErrInvalidConfig is matched by every *ConfigError.
	ErrInvalidConfig = errors.New("formrelay: invalid config")

	// ErrQuestionNotFound is returned when a configured question identifier
	// is not on the submission's form.
	ErrQuestionNotFound = form.ErrQuestionNotFound

	// ErrInvalidEvent is returned when an inbound event is malformed.
	ErrInvalidEvent = form.ErrInvalidEvent

	// ErrRelayFailed is returned when the POST fails or the destination
	// answers with a non-2xx status.
	ErrRelayFailed = errors.New("formrelay: relay failed")

	// ErrDestinationUnreachable is returned by Preflight.
	ErrDestinationUnreachable = errors.New("formrelay: destination unreachable")
)

// ConfigError describes one invalid configuration value.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("formrelay: invalid config: %s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is match ErrInvalidConfig.
func (e *ConfigError) Unwrap() error { return ErrInvalidConfig }
