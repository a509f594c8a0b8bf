package dialogue

import (
	"errors"
	"fmt"
)

// ErrSessionNotFound is returned for session ids that were never issued.
var ErrSessionNotFound = errors.New("session not found")

// ErrInvalidState is returned when an operation is attempted outside
// the state machine's accepting states. The caller should re-query the
// session state; nothing was mutated.
var ErrInvalidState = errors.New("session not in a valid state for this operation")

// ValidationError reports a choice label outside the current step's
// option set. It carries the valid labels so the caller can re-prompt.
type ValidationError struct {
	Choice      string
	ValidLabels []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid choice %q, must be one of %v", e.Choice, e.ValidLabels)
}
