package pipeline

import (
	"errors"
	"fmt"
)

// ErrNoStagesEnabled is returned at graph build time when configuration
// disables every stage.
var ErrNoStagesEnabled = errors.New("no stages enabled")

// ErrToolUnavailable signals that an external tool (search, GitHub,
// LLM) is not configured. Stages degrade gracefully on it instead of
// failing the run.
var ErrToolUnavailable = errors.New("tool unavailable")

// ErrUnrepairedValidation is recorded in run state when the repair loop
// exhausts its attempts without producing a valid document.
const ErrUnrepairedValidation = "unrepaired validation failure"

// StageError wraps a failure inside a stage. The driver records it into
// run state and proceeds to the terminal stage rather than aborting.
type StageError struct {
	Stage StageName
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
