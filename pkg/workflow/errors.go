package workflow

import (
	"errors"
	"fmt"
)

// Operation names, also used as metric labels
const (
	OpStart   = "start"
	OpBrief   = "brief"
	OpCapture = "capture"
	OpWrite   = "write"
	OpPick    = "pick"
	OpRevise  = "revise"
	OpDeliver = "deliver"
)

// PreconditionError means the session has not reached the stage an
// operation needs. Reply is the guidance for the user.
type PreconditionError struct {
	Op    string
	Reply string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s: precondition not met: %s", e.Op, e.Reply)
}

// GenerationError means no model produced text for the operation. The
// session is left as it was.
type GenerationError struct {
	Op    string
	Cause error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s: generation failed: %v", e.Op, e.Cause)
}

func (e *GenerationError) Unwrap() error {
	return e.Cause
}

// ReplyFor returns the user-facing text for an error returned by the
// controller. ok is false for errors with no user-facing text.
func ReplyFor(err error) (reply string, ok bool) {
	var pe *PreconditionError
	if errors.As(err, &pe) {
		return pe.Reply, true
	}
	var ge *GenerationError
	if errors.As(err, &ge) {
		return ReplyUnavailable, true
	}
	return "", false
}
