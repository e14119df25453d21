package core

import (
	"errors"
	"fmt"
)

// MalformedOutputError reports a stage whose model output violated its
// declared schema. It is terminal for the run and is never retried.
type MalformedOutputError struct {
	Stage  string
	Reason string
	Raw    string
}

// Error implements the error interface
func (e *MalformedOutputError) Error() string {
	return fmt.Sprintf("stage %s returned malformed output: %s", e.Stage, e.Reason)
}

// UpstreamError reports a failed call to an external collaborator
// (text generation, mailbox, context store, templates)
type UpstreamError struct {
	Service string
	Op      string
	Err     error
}

// Error implements the error interface
func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %s failed: %v", e.Service, e.Op, e.Err)
}

// Unwrap returns the underlying error
func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// OutcomeForError maps a stage error to the terminal outcome of the run
func OutcomeForError(err error) PipelineOutcome {
	var malformed *MalformedOutputError
	if errors.As(err, &malformed) {
		return OutcomeMalformedModelOutput
	}
	return OutcomeUpstreamServiceError
}
