package song

import "fmt"

// ValidationError reports a request field that violates a model bound or a
// missing required field. It is raised before any call to the service.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("song: invalid %s: %s", e.Field, e.Reason)
}

// SubmissionError reports that the service rejected a generation request.
type SubmissionError struct {
	Reason string
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("song: submission rejected: %s", e.Reason)
}

// GenerationError reports that the service failed to generate the song.
type GenerationError struct {
	TaskID string
	Reason string
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("song: generation %s failed: %s", e.TaskID, e.Reason)
}

// TimeoutError reports that the local wait for a task exceeded the
// configured maximum. The remote task may still complete; the id stays
// queryable with the status and download commands.
type TimeoutError struct {
	TaskID  string
	MaxWait string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("song: timed out after %s waiting for task %s (the task may still finish remotely, query it later by id)", e.MaxWait, e.TaskID)
}

// TransportError wraps a network or service reachability failure. No retry
// is attempted at this layer.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("song: transport failure: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
