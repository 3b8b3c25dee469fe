package song

import (
	"context"
	"errors"
	"io"
	"time"
)

// Status of a generation task as tracked locally.
type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
	// StatusTimeout is local only: the wait was abandoned, the remote task
	// may still be running.
	StatusTimeout Status = "timeout"
)

// Terminal reports whether no further transitions can occur.
func (s Status) Terminal() bool {
	switch s {
	case StatusSuccess, StatusFailed, StatusTimeout:
		return true
	}
	return false
}

// Track is one audio artifact of a succeeded task.
type Track struct {
	ID       string
	Title    string
	AudioURL string
	ImageURL string
	Genre    string
	Duration float64
}

// Result is the payload of a succeeded task.
type Result struct {
	Tracks []Track
}

// Task tracks one remote generation job. It is created by Submit, mutated
// only by Poll and becomes immutable once it reaches a terminal status.
type Task struct {
	ID        string
	CreatedAt time.Time
	PolledAt  time.Time

	status Status
	result *Result
}

func (t *Task) Status() Status {
	return t.status
}

// Result returns the payload, nil unless the task succeeded.
func (t *Task) Result() *Result {
	return t.result
}

// transition moves the task to s unless a terminal status was already
// reached. It reports whether the status changed.
func (t *Task) transition(s Status) bool {
	if t.status.Terminal() {
		return false
	}
	t.status = s
	return true
}

// StatusRecord is one observation of a remote task's state.
type StatusRecord struct {
	State  string // wire state: PENDING, TEXT_SUCCESS, FIRST_SUCCESS, SUCCESS, FAILED
	Error  string
	Tracks []Track
}

// Wire states reported by the service. TEXT_SUCCESS and FIRST_SUCCESS are
// intermediate: lyrics or the first variant are ready, audio is not.
const (
	StatePending      = "PENDING"
	StateTextSuccess  = "TEXT_SUCCESS"
	StateFirstSuccess = "FIRST_SUCCESS"
	StateSuccess      = "SUCCESS"
	StateFailed       = "FAILED"
)

// Service is the transport collaborator the lifecycle manager drives.
// Implementations attach authentication; this package never sees
// credentials.
type Service interface {
	Submit(ctx context.Context, req *Request) (taskID string, err error)
	Status(ctx context.Context, taskID string) (*StatusRecord, error)
	Fetch(ctx context.Context, url string, w io.Writer) error
}

// Rejection is implemented by transport errors that carry a service-side
// rejection of the request rather than a delivery failure.
type Rejection interface {
	Rejection() string
}

// Submit validates req and performs exactly one submission call, returning
// a pending Task with the freshly issued identifier.
func Submit(ctx context.Context, svc Service, req *Request) (*Task, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	id, err := svc.Submit(ctx, req)
	if err != nil {
		var rej Rejection
		if errors.As(err, &rej) {
			return nil, &SubmissionError{Reason: rej.Rejection()}
		}
		return nil, &TransportError{Err: err}
	}
	return &Task{
		ID:        id,
		CreatedAt: time.Now(),
		status:    StatusPending,
	}, nil
}

// Reattach builds a pending task for a previously issued identifier, so
// polling can resume after a local timeout or restart. A remote task
// keeps running when the local wait gives up; its id stays queryable.
func Reattach(id string) *Task {
	return &Task{
		ID:        id,
		CreatedAt: time.Now(),
		status:    StatusPending,
	}
}

// PollConfig bounds the wait for a task.
type PollConfig struct {
	// Interval is the fixed cadence between status queries.
	Interval time.Duration
	// MaxWait is the maximum wall-clock time to wait since the first poll.
	MaxWait time.Duration
}

// DefaultPoll matches the service's expected generation times.
var DefaultPoll = PollConfig{
	Interval: 10 * time.Second,
	MaxWait:  10 * time.Minute,
}

// Poll queries the task status at a fixed cadence until the task succeeds,
// fails or MaxWait elapses. Transport failures are propagated immediately
// without retrying. On success the task's result payload is populated.
func Poll(ctx context.Context, svc Service, task *Task, cfg PollConfig) error {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultPoll.Interval
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = DefaultPoll.MaxWait
	}
	start := time.Now()
	for {
		if time.Since(start) >= cfg.MaxWait {
			task.transition(StatusTimeout)
			return &TimeoutError{TaskID: task.ID, MaxWait: cfg.MaxWait.String()}
		}
		rec, err := svc.Status(ctx, task.ID)
		if err != nil {
			return &TransportError{Err: err}
		}
		task.PolledAt = time.Now()
		switch rec.State {
		case StateSuccess:
			task.result = &Result{Tracks: rec.Tracks}
			task.transition(StatusSuccess)
			return nil
		case StateFailed:
			task.transition(StatusFailed)
			reason := rec.Error
			if reason == "" {
				reason = "unknown error"
			}
			return &GenerationError{TaskID: task.ID, Reason: reason}
		default:
			task.transition(StatusRunning)
		}
		t := time.NewTimer(cfg.Interval)
		select {
		case <-ctx.Done():
			t.Stop()
			return &TransportError{Err: ctx.Err()}
		case <-t.C:
		}
	}
}
