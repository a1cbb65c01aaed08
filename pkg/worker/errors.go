package worker

import "github.com/c360/actmeter/errors"

// Pool errors. A full queue is transient so callers may retry the
// submission later; the rest are lifecycle misuse.
var (
	ErrPoolNotStarted     = errors.New("worker pool not started")
	ErrPoolStopped        = errors.New("worker pool stopped")
	ErrPoolAlreadyStarted = errors.New("worker pool already started")
	ErrNilProcessor       = errors.New("worker pool needs a processor")
	ErrStopTimeout        = errors.New("worker pool stop timed out")

	ErrQueueFull = &errors.ClassifiedError{
		Class:     errors.ErrorTransient,
		Err:       errors.New("worker pool queue full"),
		Component: "worker",
		Operation: "Submit",
	}
)
