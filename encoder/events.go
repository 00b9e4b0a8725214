package encoder

import (
	"fmt"
	"time"
)

// Status is the terminal state of one encode run.
type Status int

const (
	StatusSuccess Status = iota
	StatusFailed
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusFailed:
		return "failed"
	case StatusCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Reason narrows a failed Outcome.
type Reason int

const (
	ReasonNone Reason = iota
	// ReasonToolNotFound: the ffmpeg executable could not be located.
	ReasonToolNotFound
	// ReasonLaunchFailed: the executable exists but could not be started.
	ReasonLaunchFailed
	// ReasonExitStatus: ffmpeg ran and exited non-zero. See ExitCode.
	ReasonExitStatus
	// ReasonWaitFailed: the process could not be waited on.
	ReasonWaitFailed
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonToolNotFound:
		return "executable not found"
	case ReasonLaunchFailed:
		return "launch failed"
	case ReasonExitStatus:
		return "non-zero exit"
	case ReasonWaitFailed:
		return "wait failed"
	default:
		return fmt.Sprintf("reason(%d)", int(r))
	}
}

// Outcome is delivered exactly once per run, as the last event.
type Outcome struct {
	Status   Status
	Reason   Reason
	ExitCode int
	Err      error
	// Elapsed is wall-clock time since launch.
	Elapsed time.Duration
}

func (o Outcome) String() string {
	switch {
	case o.Status == StatusFailed && o.Reason == ReasonExitStatus:
		return fmt.Sprintf("failed: exit code %d", o.ExitCode)
	case o.Status == StatusFailed && o.Err != nil:
		return fmt.Sprintf("failed: %s: %v", o.Reason, o.Err)
	case o.Status == StatusFailed:
		return "failed: " + o.Reason.String()
	default:
		return o.Status.String()
	}
}

// Progress reports how far through the input ffmpeg has encoded.
type Progress struct {
	Percent int
	// Elapsed is media time reached, as read from the status line.
	Elapsed time.Duration
	// Final marks the 100 sent after a clean exit. It is sent even when the
	// input duration is unknown, in which case it is the only Progress of
	// the run; consumers that must show no percentage without a duration
	// should drop Final events when Supervisor.Duration is zero.
	Final bool
}

// Event is either a Progress or the closing Outcome.
type Event struct {
	Progress *Progress
	Outcome  *Outcome
}

// IsOutcome reports whether e is the terminal event of the run.
func (e Event) IsOutcome() bool { return e.Outcome != nil }
