package encoder

import (
	"bufio"
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/lithammer/shortuuid/v4"

	"h265-compressor/tools"
)

const eventBuffer = 16

// Supervisor runs one ffmpeg encode and reports on it through an event
// channel. A Supervisor is single use; a new request needs a new one.
type Supervisor struct {
	ID string

	binary string
	req    Request
	total  float64
	logger hclog.Logger

	started   atomic.Bool
	cancelled atomic.Bool
	pid       atomic.Int64
	events    chan Event

	logs  logRing
	usage usageSampler

	mu        sync.Mutex
	startedAt time.Time
}

// NewSupervisor prepares a run of binary for req. total is the probed input
// duration in seconds; zero means unknown and suppresses progress events.
func NewSupervisor(binary string, req Request, total float64, logger hclog.Logger) *Supervisor {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	if total < 0 {
		total = 0
	}
	id := shortuuid.New()
	return &Supervisor{
		ID:     id,
		binary: binary,
		req:    req,
		total:  total,
		logger: logger.With("run_id", id, "input", req.Input),
		events: make(chan Event, eventBuffer),
	}
}

// Start validates the request and launches the encode on its own goroutine.
// The returned channel yields zero or more Progress events followed by
// exactly one Outcome, then closes. Callers must drain it until it closes.
//
// Cancelling ctx kills ffmpeg and ends the run as Cancelled.
func (s *Supervisor) Start(ctx context.Context) (<-chan Event, error) {
	if err := s.req.Validate(); err != nil {
		return nil, err
	}
	if !s.started.CompareAndSwap(false, true) {
		return nil, ErrAlreadyStarted
	}
	go s.run(ctx)
	return s.events, nil
}

// Cancel asks the run to stop. It is observed once per line of ffmpeg
// output and at end of stream. Safe to call more than once, and before Start.
func (s *Supervisor) Cancel() {
	if s.cancelled.CompareAndSwap(false, true) {
		s.logger.Info("cancel requested")
	}
}

// Cancelled reports whether Cancel has been called.
func (s *Supervisor) Cancelled() bool { return s.cancelled.Load() }

// Args returns the ffmpeg arguments this run uses.
func (s *Supervisor) Args() []string { return s.req.Args() }

// Request returns the request being encoded.
func (s *Supervisor) Request() Request { return s.req }

// Duration is the probed input duration, zero when unknown.
func (s *Supervisor) Duration() time.Duration { return secondsToDuration(s.total) }

// Pid is the ffmpeg process id, zero before launch.
func (s *Supervisor) Pid() int { return int(s.pid.Load()) }

// Logs returns the most recent non-status lines ffmpeg wrote.
func (s *Supervisor) Logs() []string { return s.logs.snapshot() }

// Usage samples ffmpeg's CPU and memory. Zero when not running.
func (s *Supervisor) Usage() Usage { return s.usage.sample() }

// StartedAt is when the process was launched.
func (s *Supervisor) StartedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startedAt
}

// OutputSize returns the current size of the output file.
func (s *Supervisor) OutputSize() (int64, error) {
	info, err := os.Stat(s.req.Output)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func (s *Supervisor) cancelRequested(ctx context.Context) bool {
	return s.cancelled.Load() || ctx.Err() != nil
}

func (s *Supervisor) run(ctx context.Context) {
	defer close(s.events)

	start := time.Now()
	s.mu.Lock()
	s.startedAt = start
	s.mu.Unlock()

	if s.cancelRequested(ctx) {
		s.logger.Info("encode cancelled before launch")
		s.finish(Outcome{Status: StatusCancelled, Elapsed: time.Since(start)})
		return
	}

	args := s.req.Args()
	cmd := commandContext(ctx, s.binary, args...)
	tools.HideWindow(cmd)

	stderr, err := cmd.StderrPipe()
	if err != nil {
		s.logger.Error("could not open ffmpeg stderr", "error", err)
		s.finish(Outcome{Status: StatusFailed, Reason: ReasonLaunchFailed, ExitCode: -1, Err: err})
		return
	}

	s.logger.Debug("launching ffmpeg", "binary", s.binary, "args", strings.Join(args, " "))
	if err := cmd.Start(); err != nil {
		reason := ReasonLaunchFailed
		if isNotFound(err) {
			reason = ReasonToolNotFound
		}
		s.logger.Error("could not start ffmpeg", "binary", s.binary, "error", err)
		s.finish(Outcome{Status: StatusFailed, Reason: reason, ExitCode: -1, Err: err, Elapsed: time.Since(start)})
		return
	}

	s.pid.Store(int64(cmd.Process.Pid))
	if err := s.usage.attach(cmd.Process.Pid); err != nil {
		s.logger.Debug("resource sampling unavailable", "error", err)
	}
	defer s.usage.detach()

	if s.cancelRequested(ctx) {
		s.abort(cmd, start)
		return
	}

	sc := bufio.NewScanner(stderr)
	sc.Buffer(make([]byte, 0, initLineBuffer), maxLineBytes)
	sc.Split(scanStatusLines)

	last := -1
	var reached float64
	for sc.Scan() {
		if s.cancelRequested(ctx) {
			s.abort(cmd, start)
			return
		}

		line := sc.Text()
		elapsed, ok := ParseElapsed(line)
		if !ok {
			if !isStatusLine(line) {
				s.logs.add(line)
			}
			continue
		}
		if elapsed > reached {
			reached = elapsed
		}

		pct, ok := Percent(elapsed, s.total)
		if !ok || pct < last {
			continue
		}
		last = pct
		s.emit(ctx, Event{Progress: &Progress{Percent: pct, Elapsed: secondsToDuration(elapsed)}})
	}
	if err := sc.Err(); err != nil {
		s.logger.Warn("reading ffmpeg output failed", "error", err)
		if s.drain(ctx, stderr) {
			s.abort(cmd, start)
			return
		}
	}

	if s.cancelRequested(ctx) {
		s.abort(cmd, start)
		return
	}

	waitErr := cmd.Wait()
	wall := time.Since(start)

	var exitErr *exec.ExitError
	switch {
	case waitErr == nil:
		final := reached
		if s.total > 0 {
			final = s.total
		}
		s.emit(ctx, Event{Progress: &Progress{Percent: 100, Elapsed: secondsToDuration(final), Final: true}})
		s.logger.Info("encode finished", "output", s.req.Output, "elapsed", wall.Round(time.Millisecond))
		s.finish(Outcome{Status: StatusSuccess, Elapsed: wall})
	case errors.As(waitErr, &exitErr):
		code := exitErr.ExitCode()
		s.logger.Warn("ffmpeg exited with error", "exit_code", code, "last_line", s.lastLog())
		s.finish(Outcome{Status: StatusFailed, Reason: ReasonExitStatus, ExitCode: code, Err: waitErr, Elapsed: wall})
	default:
		s.logger.Error("waiting for ffmpeg failed", "error", waitErr)
		s.finish(Outcome{Status: StatusFailed, Reason: ReasonWaitFailed, ExitCode: -1, Err: waitErr, Elapsed: wall})
	}
}

// drain discards the rest of ffmpeg's output so it cannot block on a full
// pipe. It stops early and reports true once a cancel is requested.
func (s *Supervisor) drain(ctx context.Context, r io.Reader) bool {
	buf := make([]byte, drainChunk)
	for {
		if s.cancelRequested(ctx) {
			return true
		}
		if _, err := r.Read(buf); err != nil {
			return false
		}
	}
}

// abort kills ffmpeg, reaps it and reports Cancelled. Nothing is read from
// the process after this.
func (s *Supervisor) abort(cmd *exec.Cmd, start time.Time) {
	if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		s.logger.Warn("kill ffmpeg", "error", err)
	}
	_ = cmd.Wait()
	s.logger.Info("encode cancelled", "output", s.req.Output)
	s.finish(Outcome{Status: StatusCancelled, Elapsed: time.Since(start)})
}

// emit delivers a progress event. Once ctx is done it no longer waits for
// a reader that may be gone.
func (s *Supervisor) emit(ctx context.Context, ev Event) {
	select {
	case s.events <- ev:
	case <-ctx.Done():
		select {
		case s.events <- ev:
		default:
		}
	}
}

// finish delivers the outcome. It always blocks until received.
func (s *Supervisor) finish(o Outcome) {
	s.events <- Event{Outcome: &o}
}

func (s *Supervisor) lastLog() string {
	lines := s.logs.snapshot()
	if len(lines) == 0 {
		return ""
	}
	return lines[len(lines)-1]
}

func isNotFound(err error) bool {
	return errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist)
}

func secondsToDuration(secs float64) time.Duration {
	if secs <= 0 {
		return 0
	}
	return time.Duration(secs * float64(time.Second))
}
