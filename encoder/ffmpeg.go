package encoder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/hashicorp/go-hclog"

	"h265-compressor/config"
)

// commandContext builds every child process. Tests swap it for a fake.
var commandContext = exec.CommandContext

var (
	ErrMissingPath    = errors.New("input and output paths are required")
	ErrInputNotFound  = errors.New("input file does not exist")
	ErrInputIsDir     = errors.New("input is a directory")
	ErrSamePath       = errors.New("input and output must differ")
	ErrQualityRange   = fmt.Errorf("quality must be between %d and %d", config.MinCRF, config.MaxCRF)
	ErrAlreadyStarted = errors.New("encode already started")
)

// Request describes one re-encode: read Input, write Output at CRF Quality.
type Request struct {
	Input   string
	Output  string
	Quality int
	// Codec is passed to -vcodec. Empty means libx265.
	Codec string
}

// Validate runs the checks that must pass before any process is spawned.
func (r Request) Validate() error {
	if r.Input == "" || r.Output == "" {
		return ErrMissingPath
	}
	info, err := os.Stat(r.Input)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrInputNotFound, r.Input)
		}
		return fmt.Errorf("stat input: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s", ErrInputIsDir, r.Input)
	}
	if samePath(r.Input, r.Output, info) {
		return ErrSamePath
	}
	if r.Quality < config.MinCRF || r.Quality > config.MaxCRF {
		return fmt.Errorf("%w (got %d)", ErrQualityRange, r.Quality)
	}
	return nil
}

func samePath(input, output string, inInfo os.FileInfo) bool {
	inAbs, err1 := filepath.Abs(input)
	outAbs, err2 := filepath.Abs(output)
	if err1 == nil && err2 == nil && inAbs == outAbs {
		return true
	}
	// Catches symlinks and case-insensitive filesystems.
	if outInfo, err := os.Stat(output); err == nil {
		return os.SameFile(inInfo, outInfo)
	}
	return false
}

// Args returns the ffmpeg argument list for the request, in order.
func (r Request) Args() []string {
	codec := r.Codec
	if codec == "" {
		codec = config.DefaultCodec
	}
	return []string{
		"-y",
		"-i", r.Input,
		"-vcodec", codec,
		"-crf", strconv.Itoa(r.Quality),
		r.Output,
	}
}

// Encoder ties a Prober and the Supervisors it launches to one pair of
// resolved tool paths.
type Encoder struct {
	FFmpeg  string
	FFprobe string
	Codec   string
	Logger  hclog.Logger
}

// New creates an Encoder for the given tool paths.
func New(cfg config.Config, ffmpeg, ffprobe string, logger hclog.Logger) *Encoder {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Encoder{
		FFmpeg:  ffmpeg,
		FFprobe: ffprobe,
		Codec:   cfg.Codec,
		Logger:  logger.Named("encoder"),
	}
}

// ProbeDuration returns the container duration of path in seconds, or
// ok=false when it cannot be determined.
func (e *Encoder) ProbeDuration(ctx context.Context, path string) (float64, bool) {
	p := &Prober{Binary: e.FFprobe, Logger: e.Logger}
	return p.Duration(ctx, path)
}

// Start validates req, probes its duration and launches a Supervisor.
// Validation errors are returned before anything is spawned; every later
// failure arrives on the event channel as an Outcome.
func (e *Encoder) Start(ctx context.Context, req Request) (*Supervisor, <-chan Event, error) {
	if req.Codec == "" {
		req.Codec = e.Codec
	}
	if err := req.Validate(); err != nil {
		return nil, nil, err
	}

	total, ok := e.ProbeDuration(ctx, req.Input)
	if !ok {
		total = 0
	}

	s := NewSupervisor(e.FFmpeg, req, total, e.Logger)
	events, err := s.Start(ctx)
	if err != nil {
		return nil, nil, err
	}
	return s, events, nil
}
