package encoder

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"

	"h265-compressor/tools"
)

const defaultProbeTimeout = 10 * time.Second

// Prober asks ffprobe for a file's container duration.
type Prober struct {
	Binary  string
	Timeout time.Duration
	Logger  hclog.Logger
}

// ProbeArgs returns the ffprobe arguments that print only the duration.
func ProbeArgs(path string) []string {
	return []string{
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}
}

// Duration runs ffprobe synchronously. Every failure mode (missing tool,
// non-zero exit, timeout, unparsable or negative output) yields ok=false.
func (p *Prober) Duration(ctx context.Context, path string) (seconds float64, ok bool) {
	logger := p.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := commandContext(ctx, p.Binary, ProbeArgs(path)...)
	cmd.Stderr = io.Discard
	tools.HideWindow(cmd)

	out, err := cmd.Output()
	if err != nil {
		logger.Debug("probe failed", "input", path, "error", err)
		return 0, false
	}

	seconds, ok = parseDuration(out)
	if !ok {
		logger.Debug("probe output unusable", "input", path, "output", strings.TrimSpace(string(out)))
		return 0, false
	}
	logger.Debug("probed duration", "input", path, "seconds", seconds)
	return seconds, true
}

// parseDuration reads the first non-empty line of ffprobe output as seconds.
func parseDuration(out []byte) (float64, bool) {
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		v, err := strconv.ParseFloat(line, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return 0, false
		}
		return v, true
	}
	return 0, false
}
