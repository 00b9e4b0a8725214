package encoder

import (
	"bytes"
	"strings"
	"sync"
)

const (
	maxLogLines    = 100
	maxLineBytes   = 1024 * 1024
	initLineBuffer = 64 * 1024
	drainChunk     = 32 * 1024
)

// scanStatusLines splits on '\n' or '\r'. ffmpeg rewrites its status line
// in place with a bare '\r', so a plain line scanner would see one huge line.
func scanStatusLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	start := 0
	for start < len(data) && (data[start] == '\n' || data[start] == '\r') {
		start++
	}
	if i := bytes.IndexAny(data[start:], "\r\n"); i >= 0 {
		return start + i + 1, data[start : start+i], nil
	}
	if atEOF && len(data) > start {
		return len(data), data[start:], nil
	}
	return start, nil, nil
}

// isStatusLine reports whether line is one of ffmpeg's periodic status
// lines. Those are parsed for progress and kept out of the log view.
func isStatusLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	return strings.HasPrefix(trimmed, "frame=") ||
		strings.HasPrefix(trimmed, "size=") ||
		strings.HasPrefix(trimmed, "fps=")
}

// logRing keeps the last maxLogLines diagnostic lines.
type logRing struct {
	mu    sync.Mutex
	lines []string
}

func (r *logRing) add(line string) {
	line = strings.TrimRight(line, " \t")
	if line == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, line)
	if len(r.lines) > maxLogLines {
		r.lines = r.lines[len(r.lines)-maxLogLines:]
	}
}

func (r *logRing) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.lines))
	copy(out, r.lines)
	return out
}
