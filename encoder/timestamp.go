package encoder

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// timeRe matches ffmpeg's status marker, e.g. "time=00:01:23.45".
// Early status lines can report a small negative time.
var timeRe = regexp.MustCompile(`time=\s*(-?\d{2,}:\d{2}:\d{2}(?:\.\d+)?)`)

// ParseElapsed extracts the elapsed media time in seconds from one line of
// ffmpeg diagnostic output. ok is false when the line carries no marker.
func ParseElapsed(line string) (seconds float64, ok bool) {
	m := timeRe.FindStringSubmatch(line)
	if len(m) < 2 {
		return 0, false
	}
	secs, err := TimestampSeconds(m[1])
	if err != nil {
		return 0, false
	}
	return secs, true
}

// TimestampSeconds converts "HH:MM:SS.ff" to hours*3600 + minutes*60 + seconds.
func TimestampSeconds(ts string) (float64, error) {
	ts = strings.TrimSpace(ts)
	neg := strings.HasPrefix(ts, "-")
	ts = strings.TrimPrefix(ts, "-")

	parts := strings.Split(ts, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("timestamp %q: want HH:MM:SS", ts)
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("timestamp %q: hours: %w", ts, err)
	}
	mins, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("timestamp %q: minutes: %w", ts, err)
	}
	secs, err := strconv.ParseFloat(parts[2], 64)
	if err != nil || math.IsNaN(secs) || math.IsInf(secs, 0) {
		return 0, fmt.Errorf("timestamp %q: seconds", ts)
	}

	total := float64(hours*3600+mins*60) + secs
	if neg {
		total = -total
	}
	return total, nil
}

// clampPercentage ensures percentage is within 0-100 range
func clampPercentage(pct float64) float64 {
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// Percent maps elapsed media time onto a whole percentage of total.
// ok is false when total is unknown (zero, negative or not a number), in
// which case no percentage can be derived.
func Percent(elapsed, total float64) (pct int, ok bool) {
	if !(total > 0) || math.IsInf(total, 0) || math.IsNaN(elapsed) {
		return 0, false
	}
	return int(math.Round(clampPercentage(elapsed / total * 100))), true
}
