package encoder

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProber_Duration(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "args")
	useFake(t, fakeScript{
		Steps:    []string{"@stdout:120.500000\n", "some stderr noise\n"},
		ArgsFile: argsFile,
	})

	p := &Prober{Binary: "ffprobe"}
	secs, ok := p.Duration(context.Background(), "clip.mov")
	assert.True(t, ok)
	assert.Equal(t, 120.5, secs)

	recorded, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	assert.Equal(t, ProbeArgs("clip.mov"), strings.Split(string(recorded), "\n"))
	assert.Equal(t, []string{
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		"clip.mov",
	}, ProbeArgs("clip.mov"))
}

func TestProber_Failures(t *testing.T) {
	tests := []struct {
		name   string
		script fakeScript
	}{
		{"non-zero exit", fakeScript{Steps: []string{"@stdout:120.0\n"}, Exit: 1}},
		{"not a number", fakeScript{Steps: []string{"@stdout:N/A\n"}}},
		{"negative", fakeScript{Steps: []string{"@stdout:-3.5\n"}}},
		{"empty", fakeScript{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			useFake(t, tt.script)
			p := &Prober{Binary: "ffprobe"}
			secs, ok := p.Duration(context.Background(), "clip.mov")
			assert.False(t, ok)
			assert.Zero(t, secs)
		})
	}
}

func TestProber_MissingBinary(t *testing.T) {
	orig := commandContext
	commandContext = exec.CommandContext
	t.Cleanup(func() { commandContext = orig })

	p := &Prober{Binary: filepath.Join(t.TempDir(), "ffprobe-missing")}
	_, ok := p.Duration(context.Background(), "clip.mov")
	assert.False(t, ok)
}

func TestParseDuration(t *testing.T) {
	v, ok := parseDuration([]byte("\n  42.25 \n"))
	assert.True(t, ok)
	assert.Equal(t, 42.25, v)

	_, ok = parseDuration([]byte("NaN"))
	assert.False(t, ok)
}
