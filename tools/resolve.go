// Package tools locates the ffmpeg and ffprobe executables.
//
// A packaged build ships the binaries next to the program (or under
// externals/<platform>/ beside it, the layout produced by fetch-ffmpeg).
// Anything else falls back to the executable search path. Resolution never
// fails: an unresolvable name is returned bare so the error surfaces when
// the process is launched.
package tools

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

const (
	FFmpeg  = "ffmpeg"
	FFprobe = "ffprobe"
)

// ExeName appends the platform executable suffix to name.
func ExeName(name string) string {
	return exeNameFor(runtime.GOOS, name)
}

func exeNameFor(goos, name string) string {
	if goos == "windows" && !strings.HasSuffix(strings.ToLower(name), ".exe") {
		return name + ".exe"
	}
	return name
}

// PlatformDir maps a GOOS value to the externals/ subdirectory name.
func PlatformDir(goos string) string {
	switch goos {
	case "darwin":
		return "macos"
	default:
		return goos
	}
}

// BundleDir returns the directory of the running executable, or "" when it
// cannot be determined.
func BundleDir() string {
	exe, err := os.Executable()
	if err != nil {
		return ""
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe)
}

// Resolve returns the path to run for the tool called name.
func Resolve(name, bundleDir string) string {
	exe := ExeName(name)

	if bundleDir != "" {
		candidates := []string{
			filepath.Join(bundleDir, exe),
			filepath.Join(bundleDir, "externals", PlatformDir(runtime.GOOS), exe),
		}
		for _, c := range candidates {
			if isFile(c) {
				return c
			}
		}
	}

	if path, err := exec.LookPath(name); err == nil {
		return path
	}
	return name
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
