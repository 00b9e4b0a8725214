// Package fetch downloads or copies a static ffmpeg/ffprobe pair for one
// operating system into externals/<os>/ so a packager can bundle them.
package fetch

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrUnknownTarget   = errors.New("unknown target")
	ErrUnknownArchive  = errors.New("unrecognised archive format")
	ErrMissingBinaries = errors.New("archive is missing binaries")
)

// Target is one platform build to fetch.
type Target struct {
	// Name is the label accepted on the command line.
	Name string
	// Dir is the subdirectory of the destination root.
	Dir string
	// URLs are the archives to download. Some builds ship each binary in
	// its own archive.
	URLs []string
	// Binaries are the base names extracted from the archive.
	Binaries []string
}

var targets = map[string]Target{
	"windows": {
		Name:     "Windows",
		Dir:      "windows",
		URLs:     []string{"https://www.gyan.dev/ffmpeg/builds/ffmpeg-release-essentials.zip"},
		Binaries: []string{"ffmpeg.exe", "ffprobe.exe"},
	},
	"macos": {
		Name:     "macOS",
		Dir:      "macos",
		Binaries: []string{"ffmpeg", "ffprobe"},
		URLs: []string{
			"https://evermeet.cx/ffmpeg/getrelease/ffmpeg/zip",
			"https://evermeet.cx/ffmpeg/getrelease/ffprobe/zip",
		},
	},
	"linux": {
		Name:     "Linux",
		Dir:      "linux",
		URLs:     []string{"https://johnvansickle.com/ffmpeg/old-releases/ffmpeg-6.1-amd64-static.tar.xz"},
		Binaries: []string{"ffmpeg", "ffprobe"},
	},
}

// Lookup finds a target by name, ignoring case.
func Lookup(name string) (Target, error) {
	t, ok := targets[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Target{}, fmt.Errorf("%w: %q (want one of %s)", ErrUnknownTarget, name, strings.Join(TargetNames(), ", "))
	}
	return t, nil
}

// TargetNames lists the accepted target names.
func TargetNames() []string {
	names := make([]string, 0, len(targets))
	for _, t := range targets {
		names = append(names, t.Name)
	}
	sort.Strings(names)
	return names
}

func (t Target) wants(base string) bool {
	for _, b := range t.Binaries {
		if b == base {
			return true
		}
	}
	return false
}
