// Command fetch-ffmpeg places a static ffmpeg/ffprobe pair for one OS under
// externals/<os>/ for packaging.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/hashicorp/go-hclog"

	"h265-compressor/fetch"
)

func main() {
	fs := flag.NewFlagSet("fetch-ffmpeg", flag.ExitOnError)
	dest := fs.String("dest", "externals", "Destination root; binaries go to <dest>/<os>/")
	from := fs.String("from", "", "Install from a local archive or directory instead of downloading")
	logLevel := fs.String("log-level", "info", "Log level: trace, debug, info, warn, error")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: fetch-ffmpeg <"+strings.Join(fetch.TargetNames(), "|")+"> [options]")
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "Downloads a static ffmpeg build and extracts ffmpeg and ffprobe.")
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "Options:")
		fs.PrintDefaults()
	}

	// Accept flags on either side of the target name.
	_ = fs.Parse(os.Args[1:])
	if fs.NArg() < 1 {
		fs.Usage()
		os.Exit(2)
	}
	name := fs.Arg(0)
	_ = fs.Parse(fs.Args()[1:])
	if fs.NArg() > 0 {
		fs.Usage()
		os.Exit(2)
	}

	logger := hclog.New(&hclog.LoggerOptions{
		Name:   "fetch-ffmpeg",
		Level:  hclog.LevelFromString(*logLevel),
		Output: os.Stderr,
	})

	target, err := fetch.Lookup(name)
	if err != nil {
		logger.Error("bad target", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	paths, err := fetch.NewInstaller(*dest, logger).Install(ctx, target, *from)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Warn("interrupted")
			os.Exit(130)
		}
		logger.Error("fetch failed", "target", target.Name, "error", err)
		os.Exit(1)
	}
	for _, p := range paths {
		fmt.Println(p)
	}
}
