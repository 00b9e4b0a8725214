package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/hashicorp/go-hclog"
	"github.com/schollz/progressbar/v3"

	"h265-compressor/encoder"
	"h265-compressor/tui"
)

// runHeadless encodes req with a progress bar on stderr and maps the
// outcome to an exit status. The first value on interrupts cancels the
// encode; a second one kills ffmpeg without waiting for its next status line.
func runHeadless(ctx context.Context, st tui.Starter, req encoder.Request, logger hclog.Logger, stderr io.Writer, interrupts <-chan os.Signal) int {
	ctx, hardStop := context.WithCancel(ctx)
	defer hardStop()

	sup, events, err := st.Start(ctx, req)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		if errors.Is(err, encoder.ErrQualityRange) {
			return exitUsage
		}
		return exitFailure
	}
	logger.Info("encoding", "run_id", sup.ID, "input", req.Input, "output", req.Output, "crf", req.Quality)

	go func() {
		n := 0
		for {
			select {
			case <-interrupts:
				n++
				if n == 1 {
					fmt.Fprintln(stderr, "\nCancelling...")
					sup.Cancel()
				} else {
					hardStop()
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	known := sup.Duration() > 0
	desc := "Encoding"
	if !known {
		desc = "Encoding (duration unknown)"
	}
	bar := progressbar.NewOptions(100,
		progressbar.OptionSetDescription(desc),
		progressbar.OptionSetWriter(stderr),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "▐",
			BarEnd:        "▌",
		}),
		progressbar.OptionSetWidth(50),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
	)

	var outcome encoder.Outcome
	for ev := range events {
		switch {
		case ev.Progress != nil:
			_ = bar.Set(ev.Progress.Percent)
		case ev.Outcome != nil:
			outcome = *ev.Outcome
		}
	}
	fmt.Fprintln(stderr)

	switch outcome.Status {
	case encoder.StatusSuccess:
		_ = bar.Finish()
		fmt.Fprintf(stderr, "Compression completed: %s\n", req.Output)
		return exitOK
	case encoder.StatusCancelled:
		fmt.Fprintln(stderr, "Encoding cancelled.")
		return exitCancelled
	default:
		switch outcome.Reason {
		case encoder.ReasonToolNotFound:
			fmt.Fprintln(stderr, "Error: ffmpeg executable not found.")
		case encoder.ReasonExitStatus:
			fmt.Fprintf(stderr, "Error: ffmpeg exited with code %d.\n", outcome.ExitCode)
		default:
			fmt.Fprintf(stderr, "Error: %s\n", outcome)
		}
		if logs := sup.Logs(); len(logs) > 0 {
			fmt.Fprintln(stderr, logs[len(logs)-1])
		}
		return exitFailure
	}
}
