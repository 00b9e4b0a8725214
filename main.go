package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	tea "github.com/charmbracelet/bubbletea"

	"h265-compressor/config"
	"h265-compressor/encoder"
	"h265-compressor/logging"
	"h265-compressor/tools"
	"h265-compressor/tui"
)

const (
	exitOK        = 0
	exitFailure   = 1
	exitUsage     = 2
	exitCancelled = 130
)

func main() {
	os.Exit(run())
}

func run() int {
	// Define flags
	configPath := flag.String("config", "", "Path to a YAML config file")
	profileFlag := flag.String("profile", "", "Quality profile: default, quality, archive, compress, tiny")
	crfFlag := flag.Int("crf", 0, "Constant Rate Factor 0-51 (overrides the profile)")
	outputFlag := flag.String("o", "", "Output file (default <input>_h265.mp4)")
	codecFlag := flag.String("codec", "", "ffmpeg video encoder (default libx265)")
	ffmpegFlag := flag.String("ffmpeg", "", "Path to ffmpeg")
	ffprobeFlag := flag.String("ffprobe", "", "Path to ffprobe")
	noTUI := flag.Bool("no-tui", false, "Encode without the interactive UI and print a progress bar")
	logFile := flag.String("log-file", "", "Append logs to this file")
	logLevel := flag.String("log-level", "", "Log level: trace, debug, info, warn, error, off")
	listProfiles := flag.Bool("list-profiles", false, "List all available profiles and exit")

	// Custom usage
	flag.Usage = func() {
		fmt.Println("Usage: h265-compressor [options] [input-file]")
		fmt.Println()
		fmt.Println("Re-encodes a video to H.265 with ffmpeg, showing progress.")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		fmt.Println()
		fmt.Println("Profiles:")
		for _, p := range config.AvailableProfiles() {
			fmt.Printf("  %-10s %s\n", p, config.ProfileDescription(p))
		}
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Println("  h265-compressor                                # Fill in the form")
		fmt.Println("  h265-compressor holiday.mov                    # Form prefilled with the input")
		fmt.Println("  h265-compressor -no-tui -crf 23 holiday.mov    # Encode straight away")
	}

	flag.Parse()

	// Handle --list-profiles
	if *listProfiles {
		fmt.Println("Available quality profiles:")
		fmt.Println()
		for _, p := range config.AvailableProfiles() {
			cfg := config.GetProfile(p)
			fmt.Printf("  %s\n", p)
			fmt.Printf("    %s\n", config.ProfileDescription(p))
			fmt.Printf("    CRF: %d\n", cfg.CRF)
			fmt.Println()
		}
		return exitOK
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitUsage
	}

	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if set["profile"] {
		p, err := config.ParseProfile(*profileFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return exitUsage
		}
		cfg.ProfileName = p
		cfg.CRF = config.GetProfile(p).CRF
	}
	if set["crf"] {
		cfg.CRF = *crfFlag
	}
	overrides := []struct {
		name string
		val  string
		dst  *string
	}{
		{"codec", *codecFlag, &cfg.Codec},
		{"ffmpeg", *ffmpegFlag, &cfg.FFmpeg},
		{"ffprobe", *ffprobeFlag, &cfg.FFprobe},
		{"log-file", *logFile, &cfg.LogFile},
		{"log-level", *logLevel, &cfg.LogLevel},
	}
	for _, o := range overrides {
		if set[o.name] {
			*o.dst = o.val
		}
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitUsage
	}

	var input string
	if flag.NArg() > 0 {
		input = config.CleanPath(flag.Arg(0))
	}

	// The TUI owns the terminal, so without a log file its logs are dropped.
	opts := logging.Options{}
	if *noTUI {
		opts.Fallback = os.Stderr
	}
	logger, closeLog, err := logging.New(cfg, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitFailure
	}
	defer closeLog()

	ffmpeg, ffprobe := resolveTools(cfg)
	logger.Debug("tools resolved", "ffmpeg", ffmpeg, "ffprobe", ffprobe, "profile", cfg.ProfileName, "crf", cfg.CRF)

	enc := encoder.New(cfg, ffmpeg, ffprobe, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *noTUI {
		if input == "" {
			flag.Usage()
			return exitUsage
		}
		output := *outputFlag
		if output == "" {
			output = cfg.SuggestOutput(input)
		}
		req := encoder.Request{
			Input:   input,
			Output:  cfg.NormalizeOutput(config.CleanPath(output)),
			Quality: cfg.CRF,
			Codec:   cfg.Codec,
		}
		interrupts := make(chan os.Signal, 2)
		signal.Notify(interrupts, os.Interrupt)
		defer signal.Stop(interrupts)
		return runHeadless(ctx, enc, req, logger, os.Stderr, interrupts)
	}

	// Create and run the TUI
	model := tui.NewModel(ctx, cfg, enc, input)
	p := tea.NewProgram(model, tea.WithAltScreen())

	final, err := p.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitFailure
	}
	if m, ok := final.(tui.Model); ok && m.Outcome != nil {
		logger.Info("session ended", "outcome", m.Outcome.String())
	}
	return exitOK
}

// resolveTools prefers configured paths, then bundled copies, then PATH.
func resolveTools(cfg config.Config) (ffmpeg, ffprobe string) {
	bundle := cfg.BundleDir
	if bundle == "" {
		bundle = tools.BundleDir()
	}
	ffmpeg = cfg.FFmpeg
	if ffmpeg == "" {
		ffmpeg = tools.Resolve(tools.FFmpeg, bundle)
	}
	ffprobe = cfg.FFprobe
	if ffprobe == "" {
		ffprobe = tools.Resolve(tools.FFprobe, bundle)
	}
	return ffmpeg, ffprobe
}
