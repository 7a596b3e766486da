package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/quentin/dafgen/internal/app"
	"github.com/quentin/dafgen/internal/config"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
	GitBranch = "unknown"
)

var (
	configFile   = flag.String("config", "", "Path to configuration file (default: ~/.dafgenrc or /etc/dafgen/config.yaml)")
	delayMs      = flag.Int("delay", 200, "Feedback delay in milliseconds")
	maxDelayMs   = flag.Int("max-delay", 2000, "Maximum adjustable delay in milliseconds (sizes the buffer)")
	delayStepMs  = flag.Int("delay-step", 10, "Delay adjustment step in milliseconds")
	gain         = flag.Float64("gain", 1.0, "Output gain as a linear factor (1.0 = unity)")
	gainStep     = flag.Float64("gain-step", 0.05, "Gain adjustment step")
	sampleRate   = flag.Uint("rate", 44100, "Sample rate in Hz")
	channels     = flag.Uint("channels", 2, "Number of channels (1 = mono, 2 = stereo)")
	periodFrames = flag.Uint("period", 100, "Frames per hardware period (smaller = finer delay granularity)")
	inputDevice  = flag.String("input-device", "", "Audio input device name (use --list-devices to see available devices)")
	outputDevice = flag.String("output-device", "", "Audio output device name")
	recordFile   = flag.String("record", "", "Record the delayed output to a WAV file")
	hotkeyStr    = flag.String("hotkey", "", "Global hotkey that toggles feedback (e.g. ctrl+shift+d)")
	listDevices  = flag.Bool("list-devices", false, "List all available audio devices")
	saveSettings = flag.Bool("save-settings", false, "Save delay/gain/devices to ~/.dafgenrc on exit")
	debug        = flag.Bool("debug", false, "Write a debug log under ~/.dafgen")
	showVersion  = flag.Bool("version", false, "Show version information")
)

func main() {
	flag.Parse()

	cfg, err := config.LoadWithFallback(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to load config: %v\n", err)
		cfg = config.DefaultConfig()
	}

	applyConfigDefaults(cfg)

	if *showVersion {
		fmt.Printf("dafgen v%s\n", Version)
		fmt.Printf("  Commit:  %s\n", GitCommit)
		fmt.Printf("  Branch:  %s\n", GitBranch)
		fmt.Printf("  Built:   %s\n", BuildTime)
		os.Exit(0)
	}

	fmt.Printf("dafgen v%s (commit: %s)\n", Version, GitCommit)
	fmt.Println("Delayed Auditory Feedback Generator")
	fmt.Println()

	if *listDevices {
		dm := app.NewDeviceManager()
		if err := dm.ListDevices(); err != nil {
			os.Exit(1)
		}
		return
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// applyConfigDefaults backfills flag values from the config file for
// flags the user did not set on the command line
func applyConfigDefaults(cfg *config.Config) {
	flagsSet := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) {
		flagsSet[f.Name] = true
	})

	if !flagsSet["delay"] && cfg.Delay.InitialMs > 0 {
		*delayMs = cfg.Delay.InitialMs
	}
	if !flagsSet["max-delay"] && cfg.Delay.MaxMs > 0 {
		*maxDelayMs = cfg.Delay.MaxMs
	}
	if !flagsSet["delay-step"] && cfg.Delay.StepMs > 0 {
		*delayStepMs = cfg.Delay.StepMs
	}
	if !flagsSet["gain"] && cfg.Gain.Initial > 0 {
		*gain = cfg.Gain.Initial
	}
	if !flagsSet["gain-step"] && cfg.Gain.Step > 0 {
		*gainStep = cfg.Gain.Step
	}
	if !flagsSet["rate"] && cfg.Audio.SampleRate > 0 {
		*sampleRate = uint(cfg.Audio.SampleRate)
	}
	if !flagsSet["channels"] && cfg.Audio.Channels > 0 {
		*channels = uint(cfg.Audio.Channels)
	}
	if !flagsSet["period"] && cfg.Audio.PeriodFrames > 0 {
		*periodFrames = uint(cfg.Audio.PeriodFrames)
	}
	if !flagsSet["input-device"] && cfg.Audio.InputDevice != "" {
		*inputDevice = cfg.Audio.InputDevice
	}
	if !flagsSet["output-device"] && cfg.Audio.OutputDevice != "" {
		*outputDevice = cfg.Audio.OutputDevice
	}
	if !flagsSet["record"] && cfg.Record.File != "" {
		*recordFile = cfg.Record.File
	}
	if !flagsSet["hotkey"] && cfg.Hotkey.Toggle != "" {
		*hotkeyStr = cfg.Hotkey.Toggle
	}
	if !flagsSet["debug"] {
		*debug = cfg.Log.Debug
	}
}

func run() error {
	feedbackConfig := app.FeedbackConfig{
		Delay:        time.Duration(*delayMs) * time.Millisecond,
		MaxDelay:     time.Duration(*maxDelayMs) * time.Millisecond,
		DelayStep:    time.Duration(*delayStepMs) * time.Millisecond,
		Gain:         *gain,
		GainStep:     *gainStep,
		SampleRate:   uint32(*sampleRate),
		Channels:     uint32(*channels),
		PeriodFrames: uint32(*periodFrames),
		InputDevice:  *inputDevice,
		OutputDevice: *outputDevice,
		RecordFile:   *recordFile,
		Hotkey:       *hotkeyStr,
		SaveSettings: *saveSettings,
		Debug:        *debug,
	}

	feedback := app.NewFeedback(feedbackConfig)
	return feedback.Run()
}
