package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/quentin/dafgen/internal/audio"
	"github.com/quentin/dafgen/internal/config"
	"github.com/quentin/dafgen/internal/input"
	"github.com/quentin/dafgen/internal/logging"
	"github.com/quentin/dafgen/internal/output"
	"github.com/quentin/dafgen/internal/record"
)

// FeedbackConfig holds configuration for a feedback run
type FeedbackConfig struct {
	Delay        time.Duration
	MaxDelay     time.Duration
	DelayStep    time.Duration
	Gain         float64
	GainStep     float64
	SampleRate   uint32
	Channels     uint32
	PeriodFrames uint32
	InputDevice  string
	OutputDevice string
	RecordFile   string
	Hotkey       string
	SaveSettings bool
	Debug        bool
	LogFile      string
}

// Feedback orchestrates the delayed-feedback session: it owns the audio
// session and drives it from the control panel, the optional global
// hotkey and OS signals, while rendering the status line.
type Feedback struct {
	config    FeedbackConfig
	session   audio.Session
	statusOut *output.ConsoleOutput
	log       zerolog.Logger

	muted        bool
	preMuteGain  float64
	startupDelay time.Duration
	startupGain  float64
}

// NewFeedback creates a new Feedback instance
func NewFeedback(config FeedbackConfig) *Feedback {
	return &Feedback{config: config}
}

// Run starts the feedback session and blocks until the user quits
func (f *Feedback) Run() error {
	logger, closeLog, err := logging.Setup(f.config.Debug, f.config.LogFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: debug log unavailable: %v\n", err)
	}
	defer closeLog()
	f.log = logger

	f.statusOut = output.DefaultConsoleOutput()
	f.startupDelay = f.config.Delay
	f.startupGain = f.config.Gain

	// Resolve devices up front so a bad name fails before the stream opens.
	deviceMgr := NewDeviceManager()
	inputDev, err := deviceMgr.SelectDevice(audio.DeviceTypeCapture, f.config.InputDevice)
	if err != nil {
		return err
	}
	outputDev, err := deviceMgr.SelectDevice(audio.DeviceTypePlayback, f.config.OutputDevice)
	if err != nil {
		return err
	}
	fmt.Printf("Input:  %s\n", inputDev.Name)
	fmt.Printf("Output: %s\n", outputDev.Name)

	sessionConfig := audio.SessionConfig{
		Format:       audio.Format{SampleRate: f.config.SampleRate, Channels: f.config.Channels},
		PeriodFrames: f.config.PeriodFrames,
		MaxDelay:     f.config.MaxDelay,
		Delay:        f.config.Delay,
		Gain:         f.config.Gain,
		InputDevice:  f.config.InputDevice,
		OutputDevice: f.config.OutputDevice,
	}

	f.session, err = audio.NewSession(sessionConfig, f.log)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	defer f.session.Close()

	if f.config.RecordFile != "" {
		recorder, err := record.NewRecorder(f.config.RecordFile,
			int(f.config.SampleRate), int(f.config.Channels))
		if err != nil {
			return err
		}
		defer recorder.Close()
		f.session.SetTap(recorder)
		f.statusOut.Info(fmt.Sprintf("Recording delayed output to %s", f.config.RecordFile))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle Ctrl+C / SIGTERM
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	// Global hotkey toggles the session like the space key does.
	panel := NewPanel()
	var hotkeyMgr *input.HotkeyManager
	if f.config.Hotkey != "" {
		hotkeyMgr = input.NewHotkeyManager(func(bool) {
			// Drop the toggle if the command queue is saturated; the
			// next press will land.
			select {
			case panel.commands <- CmdToggle:
			default:
			}
		})
		if err := hotkeyMgr.Start(ctx, f.config.Hotkey); err != nil {
			return fmt.Errorf("failed to start hotkey listener: %w", err)
		}
		defer hotkeyMgr.Stop()
		f.statusOut.Info(fmt.Sprintf("Hotkey %s toggles feedback", f.config.Hotkey))
	}

	f.statusOut.Info("Controls: space start/stop, +/- delay, [/] gain, m mute, r reset, q quit")

	if err := f.session.Start(ctx); err != nil {
		if errors.Is(err, audio.ErrDeviceUnavailable) {
			f.statusOut.Error("No input/output device found. Connect one and rerun.")
		}
		return err
	}

	panelErr := make(chan error, 1)
	go func() {
		panelErr <- panel.Run(ctx)
	}()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return f.shutdown(panel)

		case err := <-panelErr:
			if err != nil {
				f.statusOut.Error(fmt.Sprintf("Panel error: %v", err))
			}
			cancel()
			return f.shutdown(panel)

		case cmd := <-panel.Commands():
			if cmd == CmdQuit {
				cancel()
				continue
			}
			f.apply(ctx, cmd, hotkeyMgr)

		case err, ok := <-f.session.Errors():
			if !ok {
				return f.shutdown(panel)
			}
			// Device errors are fatal to the session; stop and let the
			// user restart once the device is back.
			f.statusOut.Error(fmt.Sprintf("Session error: %v", err))
			f.session.Stop()
			f.statusOut.Info("Session stopped. Press space to retry.")

		case <-ticker.C:
			stats := f.session.Stats()
			f.statusOut.StatusLine(stats.State.String(),
				stats.Delay, stats.MeasuredDelay, stats.Gain, stats.Level)
		}
	}
}

// apply executes a single panel or hotkey command
func (f *Feedback) apply(ctx context.Context, cmd Command, hotkeyMgr *input.HotkeyManager) {
	switch cmd {
	case CmdToggle:
		if f.session.IsRunning() {
			f.session.Stop()
		} else if err := f.session.Start(ctx); err != nil {
			f.statusOut.Error(fmt.Sprintf("Failed to start session: %v", err))
		}
		if hotkeyMgr != nil {
			hotkeyMgr.SetActive(f.session.IsRunning())
		}

	case CmdDelayUp:
		f.session.SetDelay(f.session.Delay() + f.config.DelayStep)

	case CmdDelayDown:
		f.session.SetDelay(f.session.Delay() - f.config.DelayStep)

	case CmdGainUp:
		f.setGain(f.session.Gain() + f.config.GainStep)

	case CmdGainDown:
		f.setGain(f.session.Gain() - f.config.GainStep)

	case CmdMute:
		if f.muted {
			f.session.SetGain(f.preMuteGain)
			f.muted = false
		} else {
			f.preMuteGain = f.session.Gain()
			f.session.SetGain(0)
			f.muted = true
		}

	case CmdReset:
		f.session.SetDelay(f.startupDelay)
		f.session.SetGain(f.startupGain)
		f.muted = false
	}
}

// maxGain bounds the gain so a slip on the keyboard cannot blast the
// user's ears.
const maxGain = 4.0

func (f *Feedback) setGain(gain float64) {
	if gain < 0 {
		gain = 0
	}
	if gain > maxGain {
		gain = maxGain
	}
	f.session.SetGain(gain)
	f.muted = false
}

// shutdown stops the session and persists settings when requested
func (f *Feedback) shutdown(panel *Panel) error {
	panel.Restore()
	f.statusOut.Clear()
	f.statusOut.Info("Stopping...")

	delay := f.session.Delay()
	gain := f.session.Gain()
	if f.muted {
		gain = f.preMuteGain
	}
	f.session.Stop()

	if f.config.SaveSettings {
		err := config.SaveLastUsed(int(delay.Milliseconds()), gain,
			f.config.InputDevice, f.config.OutputDevice)
		if err != nil {
			f.statusOut.Error(fmt.Sprintf("Failed to save settings: %v", err))
		} else {
			f.statusOut.Info("Settings saved")
		}
	}

	return nil
}
