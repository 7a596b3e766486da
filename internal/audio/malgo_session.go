package audio

import (
	"context"
	"fmt"
	"io"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gen2brain/malgo"
	"github.com/rs/zerolog"
)

// retargetInterval limits how often SetDelay touches the delay line, so
// a slider sweep does not thrash the cursors mid-callback.
const retargetInterval = 10 * time.Millisecond

// MalgoSession implements the Session interface on a malgo full-duplex
// device. The miniaudio callback moves each captured block through the
// delay line into the playback buffer, so the hardware paces the loop.
type MalgoSession struct {
	config       SessionConfig
	delay        *DelayLine
	gainBits     atomic.Uint64
	levelBits    atomic.Uint64
	device       *malgo.Device
	malgoContext *malgo.AllocatedContext
	errors       chan error
	running      bool
	mu           sync.RWMutex
	stopChan     chan struct{}
	closeOnce    sync.Once
	tap          atomic.Value // io.Writer wrapped in tapHolder
	lastRetarget time.Time
	retargetMu   sync.Mutex
	log          zerolog.Logger
}

// tapHolder lets atomic.Value hold writers of differing concrete types.
type tapHolder struct{ w io.Writer }

// NewSession creates a session with the given configuration. The stream
// is not opened until Start.
func NewSession(config SessionConfig, log zerolog.Logger) (Session, error) {
	return NewMalgoSession(config, log)
}

// NewMalgoSession creates a new malgo-based feedback session
func NewMalgoSession(config SessionConfig, log zerolog.Logger) (*MalgoSession, error) {
	if config.Format.SampleRate == 0 || config.Format.Channels == 0 {
		return nil, fmt.Errorf("invalid format: %d Hz, %d channels",
			config.Format.SampleRate, config.Format.Channels)
	}
	if config.PeriodFrames == 0 {
		return nil, fmt.Errorf("period must be at least one frame")
	}
	if config.MaxDelay <= 0 {
		return nil, fmt.Errorf("max delay must be positive")
	}
	if config.Delay < 0 || config.Delay > config.MaxDelay {
		return nil, fmt.Errorf("delay %v outside [0, %v]", config.Delay, config.MaxDelay)
	}
	if config.Gain < 0 {
		return nil, fmt.Errorf("gain must not be negative")
	}

	s := &MalgoSession{
		config: config,
		delay:  NewDelayLine(config.MaxDelay, config.Format),
		errors: make(chan error, 10),
		log:    log,
	}
	s.delay.SetDelay(config.Delay)
	s.gainBits.Store(math.Float64bits(config.Gain))
	s.tap.Store(tapHolder{})
	return s, nil
}

// Start opens the duplex stream and begins the feedback loop
func (s *MalgoSession) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrSessionRunning
	}
	s.running = true
	s.stopChan = make(chan struct{})
	s.mu.Unlock()

	fail := func(err error) error {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		return err
	}

	malgoCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fail(fmt.Errorf("%w: initializing context: %v", ErrStreamOpen, err))
	}
	s.malgoContext = malgoCtx

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Duplex)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = s.config.Format.Channels
	deviceConfig.Playback.Format = malgo.FormatS16
	deviceConfig.Playback.Channels = s.config.Format.Channels
	deviceConfig.SampleRate = s.config.Format.SampleRate
	deviceConfig.PeriodSizeInFrames = s.config.PeriodFrames

	if err := s.resolveDevices(&deviceConfig); err != nil {
		s.teardownContext()
		return fail(err)
	}

	var callbacks malgo.DeviceCallbacks
	callbacks.Data = func(pOutputSamples, pInputSamples []byte, framecount uint32) {
		s.delay.Process(pOutputSamples, pInputSamples)

		gain := s.Gain()
		if gain != 1.0 {
			ApplyGain(pOutputSamples, gain)
		}
		s.levelBits.Store(math.Float64bits(Level(pOutputSamples)))

		if tap, _ := s.tap.Load().(tapHolder); tap.w != nil {
			if _, err := tap.w.Write(pOutputSamples); err != nil {
				// Non-blocking: a slow tap must not stall the callback.
				select {
				case s.errors <- fmt.Errorf("tap write failed: %w", err):
				default:
				}
			}
		}
	}

	device, err := malgo.InitDevice(s.malgoContext.Context, deviceConfig, callbacks)
	if err != nil {
		s.teardownContext()
		return fail(fmt.Errorf("%w: initializing duplex device: %v", ErrStreamOpen, err))
	}
	s.device = device

	if err := device.Start(); err != nil {
		device.Uninit()
		s.device = nil
		s.teardownContext()
		return fail(fmt.Errorf("%w: starting duplex device: %v", ErrStreamOpen, err))
	}

	s.log.Info().
		Uint32("rate", s.config.Format.SampleRate).
		Uint32("channels", s.config.Format.Channels).
		Uint32("period_frames", s.config.PeriodFrames).
		Dur("delay", s.delay.Delay()).
		Msg("feedback session started")

	// Stop the session when the caller's context ends. The goroutine is
	// released by stopChan on a manual Stop, so it never outlives the run.
	go func(stop chan struct{}) {
		select {
		case <-ctx.Done():
			s.Stop()
		case <-stop:
		}
	}(s.stopChan)

	return nil
}

// resolveDevices points the device config at the configured capture and
// playback devices. Empty names keep the system defaults.
func (s *MalgoSession) resolveDevices(deviceConfig *malgo.DeviceConfig) error {
	if s.config.InputDevice != "" {
		info, err := s.lookupDevice(malgo.Capture, s.config.InputDevice)
		if err != nil {
			return err
		}
		deviceConfig.Capture.DeviceID = info.ID.Pointer()
	}
	if s.config.OutputDevice != "" {
		info, err := s.lookupDevice(malgo.Playback, s.config.OutputDevice)
		if err != nil {
			return err
		}
		deviceConfig.Playback.DeviceID = info.ID.Pointer()
	}
	return nil
}

// lookupDevice finds a device of the given kind by case-insensitive name
// substring match.
func (s *MalgoSession) lookupDevice(kind malgo.DeviceType, name string) (*malgo.DeviceInfo, error) {
	infos, err := s.malgoContext.Devices(kind)
	if err != nil {
		return nil, fmt.Errorf("%w: enumerating devices: %v", ErrDeviceUnavailable, err)
	}
	if len(infos) == 0 {
		return nil, fmt.Errorf("%w: no %s devices found", ErrDeviceUnavailable, deviceKindName(kind))
	}

	search := strings.ToLower(name)
	for i := range infos {
		if strings.Contains(strings.ToLower(infos[i].Name()), search) {
			return &infos[i], nil
		}
	}
	return nil, fmt.Errorf("%w: no %s device matching %q", ErrDeviceUnavailable, deviceKindName(kind), name)
}

// Stop closes the stream and clears the delay line. Stopping a stopped
// session is a no-op.
func (s *MalgoSession) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	close(s.stopChan)

	if s.device != nil {
		if err := s.device.Stop(); err != nil {
			s.log.Error().Err(err).Msg("stopping device")
		}
		s.device.Uninit()
		s.device = nil
	}

	s.teardownContext()
	s.delay.Reset()

	s.log.Info().Msg("feedback session stopped")
	return nil
}

// Close stops the session and closes the error channel. The session
// must not be reused afterwards.
func (s *MalgoSession) Close() error {
	err := s.Stop()
	s.closeOnce.Do(func() { close(s.errors) })
	return err
}

func (s *MalgoSession) teardownContext() {
	if s.malgoContext != nil {
		_ = s.malgoContext.Uninit()
		s.malgoContext.Free()
		s.malgoContext = nil
	}
}

// SetDelay retargets the feedback delay. Changes arriving faster than
// once per 10ms are dropped, matching the slider repeat rate.
func (s *MalgoSession) SetDelay(delay time.Duration) {
	s.retargetMu.Lock()
	now := time.Now()
	if now.Sub(s.lastRetarget) < retargetInterval {
		s.retargetMu.Unlock()
		return
	}
	s.lastRetarget = now
	s.retargetMu.Unlock()

	if delay < 0 {
		delay = 0
	}
	if delay > s.config.MaxDelay {
		delay = s.config.MaxDelay
	}
	s.delay.SetDelay(delay)
	s.log.Debug().Dur("delay", delay).Msg("delay retargeted")
}

// SetGain sets the output gain. Negative values clamp to silence.
func (s *MalgoSession) SetGain(gain float64) {
	if gain < 0 {
		gain = 0
	}
	s.gainBits.Store(math.Float64bits(gain))
	s.log.Debug().Float64("gain", gain).Msg("gain changed")
}

// Delay returns the configured delay
func (s *MalgoSession) Delay() time.Duration {
	return s.delay.Delay()
}

// Gain returns the current gain
func (s *MalgoSession) Gain() float64 {
	return math.Float64frombits(s.gainBits.Load())
}

// Stats returns a snapshot of the session state
func (s *MalgoSession) Stats() Stats {
	underruns, overruns := s.delay.Counters()
	state := StateStopped
	if s.IsRunning() {
		state = StateRunning
	}
	return Stats{
		State:         state,
		Delay:         s.delay.Delay(),
		MeasuredDelay: s.delay.Buffered(),
		Gain:          s.Gain(),
		Level:         math.Float64frombits(s.levelBits.Load()),
		Underruns:     underruns,
		Overruns:      overruns,
	}
}

// Errors returns a channel that receives fatal session errors
func (s *MalgoSession) Errors() <-chan error {
	return s.errors
}

// IsRunning returns true while the feedback loop is active
func (s *MalgoSession) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// SetTap installs a writer that receives every delayed output block
func (s *MalgoSession) SetTap(w io.Writer) {
	s.tap.Store(tapHolder{w: w})
}

func deviceKindName(kind malgo.DeviceType) string {
	if kind == malgo.Playback {
		return "playback"
	}
	return "capture"
}
