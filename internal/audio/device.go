package audio

import (
	"fmt"
	"strings"

	"github.com/gen2brain/malgo"
)

// DeviceType represents the direction of an audio device
type DeviceType int

const (
	DeviceTypePlayback DeviceType = iota
	DeviceTypeCapture
)

// String returns a human-readable device kind
func (t DeviceType) String() string {
	if t == DeviceTypePlayback {
		return "playback"
	}
	return "capture"
}

func (t DeviceType) malgoType() malgo.DeviceType {
	if t == DeviceTypePlayback {
		return malgo.Playback
	}
	return malgo.Capture
}

// DeviceInfo contains information about an audio device
type DeviceInfo struct {
	ID        string     // Unique device identifier
	Name      string     // Human-readable device name
	Type      DeviceType // Device direction (playback or capture)
	IsDefault bool       // Whether this is the default device
}

// String returns a human-readable representation of the device
func (d DeviceInfo) String() string {
	defaultMarker := ""
	if d.IsDefault {
		defaultMarker = " [DEFAULT]"
	}
	return fmt.Sprintf("%s: %s%s", d.ID, d.Name, defaultMarker)
}

// ListDevices returns all available devices of the given kind
func ListDevices(kind DeviceType) ([]DeviceInfo, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize malgo context: %w", err)
	}
	defer func() {
		_ = ctx.Uninit()
		ctx.Free()
	}()

	infos, err := ctx.Devices(kind.malgoType())
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate %s devices: %w", kind, err)
	}

	devices := make([]DeviceInfo, 0, len(infos))
	for i, info := range infos {
		devices = append(devices, DeviceInfo{
			ID:        fmt.Sprintf("%s-%d", kind, i),
			Name:      info.Name(),
			Type:      kind,
			IsDefault: info.IsDefault > 0,
		})
	}

	return devices, nil
}

// GetDefaultDevice returns the default device of the given kind
func GetDefaultDevice(kind DeviceType) (*DeviceInfo, error) {
	devices, err := ListDevices(kind)
	if err != nil {
		return nil, err
	}

	for _, device := range devices {
		if device.IsDefault {
			return &device, nil
		}
	}

	// If no default is found, return the first device
	if len(devices) > 0 {
		return &devices[0], nil
	}

	return nil, fmt.Errorf("%w: no %s devices found", ErrDeviceUnavailable, kind)
}

// FindDeviceByName finds a device of the given kind by case-insensitive
// partial name match
func FindDeviceByName(kind DeviceType, name string) (*DeviceInfo, error) {
	devices, err := ListDevices(kind)
	if err != nil {
		return nil, err
	}

	searchName := strings.ToLower(name)
	for _, device := range devices {
		if strings.Contains(strings.ToLower(device.Name), searchName) {
			return &device, nil
		}
	}

	return nil, fmt.Errorf("%w: no %s device matching name: %s", ErrDeviceUnavailable, kind, name)
}
