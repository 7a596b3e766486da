package app

import (
	"fmt"
	"os"

	"github.com/quentin/dafgen/internal/audio"
)

// DeviceManager handles audio device selection and listing
type DeviceManager struct{}

// NewDeviceManager creates a new DeviceManager instance
func NewDeviceManager() *DeviceManager {
	return &DeviceManager{}
}

// ListDevices lists all available capture and playback devices
func (dm *DeviceManager) ListDevices() error {
	fmt.Println("Detecting audio devices...")
	fmt.Println()

	for _, kind := range []audio.DeviceType{audio.DeviceTypeCapture, audio.DeviceTypePlayback} {
		devices, err := audio.ListDevices(kind)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: Failed to list %s devices: %v\n", kind, err)
			return err
		}

		fmt.Printf("Found %d %s device(s):\n\n", len(devices), kind)
		for i, device := range devices {
			marker := ""
			if device.IsDefault {
				marker = " [DEFAULT]"
			}
			fmt.Printf("%d. %s%s\n", i+1, device.Name, marker)
			fmt.Printf("   ID: %s\n", device.ID)
			fmt.Println()
		}
	}

	fmt.Println("To use specific devices, run:")
	fmt.Println("  dafgen --input-device \"<name>\" --output-device \"<name>\"")

	return nil
}

// SelectDevice selects a device of the given kind by name, or returns
// the default device when name is empty
func (dm *DeviceManager) SelectDevice(kind audio.DeviceType, name string) (*audio.DeviceInfo, error) {
	if name == "" {
		device, err := audio.GetDefaultDevice(kind)
		if err != nil {
			return nil, fmt.Errorf("failed to get default %s device: %w", kind, err)
		}
		return device, nil
	}

	device, err := audio.FindDeviceByName(kind, name)
	if err != nil {
		devices, listErr := audio.ListDevices(kind)
		if listErr == nil && len(devices) > 0 {
			fmt.Fprintf(os.Stderr, "Error: %s device '%s' not found\n\n", kind, name)
			fmt.Printf("Available %s devices:\n", kind)
			for i, d := range devices {
				marker := ""
				if d.IsDefault {
					marker = " [DEFAULT]"
				}
				fmt.Printf("  %d. %s%s\n", i+1, d.Name, marker)
			}
			fmt.Println()
			fmt.Println("Use --list-devices for more details")
		}
		return nil, err
	}

	return device, nil
}
