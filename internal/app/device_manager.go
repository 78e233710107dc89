package app

import (
	"fmt"
	"io"
	"os"

	"github.com/emmett/voxstream/internal/audio"
)

// DeviceManager handles audio device selection and listing
type DeviceManager struct {
	out  io.Writer
	list func() ([]audio.DeviceInfo, error)
}

// NewDeviceManager creates a DeviceManager over the system's capture devices
func NewDeviceManager(out io.Writer) *DeviceManager {
	if out == nil {
		out = os.Stdout
	}
	return &DeviceManager{out: out, list: audio.ListDevices}
}

// ListDevices prints all available audio input devices
func (dm *DeviceManager) ListDevices() error {
	devices, err := dm.list()
	if err != nil {
		return fmt.Errorf("failed to list devices: %w", err)
	}

	if len(devices) == 0 {
		fmt.Fprintln(dm.out, "No audio capture devices found.")
		return audio.ErrNoDevice
	}

	fmt.Fprintf(dm.out, "Found %d capture device(s):\n\n", len(devices))
	for i, device := range devices {
		marker := ""
		if device.IsDefault {
			marker = " [DEFAULT]"
		}
		fmt.Fprintf(dm.out, "%d. %s%s\n", i+1, device.Name, marker)
		fmt.Fprintf(dm.out, "   ID: %s\n\n", device.ID)
	}

	fmt.Fprintln(dm.out, "To use a specific device, run:")
	fmt.Fprintf(dm.out, "  voxstream --device %q\n", devices[0].Name)
	return nil
}

// SelectDevice selects an audio device by ID or name, or the default one
func (dm *DeviceManager) SelectDevice(query string) (*audio.DeviceInfo, error) {
	devices, err := dm.list()
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}

	device, err := audio.SelectDevice(devices, query)
	if err != nil {
		return nil, fmt.Errorf("invalid audio device %q (use --list-devices): %w", query, err)
	}
	return device, nil
}
