package audio

import (
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
)

// MalgoDevice implements Device using malgo
type MalgoDevice struct {
	mu           sync.Mutex
	device       *malgo.Device
	malgoContext *malgo.AllocatedContext
	closing      bool
}

// NewMalgoDevice creates a new malgo-based input device
func NewMalgoDevice() *MalgoDevice {
	return &MalgoDevice{}
}

// Open initializes the capture device and starts it
func (m *MalgoDevice) Open(config CaptureConfig, callbacks DeviceCallbacks) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.device != nil {
		return fmt.Errorf("device is already open")
	}

	malgoCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("failed to initialize malgo context: %w", err)
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16 // 16-bit signed integer
	deviceConfig.Capture.Channels = config.Channels
	deviceConfig.SampleRate = config.SampleRate
	deviceConfig.PeriodSizeInFrames = config.BlockSize

	if config.DeviceID != "" {
		id, err := findDeviceID(malgoCtx, config.DeviceID)
		if err != nil {
			_ = malgoCtx.Uninit()
			malgoCtx.Free()
			return err
		}
		deviceConfig.Capture.DeviceID = id.Pointer()
	}

	var deviceCallbacks malgo.DeviceCallbacks
	deviceCallbacks.Data = func(_, pInputSamples []byte, framecount uint32) {
		if callbacks.Data != nil {
			callbacks.Data(pInputSamples, framecount)
		}
	}
	deviceCallbacks.Stop = func() {
		m.mu.Lock()
		expected := m.closing
		m.mu.Unlock()
		if !expected && callbacks.Stopped != nil {
			callbacks.Stopped()
		}
	}

	device, err := malgo.InitDevice(malgoCtx.Context, deviceConfig, deviceCallbacks)
	if err != nil {
		_ = malgoCtx.Uninit()
		malgoCtx.Free()
		return fmt.Errorf("failed to initialize device: %w", err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		_ = malgoCtx.Uninit()
		malgoCtx.Free()
		return fmt.Errorf("failed to start device: %w", err)
	}

	m.device = device
	m.malgoContext = malgoCtx
	m.closing = false
	return nil
}

// Close stops the device and releases the malgo context
func (m *MalgoDevice) Close() error {
	m.mu.Lock()
	device := m.device
	malgoCtx := m.malgoContext
	m.closing = true
	m.mu.Unlock()

	if device == nil {
		return nil
	}

	// Stop blocks until the data callback has returned
	err := device.Stop()
	device.Uninit()

	if malgoCtx != nil {
		_ = malgoCtx.Uninit()
		malgoCtx.Free()
	}

	m.mu.Lock()
	m.device = nil
	m.malgoContext = nil
	m.mu.Unlock()

	if err != nil {
		return fmt.Errorf("failed to stop device: %w", err)
	}
	return nil
}

// findDeviceID resolves one of our "capture-N" IDs or a device name to a malgo ID
func findDeviceID(ctx *malgo.AllocatedContext, id string) (malgo.DeviceID, error) {
	infos, err := ctx.Devices(malgo.Capture)
	if err != nil {
		return malgo.DeviceID{}, fmt.Errorf("failed to enumerate devices: %w", err)
	}

	for i, info := range infos {
		if fmt.Sprintf("capture-%d", i) == id || info.Name() == id {
			return info.ID, nil
		}
	}
	return malgo.DeviceID{}, fmt.Errorf("device not found: %s", id)
}
