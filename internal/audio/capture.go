package audio

import (
	"encoding/hex"
	"fmt"
	"runtime"
	"strings"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/gen2brain/malgo"

	"github.com/pulseline/pulseline-go/internal/conf"
	"github.com/pulseline/pulseline-go/internal/errors"
	"github.com/pulseline/pulseline-go/internal/logging"
)

// captureSource holds information about an audio capture source.
type captureSource struct {
	Name    string
	ID      string
	Pointer unsafe.Pointer
}

// AudioDeviceInfo holds information about an audio device.
type AudioDeviceInfo struct {
	Index int
	Name  string
	ID    string
}

// ListAudioSources returns a list of available audio capture devices.
func ListAudioSources() ([]AudioDeviceInfo, error) {
	ctx, err := malgo.InitContext(defaultBackends(), malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, errors.New(err).
			Component("audio").
			Category(errors.CategoryAudioSource).
			Build()
	}
	defer ctx.Uninit() //nolint:errcheck

	infos, err := ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, errors.New(err).
			Component("audio").
			Category(errors.CategoryAudioSource).
			Build()
	}

	var devices []AudioDeviceInfo
	for i, info := range infos {
		decodedID, err := hexToASCII(info.ID.String())
		if err != nil {
			logging.Warn("Error decoding device ID", "index", i, "error", err)
			continue
		}

		devices = append(devices, AudioDeviceInfo{
			Index: i,
			Name:  info.Name(),
			ID:    decodedID,
		})
	}

	return devices, nil
}

// defaultBackends picks the platform capture backend, nil for auto select.
func defaultBackends() []malgo.Backend {
	switch runtime.GOOS {
	case "linux":
		return []malgo.Backend{malgo.BackendAlsa}
	case "windows":
		return []malgo.Backend{malgo.BackendWasapi}
	case "darwin":
		return []malgo.Backend{malgo.BackendCoreaudio}
	default:
		return nil
	}
}

// matchesDeviceSettings checks if the device matches the source specified by the user.
func matchesDeviceSettings(decodedID string, info malgo.DeviceInfo, audioSource string) bool {
	if runtime.GOOS == "windows" && audioSource == "sysdefault" {
		// On Windows there is no "sysdefault" device, use the default device instead.
		return info.IsDefault == 1
	}
	return decodedID == audioSource || strings.Contains(info.Name(), audioSource)
}

// hexToASCII converts a hexadecimal string to an ASCII string.
func hexToASCII(hexStr string) (string, error) {
	bytes, err := hex.DecodeString(hexStr)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// selectCaptureSource selects a capture device matching the configured source name or ID.
func selectCaptureSource(source string, infos []malgo.DeviceInfo) (captureSource, error) {
	for i, info := range infos {
		decodedID, err := hexToASCII(info.ID.String())
		if err != nil {
			logging.Warn("Error decoding device ID", "index", i, "error", err)
			continue
		}

		if matchesDeviceSettings(decodedID, info, source) {
			return captureSource{
				Name:    info.Name(),
				ID:      decodedID,
				Pointer: info.ID.Pointer(),
			}, nil
		}
	}

	return captureSource{}, errors.Newf("no suitable capture source found for device setting %s", source).
		Component("audio").
		Category(errors.CategoryAudioSource).
		Context("source", source).
		Build()
}

// MalgoBackend captures live audio through the malgo (miniaudio) binding.
// It delivers S16LE mono buffers at the configured sample rate.
type MalgoBackend struct {
	source   string
	debug    bool
	hooks    CaptureHooks
	ctx      *malgo.AllocatedContext
	device   *malgo.Device
	name     string
	stopping atomic.Bool
	closed   atomic.Bool
	stopDone chan struct{}
}

// NewMalgoBackend returns a live capture backend for the given source
// setting ("sysdefault", a device name fragment, or a device ID).
func NewMalgoBackend(source string, debug bool) *MalgoBackend {
	return &MalgoBackend{source: source, debug: debug, stopDone: make(chan struct{})}
}

// DeviceName returns the name of the selected capture device, empty before Open.
func (b *MalgoBackend) DeviceName() string { return b.name }

// SampleRate returns the negotiated capture sample rate.
func (b *MalgoBackend) SampleRate() int { return conf.SampleRate }

// Open initializes the malgo context, selects the capture device and
// registers the callback hooks. The device does not run until Start.
func (b *MalgoBackend) Open(hooks CaptureHooks) error {
	b.hooks = hooks

	ctx, err := malgo.InitContext(defaultBackends(), malgo.ContextConfig{}, func(message string) {
		if b.debug {
			logging.Debug("malgo", "message", strings.TrimSpace(message))
		}
	})
	if err != nil {
		return errors.New(err).
			Component("audio").
			Category(errors.CategoryResource).
			Context("operation", "init-context").
			Build()
	}
	b.ctx = ctx

	infos, err := ctx.Devices(malgo.Capture)
	if err != nil {
		b.Close()
		return errors.New(err).
			Component("audio").
			Category(errors.CategoryAudioSource).
			Build()
	}

	source, err := selectCaptureSource(b.source, infos)
	if err != nil {
		b.Close()
		return err
	}
	b.name = source.Name

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = conf.NumChannels
	deviceConfig.SampleRate = conf.SampleRate
	deviceConfig.Alsa.NoMMap = 1
	deviceConfig.Capture.DeviceID = source.Pointer

	var rc RawCapture

	// onReceiveFrames runs on malgo's capture thread. The descriptor is
	// reused across invocations so the hot path never allocates.
	onReceiveFrames := func(_, pSamples []byte, frameCount uint32) {
		if b.stopping.Load() || b.hooks.Process == nil {
			return
		}
		rc.Data = pSamples
		rc.Frames = int(frameCount)
		rc.Channels = conf.NumChannels
		rc.Format = FormatS16LE
		b.hooks.Process(&rc)
	}

	// onStopDevice fires when the device stops, either from Deactivate or
	// from a backend-side failure.
	onStopDevice := func() {
		if b.stopping.Load() {
			if b.hooks.Paused != nil {
				b.hooks.Paused()
			}
			return
		}
		// Unexpected stop while streaming is a backend error.
		if b.hooks.Error != nil {
			b.hooks.Error(errors.Newf("capture device stopped unexpectedly").
				Component("audio").
				Category(errors.CategoryAudioSource).
				Context("device", b.name).
				Build())
		}
	}

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: onReceiveFrames,
		Stop: onStopDevice,
	})
	if err != nil {
		b.Close()
		return errors.New(err).
			Component("audio").
			Category(errors.CategoryResource).
			Context("operation", "init-device").
			Context("device", source.Name).
			Build()
	}
	b.device = device

	return nil
}

// Start begins callback scheduling and fires the Ready hook.
func (b *MalgoBackend) Start() error {
	if b.device == nil {
		return errors.Newf("capture device not opened").
			Component("audio").
			Category(errors.CategoryState).
			Build()
	}

	if err := b.device.Start(); err != nil {
		return errors.New(err).
			Component("audio").
			Category(errors.CategoryResource).
			Context("operation", "device-start").
			Build()
	}

	if b.hooks.Ready != nil {
		b.hooks.Ready()
	}
	return nil
}

// Deactivate asks malgo to stop scheduling the data callback. The Paused
// hook fires via the device stop callback once scheduling has stopped.
func (b *MalgoBackend) Deactivate() {
	if !b.stopping.CompareAndSwap(false, true) {
		return
	}
	dev := b.device
	if dev == nil {
		close(b.stopDone)
		return
	}
	// Stop blocks until the capture thread has drained, so run it off the
	// caller's goroutine; the stop callback delivers Paused. Close waits on
	// stopDone so Uninit never races an in-flight Stop.
	go func() {
		defer close(b.stopDone)
		if err := dev.Stop(); err != nil {
			logging.Warn("Error stopping capture device", "error", err)
			if b.hooks.Paused != nil {
				b.hooks.Paused()
			}
		}
	}()
}

// Close releases the device and context. Idempotent.
func (b *MalgoBackend) Close() {
	if !b.closed.CompareAndSwap(false, true) {
		return
	}
	if b.stopping.Load() {
		select {
		case <-b.stopDone:
		case <-time.After(2 * time.Second):
			logging.Warn("Timeout waiting for capture device to stop")
		}
	}
	if b.device != nil {
		b.device.Uninit()
		b.device = nil
	}
	if b.ctx != nil {
		_ = b.ctx.Uninit()
		b.ctx.Free()
		b.ctx = nil
	}
}

// String describes the backend for logs.
func (b *MalgoBackend) String() string {
	return fmt.Sprintf("malgo capture (%s)", b.source)
}
