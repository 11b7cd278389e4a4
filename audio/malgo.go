package audio

import (
	"encoding/hex"
	"fmt"

	"github.com/gen2brain/malgo"
)

type malgoHost struct {
	ctx *malgo.AllocatedContext
}

// NewHost initializes the miniaudio backend.
func NewHost() (Host, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("initializing audio context: %w", err)
	}
	return &malgoHost{ctx: ctx}, nil
}

func (h *malgoHost) Devices() ([]Device, error) {
	infos, err := h.ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("enumerating capture devices: %w", err)
	}
	var devices []Device
	for _, d := range infos {
		devices = append(devices, Device{
			ID:        hex.EncodeToString(d.ID[:]),
			Name:      d.Name(),
			IsDefault: d.IsDefault != 0,
		})
	}
	return devices, nil
}

func (h *malgoHost) DefaultDevice() (Device, error) {
	devices, err := h.Devices()
	if err != nil {
		return Device{}, err
	}
	for _, d := range devices {
		if d.IsDefault {
			return d, nil
		}
	}
	if len(devices) > 0 {
		return devices[0], nil
	}
	return Device{}, fmt.Errorf("%w: no default input device", ErrDeviceNotFound)
}

func (h *malgoHost) Probe(dev Device) ([]Format, error) {
	id, err := decodeDeviceID(dev.ID)
	if err != nil {
		return nil, err
	}
	full, err := h.ctx.DeviceInfo(malgo.Capture, id, malgo.Shared)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDeviceUnavailable, dev.Name, err)
	}

	var formats []Format
	for _, df := range full.Formats[:full.FormatCount] {
		kind, ok := kindFromMalgo(malgo.FormatType(df.Format))
		if !ok {
			continue
		}
		formats = append(formats, Format{
			Kind:       kind,
			Channels:   uint16(df.Channels),
			SampleRate: df.SampleRate,
		})
	}
	if len(formats) == 0 {
		return nil, fmt.Errorf("%w: %s reports no usable formats", ErrDeviceUnavailable, dev.Name)
	}
	return formats, nil
}

func (h *malgoHost) Open(dev Device, cfg StreamConfig, cb DataCallback) (Stream, error) {
	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = kindToMalgo(cfg.Kind)
	deviceConfig.Capture.Channels = uint32(cfg.Channels)
	deviceConfig.SampleRate = cfg.SampleRate

	if dev.ID != "" {
		id, err := decodeDeviceID(dev.ID)
		if err != nil {
			return nil, err
		}
		deviceConfig.Capture.DeviceID = id.Pointer()
	}

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, data []byte, frameCount uint32) {
			cb(data, frameCount)
		},
	}

	device, err := malgo.InitDevice(h.ctx.Context, deviceConfig, callbacks)
	if err != nil {
		return nil, fmt.Errorf("opening capture stream on %s: %w", dev.Name, err)
	}
	return &malgoStream{device: device}, nil
}

func (h *malgoHost) Close() {
	h.ctx.Uninit()
	h.ctx.Free()
}

type malgoStream struct {
	device *malgo.Device
}

func (s *malgoStream) Start() error { return s.device.Start() }
func (s *malgoStream) Stop() error  { return s.device.Stop() }
func (s *malgoStream) Close()       { s.device.Uninit() }

func decodeDeviceID(id string) (malgo.DeviceID, error) {
	var devID malgo.DeviceID
	idBytes, err := hex.DecodeString(id)
	if err != nil {
		return devID, fmt.Errorf("invalid device ID: %w", err)
	}
	copy(devID[:], idBytes)
	return devID, nil
}

func kindFromMalgo(f malgo.FormatType) (SampleKind, bool) {
	switch f {
	case malgo.FormatS16:
		return KindInt16, true
	case malgo.FormatS32:
		return KindInt32, true
	case malgo.FormatF32:
		return KindFloat32, true
	}
	return 0, false
}

func kindToMalgo(k SampleKind) malgo.FormatType {
	switch k {
	case KindInt16:
		return malgo.FormatS16
	case KindInt32:
		return malgo.FormatS32
	default:
		return malgo.FormatF32
	}
}
