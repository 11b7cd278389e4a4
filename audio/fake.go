package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
)

// FakeDevice scripts one device for the fake host.
type FakeDevice struct {
	Device
	Formats  []Format
	ProbeErr error
}

// FakeHost is a scripted Host for tests: no real audio backend, callers
// control devices, failures and emitted samples.
type FakeHost struct {
	mu         sync.Mutex
	devices    []FakeDevice
	enumErr    error
	openErr    error
	enumCalls  int
	probeCalls int
	streams    []*FakeStream
	closed     bool
}

func NewFakeHost(devices ...FakeDevice) *FakeHost {
	return &FakeHost{devices: devices}
}

func (h *FakeHost) SetDevices(devices ...FakeDevice) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.devices = devices
}

func (h *FakeHost) SetEnumerateError(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.enumErr = err
}

func (h *FakeHost) SetOpenError(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.openErr = err
}

func (h *FakeHost) EnumerateCalls() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.enumCalls
}

func (h *FakeHost) ProbeCalls() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.probeCalls
}

func (h *FakeHost) Closed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

// LastStream returns the most recently opened stream, or nil.
func (h *FakeHost) LastStream() *FakeStream {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.streams) == 0 {
		return nil
	}
	return h.streams[len(h.streams)-1]
}

func (h *FakeHost) Devices() ([]Device, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.enumCalls++
	if h.enumErr != nil {
		return nil, h.enumErr
	}
	devices := make([]Device, len(h.devices))
	for i, d := range h.devices {
		devices[i] = d.Device
	}
	return devices, nil
}

func (h *FakeHost) DefaultDevice() (Device, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.enumErr != nil {
		return Device{}, h.enumErr
	}
	for _, d := range h.devices {
		if d.IsDefault {
			return d.Device, nil
		}
	}
	if len(h.devices) > 0 {
		return h.devices[0].Device, nil
	}
	return Device{}, fmt.Errorf("%w: no default input device", ErrDeviceNotFound)
}

func (h *FakeHost) Probe(dev Device) ([]Format, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.probeCalls++
	for _, d := range h.devices {
		if d.Name == dev.Name {
			if d.ProbeErr != nil {
				return nil, d.ProbeErr
			}
			return d.Formats, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, dev.Name)
}

func (h *FakeHost) Open(dev Device, cfg StreamConfig, cb DataCallback) (Stream, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.openErr != nil {
		return nil, h.openErr
	}
	s := &FakeStream{cfg: cfg, cb: cb}
	h.streams = append(h.streams, s)
	return s, nil
}

func (h *FakeHost) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
}

// FakeStream is the stream handle the fake host hands out. Tests push
// audio through Emit; delivery only happens between Start and Stop, as
// with a real stream.
type FakeStream struct {
	mu      sync.Mutex
	cfg     StreamConfig
	cb      DataCallback
	started bool
	closed  bool
}

func (s *FakeStream) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = true
	return nil
}

func (s *FakeStream) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = false
	return nil
}

func (s *FakeStream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = false
	s.closed = true
}

func (s *FakeStream) Started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

func (s *FakeStream) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *FakeStream) Config() StreamConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// Emit delivers raw bytes to the data callback as the host would.
func (s *FakeStream) Emit(data []byte, frames uint32) {
	s.mu.Lock()
	cb, ok := s.cb, s.started && !s.closed
	s.mu.Unlock()
	if ok && cb != nil {
		cb(data, frames)
	}
}

// EmitFloat32 delivers interleaved float32 samples.
func (s *FakeStream) EmitFloat32(samples []float32) {
	buf := make([]byte, len(samples)*4)
	for i, v := range samples {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	ch := int(s.cfg.Channels)
	if ch == 0 {
		ch = 1
	}
	s.Emit(buf, uint32(len(samples)/ch))
}

// EmitInt16 delivers interleaved signed 16-bit samples.
func (s *FakeStream) EmitInt16(samples []int16) {
	buf := make([]byte, len(samples)*2)
	for i, v := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(v))
	}
	ch := int(s.cfg.Channels)
	if ch == 0 {
		ch = 1
	}
	s.Emit(buf, uint32(len(samples)/ch))
}
