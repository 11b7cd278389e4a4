// Package audio abstracts the capture host and provides the device
// directory used to resolve device names to usable handles.
package audio

import (
	"errors"
	"strings"
)

// DefaultDeviceName is the reserved identifier for the host's default
// input device, matched case-insensitively.
const DefaultDeviceName = "default"

var (
	// ErrDeviceNotFound reports a device name the host does not know.
	ErrDeviceNotFound = errors.New("audio: device not found")
	// ErrDeviceUnavailable reports a known device that is currently unusable.
	ErrDeviceUnavailable = errors.New("audio: device unavailable")
	// ErrTimeout reports a directory request the worker did not answer in time.
	ErrTimeout = errors.New("audio: device manager timeout")
	// ErrClosed reports use of a closed manager.
	ErrClosed = errors.New("audio: device manager closed")
)

// SampleKind identifies the raw sample encoding of a capture stream.
type SampleKind int

const (
	KindInt16 SampleKind = iota
	KindInt32
	KindFloat32
)

// Bytes returns the per-sample byte width.
func (k SampleKind) Bytes() int {
	switch k {
	case KindInt16:
		return 2
	default:
		return 4
	}
}

func (k SampleKind) String() string {
	switch k {
	case KindInt16:
		return "s16"
	case KindInt32:
		return "s32"
	case KindFloat32:
		return "f32"
	}
	return "unknown"
}

// Device identifies one capture device as reported by the host.
type Device struct {
	ID        string // opaque platform-specific identifier
	Name      string
	IsDefault bool
}

// Format is one native capture configuration reported by a device.
// A zero Channels or SampleRate means the backend accepts any value.
type Format struct {
	Kind       SampleKind
	Channels   uint16
	SampleRate uint32
}

// SupportsRate reports whether this format can run at the given rate.
func (f Format) SupportsRate(rate uint32) bool {
	return f.SampleRate == 0 || f.SampleRate == rate
}

// StreamConfig is the negotiated configuration a stream is opened with.
type StreamConfig struct {
	Kind       SampleKind
	Channels   uint16
	SampleRate uint32
}

// DataCallback receives raw interleaved sample bytes from the host.
// It runs on a thread owned by the host and must return quickly.
type DataCallback func(data []byte, frames uint32)

// Stream is a live capture stream. It must only be driven from the
// goroutine that opened it.
type Stream interface {
	Start() error
	Stop() error
	Close()
}

// Host is the underlying audio backend.
type Host interface {
	Devices() ([]Device, error)
	DefaultDevice() (Device, error)
	// Probe queries a device's native formats; failure means the device
	// is present but not usable.
	Probe(dev Device) ([]Format, error)
	Open(dev Device, cfg StreamConfig, cb DataCallback) (Stream, error)
	Close()
}

// IsDefaultName reports whether name is the reserved default-device
// identifier.
func IsDefaultName(name string) bool {
	return strings.EqualFold(name, DefaultDeviceName)
}

var btKeywords = []string{
	"airpods", "beats", "bose", "wh-1000", "wf-1000",
	"sony wh-", "sony wf-",
	"jabra", "galaxy buds", "pixel buds", "powerbeats",
	"jbl ", "sennheiser momentum", "plantronics",
	"tozo", "anker soundcore", "skullcandy",
	"bluetooth", " bt ", " bt)", " bt]",
}

// IsBluetooth guesses from the device name whether a device is a
// bluetooth headset, which typically captures at reduced quality.
func IsBluetooth(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range btKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
