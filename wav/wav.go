// Package wav reads and writes RIFF/WAVE containers. The writer appends
// samples progressively and keeps the header size fields close to the true
// byte count while the file is still growing, so a recording survives a hard
// crash with at most one second of undeclared audio.
package wav

import "errors"

const (
	// HeaderSize is the byte length of the canonical 44-byte header.
	HeaderSize = 44

	// FormatPCM and FormatFloat are the fmt-chunk audio format codes.
	FormatPCM   = 1
	FormatFloat = 3

	riffSizePos = 4
	dataSizePos = 40
)

var (
	// ErrMalformed reports input that is not a parseable WAV container.
	ErrMalformed = errors.New("wav: malformed container")
	// ErrUnsupported reports a parseable container whose sample encoding
	// is not handled in-process.
	ErrUnsupported = errors.New("wav: unsupported sample encoding")
)

// Info describes the audio carried by a WAV container.
type Info struct {
	Format        uint16
	Channels      uint16
	SampleRate    uint32
	BitsPerSample uint16
	DataSize      uint32
}

// Samples returns the number of interleaved samples in the data chunk.
func (i Info) Samples() uint32 {
	bps := uint32(i.BitsPerSample) / 8
	if bps == 0 {
		return 0
	}
	return i.DataSize / bps
}

// Duration returns the audio length in seconds.
func (i Info) Duration() float64 {
	if i.SampleRate == 0 || i.Channels == 0 {
		return 0
	}
	return float64(i.Samples()) / (float64(i.SampleRate) * float64(i.Channels))
}

// Canonical reports whether the audio already matches the format the
// transcription engines accept: mono, 16 kHz, 16-bit integer PCM.
func (i Info) Canonical() bool {
	return i.Format == FormatPCM && i.Channels == 1 &&
		i.SampleRate == 16000 && i.BitsPerSample == 16
}
