// Package transcriber defines the contract between the capture pipeline
// and speech-to-text engines. Engines always receive canonical audio:
// mono float samples at 16 kHz.
package transcriber

import "context"

// SampleRate is the rate engines expect their input at.
const SampleRate = 16000

// Engine turns canonical audio samples into text.
type Engine interface {
	Name() string
	Transcribe(ctx context.Context, samples []float32) (string, error)
}
