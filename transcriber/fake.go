package transcriber

import (
	"context"
	"fmt"
	"sync"
)

// Fake is a scripted Engine for tests and diagnostics. It records what
// it was fed so callers can assert on the delivered audio.
type Fake struct {
	mu   sync.Mutex
	text string
	err  error
	fed  [][]float32
}

func NewFake(text string, err error) *Fake {
	return &Fake{text: text, err: err}
}

func (f *Fake) Name() string { return "fake" }

func (f *Fake) Transcribe(_ context.Context, samples []float32) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := make([]float32, len(samples))
	copy(copied, samples)
	f.fed = append(f.fed, copied)
	if f.err != nil {
		return "", fmt.Errorf("fake engine error: %w", f.err)
	}
	return f.text, nil
}

// Fed returns every sample slice passed to Transcribe, in order.
func (f *Fake) Fed() [][]float32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]float32, len(f.fed))
	copy(out, f.fed)
	return out
}
