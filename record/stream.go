// Package record owns the capture session: it wires a resolved device, a
// goroutine-owned live stream and a progressive WAV writer together.
package record

import (
	"fmt"
	"sync"
	"time"

	"murmur/audio"
	"murmur/log"
)

const parkInterval = 100 * time.Millisecond

// streamHandle hosts a live capture stream on one dedicated goroutine.
// The underlying stream object is constructed, kept alive and torn down
// entirely on that goroutine and never leaves it.
type streamHandle struct {
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// openStream runs the stream constructor inside the worker goroutine and
// waits for the outcome. On success the goroutine parks until close is
// signalled; on failure it exits immediately without parking.
func openStream(host audio.Host, dev audio.Device, cfg audio.StreamConfig, cb audio.DataCallback) (*streamHandle, error) {
	h := &streamHandle{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	errCh := make(chan error, 1)

	go func() {
		defer close(h.done)

		stream, err := host.Open(dev, cfg, cb)
		if err != nil {
			errCh <- err
			return
		}
		if err := stream.Start(); err != nil {
			stream.Close()
			errCh <- err
			return
		}
		errCh <- nil

		ticker := time.NewTicker(parkInterval)
		defer ticker.Stop()
		for {
			select {
			case <-h.stop:
				if err := stream.Stop(); err != nil {
					log.Errorf("stopping capture stream: %v", err)
				}
				stream.Close()
				return
			case <-ticker.C:
			}
		}
	}()

	if err := <-errCh; err != nil {
		<-h.done
		return nil, fmt.Errorf("%w: %w", ErrStreamCreate, err)
	}
	return h, nil
}

// close signals the worker and joins it. After close returns the stream
// is gone and no further data callbacks will run. Idempotent.
func (h *streamHandle) close() {
	h.stopOnce.Do(func() { close(h.stop) })
	<-h.done
}
