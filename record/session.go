package record

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"murmur/audio"
	"murmur/log"
	"murmur/wav"
)

// DefaultSampleRate is the capture rate targeted when the caller has no
// preference; transcription engines want 16 kHz anyway.
const DefaultSampleRate = 16000

var (
	// ErrNoSession reports an operation on a session that was never
	// initialized or has been closed.
	ErrNoSession = errors.New("record: no recording session")
	// ErrNoSupportedConfig reports a device with no usable configuration.
	ErrNoSupportedConfig = errors.New("record: no supported input configuration")
	// ErrStreamCreate reports a failure to construct the live stream.
	ErrStreamCreate = errors.New("record: stream creation failed")
)

// Recording is the metadata returned to the caller when recording stops.
type Recording struct {
	SampleRate uint32
	Channels   uint16
	Duration   float64
	Path       string
}

// Session is the capture state machine. A session moves Idle →
// Initialized (Init) → Recording (Start) and back to Idle via Stop+Close
// or Cancel. At most one (device, stream, writer) triple is live at a
// time; Init tears down any prior one first.
type Session struct {
	host audio.Host
	dir  *audio.Manager

	// armed gates the data callback; it is the only state shared with
	// the host's callback thread besides the writer's own lock.
	armed atomic.Bool

	mu       sync.Mutex
	handle   *streamHandle
	writer   *wav.Writer
	rate     uint32
	channels uint16
	path     string
	id       string
}

// NewSession returns an idle session. Device resolution goes through dir;
// stream construction goes straight to host from the stream goroutine.
func NewSession(host audio.Host, dir *audio.Manager) *Session {
	return &Session{host: host, dir: dir}
}

// Init resolves the device, negotiates a configuration, creates the
// writer at <outDir>/<recordingID>.wav and opens the stream. The armed
// flag stays false: no samples are persisted until Start.
func (s *Session) Init(deviceName, outDir, recordingID string, preferredRate uint32) error {
	s.Close()

	dev, err := s.dir.Resolve(deviceName)
	if err != nil {
		return err
	}
	formats, err := s.host.Probe(dev)
	if err != nil {
		return err
	}
	cfg, err := selectConfig(formats, preferredRate)
	if err != nil {
		return err
	}

	path := filepath.Join(outDir, recordingID+".wav")
	writer, err := wav.NewWriter(path, cfg.SampleRate, cfg.Channels)
	if err != nil {
		return err
	}

	handle, err := openStream(s.host, dev, cfg, captureCallback(&s.armed, writer, cfg.Kind))
	if err != nil {
		writer.Close()
		os.Remove(path)
		return err
	}

	s.mu.Lock()
	s.handle = handle
	s.writer = writer
	s.rate = cfg.SampleRate
	s.channels = cfg.Channels
	s.path = path
	s.id = recordingID
	s.mu.Unlock()

	log.Infof("recording session initialized: %s, %d Hz, %d ch, %s",
		dev.Name, cfg.SampleRate, cfg.Channels, path)
	return nil
}

// Start arms the callback. Fails if Init has not succeeded.
func (s *Session) Start() error {
	s.mu.Lock()
	ready := s.handle != nil
	path := s.path
	s.mu.Unlock()
	if !ready {
		return ErrNoSession
	}
	s.armed.Store(true)
	log.RecordingStarted(path)
	return nil
}

// Stop disarms the callback, finalizes the writer and returns the
// recording metadata. The stream stays open until Close or Cancel, so a
// session can be re-armed.
func (s *Session) Stop() (Recording, error) {
	s.armed.Store(false)

	s.mu.Lock()
	writer, path := s.writer, s.path
	s.mu.Unlock()
	if writer == nil {
		return Recording{}, ErrNoSession
	}

	if err := writer.Finalize(); err != nil {
		return Recording{}, fmt.Errorf("finalizing recording: %w", err)
	}
	rate, channels, duration := writer.Metadata()

	log.RecordingStopped(path, duration)
	return Recording{
		SampleRate: rate,
		Channels:   channels,
		Duration:   duration,
		Path:       path,
	}, nil
}

// Cancel disarms, deletes the output file (best effort) and closes the
// session.
func (s *Session) Cancel() {
	s.armed.Store(false)

	s.mu.Lock()
	path := s.path
	s.mu.Unlock()

	s.Close()
	if path != "" {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.Errorf("deleting canceled recording %s: %v", path, err)
		}
	}
}

// Close tears the session down on every exit path: disarm, join the
// stream goroutine, finalize and drop the writer, clear the fields.
// Teardown errors are logged, never returned. Idempotent.
func (s *Session) Close() {
	s.armed.Store(false)

	s.mu.Lock()
	handle, writer := s.handle, s.writer
	s.handle = nil
	s.writer = nil
	s.path = ""
	s.rate = 0
	s.channels = 0
	s.id = ""
	s.mu.Unlock()

	if handle != nil {
		handle.close()
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			log.Errorf("finalizing recording during close: %v", err)
		}
	}
}

// CurrentID returns the recording identifier while samples are being
// persisted.
func (s *Session) CurrentID() (string, bool) {
	if !s.armed.Load() {
		return "", false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id, s.id != ""
}

// captureCallback builds the host data callback: check the armed gate,
// decode the negotiated sample kind, append to the writer. It runs on the
// host's audio thread so the work stays minimal.
func captureCallback(armed *atomic.Bool, writer *wav.Writer, kind audio.SampleKind) audio.DataCallback {
	return func(data []byte, _ uint32) {
		if !armed.Load() {
			return
		}

		var err error
		switch kind {
		case audio.KindFloat32:
			samples := make([]float32, len(data)/4)
			for i := range samples {
				samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
			}
			err = writer.WriteFloat32(samples)
		case audio.KindInt16:
			samples := make([]int16, len(data)/2)
			for i := range samples {
				samples[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
			}
			err = writer.WriteInt16(samples)
		case audio.KindInt32:
			samples := make([]float32, len(data)/4)
			for i := range samples {
				v := int32(binary.LittleEndian.Uint32(data[i*4:]))
				samples[i] = float32(float64(v) / float64(1<<31))
			}
			err = writer.WriteFloat32(samples)
		}
		if err != nil {
			log.Errorf("writing captured samples: %v", err)
		}
	}
}

// selectConfig picks the operating configuration for a device. Order:
// exact-rate mono, exact-rate multi-channel, closest-rate mono, then the
// device's first reported format as-is. A zero rate or channel count in a
// reported format means the backend accepts any value.
func selectConfig(formats []audio.Format, preferredRate uint32) (audio.StreamConfig, error) {
	target := preferredRate
	if target == 0 {
		target = DefaultSampleRate
	}
	if len(formats) == 0 {
		return audio.StreamConfig{}, ErrNoSupportedConfig
	}

	mono := func(f audio.Format) bool { return f.Channels <= 1 }

	for _, f := range formats {
		if mono(f) && f.SupportsRate(target) {
			return audio.StreamConfig{Kind: f.Kind, Channels: 1, SampleRate: target}, nil
		}
	}

	for _, f := range formats {
		if f.SupportsRate(target) {
			ch := f.Channels
			if ch == 0 {
				ch = 1
			}
			return audio.StreamConfig{Kind: f.Kind, Channels: ch, SampleRate: target}, nil
		}
	}

	// Closest-rate search stays mono-only; a multi-channel device whose
	// rates all miss the target is better served by its default format.
	var best audio.Format
	bestDiff := uint32(math.MaxUint32)
	found := false
	for _, f := range formats {
		if !mono(f) || f.SampleRate == 0 {
			continue
		}
		diff := target - f.SampleRate
		if f.SampleRate > target {
			diff = f.SampleRate - target
		}
		if diff < bestDiff {
			bestDiff = diff
			best = f
			found = true
		}
	}
	if found {
		return audio.StreamConfig{Kind: best.Kind, Channels: 1, SampleRate: best.SampleRate}, nil
	}

	f := formats[0]
	ch := f.Channels
	if ch == 0 {
		ch = 1
	}
	rate := f.SampleRate
	if rate == 0 {
		rate = target
	}
	return audio.StreamConfig{Kind: f.Kind, Channels: ch, SampleRate: rate}, nil
}
