package wav

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"sync"
	"time"
)

const headerUpdateInterval = time.Second

// Writer appends audio to a WAV file while keeping the container
// self-describing. Samples are stored as 32-bit IEEE float regardless of the
// source encoding; integer inputs are normalized to [-1, 1] first.
//
// Writer is safe for use from the capture callback thread: every method
// takes an internal lock and returns quickly.
type Writer struct {
	mu         sync.Mutex
	f          *os.File
	path       string
	sampleRate uint32
	channels   uint16
	samples    uint64
	lastUpdate time.Time
	closed     bool
}

const writerBytesPerSample = 4 // 32-bit float storage

// NewWriter creates path and writes the initial header with placeholder
// size fields.
func NewWriter(path string, sampleRate uint32, channels uint16) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating wav file: %w", err)
	}

	var hdr [HeaderSize]byte
	copy(hdr[0:4], "RIFF")
	binary.LittleEndian.PutUint32(hdr[4:8], 0xFFFFFFFF) // patched by updateHeader
	copy(hdr[8:12], "WAVE")
	copy(hdr[12:16], "fmt ")
	binary.LittleEndian.PutUint32(hdr[16:20], 16)
	binary.LittleEndian.PutUint16(hdr[20:22], FormatFloat)
	binary.LittleEndian.PutUint16(hdr[22:24], channels)
	binary.LittleEndian.PutUint32(hdr[24:28], sampleRate)
	byteRate := sampleRate * uint32(channels) * writerBytesPerSample
	binary.LittleEndian.PutUint32(hdr[28:32], byteRate)
	binary.LittleEndian.PutUint16(hdr[32:34], channels*writerBytesPerSample)
	binary.LittleEndian.PutUint16(hdr[34:36], writerBytesPerSample*8)
	copy(hdr[36:40], "data")
	binary.LittleEndian.PutUint32(hdr[40:44], 0xFFFFFFFF) // patched by updateHeader

	if _, err := f.Write(hdr[:]); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("writing wav header: %w", err)
	}

	return &Writer{
		f:          f,
		path:       path,
		sampleRate: sampleRate,
		channels:   channels,
		lastUpdate: time.Now(),
	}, nil
}

// WriteFloat32 appends samples already in [-1, 1].
func (w *Writer) WriteFloat32(samples []float32) error {
	buf := make([]byte, len(samples)*writerBytesPerSample)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(s))
	}
	return w.append(buf, uint64(len(samples)))
}

// WriteInt16 appends signed 16-bit samples, normalized by 1/32768.
func (w *Writer) WriteInt16(samples []int16) error {
	buf := make([]byte, len(samples)*writerBytesPerSample)
	for i, s := range samples {
		f := float32(s) / 32768.0
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return w.append(buf, uint64(len(samples)))
}

// WriteUint16 appends unsigned 16-bit samples, scaled by 1/65535 and
// shifted into [-1, 1].
func (w *Writer) WriteUint16(samples []uint16) error {
	buf := make([]byte, len(samples)*writerBytesPerSample)
	for i, s := range samples {
		f := float32(s)/65535.0*2.0 - 1.0
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return w.append(buf, uint64(len(samples)))
}

func (w *Writer) append(buf []byte, n uint64) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return os.ErrClosed
	}
	if _, err := w.f.Write(buf); err != nil {
		return fmt.Errorf("writing samples: %w", err)
	}
	w.samples += n

	if time.Since(w.lastUpdate) >= headerUpdateInterval {
		if err := w.updateHeader(); err != nil {
			return err
		}
		w.lastUpdate = time.Now()
	}
	return nil
}

// updateHeader patches the two size fields in place. It never moves the
// append position: header writes use WriteAt, so sample bytes already on
// disk are untouched. Caller holds w.mu.
func (w *Writer) updateHeader() error {
	dataSize := w.samples * writerBytesPerSample
	riffSize := 36 + dataSize

	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(riffSize))
	if _, err := w.f.WriteAt(b[:], riffSizePos); err != nil {
		return fmt.Errorf("updating riff size: %w", err)
	}
	binary.LittleEndian.PutUint32(b[:], uint32(dataSize))
	if _, err := w.f.WriteAt(b[:], dataSizePos); err != nil {
		return fmt.Errorf("updating data size: %w", err)
	}
	return nil
}

// Finalize rewrites the header from the current sample counter and syncs
// the file. Safe to call more than once; every call recomputes the same
// values until more samples arrive.
func (w *Writer) Finalize() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	if err := w.updateHeader(); err != nil {
		return err
	}
	return w.f.Sync()
}

// Close finalizes and closes the file. Idempotent.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	err := w.updateHeader()
	if serr := w.f.Sync(); err == nil {
		err = serr
	}
	if cerr := w.f.Close(); err == nil {
		err = cerr
	}
	w.closed = true
	return err
}

// Duration returns seconds of audio written so far.
func (w *Writer) Duration() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return float64(w.samples) / (float64(w.sampleRate) * float64(w.channels))
}

// Samples returns the running sample counter.
func (w *Writer) Samples() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.samples
}

// Metadata returns the fixed stream parameters and current duration.
func (w *Writer) Metadata() (sampleRate uint32, channels uint16, duration float64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	d := float64(w.samples) / (float64(w.sampleRate) * float64(w.channels))
	return w.sampleRate, w.channels, d
}

// Path returns the output file path.
func (w *Writer) Path() string { return w.path }
