// Package normalize converts captured or imported audio into the
// canonical form engines consume: mono, 16 kHz, 16-bit PCM WAV.
//
// Conversion is tiered. Input that is already canonical passes through
// untouched. WAV and FLAC inputs are converted in process. Anything
// else, or an in-process failure, falls back to ffmpeg.
package normalize

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"murmur/log"
	"murmur/wav"
)

// TargetRate is the sample rate of canonical audio.
const TargetRate = 16000

var (
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	ErrRateOutOfRange    = errors.New("sample rate conversion ratio out of range")
	ErrToolMissing       = errors.New("conversion tool missing")
	ErrToolFailed        = errors.New("conversion tool failed")
)

var flacMagic = []byte("fLaC")

// ToCanonical converts audio bytes to canonical WAV. Already-canonical
// input is returned as-is.
func ToCanonical(data []byte) ([]byte, error) {
	out, _, err := convert(data)
	return out, err
}

// File converts the audio file at path and writes the result next to it
// with a ".16k.wav" suffix, returning the output path.
func File(path string) (string, error) {
	started := time.Now()
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	out, method, err := convert(data)
	if err != nil {
		return "", fmt.Errorf("converting %s: %w", path, err)
	}

	outPath := strings.TrimSuffix(path, filepath.Ext(path)) + ".16k.wav"
	if err := os.WriteFile(outPath, out, 0644); err != nil {
		return "", err
	}
	log.Converted(path, method, float64(time.Since(started).Microseconds())/1000)
	return outPath, nil
}

func convert(data []byte) ([]byte, string, error) {
	if info, err := wav.Probe(data); err == nil && info.Canonical() {
		return data, "passthrough", nil
	}

	out, procErr := convertInProcess(data)
	if procErr == nil {
		return out, "in-process", nil
	}

	out, ffErr := convertFFmpeg(data)
	if ffErr != nil {
		if errors.Is(ffErr, ErrToolMissing) {
			return nil, "", fmt.Errorf("in-process conversion failed (%v) and %w", procErr, ffErr)
		}
		return nil, "", fmt.Errorf("in-process conversion failed (%v); ffmpeg fallback: %w", procErr, ffErr)
	}
	return out, "ffmpeg", nil
}

func convertInProcess(data []byte) ([]byte, error) {
	samples, rate, channels, err := decode(data)
	if err != nil {
		return nil, err
	}

	mono := downmix(samples, int(channels))
	mono, err = resample(mono, rate, TargetRate)
	if err != nil {
		return nil, err
	}
	return wav.EncodePCM16(quantize(mono), TargetRate, 1), nil
}

func decode(data []byte) ([]float32, uint32, uint16, error) {
	if bytes.HasPrefix(data, flacMagic) {
		return decodeFLAC(data)
	}
	info, samples, err := wav.Decode(data)
	if err != nil {
		return nil, 0, 0, err
	}
	return samples, info.SampleRate, info.Channels, nil
}

// Samples decodes audio bytes into mono float samples in [-1, 1] at the
// container's rate, downmixing by arithmetic mean when needed.
func Samples(data []byte) ([]float32, error) {
	samples, _, channels, err := decode(data)
	if err != nil {
		return nil, err
	}
	return downmix(samples, int(channels)), nil
}

// downmix averages interleaved channels into mono. Mono input is
// returned unchanged.
func downmix(samples []float32, channels int) []float32 {
	if channels <= 1 {
		return samples
	}
	frames := len(samples) / channels
	mono := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		for c := 0; c < channels; c++ {
			sum += samples[i*channels+c]
		}
		mono[i] = sum / float32(channels)
	}
	return mono
}

// quantize clamps to [-1, 1] and scales to signed 16-bit.
func quantize(samples []float32) []int16 {
	out := make([]int16, len(samples))
	for i, v := range samples {
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		out[i] = int16(v * 32767)
	}
	return out
}
