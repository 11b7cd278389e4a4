package normalize

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"
	"github.com/mewkiz/flac/meta"

	"murmur/wav"
)

func pcm16WAV(t *testing.T, samples []int16, rate uint32, channels uint16) []byte {
	t.Helper()
	return wav.EncodePCM16(samples, rate, channels)
}

func TestPassThroughCanonical(t *testing.T) {
	in := pcm16WAV(t, make([]int16, 16000), 16000, 1)

	out, err := ToCanonical(in)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(in, out) {
		t.Error("canonical input was re-encoded instead of passed through")
	}
}

func TestResampleToCanonical(t *testing.T) {
	// Three channels at 44100 Hz, one second.
	const frames = 44100
	samples := make([]int16, frames*3)
	for i := range samples {
		samples[i] = 8192
	}
	in := pcm16WAV(t, samples, 44100, 3)

	out, err := ToCanonical(in)
	if err != nil {
		t.Fatal(err)
	}
	info, decoded, err := wav.Decode(out)
	if err != nil {
		t.Fatal(err)
	}
	if !info.Canonical() {
		t.Errorf("output not canonical: %+v", info)
	}
	if n := len(decoded); n < 15999 || n > 16001 {
		t.Errorf("output length = %d, want ~16000", n)
	}
}

func TestDownmixAveragesChannels(t *testing.T) {
	// Stereo at the target rate: no resampling, downmix only.
	const frames = 100
	samples := make([]int16, frames*2)
	for i := 0; i < frames; i++ {
		samples[i*2] = 19660   // ~0.6
		samples[i*2+1] = 6553  // ~0.2
	}
	in := pcm16WAV(t, samples, 16000, 2)

	out, err := ToCanonical(in)
	if err != nil {
		t.Fatal(err)
	}
	_, decoded, err := wav.Decode(out)
	if err != nil {
		t.Fatal(err)
	}
	if len(decoded) != frames {
		t.Fatalf("decoded %d frames, want %d", len(decoded), frames)
	}
	for i, v := range decoded {
		if math.Abs(float64(v)-0.4) > 1e-3 {
			t.Fatalf("sample %d = %v, want ~0.4", i, v)
		}
	}
}

func TestSamplesMono(t *testing.T) {
	in := pcm16WAV(t, []int16{16384, -16384, 0}, 16000, 1)

	got, err := Samples(in)
	if err != nil {
		t.Fatal(err)
	}
	want := []float32{0.5, -0.5, 0}
	if len(got) != len(want) {
		t.Fatalf("got %d samples, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestGarbageFallsBackToFFmpeg(t *testing.T) {
	t.Setenv("PATH", "")

	_, err := ToCanonical([]byte("not audio at all"))
	if !errors.Is(err, ErrToolMissing) {
		t.Errorf("err = %v, want ErrToolMissing", err)
	}
}

func TestFFmpegAvailableRespectsPath(t *testing.T) {
	t.Setenv("PATH", "")
	if FFmpegAvailable() {
		t.Error("ffmpeg reported available with empty PATH")
	}
}

func encodeTestFLAC(t *testing.T, samples []int16, rate uint32) []byte {
	t.Helper()
	var buf bytes.Buffer
	enc, err := flac.NewEncoder(&buf, &meta.StreamInfo{
		BlockSizeMin:  1024,
		BlockSizeMax:  1024,
		SampleRate:    rate,
		NChannels:     1,
		BitsPerSample: 16,
	})
	if err != nil {
		t.Fatal(err)
	}
	for off := 0; off < len(samples); off += 1024 {
		end := off + 1024
		if end > len(samples) {
			end = len(samples)
		}
		block := samples[off:end]
		samples32 := make([]int32, len(block))
		for i, s := range block {
			samples32[i] = int32(s)
		}
		f := &frame.Frame{
			Header: frame.Header{
				BlockSize:     uint16(len(block)),
				SampleRate:    rate,
				Channels:      frame.ChannelsMono,
				BitsPerSample: 16,
			},
			Subframes: []*frame.Subframe{{
				SubHeader: frame.SubHeader{Pred: frame.PredVerbatim},
				Samples:   samples32,
				NSamples:  len(block),
			}},
		}
		if err := enc.WriteFrame(f); err != nil {
			t.Fatal(err)
		}
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestFLACDecode(t *testing.T) {
	samples := make([]int16, 2048)
	for i := range samples {
		samples[i] = 16384
	}
	in := encodeTestFLAC(t, samples, 16000)

	got, rate, channels, err := decodeFLAC(in)
	if err != nil {
		t.Fatal(err)
	}
	if rate != 16000 || channels != 1 {
		t.Errorf("rate = %d, channels = %d", rate, channels)
	}
	if len(got) != len(samples) {
		t.Fatalf("decoded %d samples, want %d", len(got), len(samples))
	}
	if got[0] != 0.5 {
		t.Errorf("sample 0 = %v, want 0.5", got[0])
	}
}

func TestFLACToCanonical(t *testing.T) {
	samples := make([]int16, 4096)
	in := encodeTestFLAC(t, samples, 32000)

	out, err := ToCanonical(in)
	if err != nil {
		t.Fatal(err)
	}
	info, decoded, err := wav.Decode(out)
	if err != nil {
		t.Fatal(err)
	}
	if !info.Canonical() {
		t.Errorf("output not canonical: %+v", info)
	}
	if len(decoded) != 2048 {
		t.Errorf("decoded %d samples, want 2048 (32 kHz halved)", len(decoded))
	}
}

func TestQuantizeClamps(t *testing.T) {
	got := quantize([]float32{2, -2, 1, -1, 0})
	want := []int16{32767, -32767, 32767, -32767, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("quantize[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestDownmixMonoUnchanged(t *testing.T) {
	in := []float32{0.1, 0.2, 0.3}
	got := downmix(in, 1)
	if &got[0] != &in[0] {
		t.Error("mono downmix copied the slice")
	}
}
