package normalize

import (
	"errors"
	"math"
	"testing"
)

func TestResampleIdentity(t *testing.T) {
	in := []float32{0.1, 0.2, 0.3}
	out, err := resample(in, 16000, 16000)
	if err != nil {
		t.Fatal(err)
	}
	if &out[0] != &in[0] {
		t.Error("equal-rate resample copied the signal")
	}
}

func TestResampleOutputLength(t *testing.T) {
	cases := []struct {
		n        int
		src, dst uint32
		want     int
	}{
		{44100, 44100, 16000, 16000},
		{1000, 8000, 16000, 2000},
		{22050, 22050, 16000, 16000},
		{16000, 48000, 16000, 5333},
	}
	for _, c := range cases {
		out, err := resample(make([]float32, c.n), c.src, c.dst)
		if err != nil {
			t.Fatalf("%d @ %d -> %d: %v", c.n, c.src, c.dst, err)
		}
		if len(out) != c.want {
			t.Errorf("%d @ %d -> %d: got %d samples, want %d", c.n, c.src, c.dst, len(out), c.want)
		}
	}
}

func TestResamplePreservesDC(t *testing.T) {
	in := make([]float32, 44100)
	for i := range in {
		in[i] = 0.25
	}
	out, err := resample(in, 44100, 16000)
	if err != nil {
		t.Fatal(err)
	}
	// Edges see the zero padding; check the interior.
	for i := 100; i < len(out)-100; i++ {
		if math.Abs(float64(out[i])-0.25) > 1e-3 {
			t.Fatalf("sample %d = %v, want ~0.25", i, out[i])
		}
	}
}

func TestResamplePreservesTone(t *testing.T) {
	// A 440 Hz sine should survive 48 kHz -> 16 kHz with its shape intact.
	const freq = 440.0
	in := make([]float32, 48000)
	for i := range in {
		in[i] = float32(math.Sin(2 * math.Pi * freq * float64(i) / 48000))
	}
	out, err := resample(in, 48000, 16000)
	if err != nil {
		t.Fatal(err)
	}
	for i := 100; i < len(out)-100; i++ {
		want := math.Sin(2 * math.Pi * freq * float64(i) / 16000)
		if math.Abs(float64(out[i])-want) > 0.01 {
			t.Fatalf("sample %d = %v, want %v", i, out[i], want)
		}
	}
}

func TestResampleRatioLimits(t *testing.T) {
	if _, err := resample(make([]float32, 100), 96000, 8000); !errors.Is(err, ErrRateOutOfRange) {
		t.Errorf("12x downsample: err = %v, want ErrRateOutOfRange", err)
	}
	if _, err := resample(make([]float32, 100), 8000, 96000); !errors.Is(err, ErrRateOutOfRange) {
		t.Errorf("12x upsample: err = %v, want ErrRateOutOfRange", err)
	}
	if _, err := resample(make([]float32, 100), 0, 16000); !errors.Is(err, ErrRateOutOfRange) {
		t.Errorf("zero source rate: err = %v, want ErrRateOutOfRange", err)
	}
}

func TestResampleSeamlessAcrossChunks(t *testing.T) {
	// A slow ramp spanning several input chunks must come out as the
	// same ramp, with no seams where one chunk's output ends and the
	// next begins.
	in := make([]float32, 4*chunkSize)
	for i := range in {
		in[i] = float32(i) / float32(len(in))
	}
	out, err := resample(in, 32000, 16000)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2*chunkSize {
		t.Fatalf("got %d samples, want %d", len(out), 2*chunkSize)
	}
	for j := 100; j < len(out)-100; j++ {
		want := float64(2*j) / float64(len(in))
		if math.Abs(float64(out[j])-want) > 1e-3 {
			t.Fatalf("sample %d = %v, want %v", j, out[j], want)
		}
	}
}

func TestResampleEmpty(t *testing.T) {
	out, err := resample(nil, 44100, 16000)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 0 {
		t.Errorf("got %d samples from empty input", len(out))
	}
}
