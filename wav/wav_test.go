package wav

import (
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func writeAndClose(t *testing.T, samples []float32) (string, []byte) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "out.wav")
	w, err := NewWriter(path, 16000, 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.WriteFloat32(samples); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return path, data
}

func TestWriterHeaderSizes(t *testing.T) {
	const n = 1600
	_, data := writeAndClose(t, make([]float32, n))

	dataSize := binary.LittleEndian.Uint32(data[40:44])
	if dataSize != n*4 {
		t.Errorf("data size = %d, want %d", dataSize, n*4)
	}
	riffSize := binary.LittleEndian.Uint32(data[4:8])
	if riffSize != 36+n*4 {
		t.Errorf("riff size = %d, want %d", riffSize, 36+n*4)
	}
	if len(data) != HeaderSize+n*4 {
		t.Errorf("file length = %d, want %d", len(data), HeaderSize+n*4)
	}
}

func TestWriterDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	w, err := NewWriter(path, 16000, 2)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := w.WriteFloat32(make([]float32, 32000)); err != nil {
		t.Fatal(err)
	}
	if got := w.Duration(); got != 1.0 {
		t.Errorf("duration = %v, want 1.0", got)
	}
}

func TestFinalizeIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	w, err := NewWriter(path, 16000, 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.WriteFloat32(make([]float32, 777)); err != nil {
		t.Fatal(err)
	}

	if err := w.Finalize(); err != nil {
		t.Fatal(err)
	}
	first, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Finalize(); err != nil {
		t.Fatal(err)
	}
	second, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(first[:HeaderSize]) != string(second[:HeaderSize]) {
		t.Error("repeated finalize changed the header")
	}
	w.Close()
}

func TestHeaderUpdatePreservesPayload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	w, err := NewWriter(path, 16000, 1)
	if err != nil {
		t.Fatal(err)
	}

	samples := make([]float32, 100)
	for i := range samples {
		samples[i] = float32(i) / 100
	}
	if err := w.WriteFloat32(samples); err != nil {
		t.Fatal(err)
	}
	if err := w.Finalize(); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteFloat32(samples); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	_, decoded, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(decoded) != 200 {
		t.Fatalf("decoded %d samples, want 200", len(decoded))
	}
	for i := 0; i < 100; i++ {
		if decoded[i] != samples[i] || decoded[100+i] != samples[i] {
			t.Fatalf("payload corrupted at sample %d", i)
		}
	}
}

func TestWriterInt16Normalization(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	w, err := NewWriter(path, 16000, 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.WriteInt16([]int16{-32768, 0, 16384}); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	data, _ := os.ReadFile(path)
	_, samples, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	want := []float32{-1.0, 0.0, 0.5}
	for i, wv := range want {
		if samples[i] != wv {
			t.Errorf("sample %d = %v, want %v", i, samples[i], wv)
		}
	}
}

func TestWriterUint16Normalization(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	w, err := NewWriter(path, 16000, 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.WriteUint16([]uint16{0, 65535}); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	data, _ := os.ReadFile(path)
	_, samples, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	if samples[0] != -1.0 {
		t.Errorf("zero input = %v, want -1.0", samples[0])
	}
	if samples[1] != 1.0 {
		t.Errorf("max input = %v, want 1.0", samples[1])
	}
}

func TestProbeFloatCapture(t *testing.T) {
	_, data := writeAndClose(t, make([]float32, 16))
	info, err := Probe(data)
	if err != nil {
		t.Fatal(err)
	}
	if info.Format != FormatFloat || info.BitsPerSample != 32 {
		t.Errorf("probe = %+v, want float32 format", info)
	}
	if info.Canonical() {
		t.Error("float capture file must not be canonical")
	}
}

func TestEncodePCM16RoundTrip(t *testing.T) {
	in := []int16{0, 100, -100, 32767, -32768}
	data := EncodePCM16(in, 16000, 1)

	info, samples, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	if !info.Canonical() {
		t.Errorf("encoded info %+v not canonical", info)
	}
	for i, s := range in {
		got := samples[i] * 32768.0
		if math.Abs(float64(got)-float64(s)) > 0.5 {
			t.Errorf("sample %d: got %v, want %d", i, got, s)
		}
	}
}

func TestDecodeMalformed(t *testing.T) {
	cases := map[string][]byte{
		"empty":     nil,
		"short":     []byte("RIFF"),
		"not riff":  make([]byte, 64),
		"bad chunk": append([]byte("RIFFxxxxWAVE"), make([]byte, 40)...),
	}
	for name, data := range cases {
		if _, _, err := Decode(data); !errors.Is(err, ErrMalformed) {
			t.Errorf("%s: err = %v, want ErrMalformed", name, err)
		}
	}
}

func TestDecodeUnsupportedBitDepth(t *testing.T) {
	data := EncodePCM16([]int16{1, 2, 3}, 16000, 1)
	binary.LittleEndian.PutUint16(data[34:36], 24) // claim 24-bit
	if _, _, err := Decode(data); !errors.Is(err, ErrUnsupported) {
		t.Errorf("err = %v, want ErrUnsupported", err)
	}
}
