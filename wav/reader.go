package wav

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// Probe parses the container framing and returns the stream description
// without decoding sample data.
func Probe(data []byte) (Info, error) {
	info, _, err := parse(data)
	return info, err
}

// Decode parses data and returns interleaved samples as float32 in [-1, 1].
// Supported encodings: 16-bit PCM, 32-bit PCM and 32-bit IEEE float.
func Decode(data []byte) (Info, []float32, error) {
	info, pcm, err := parse(data)
	if err != nil {
		return Info{}, nil, err
	}

	switch {
	case info.Format == FormatPCM && info.BitsPerSample == 16:
		n := len(pcm) / 2
		samples := make([]float32, n)
		for i := 0; i < n; i++ {
			s := int16(binary.LittleEndian.Uint16(pcm[i*2:]))
			samples[i] = float32(s) / 32768.0
		}
		return info, samples, nil

	case info.Format == FormatPCM && info.BitsPerSample == 32:
		n := len(pcm) / 4
		samples := make([]float32, n)
		for i := 0; i < n; i++ {
			s := int32(binary.LittleEndian.Uint32(pcm[i*4:]))
			samples[i] = float32(float64(s) / float64(1<<31))
		}
		return info, samples, nil

	case info.Format == FormatFloat && info.BitsPerSample == 32:
		n := len(pcm) / 4
		samples := make([]float32, n)
		for i := 0; i < n; i++ {
			samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(pcm[i*4:]))
		}
		return info, samples, nil
	}

	return Info{}, nil, fmt.Errorf("%w: format %d, %d bits",
		ErrUnsupported, info.Format, info.BitsPerSample)
}

// parse walks the chunk list, tolerating extra chunks between fmt and data.
func parse(data []byte) (Info, []byte, error) {
	if len(data) < HeaderSize {
		return Info{}, nil, fmt.Errorf("%w: %d bytes", ErrMalformed, len(data))
	}
	if !bytes.Equal(data[0:4], []byte("RIFF")) || !bytes.Equal(data[8:12], []byte("WAVE")) {
		return Info{}, nil, fmt.Errorf("%w: missing RIFF/WAVE tags", ErrMalformed)
	}

	var info Info
	var pcm []byte
	haveFmt, haveData := false, false

	pos := 12
	for pos+8 <= len(data) {
		id := string(data[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := pos + 8
		if size < 0 || body > len(data) {
			return Info{}, nil, fmt.Errorf("%w: bad chunk %q", ErrMalformed, id)
		}
		end := body + size
		if end > len(data) {
			// A still-growing capture file can declare more data than is
			// present; clamp rather than reject.
			end = len(data)
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return Info{}, nil, fmt.Errorf("%w: short fmt chunk", ErrMalformed)
			}
			info.Format = binary.LittleEndian.Uint16(data[body : body+2])
			info.Channels = binary.LittleEndian.Uint16(data[body+2 : body+4])
			info.SampleRate = binary.LittleEndian.Uint32(data[body+4 : body+8])
			info.BitsPerSample = binary.LittleEndian.Uint16(data[body+14 : body+16])
			haveFmt = true
		case "data":
			info.DataSize = uint32(end - body)
			pcm = data[body:end]
			haveData = true
		}

		pos = end
		if pos%2 == 1 { // chunks are word-aligned
			pos++
		}
	}

	if !haveFmt || !haveData {
		return Info{}, nil, fmt.Errorf("%w: missing fmt or data chunk", ErrMalformed)
	}
	if info.Channels == 0 || info.SampleRate == 0 {
		return Info{}, nil, fmt.Errorf("%w: zero channels or sample rate", ErrMalformed)
	}
	return info, pcm, nil
}

// EncodePCM16 builds a canonical in-memory container: integer PCM, 16-bit,
// little-endian, at the given rate and channel count.
func EncodePCM16(samples []int16, sampleRate uint32, channels uint16) []byte {
	dataSize := uint32(len(samples) * 2)
	buf := make([]byte, HeaderSize+int(dataSize))

	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], 36+dataSize)
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], FormatPCM)
	binary.LittleEndian.PutUint16(buf[22:24], channels)
	binary.LittleEndian.PutUint32(buf[24:28], sampleRate)
	binary.LittleEndian.PutUint32(buf[28:32], sampleRate*uint32(channels)*2)
	binary.LittleEndian.PutUint16(buf[32:34], channels*2)
	binary.LittleEndian.PutUint16(buf[34:36], 16)
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], dataSize)

	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[HeaderSize+i*2:], uint16(s))
	}
	return buf
}
