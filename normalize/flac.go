package normalize

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/mewkiz/flac"
)

// decodeFLAC decodes a FLAC stream into interleaved float samples.
func decodeFLAC(data []byte) ([]float32, uint32, uint16, error) {
	stream, err := flac.New(bytes.NewReader(data))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	info := stream.Info
	channels := uint16(info.NChannels)
	scale := float64(int64(1) << (info.BitsPerSample - 1))

	var samples []float32
	for {
		f, err := stream.ParseNext()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, 0, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
		}
		if len(f.Subframes) == 0 {
			continue
		}
		frames := len(f.Subframes[0].Samples)
		for i := 0; i < frames; i++ {
			for _, sub := range f.Subframes {
				samples = append(samples, float32(float64(sub.Samples[i])/scale))
			}
		}
	}
	return samples, info.SampleRate, channels, nil
}
