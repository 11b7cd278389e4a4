package normalize

import (
	"fmt"
	"math"
)

const (
	// zeroCrossings sets the sinc kernel half-width; larger is sharper
	// and slower.
	zeroCrossings = 16
	// chunkSize is the input block granularity; the tail block is
	// zero-padded to a full chunk before interpolation.
	chunkSize = 1024
	// maxRatio bounds the rate conversion in either direction.
	maxRatio = 8.0
)

// resample converts in from srcRate to dstRate with Hann-windowed sinc
// interpolation. Output length is round(len(in) * dstRate / srcRate).
// Equal rates are an identity.
func resample(in []float32, srcRate, dstRate uint32) ([]float32, error) {
	if srcRate == 0 || dstRate == 0 {
		return nil, fmt.Errorf("%w: %d Hz -> %d Hz", ErrRateOutOfRange, srcRate, dstRate)
	}
	if srcRate == dstRate {
		return in, nil
	}
	ratio := float64(dstRate) / float64(srcRate)
	if ratio > maxRatio || ratio < 1/maxRatio {
		return nil, fmt.Errorf("%w: %d Hz -> %d Hz", ErrRateOutOfRange, srcRate, dstRate)
	}
	if len(in) == 0 {
		return nil, nil
	}

	outLen := int(math.Round(float64(len(in)) * ratio))

	padded := in
	if rem := len(in) % chunkSize; rem != 0 {
		padded = make([]float32, len(in)+chunkSize-rem)
		copy(padded, in)
	}

	// When downsampling the kernel is stretched so its cutoff lands at
	// the destination Nyquist rate.
	scale := ratio
	if scale > 1 {
		scale = 1
	}
	width := float64(zeroCrossings) / scale

	// One input chunk at a time. A chunk produces the output samples
	// whose source position lands inside it; the kernel still reads a
	// window's worth of neighbors across the chunk edge.
	out := make([]float32, outLen)
	next := 0
	for chunkStart := 0; chunkStart < len(padded); chunkStart += chunkSize {
		last := int(math.Ceil(float64(chunkStart+chunkSize) * ratio))
		if last > outLen {
			last = outLen
		}

		for j := next; j < last; j++ {
			center := float64(j) / ratio
			lo := int(math.Ceil(center - width))
			hi := int(math.Floor(center + width))
			if lo < 0 {
				lo = 0
			}
			if hi > len(padded)-1 {
				hi = len(padded) - 1
			}

			var acc, norm float64
			for i := lo; i <= hi; i++ {
				w := sincHann((float64(i) - center) * scale)
				acc += w * float64(padded[i])
				norm += w
			}
			if norm != 0 {
				acc /= norm
			}
			out[j] = float32(acc)
		}
		next = last
	}
	return out, nil
}

// sincHann is the windowed interpolation kernel, zero outside
// [-zeroCrossings, zeroCrossings].
func sincHann(x float64) float64 {
	if x == 0 {
		return 1
	}
	if math.Abs(x) >= zeroCrossings {
		return 0
	}
	px := math.Pi * x
	return (math.Sin(px) / px) * 0.5 * (1 + math.Cos(px/zeroCrossings))
}
