package analysis

import (
	"math/bits"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// FFT returns the discrete Fourier transform of data, zero padded to the
// next power of two.
func FFT(data []float64) []complex128 {
	n := len(data)
	if n > 1 && n&(n-1) != 0 {
		padded := make([]float64, 1<<bits.Len(uint(n)))
		copy(padded, data)
		data = padded
	}
	return fft.FFTReal(data)
}

// PowerSpectrum returns the magnitude of the first half of the transform.
func PowerSpectrum(data []float64) []float64 {
	f := FFT(data)
	ps := make([]float64, len(f)/2)
	for i := range ps {
		ps[i] = cmplx.Abs(f[i])
	}
	return ps
}

// Spectrum is a one-sided magnitude spectrum of a uniformly sampled series.
type Spectrum struct {
	Frequencies []float64
	Magnitudes  []float64
}

// NewSpectrum transforms values sampled every dt seconds. The mean is
// removed first so the DC bin does not dominate.
func NewSpectrum(values []float64, dt float64) Spectrum {
	if len(values) < 2 || dt <= 0 {
		return Spectrum{}
	}
	mean := Summarize(values).Mean
	centered := make([]float64, len(values))
	for i, v := range values {
		centered[i] = v - mean
	}

	mags := PowerSpectrum(centered)
	n := 2 * len(mags)
	freqs := make([]float64, len(mags))
	for i := range freqs {
		freqs[i] = float64(i) / (float64(n) * dt)
	}
	return Spectrum{Frequencies: freqs, Magnitudes: mags}
}

// Dominant returns the frequency of the largest non-DC bin, or zero.
func (s Spectrum) Dominant() float64 {
	best, bestMag := 0, 0.0
	for i := 1; i < len(s.Magnitudes); i++ {
		if s.Magnitudes[i] > bestMag {
			best, bestMag = i, s.Magnitudes[i]
		}
	}
	if best == 0 {
		return 0
	}
	return s.Frequencies[best]
}
