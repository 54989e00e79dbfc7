package spectrum

import (
	"fmt"
	"math"

	algofft "github.com/cwbudde/algo-fft"
	"github.com/cwbudde/algo-vecmath"
)

// Analysis is a magnitude spectrum of one capture, Hann-windowed and
// reduced to the non-negative frequency bins.
type Analysis struct {
	// SampleRate is the rate the capture was taken at.
	SampleRate float64
	// Magnitude holds |X[k]| for bins 0 through fftSize/2.
	Magnitude []float64
	// BinHz is the frequency spacing between adjacent bins.
	BinHz float64
}

// Analyze computes the magnitude spectrum of samples. fftSize must be a
// power of two; samples beyond fftSize are ignored and a shorter capture
// is zero-padded.
func Analyze(samples []float64, sampleRate float64, fftSize int) (*Analysis, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("spectrum: sample rate must be > 0: %v", sampleRate)
	}
	if fftSize < 2 || fftSize&(fftSize-1) != 0 {
		return nil, fmt.Errorf("spectrum: fft size must be a power of two >= 2: %d", fftSize)
	}

	n := len(samples)
	if n > fftSize {
		n = fftSize
	}

	in := make([]complex128, fftSize)
	for i := 0; i < n; i++ {
		w := 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n))
		in[i] = complex(samples[i]*w, 0)
	}

	plan, err := algofft.NewPlan64(fftSize)
	if err != nil {
		return nil, fmt.Errorf("spectrum: fft plan: %w", err)
	}
	out := make([]complex128, fftSize)
	if err := plan.Forward(out, in); err != nil {
		return nil, fmt.Errorf("spectrum: fft: %w", err)
	}

	bins := fftSize/2 + 1
	re := make([]float64, bins)
	im := make([]float64, bins)
	for i := 0; i < bins; i++ {
		re[i] = real(out[i])
		im[i] = imag(out[i])
	}
	mag := make([]float64, bins)
	vecmath.Magnitude(mag, re, im)

	return &Analysis{
		SampleRate: sampleRate,
		Magnitude:  mag,
		BinHz:      sampleRate / float64(fftSize),
	}, nil
}

// Peak returns the frequency and magnitude of the strongest bin above DC.
func (a *Analysis) Peak() (freqHz, magnitude float64) {
	best := 1
	for i := 2; i < len(a.Magnitude); i++ {
		if a.Magnitude[i] > a.Magnitude[best] {
			best = i
		}
	}
	return float64(best) * a.BinHz, a.Magnitude[best]
}

// ToneToNoiseDB returns the ratio, in dB, of the energy near freqHz to
// the energy everywhere else. The tone band spans three bins either side
// of the nearest bin, absorbing window leakage.
func (a *Analysis) ToneToNoiseDB(freqHz float64) float64 {
	center := int(freqHz/a.BinHz + 0.5)
	lo, hi := center-3, center+3
	if lo < 0 {
		lo = 0
	}
	if hi >= len(a.Magnitude) {
		hi = len(a.Magnitude) - 1
	}

	var tone, rest float64
	for i, m := range a.Magnitude {
		p := m * m
		if i >= lo && i <= hi {
			tone += p
		} else {
			rest += p
		}
	}
	if rest <= 0 {
		rest = 1e-30
	}
	if tone <= 0 {
		tone = 1e-30
	}
	return 10 * math.Log10(tone/rest)
}
