package spectrum

import (
	"fmt"
	"math"
)

// ToneProbe measures the power of a single frequency in a sample stream
// using the Goertzel recurrence. It is cheaper than an FFT when only one
// bin matters, which is the common case when checking that a test tone
// survived encoding, loss concealment and resampling.
//
// The probe accumulates across Feed calls; Power reflects everything fed
// since the last Reset. Frequency resolution follows the fed length: two
// tones closer than sampleRate/n cycles cannot be told apart after n
// samples.
type ToneProbe struct {
	coeff  float64
	s0, s1 float64
}

// NewToneProbe creates a probe for freqHz at the given sample rate.
// freqHz must lie in [0, sampleRate/2].
func NewToneProbe(freqHz, sampleRate float64) (*ToneProbe, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("spectrum: sample rate must be > 0: %v", sampleRate)
	}
	if freqHz < 0 || freqHz > sampleRate/2 || math.IsNaN(freqHz) {
		return nil, fmt.Errorf("spectrum: frequency %v outside [0, %v]", freqHz, sampleRate/2)
	}
	return &ToneProbe{coeff: 2 * math.Cos(2*math.Pi*freqHz/sampleRate)}, nil
}

// Reset discards all accumulated samples.
func (t *ToneProbe) Reset() {
	t.s0, t.s1 = 0, 0
}

// Feed accumulates a block of samples.
func (t *ToneProbe) Feed(samples []float64) {
	s0, s1 := t.s0, t.s1
	coeff := t.coeff
	for _, x := range samples {
		s0, s1 = x+coeff*s0-s1, s0
	}
	t.s0, t.s1 = s0, s1
}

// Power returns |X|^2 at the probe frequency over the fed samples.
func (t *ToneProbe) Power() float64 {
	return t.s0*t.s0 + t.s1*t.s1 - t.coeff*t.s0*t.s1
}

// TonePower is the one-shot form: the power of freqHz over samples.
func TonePower(samples []float64, freqHz, sampleRate float64) (float64, error) {
	probe, err := NewToneProbe(freqHz, sampleRate)
	if err != nil {
		return 0, err
	}
	probe.Feed(samples)
	return probe.Power(), nil
}
