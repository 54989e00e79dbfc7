package testutil

import (
	"testing"

	"github.com/cwbudde/algo-codecsim/dsp/spectrum"
)

// TonePower returns the Goertzel power of freqHz over samples, failing
// the test on a probe setup error.
func TonePower(t *testing.T, samples []float64, freqHz, sampleRate float64) float64 {
	t.Helper()
	p, err := spectrum.TonePower(samples, freqHz, sampleRate)
	if err != nil {
		t.Fatalf("tone power at %v Hz: %v", freqHz, err)
	}
	return p
}
