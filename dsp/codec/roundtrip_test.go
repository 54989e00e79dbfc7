package codec

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-codecsim/internal/testutil"
)

func newTestRoundTrip(t *testing.T, seed int64) *RoundTrip {
	t.Helper()
	engine, err := NewOpusEngine()
	if err != nil {
		t.Fatalf("NewOpusEngine() error = %v", err)
	}
	return NewRoundTrip(engine, NewLossPolicy(seed))
}

func toneFrame() []float64 {
	mono := testutil.DeterministicSine(440, Rate, 0.5, FrameLen)
	frame := make([]float64, FrameSamples)
	for i, v := range mono {
		frame[2*i] = v
		frame[2*i+1] = v
	}
	return frame
}

func TestRoundTripFrameSizeValidation(t *testing.T) {
	rt := newTestRoundTrip(t, 1)
	err := rt.ProcessFrame(make([]float64, FrameSamples-2))
	if !errors.Is(err, ErrFrameSize) {
		t.Fatalf("ProcessFrame() error = %v, want ErrFrameSize", err)
	}
}

func TestRoundTripToneSurvives(t *testing.T) {
	rt := newTestRoundTrip(t, 1)

	var energy float64
	for i := 0; i < 10; i++ {
		frame := toneFrame()
		if err := rt.ProcessFrame(frame); err != nil {
			t.Fatalf("ProcessFrame() error = %v", err)
		}
		for _, v := range frame {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				t.Fatalf("decoded sample not finite: %v", v)
			}
			energy += v * v
		}
	}

	if energy == 0 {
		t.Fatal("round trip produced silence for a steady tone")
	}
	if rt.FramesCoded() != 10 {
		t.Fatalf("FramesCoded() = %d, want 10", rt.FramesCoded())
	}
	if rt.PacketsLost() != 0 {
		t.Fatalf("PacketsLost() = %d with no loss configured", rt.PacketsLost())
	}
}

func TestRoundTripTotalLossConceals(t *testing.T) {
	rt := newTestRoundTrip(t, 1)
	rt.Loss().SetRandomLoss(1)

	for i := 0; i < 5; i++ {
		frame := toneFrame()
		if err := rt.ProcessFrame(frame); err != nil {
			t.Fatalf("ProcessFrame() error = %v", err)
		}
		for _, v := range frame {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				t.Fatalf("concealed sample not finite: %v", v)
			}
		}
	}

	if rt.PacketsLost() != 5 {
		t.Fatalf("PacketsLost() = %d, want 5", rt.PacketsLost())
	}
}

func TestRoundTripResetClearsCounters(t *testing.T) {
	rt := newTestRoundTrip(t, 1)
	if err := rt.ProcessFrame(toneFrame()); err != nil {
		t.Fatalf("ProcessFrame() error = %v", err)
	}
	rt.Reset()
	if rt.FramesCoded() != 0 || rt.PacketsLost() != 0 {
		t.Fatalf("counters survived Reset: coded=%d lost=%d", rt.FramesCoded(), rt.PacketsLost())
	}
}

func TestOpusEngineKnobs(t *testing.T) {
	engine, err := NewOpusEngine()
	if err != nil {
		t.Fatalf("NewOpusEngine() error = %v", err)
	}

	if err := engine.SetPacketLossPerc(101); err == nil {
		t.Fatal("expected error for loss percentage > 100")
	}
	if err := engine.SetPacketLossPerc(30); err != nil {
		t.Fatalf("SetPacketLossPerc(30) error = %v", err)
	}
	if engine.PacketLossPerc() != 30 {
		t.Fatalf("PacketLossPerc() = %d, want 30", engine.PacketLossPerc())
	}

	if err := engine.SetMaxBandwidth(Bandwidth(9)); err == nil {
		t.Fatal("expected error for invalid bandwidth")
	}
	if err := engine.SetMaxBandwidth(Wideband); err != nil {
		t.Fatalf("SetMaxBandwidth(Wideband) error = %v", err)
	}
	if engine.MaxBandwidth() != Wideband {
		t.Fatalf("MaxBandwidth() = %d, want Wideband", engine.MaxBandwidth())
	}

	if err := engine.SetInbandFEC(true); err != nil {
		t.Fatalf("SetInbandFEC() error = %v", err)
	}
	if !engine.InbandFEC() {
		t.Fatal("InbandFEC() = false after enabling")
	}

	if err := engine.SetGain(-6); err != nil {
		t.Fatalf("SetGain(-6) error = %v", err)
	}
	if engine.Gain() != -6 {
		t.Fatalf("Gain() = %d, want -6", engine.Gain())
	}
}

func TestOpusEngineBandwidthCapAttenuatesHighs(t *testing.T) {
	full, err := NewOpusEngine()
	if err != nil {
		t.Fatalf("NewOpusEngine() error = %v", err)
	}
	capped, err := NewOpusEngine()
	if err != nil {
		t.Fatalf("NewOpusEngine() error = %v", err)
	}
	if err := capped.SetMaxBandwidth(Narrowband); err != nil {
		t.Fatalf("SetMaxBandwidth(Narrowband) error = %v", err)
	}

	// 6 kHz sits above the 4 kHz narrowband cutoff but inside every
	// wider mode, and its period tiles the frame without discontinuity.
	const toneHz = 6000
	packet := make([]byte, MaxPacketSize)

	decodeLeft := func(e *OpusEngine) []float64 {
		t.Helper()
		var left []float64
		for i := 0; i < 10; i++ {
			mono := testutil.DeterministicSine(toneHz, Rate, 0.5, FrameLen)
			frame := make([]float64, FrameSamples)
			for j, v := range mono {
				frame[2*j] = v
				frame[2*j+1] = v
			}
			out := make([]float64, FrameSamples)
			n, err := e.Encode(frame, packet)
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			if err := e.Decode(packet[:n], false, out); err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			// Skip the first frames while the codec settles.
			if i >= 5 {
				for j := 0; j < FrameLen; j++ {
					left = append(left, out[2*j])
				}
			}
		}
		return left
	}

	fullPower := testutil.TonePower(t, decodeLeft(full), toneHz, Rate)
	cappedPower := testutil.TonePower(t, decodeLeft(capped), toneHz, Rate)

	if fullPower <= 0 {
		t.Fatal("uncapped engine lost the tone entirely")
	}
	if cappedPower >= fullPower/4 {
		t.Fatalf("narrowband cap kept tone power %v vs uncapped %v", cappedPower, fullPower)
	}
}

func TestOpusEngineGainScalesOutput(t *testing.T) {
	unity, err := NewOpusEngine()
	if err != nil {
		t.Fatalf("NewOpusEngine() error = %v", err)
	}
	attenuated, err := NewOpusEngine()
	if err != nil {
		t.Fatalf("NewOpusEngine() error = %v", err)
	}
	if err := attenuated.SetGain(-12); err != nil {
		t.Fatalf("SetGain(-12) error = %v", err)
	}

	packet := make([]byte, MaxPacketSize)
	var eUnity, eAtten float64
	for i := 0; i < 5; i++ {
		frame := toneFrame()
		out := make([]float64, FrameSamples)

		n, err := unity.Encode(frame, packet)
		if err != nil {
			t.Fatalf("Encode() error = %v", err)
		}
		if err := unity.Decode(packet[:n], false, out); err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		for _, v := range out {
			eUnity += v * v
		}

		n, err = attenuated.Encode(frame, packet)
		if err != nil {
			t.Fatalf("Encode() error = %v", err)
		}
		if err := attenuated.Decode(packet[:n], false, out); err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		for _, v := range out {
			eAtten += v * v
		}
	}

	if eUnity == 0 {
		t.Fatal("unity-gain decode produced silence")
	}
	// -12 dB is a power factor of ~0.063; allow slack for codec noise.
	if eAtten >= eUnity/2 {
		t.Fatalf("attenuated energy %v not clearly below unity energy %v", eAtten, eUnity)
	}
}
