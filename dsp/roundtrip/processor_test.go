package roundtrip

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-codecsim/dsp/codec"
	"github.com/cwbudde/algo-codecsim/internal/testutil"
)

func newConfigured(t *testing.T, hostRate float64, maxBlock int) *Processor {
	t.Helper()
	p := New(WithSeed(1))
	if err := p.Setup(hostRate, maxBlock); err != nil {
		t.Fatalf("Setup(%v, %d) error = %v", hostRate, maxBlock, err)
	}
	return p
}

// toneBlock builds an active block carrying a stereo tone with sample
// phase continuing at the given start offset.
func toneBlock(n int, hostRate float64, start int) *StreamBlock {
	in := make([]float64, n)
	step := 2 * math.Pi * 440 / hostRate
	for i := range in {
		in[i] = 0.5 * math.Sin(step*float64(start+i))
	}
	return &StreamBlock{
		In0:  in,
		In1:  in,
		Out0: make([]float64, n),
		Out1: make([]float64, n),
	}
}

func silentBlock(n int) *StreamBlock {
	return &StreamBlock{
		In0:      make([]float64, n),
		In1:      make([]float64, n),
		Out0:     make([]float64, n),
		Out1:     make([]float64, n),
		InSilent: true,
	}
}

func TestProcessBeforeSetup(t *testing.T) {
	p := New()
	err := p.Process(silentBlock(64))
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("Process() error = %v, want ErrNotConfigured", err)
	}
	if err := p.Reset(); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("Reset() error = %v, want ErrNotConfigured", err)
	}
}

func TestSetupValidation(t *testing.T) {
	p := New()
	if err := p.Setup(0, 512); !errors.Is(err, ErrInvalidSetup) {
		t.Fatalf("Setup(0, 512) error = %v, want ErrInvalidSetup", err)
	}
	if err := p.Setup(math.NaN(), 512); !errors.Is(err, ErrInvalidSetup) {
		t.Fatalf("Setup(NaN, 512) error = %v, want ErrInvalidSetup", err)
	}
	if err := p.Setup(44100, 0); !errors.Is(err, ErrInvalidSetup) {
		t.Fatalf("Setup(44100, 0) error = %v, want ErrInvalidSetup", err)
	}
}

func TestBlockTooLarge(t *testing.T) {
	p := newConfigured(t, 48000, 256)
	err := p.Process(silentBlock(512))
	if !errors.Is(err, ErrBlockTooLarge) {
		t.Fatalf("Process() error = %v, want ErrBlockTooLarge", err)
	}
}

func TestResetIdempotent(t *testing.T) {
	p := newConfigured(t, 44100, 441)

	for i := 0; i < 8; i++ {
		if err := p.Process(toneBlock(441, 44100, i*441)); err != nil {
			t.Fatalf("Process() error = %v", err)
		}
	}

	if err := p.Reset(); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	lat1 := p.Latency()
	pre1, post1 := p.QueuedSamples()

	if err := p.Reset(); err != nil {
		t.Fatalf("second Reset() error = %v", err)
	}
	lat2 := p.Latency()
	pre2, post2 := p.QueuedSamples()

	if lat1 != lat2 {
		t.Fatalf("latency changed across resets: %d vs %d", lat1, lat2)
	}
	if pre1 != 0 || post1 != 0 || pre2 != 0 || post2 != 0 {
		t.Fatalf("queues not empty after reset: %d/%d then %d/%d", pre1, post1, pre2, post2)
	}
}

func TestLatencyFormula(t *testing.T) {
	rates := []float64{44100, 48000, 96000}
	for _, rate := range rates {
		p := newConfigured(t, rate, 512)

		ls := p.LatencyBreakdown()
		want := p.toHostFrames(ls.InboundPriming) +
			ls.OutboundPriming +
			p.toHostFrames(ls.FrameLatency)
		if got := p.Latency(); got != want {
			t.Fatalf("rate %v: Latency() = %d, want %d", rate, got, want)
		}
		if ls.FrameLatency != codec.FrameLen {
			t.Fatalf("rate %v: frame latency = %d, want %d", rate, ls.FrameLatency, codec.FrameLen)
		}

		// Same configuration, same latency, every time.
		q := newConfigured(t, rate, 512)
		if q.Latency() != p.Latency() {
			t.Fatalf("rate %v: latency differs across setups: %d vs %d", rate, q.Latency(), p.Latency())
		}
	}
}

func TestLatencyIdenticalRates(t *testing.T) {
	p := newConfigured(t, 48000, 960)
	// At the codec rate both bridges are 1:1; the reported delay is the
	// frame accumulation plus any measured priming.
	ls := p.LatencyBreakdown()
	want := ls.InboundPriming + ls.OutboundPriming + codec.FrameLen
	if got := p.Latency(); got != want {
		t.Fatalf("Latency() = %d, want %d", got, want)
	}
}

func TestSilenceEfficiency(t *testing.T) {
	p := newConfigured(t, 48000, 960)

	for i := 0; i < 6; i++ {
		if err := p.Process(toneBlock(960, 48000, i*960)); err != nil {
			t.Fatalf("Process() error = %v", err)
		}
	}

	// First silent block may flush a partial frame and still carries the
	// queued pipeline tail.
	if err := p.Process(silentBlock(960)); err != nil {
		t.Fatalf("flush Process() error = %v", err)
	}
	coded := p.FramesCoded()

	for i := 0; i < 10; i++ {
		blk := silentBlock(960)
		if err := p.Process(blk); err != nil {
			t.Fatalf("silent Process() error = %v", err)
		}
		if !blk.OutSilent {
			t.Fatalf("silent block %d not flagged silent", i)
		}
		for j, v := range blk.Out0 {
			if v != 0 || blk.Out1[j] != 0 {
				t.Fatalf("silent block %d emitted audio at %d", i, j)
			}
		}
	}

	if p.FramesCoded() != coded {
		t.Fatalf("codec ran during silence: %d frames after flush, %d before",
			p.FramesCoded(), coded)
	}
}

func TestResumeRePriming(t *testing.T) {
	p := newConfigured(t, 48000, 960)

	// The session starts silent, so the first active block passes
	// through the same Silent->Active transition as a mid-session resume.
	blk := toneBlock(960, 48000, 0)
	if err := p.Process(blk); err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	// The injected zero frame is what reaches the output first.
	var peak float64
	for i := range blk.Out0 {
		peak = math.Max(peak, math.Abs(blk.Out0[i]))
		peak = math.Max(peak, math.Abs(blk.Out1[i]))
	}
	if peak > 1e-3 {
		t.Fatalf("first emitted frame after resume not silent: peak %v", peak)
	}

	// Real decoded content follows from the second block on.
	var energy float64
	for i := 1; i < 4; i++ {
		blk = toneBlock(960, 48000, i*960)
		if err := p.Process(blk); err != nil {
			t.Fatalf("Process() error = %v", err)
		}
		for _, v := range blk.Out0 {
			energy += v * v
		}
	}
	if energy < 1 {
		t.Fatalf("decoded tone energy %v too low after resume", energy)
	}
}

func TestPreQueueDrainInvariant(t *testing.T) {
	p := newConfigured(t, 44100, 500)

	for i := 0; i < 20; i++ {
		if err := p.Process(toneBlock(500, 44100, i*500)); err != nil {
			t.Fatalf("Process() error = %v", err)
		}
		pre, _ := p.QueuedSamples()
		if pre >= codec.FrameSamples {
			t.Fatalf("pre-codec queue holds %d samples after drain, limit %d",
				pre, codec.FrameSamples)
		}
	}
}

func TestRoundTripSmokeTone(t *testing.T) {
	const (
		hostRate = 44100
		block    = 441
		blocks   = 120
	)
	p := newConfigured(t, hostRate, block)

	tail := make([]float64, 0, 20*block)
	for i := 0; i < blocks; i++ {
		blk := toneBlock(block, hostRate, i*block)
		if err := p.Process(blk); err != nil {
			t.Fatalf("Process() error = %v", err)
		}
		if len(blk.Out0) != block || len(blk.Out1) != block {
			t.Fatalf("output length changed: %d/%d", len(blk.Out0), len(blk.Out1))
		}
		for j := range blk.Out0 {
			if math.IsNaN(blk.Out0[j]) || math.IsInf(blk.Out0[j], 0) {
				t.Fatalf("block %d sample %d not finite", i, j)
			}
		}
		if i >= blocks-20 {
			tail = append(tail, blk.Out0...)
		}
	}

	atTone := testutil.TonePower(t, tail, 440, hostRate)
	offTone := testutil.TonePower(t, tail, 1234, hostRate)
	if atTone <= 0 {
		t.Fatal("no energy at the test tone after round trip")
	}
	if atTone < 10*offTone {
		t.Fatalf("tone not dominant after round trip: 440 Hz %v vs 1234 Hz %v", atTone, offTone)
	}
}

// flakyEngine rejects a fixed number of encodes before recovering, to
// exercise degradation and the state it leaves for later calls.
type flakyEngine struct {
	codec.Engine
	failures int
}

func (e *flakyEngine) Encode(pcm []float64, packet []byte) (int, error) {
	if e.failures > 0 {
		e.failures--
		return 0, codec.ErrEncode
	}
	return e.Engine.Encode(pcm, packet)
}

func TestCodecFailureDegradesToSilence(t *testing.T) {
	inner, err := codec.NewOpusEngine()
	if err != nil {
		t.Fatalf("NewOpusEngine() error = %v", err)
	}
	p := New(WithEngine(&flakyEngine{Engine: inner, failures: 1}))
	if err := p.Setup(48000, 960); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	blk := toneBlock(960, 48000, 0)
	blk.Out0[0] = 42 // must be overwritten by the degraded output
	err = p.Process(blk)
	if !errors.Is(err, codec.ErrEncode) {
		t.Fatalf("Process() error = %v, want ErrEncode", err)
	}
	if !blk.OutSilent {
		t.Fatal("degraded block not flagged silent")
	}
	for i := range blk.Out0 {
		if blk.Out0[i] != 0 || blk.Out1[i] != 0 {
			t.Fatalf("degraded output not zeroed at %d", i)
		}
	}

	// With the engine recovered, the next call flushes whatever the
	// failed call left queued without tripping over stale state.
	if err := p.Process(silentBlock(960)); err != nil {
		t.Fatalf("Process() after recovery error = %v", err)
	}
}
