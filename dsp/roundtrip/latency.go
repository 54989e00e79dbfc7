package roundtrip

import (
	"math"

	"github.com/cwbudde/algo-codecsim/dsp/codec"
)

// LatencyState breaks the reported delay into its sources. Each field is
// in samples at the rate of the stage that causes it: inbound priming at
// the codec rate, outbound priming at the host rate, frame latency at the
// codec rate.
type LatencyState struct {
	InboundPriming  int
	OutboundPriming int
	FrameLatency    int
}

// computeLatency derives the total host-rate delay from the bridges'
// measured priming latencies plus the one full frame that must accumulate
// before anything can be encoded. Called only at (re)configuration; the
// result is served from cache for the rest of the session.
func (p *Processor) computeLatency() {
	p.latencyState = LatencyState{
		InboundPriming:  p.inBridge.PrimingLatency(),
		OutboundPriming: p.outBridge.PrimingLatency(),
		FrameLatency:    codec.FrameLen,
	}

	p.latency = p.toHostFrames(p.latencyState.InboundPriming) +
		p.latencyState.OutboundPriming +
		p.toHostFrames(p.latencyState.FrameLatency)
}

// toHostFrames converts a codec-rate sample count to host-rate samples,
// rounding up.
func (p *Processor) toHostFrames(codecFrames int) int {
	if codecFrames <= 0 {
		return 0
	}
	return int(math.Ceil(float64(codecFrames) * p.hostRate / codec.Rate))
}

// Latency returns the total delay in host-rate samples the pipeline adds,
// for host delay compensation. Zero before Setup.
func (p *Processor) Latency() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.latency
}

// LatencyBreakdown returns the per-stage latency components.
func (p *Processor) LatencyBreakdown() LatencyState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.latencyState
}
