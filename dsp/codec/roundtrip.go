package codec

import "fmt"

// RoundTrip runs one codec frame through encode, simulated transmission
// and decode, in place. It owns the packet scratch buffer, sized once to
// the codec's maximum packet size, so per-frame work does not allocate.
type RoundTrip struct {
	engine Engine
	loss   *LossPolicy
	packet []byte

	framesCoded uint64
	packetsLost uint64
}

// NewRoundTrip wires an engine to a loss policy.
func NewRoundTrip(engine Engine, loss *LossPolicy) *RoundTrip {
	return &RoundTrip{
		engine: engine,
		loss:   loss,
		packet: make([]byte, MaxPacketSize),
	}
}

// Engine returns the wrapped codec engine.
func (rt *RoundTrip) Engine() Engine { return rt.engine }

// Loss returns the transmission loss policy.
func (rt *RoundTrip) Loss() *LossPolicy { return rt.loss }

// FramesCoded returns how many frames have completed the round trip.
func (rt *RoundTrip) FramesCoded() uint64 { return rt.framesCoded }

// PacketsLost returns how many packets the loss policy dropped.
func (rt *RoundTrip) PacketsLost() uint64 { return rt.packetsLost }

// Reset drops codec history and the round-trip counters.
func (rt *RoundTrip) Reset() {
	rt.engine.Reset()
	rt.framesCoded = 0
	rt.packetsLost = 0
}

// ProcessFrame encodes frame, decides the packet's fate, and decodes the
// result back into frame. A lost packet is decoded as nil, letting the
// decoder conceal the gap from its own state.
func (rt *RoundTrip) ProcessFrame(frame []float64) error {
	if len(frame) != FrameSamples {
		return fmt.Errorf("%w: %d", ErrFrameSize, len(frame))
	}

	n, err := rt.engine.Encode(frame, rt.packet)
	if err != nil {
		return err
	}

	if rt.loss.NextLost() {
		rt.packetsLost++
		err = rt.engine.Decode(nil, true, frame)
	} else {
		err = rt.engine.Decode(rt.packet[:n], rt.engine.InbandFEC(), frame)
	}
	if err != nil {
		return err
	}

	rt.framesCoded++

	return nil
}
