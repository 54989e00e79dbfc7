package roundtrip

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/cwbudde/algo-codecsim/dsp/codec"
)

// persistedState is the fixed-width little-endian field layout of the
// plugin's own parameter values. The layout is part of the persisted
// format; fields must not be reordered or resized.
type persistedState struct {
	Bypass         uint8
	Complexity     uint8
	InbandFEC      uint8
	PacketLossPerc uint8
	MaxBandwidth   uint8
	Gain           int8
	RandomLoss     float64
	RoundRobinLoss float64
}

// SaveState writes the current parameter values to w as an opaque byte
// stream the host persists with the session.
func (p *Processor) SaveState(w io.Writer) error {
	p.mu.Lock()
	state := p.snapshot()
	p.mu.Unlock()

	if err := binary.Write(w, binary.LittleEndian, &state); err != nil {
		return fmt.Errorf("roundtrip: save state: %w", err)
	}
	return nil
}

// LoadState restores parameter values previously written by SaveState.
// Before Setup the values are held and applied once the session is
// configured.
func (p *Processor) LoadState(r io.Reader) error {
	var state persistedState
	if err := binary.Read(r, binary.LittleEndian, &state); err != nil {
		return fmt.Errorf("roundtrip: load state: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.configured {
		p.pending = &state
		return nil
	}
	return p.applyPersisted(&state)
}

func (p *Processor) snapshot() persistedState {
	state := persistedState{Complexity: 9}
	if p.bypass {
		state.Bypass = 1
	}
	state.MaxBandwidth = uint8(codec.Fullband)

	if p.configured {
		engine := p.trip.Engine()
		state.Complexity = uint8(engine.Complexity())
		if engine.InbandFEC() {
			state.InbandFEC = 1
		}
		state.PacketLossPerc = uint8(engine.PacketLossPerc())
		state.MaxBandwidth = uint8(engine.MaxBandwidth())
		state.Gain = int8(engine.Gain())
		state.RandomLoss = p.trip.Loss().RandomLoss()
		state.RoundRobinLoss = p.trip.Loss().RoundRobinLoss()
	}

	return state
}

func (p *Processor) applyPersisted(state *persistedState) error {
	engine := p.trip.Engine()

	p.bypass = state.Bypass != 0

	if err := engine.SetComplexity(int(state.Complexity)); err != nil {
		return err
	}
	if err := engine.SetInbandFEC(state.InbandFEC != 0); err != nil {
		return err
	}
	if err := engine.SetPacketLossPerc(int(state.PacketLossPerc)); err != nil {
		return err
	}
	if err := engine.SetMaxBandwidth(codec.Bandwidth(state.MaxBandwidth)); err != nil {
		return err
	}
	if err := engine.SetGain(int(state.Gain)); err != nil {
		return err
	}

	p.trip.Loss().SetRandomLoss(state.RandomLoss)
	p.trip.Loss().SetRoundRobinLoss(state.RoundRobinLoss)

	return nil
}
