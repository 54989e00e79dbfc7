package roundtrip

import (
	"math"

	"github.com/cwbudde/algo-codecsim/dsp/codec"
)

// Param identifies an automatable processor parameter. All values are
// exchanged with the host in normalized [0, 1] form.
type Param int

// Automatable parameters.
const (
	ParamBypass Param = iota
	ParamComplexity
	ParamInbandFEC
	ParamPredictedLoss
	ParamMaxBandwidth
	ParamGain
	ParamRandomLoss
	ParamRoundRobinLoss

	numParams
)

var paramNames = [numParams]string{
	"Bypass",
	"Complexity",
	"InbandFEC",
	"PredictedLoss",
	"MaxBandwidth",
	"Gain",
	"RandomLoss",
	"RoundRobinLoss",
}

func (p Param) String() string {
	if p < 0 || p >= numParams {
		return "Unknown"
	}
	return paramNames[p]
}

// Breakpoint is one automation point for a parameter within a block.
type Breakpoint struct {
	// Offset is the sample position within the block at which the value
	// takes effect.
	Offset int
	// Value is the normalized parameter value.
	Value float64
}

// AutomationChanges maps each automated parameter to its offset-ordered
// breakpoints for one block.
type AutomationChanges map[Param][]Breakpoint

// horizonFlush consumes every remaining breakpoint in a block.
const horizonFlush = math.MaxInt

// applyAutomation applies, for each parameter, the last breakpoint whose
// offset lies strictly below horizon. Breakpoints at or beyond the horizon
// stay pending for a later, larger-horizon call within the same block; the
// final call with horizonFlush guarantees every breakpoint lands before
// the next block begins.
func (p *Processor) applyAutomation(changes AutomationChanges, horizon int) error {
	for param, points := range changes {
		applied := false
		value := 0.0
		for _, bp := range points {
			if bp.Offset >= horizon {
				break
			}
			applied = true
			value = bp.Value
		}
		if !applied {
			continue
		}
		if err := p.setParam(param, value); err != nil {
			return err
		}
	}
	return nil
}

// setParam routes a normalized value to the live codec or loss state.
func (p *Processor) setParam(param Param, value float64) error {
	engine := p.trip.Engine()

	switch param {
	case ParamBypass:
		p.bypass = normBool(value)
	case ParamComplexity:
		return engine.SetComplexity(normComplexity(value))
	case ParamInbandFEC:
		return engine.SetInbandFEC(normBool(value))
	case ParamPredictedLoss:
		return engine.SetPacketLossPerc(normPercentage(value))
	case ParamMaxBandwidth:
		return engine.SetMaxBandwidth(normBandwidth(value))
	case ParamGain:
		return engine.SetGain(normGain(value))
	case ParamRandomLoss:
		p.trip.Loss().SetRandomLoss(value)
	case ParamRoundRobinLoss:
		p.trip.Loss().SetRoundRobinLoss(value)
	}
	return nil
}

func normBool(v float64) bool {
	return v > 0.5
}

// normGain maps [0, 1] linearly onto [-8, +8] dB, truncated to whole dB.
func normGain(v float64) int {
	return int(-8*(1-v) + 8*v)
}

func normComplexity(v float64) int {
	return int(v*10 + 0.5)
}

func normPercentage(v float64) int {
	return int(v*100 + 0.5)
}

func normBandwidth(v float64) codec.Bandwidth {
	bw := codec.Bandwidth(v*4 + 0.5)
	if bw < codec.Narrowband {
		return codec.Narrowband
	}
	if bw > codec.Fullband {
		return codec.Fullband
	}
	return bw
}

// Normalize converts a plain parameter value (whole dB, percent, steps)
// to the normalized [0, 1] form used in automation and persisted state.
func (p Param) Normalize(plain float64) float64 {
	switch p {
	case ParamComplexity:
		return plain / 10
	case ParamPredictedLoss:
		return plain / 100
	case ParamMaxBandwidth:
		return plain / 4
	case ParamGain:
		return (plain + 8) / 16
	default:
		return plain
	}
}
