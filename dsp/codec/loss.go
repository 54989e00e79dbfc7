package codec

import "math/rand"

// LossPolicy decides the fate of each encoded packet, simulating an
// unreliable transport between encoder and decoder.
//
// Only the random policy is consulted: each packet is dropped
// independently with the configured probability. A round-robin fraction
// is carried as a parameter for state round-trips but drives no decision.
type LossPolicy struct {
	rng        *rand.Rand
	random     float64
	roundRobin float64
}

// NewLossPolicy creates a policy with a deterministic seed.
func NewLossPolicy(seed int64) *LossPolicy {
	return &LossPolicy{rng: rand.New(rand.NewSource(seed))}
}

// SetRandomLoss sets the drop probability in [0, 1]. Values outside the
// range are clamped.
func (p *LossPolicy) SetRandomLoss(f float64) {
	if f < 0 {
		f = 0
	}
	if f > 1 {
		f = 1
	}
	p.random = f
}

// RandomLoss returns the drop probability.
func (p *LossPolicy) RandomLoss() float64 { return p.random }

// SetRoundRobinLoss stores the round-robin fraction. It is never
// consulted when deciding packet fate.
func (p *LossPolicy) SetRoundRobinLoss(f float64) {
	if f < 0 {
		f = 0
	}
	if f > 1 {
		f = 1
	}
	p.roundRobin = f
}

// RoundRobinLoss returns the stored round-robin fraction.
func (p *LossPolicy) RoundRobinLoss() float64 { return p.roundRobin }

// NextLost reports whether the next packet is dropped.
func (p *LossPolicy) NextLost() bool {
	if p.random <= 0 {
		return false
	}
	return p.rng.Float64() < p.random
}
