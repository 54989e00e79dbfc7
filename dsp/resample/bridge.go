package resample

// Bridge converts an interleaved stereo stream between two sample rates,
// one direction only. It wraps a Resampler per channel so a pipeline can
// run two independent bridges (inbound and outbound) without the phase
// state of one direction leaking into the other.
//
// The priming latency is measured empirically at construction: one probe
// frame of silence is pushed through the freshly designed filter and the
// produced-sample count is compared against the steady-state expectation.
// The deficit is the delay the bridge adds before steady-state output
// begins, in target-rate frames.
type Bridge struct {
	left  *Resampler
	right *Resampler

	sourceRate float64
	targetRate float64
	priming    int

	pending []float64
	chanIn  [2][]float64
}

// NewBridge creates a stereo bridge converting sourceRate to targetRate.
// probeFrames sets the silent probe length used to measure the priming
// latency, typically one codec frame at the source rate.
func NewBridge(sourceRate, targetRate float64, probeFrames int, q Quality) (*Bridge, error) {
	left, err := NewForRates(sourceRate, targetRate, q)
	if err != nil {
		return nil, err
	}

	right, err := NewForRates(sourceRate, targetRate, q)
	if err != nil {
		return nil, err
	}

	b := &Bridge{
		left:       left,
		right:      right,
		sourceRate: sourceRate,
		targetRate: targetRate,
	}

	if probeFrames > 0 {
		b.priming = b.measurePriming(probeFrames)
	}

	return b, nil
}

// measurePriming pushes probeFrames of silence through the fresh filter
// and returns the shortfall against the steady-state expectation.
func (b *Bridge) measurePriming(probeFrames int) int {
	got := len(b.left.Process(make([]float64, probeFrames)))
	want := b.ExpectedOutput(probeFrames)

	b.Reset()

	if want > got {
		return want - got
	}
	return 0
}

// PrimingLatency returns the measured priming delay in target-rate frames.
func (b *Bridge) PrimingLatency() int {
	return b.priming
}

// SourceRate returns the configured input rate.
func (b *Bridge) SourceRate() float64 {
	return b.sourceRate
}

// TargetRate returns the configured output rate.
func (b *Bridge) TargetRate() float64 {
	return b.targetRate
}

// ExpectedOutput returns the steady-state number of target-rate frames
// produced for inFrames source-rate frames, rounded up.
func (b *Bridge) ExpectedOutput(inFrames int) int {
	if inFrames <= 0 {
		return 0
	}
	up, down := b.left.Ratio()
	n := inFrames * up
	out := n / down
	if n%down != 0 {
		out++
	}
	return out
}

// Reset clears filter phase and any buffered, unemitted output.
func (b *Bridge) Reset() {
	b.left.Reset()
	b.right.Reset()
	b.pending = b.pending[:0]
}

// Push feeds interleaved stereo frames into the bridge. Any output the
// filter produces becomes available through PullAvailable. Frames with an
// odd sample count are rejected silently by dropping the trailing sample.
func (b *Bridge) Push(frames []float64) {
	n := len(frames) / 2
	if n == 0 {
		return
	}

	for c := range b.chanIn {
		if cap(b.chanIn[c]) < n {
			b.chanIn[c] = make([]float64, n)
		}
		b.chanIn[c] = b.chanIn[c][:n]
	}
	for i := 0; i < n; i++ {
		b.chanIn[0][i] = frames[2*i]
		b.chanIn[1][i] = frames[2*i+1]
	}

	outL := b.left.Process(b.chanIn[0])
	outR := b.right.Process(b.chanIn[1])

	// Both channels share one filter design and input length, so the
	// counts match; min guards the invariant regardless.
	m := len(outL)
	if len(outR) < m {
		m = len(outR)
	}
	for i := 0; i < m; i++ {
		b.pending = append(b.pending, outL[i], outR[i])
	}
}

// PullAvailable returns all output produced so far as interleaved stereo,
// consuming it. The returned slice is only valid until the next Push or
// Reset.
func (b *Bridge) PullAvailable() []float64 {
	out := b.pending
	b.pending = b.pending[:0]
	return out
}
