package roundtrip

// StreamBlock is a borrowed view of one host callback's buffers. It is
// valid only for the duration of a single Process call; the Processor
// never retains any of its slices.
type StreamBlock struct {
	// In0, In1 are the input channel buffers. Read-only.
	In0, In1 []float64
	// Out0, Out1 are the output channel buffers, written by Process.
	Out0, Out1 []float64

	// InSilent is the host's hint that both input channels are entirely
	// zero for this block.
	InSilent bool
	// OutSilent is set by Process when the emitted block is pure silence.
	OutSilent bool

	// Changes carries this block's parameter automation, offset-ordered
	// per parameter. Host-owned, read-only.
	Changes AutomationChanges
}

// Frames returns the block length common to all four buffers.
func (b *StreamBlock) Frames() int {
	n := len(b.In0)
	for _, s := range [][]float64{b.In1, b.Out0, b.Out1} {
		if len(s) < n {
			n = len(s)
		}
	}
	return n
}
