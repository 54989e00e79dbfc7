package roundtrip

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/cwbudde/algo-codecsim/dsp/buffer"
	"github.com/cwbudde/algo-codecsim/dsp/codec"
	"github.com/cwbudde/algo-codecsim/dsp/resample"
)

var (
	// ErrNotConfigured is returned when Process or Reset is called before
	// a successful Setup.
	ErrNotConfigured = errors.New("roundtrip: setup must precede processing")
	// ErrBlockTooLarge is returned when a block exceeds the configured
	// maximum block size.
	ErrBlockTooLarge = errors.New("roundtrip: block exceeds configured maximum")
	// ErrInvalidSetup indicates unusable setup arguments.
	ErrInvalidSetup = errors.New("roundtrip: invalid setup")
)

// Option configures a Processor at construction.
type Option func(*Processor)

// WithLogger sets the logger for setup, reset and degradation events.
func WithLogger(log *slog.Logger) Option {
	return func(p *Processor) {
		if log != nil {
			p.log = log
		}
	}
}

// WithSeed sets the deterministic seed for the packet loss policy.
func WithSeed(seed int64) Option {
	return func(p *Processor) {
		p.seed = seed
	}
}

// WithQuality selects the rate-conversion filter quality.
func WithQuality(q resample.Quality) Option {
	return func(p *Processor) {
		p.quality = q
	}
}

// WithEngine substitutes the codec engine. The default is a fresh
// OpusEngine per Setup.
func WithEngine(engine codec.Engine) Option {
	return func(p *Processor) {
		p.engine = engine
	}
}

// Processor owns the complete round-trip pipeline state for one plugin
// instance: both rate bridges, both sample queues, the codec round trip,
// the silence gate and the cached latency. Setup, Reset and Process
// serialize on an internal mutex, so configuration calls arriving from a
// non-audio thread never observe a half-processed block.
type Processor struct {
	mu      sync.Mutex
	log     *slog.Logger
	seed    int64
	quality resample.Quality
	engine  codec.Engine

	configured bool
	hostRate   float64
	maxBlock   int

	inBridge  *resample.Bridge
	outBridge *resample.Bridge
	preQueue  *buffer.Queue
	postQueue *buffer.Queue
	trip      *codec.RoundTrip

	bypass  bool
	silent  bool
	latency int

	latencyState LatencyState
	pending      *persistedState

	frame     []float64
	zeroFrame []float64
	inter     []float64
	emit      []float64
}

// New creates an unconfigured Processor. Setup must be called before the
// first Process.
func New(opts ...Option) *Processor {
	p := &Processor{
		log:     slog.Default(),
		seed:    1,
		quality: resample.QualityBalanced,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// Setup configures the session: host sample rate and the largest block
// the host will deliver. It allocates every scratch buffer the streaming
// path needs, measures both bridges' priming latencies and caches the
// total reported delay. Safe to call again between processing sessions;
// all streaming state starts fresh.
func (p *Processor) Setup(hostRate float64, maxBlock int) error {
	if hostRate <= 0 || math.IsNaN(hostRate) || math.IsInf(hostRate, 0) {
		return fmt.Errorf("%w: host rate %v", ErrInvalidSetup, hostRate)
	}
	if maxBlock <= 0 {
		return fmt.Errorf("%w: max block %d", ErrInvalidSetup, maxBlock)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	engine := p.engine
	if engine == nil {
		fresh, err := codec.NewOpusEngine()
		if err != nil {
			return err
		}
		engine = fresh
	}

	// Probe each bridge with one codec frame's worth of silence at its
	// source rate to measure priming empirically.
	probeIn := int(math.Ceil(float64(codec.FrameLen) * hostRate / codec.Rate))
	inBridge, err := resample.NewBridge(hostRate, codec.Rate, probeIn, p.quality)
	if err != nil {
		return fmt.Errorf("roundtrip: inbound bridge: %w", err)
	}

	outBridge, err := resample.NewBridge(codec.Rate, hostRate, codec.FrameLen, p.quality)
	if err != nil {
		return fmt.Errorf("roundtrip: outbound bridge: %w", err)
	}

	p.configured = true
	p.hostRate = hostRate
	p.maxBlock = maxBlock
	p.inBridge = inBridge
	p.outBridge = outBridge
	p.preQueue = buffer.NewQueue(2 * codec.FrameSamples)
	p.postQueue = buffer.NewQueue(2 * (codec.FrameSamples + 2*maxBlock))
	p.trip = codec.NewRoundTrip(engine, codec.NewLossPolicy(p.seed))
	p.bypass = false
	p.silent = true
	p.frame = make([]float64, codec.FrameSamples)
	p.zeroFrame = make([]float64, codec.FrameSamples)
	p.inter = make([]float64, 2*maxBlock)
	p.emit = make([]float64, 2*maxBlock)

	p.computeLatency()

	if p.pending != nil {
		if err := p.applyPersisted(p.pending); err != nil {
			p.log.Warn("persisted parameters not applied", "error", err)
		}
		p.pending = nil
	}

	p.log.Info("configured codec round trip",
		"host_rate", hostRate,
		"max_block", maxBlock,
		"inbound_priming", p.latencyState.InboundPriming,
		"outbound_priming", p.latencyState.OutboundPriming,
		"latency", p.latency)

	return nil
}

// Reset clears all streaming state: queues, bridge phase, codec history
// and the silence gate. The cached latency is untouched; it depends only
// on configuration. Calling Reset twice is the same as calling it once.
func (p *Processor) Reset() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.configured {
		return ErrNotConfigured
	}

	p.inBridge.Reset()
	p.outBridge.Reset()
	p.preQueue.Clear()
	p.postQueue.Clear()
	p.trip.Reset()
	p.silent = true

	return nil
}

// QueuedSamples reports the interleaved sample counts held in the
// pre-codec and post-codec queues.
func (p *Processor) QueuedSamples() (pre, post int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.configured {
		return 0, 0
	}
	return p.preQueue.Len(), p.postQueue.Len()
}

// FramesCoded reports how many codec frames have completed the round trip
// since the last Setup or Reset.
func (p *Processor) FramesCoded() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.configured {
		return 0
	}
	return p.trip.FramesCoded()
}

// PacketsLost reports how many packets the loss policy dropped since the
// last Setup or Reset.
func (p *Processor) PacketsLost() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.configured {
		return 0
	}
	return p.trip.PacketsLost()
}

// Process runs one host callback's block through the pipeline.
//
// The block's input is rate-converted and queued; every complete codec
// frame is automated, encoded and decoded; decoded audio is converted
// back and emitted into the block's output, padded with silence on
// underrun. Remaining automation is flushed before returning, so every
// breakpoint lands before the next block begins.
//
// On a codec failure the call degrades: output is zeroed, the error is
// returned, and the queues stay consistent for the next call.
func (p *Processor) Process(blk *StreamBlock) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.configured {
		return ErrNotConfigured
	}

	n := blk.Frames()
	if n > p.maxBlock {
		return fmt.Errorf("%w: %d > %d", ErrBlockTooLarge, n, p.maxBlock)
	}

	silentPrev := p.silent
	p.silent = blk.InSilent

	var err error
	if p.silent {
		err = p.flushOnSilence()
	} else {
		err = p.processAudio(blk, n, silentPrev)
	}
	if err != nil {
		p.emitSilence(blk, n)
		p.log.Warn("codec round trip degraded to silence", "error", err)
		return err
	}

	p.emitDecoded(blk, n)

	return p.applyAutomation(blk.Changes, horizonFlush)
}

// flushOnSilence completes the round trip for the partial frame that was
// queued when the host went silent, zero-padded to a full frame. While
// silence lasts and nothing is queued, no codec or resampler work happens.
func (p *Processor) flushOnSilence() error {
	if p.preQueue.Len() == 0 {
		return nil
	}

	got := p.preQueue.DrainInto(p.frame)
	for i := got; i < len(p.frame); i++ {
		p.frame[i] = 0
	}

	return p.codeAndQueue()
}

// processAudio feeds the block into the pipeline and round-trips every
// complete codec frame.
func (p *Processor) processAudio(blk *StreamBlock, n int, silentPrev bool) error {
	// Coming out of silence the pipeline has fully drained, which removed
	// exactly the latency the host is compensating for. One zero frame
	// ahead of the new audio restores it.
	if silentPrev {
		p.preQueue.PushSlice(p.zeroFrame)
	}

	// Codec-rate frames queued before this block's own audio arrives;
	// automation offsets are relative to the new audio only.
	queuedBefore := p.preQueue.Len() / 2

	inter := p.inter[:2*n]
	for i := 0; i < n; i++ {
		inter[2*i] = blk.In0[i]
		inter[2*i+1] = blk.In1[i]
	}
	p.inBridge.Push(inter)
	p.preQueue.PushSlice(p.inBridge.PullAvailable())

	frameIndex := 0
	for p.preQueue.Len() >= codec.FrameSamples {
		frameIndex++

		// This frame's end position inside the new audio, in host-rate
		// samples, bounds which breakpoints are already due.
		frameEnd := frameIndex * codec.FrameLen
		horizon := p.toHostFrames(frameEnd - queuedBefore)
		if err := p.applyAutomation(blk.Changes, horizon); err != nil {
			return err
		}

		if !p.preQueue.PopInto(p.frame) {
			break
		}
		if err := p.codeAndQueue(); err != nil {
			return err
		}
	}

	return nil
}

// codeAndQueue round-trips p.frame through the codec and queues the
// decoded audio behind the outbound bridge.
func (p *Processor) codeAndQueue() error {
	if err := p.trip.ProcessFrame(p.frame); err != nil {
		return err
	}

	p.outBridge.Push(p.frame)
	p.postQueue.PushSlice(p.outBridge.PullAvailable())

	return nil
}

// emitDecoded writes queued decoded audio into the block's output, oldest
// first, padding with silence on underrun. Unread decoded audio stays
// queued for the next callback.
func (p *Processor) emitDecoded(blk *StreamBlock, n int) {
	if p.postQueue.Len() == 0 {
		p.emitSilence(blk, n)
		return
	}

	emit := p.emit[:2*n]
	got := p.postQueue.DrainInto(emit)
	for i := got; i < len(emit); i++ {
		emit[i] = 0
	}

	for i := 0; i < n; i++ {
		blk.Out0[i] = emit[2*i]
		blk.Out1[i] = emit[2*i+1]
	}
	blk.OutSilent = false
}

// emitSilence zeroes the block's output and forwards the silence flag.
func (p *Processor) emitSilence(blk *StreamBlock, n int) {
	for i := 0; i < n; i++ {
		blk.Out0[i] = 0
		blk.Out1[i] = 0
	}
	blk.OutSilent = true
}
