package codec

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-vecmath"
	"github.com/thesyncim/gopus"
)

// OpusEngine adapts the pure-Go Opus implementation to the Engine
// interface. Encoder and decoder run at the fixed codec rate; PCM crosses
// the boundary through preallocated float32 scratch, so the steady-state
// path does not allocate.
type OpusEngine struct {
	enc *gopus.Encoder
	dec *gopus.Decoder

	pcm32 []float32

	complexity int
	inbandFEC  bool
	lossPerc   int
	bandwidth  Bandwidth
	gainDB     int
	gainScale  float64
}

// NewOpusEngine creates an Opus engine at the session format (48 kHz
// stereo, 20 ms frames), tuned for voice like the transmission path it
// simulates.
func NewOpusEngine() (*OpusEngine, error) {
	enc, err := gopus.NewEncoder(gopus.EncoderConfig{
		SampleRate:  Rate,
		Channels:    Channels,
		Application: gopus.ApplicationVoIP,
	})
	if err != nil {
		return nil, fmt.Errorf("codec: create opus encoder: %w", err)
	}

	dec, err := gopus.NewDecoder(gopus.DefaultDecoderConfig(Rate, Channels))
	if err != nil {
		return nil, fmt.Errorf("codec: create opus decoder: %w", err)
	}

	e := &OpusEngine{
		enc:        enc,
		dec:        dec,
		pcm32:      make([]float32, FrameSamples),
		complexity: 9,
		bandwidth:  Fullband,
		gainScale:  1,
	}

	if err := e.SetComplexity(e.complexity); err != nil {
		return nil, err
	}

	return e, nil
}

// Encode implements Engine.
func (e *OpusEngine) Encode(pcm []float64, packet []byte) (int, error) {
	if len(pcm) != FrameSamples {
		return 0, ErrFrameSize
	}

	for i, v := range pcm {
		e.pcm32[i] = float32(v)
	}

	n, err := e.enc.Encode(e.pcm32, packet)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrEncode, err)
	}

	return n, nil
}

// Decode implements Engine. A nil packet triggers the decoder's own packet
// loss concealment. The configured gain is applied to the decoded frame.
func (e *OpusEngine) Decode(packet []byte, fec bool, pcm []float64) error {
	if len(pcm) != FrameSamples {
		return ErrFrameSize
	}

	// gopus reads in-band redundancy from the packet itself, so the fec
	// hint needs no separate plumbing on the received path; a nil packet
	// always runs concealment.
	_ = fec

	n, err := e.dec.Decode(packet, e.pcm32)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}

	produced := n * Channels
	for i := 0; i < produced && i < len(pcm); i++ {
		pcm[i] = float64(e.pcm32[i])
	}
	for i := produced; i < len(pcm); i++ {
		pcm[i] = 0
	}

	if e.gainScale != 1 {
		vecmath.ScaleBlock(pcm, pcm, e.gainScale)
	}

	return nil
}

// Reset drops all encoder and decoder history.
func (e *OpusEngine) Reset() {
	e.enc.Reset()
	e.dec.Reset()
}

// SetComplexity sets the encoder effort in [0, 10].
func (e *OpusEngine) SetComplexity(c int) error {
	if err := e.enc.SetComplexity(c); err != nil {
		return fmt.Errorf("codec: set complexity %d: %w", c, err)
	}
	e.complexity = c
	return nil
}

// Complexity returns the current encoder effort.
func (e *OpusEngine) Complexity() int { return e.complexity }

// SetInbandFEC toggles in-band redundancy in the encoded stream.
func (e *OpusEngine) SetInbandFEC(enabled bool) error {
	e.enc.SetFEC(enabled)
	e.inbandFEC = enabled
	return nil
}

// InbandFEC returns whether in-band redundancy is enabled.
func (e *OpusEngine) InbandFEC() bool { return e.inbandFEC }

// SetPacketLossPerc tells the encoder how much loss to expect in [0, 100].
// The hint steers how much redundancy the encoder spends when FEC is on.
func (e *OpusEngine) SetPacketLossPerc(perc int) error {
	if perc < 0 || perc > 100 {
		return fmt.Errorf("codec: packet loss percentage out of range: %d", perc)
	}
	if err := e.enc.SetPacketLoss(perc); err != nil {
		return fmt.Errorf("codec: set packet loss %d: %w", perc, err)
	}
	e.lossPerc = perc
	return nil
}

// PacketLossPerc returns the expected-loss hint.
func (e *OpusEngine) PacketLossPerc() int { return e.lossPerc }

// SetMaxBandwidth caps the audio bandwidth the encoder may use.
func (e *OpusEngine) SetMaxBandwidth(bw Bandwidth) error {
	if bw < Narrowband || bw > Fullband {
		return fmt.Errorf("codec: invalid bandwidth: %d", bw)
	}
	if err := e.enc.SetMaxBandwidth(gopusBandwidth(bw)); err != nil {
		return fmt.Errorf("codec: set max bandwidth %d: %w", bw, err)
	}
	e.bandwidth = bw
	return nil
}

func gopusBandwidth(bw Bandwidth) gopus.Bandwidth {
	switch bw {
	case Narrowband:
		return gopus.BandwidthNarrowband
	case Mediumband:
		return gopus.BandwidthMediumband
	case Wideband:
		return gopus.BandwidthWideband
	case Superwideband:
		return gopus.BandwidthSuperwideband
	default:
		return gopus.BandwidthFullband
	}
}

// MaxBandwidth returns the configured bandwidth cap.
func (e *OpusEngine) MaxBandwidth() Bandwidth { return e.bandwidth }

// SetGain sets the decoder output gain in whole decibels.
func (e *OpusEngine) SetGain(db int) error {
	e.gainDB = db
	e.gainScale = math.Pow(10, float64(db)/20)
	return nil
}

// Gain returns the decoder output gain in decibels.
func (e *OpusEngine) Gain() int { return e.gainDB }
