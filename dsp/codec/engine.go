package codec

import "errors"

// Session-wide codec format. The pipeline runs the codec at one fixed rate
// and frame duration regardless of the host rate; the rate bridges absorb
// the difference.
const (
	// Rate is the codec sample rate in Hz.
	Rate = 48000
	// Channels is the stereo channel count.
	Channels = 2
	// FrameDurationMs is the codec frame duration in milliseconds.
	FrameDurationMs = 20
	// FrameLen is the codec frame length in samples per channel.
	FrameLen = Rate * FrameDurationMs / 1000
	// FrameSamples is the interleaved sample count of one codec frame.
	FrameSamples = FrameLen * Channels
	// MaxPacketSize bounds the encoded packet scratch buffer.
	MaxPacketSize = 2048
)

var (
	// ErrEncode indicates the encoder rejected a frame.
	ErrEncode = errors.New("codec: encode failed")
	// ErrDecode indicates the decoder rejected a packet.
	ErrDecode = errors.New("codec: decode failed")
	// ErrFrameSize indicates a frame of the wrong length was submitted.
	ErrFrameSize = errors.New("codec: wrong frame length")
)

// Bandwidth selects the maximum audio bandwidth the encoder may use.
type Bandwidth int

// Bandwidth steps, narrow to full.
const (
	Narrowband Bandwidth = iota // 4 kHz
	Mediumband                  // 6 kHz
	Wideband                    // 8 kHz
	Superwideband               // 12 kHz
	Fullband                    // 20 kHz
)

// Engine is the codec primitive: one fixed-length interleaved stereo frame
// in, one encoded packet out, and the reverse. A nil packet passed to
// Decode requests loss concealment. Implementations are not safe for
// concurrent use.
type Engine interface {
	// Encode writes one frame's packet into packet and returns its length.
	// len(pcm) must equal FrameSamples.
	Encode(pcm []float64, packet []byte) (int, error)

	// Decode fills pcm with one decoded frame. A nil packet makes the
	// decoder conceal a lost frame from its own state. fec asks the
	// decoder to use in-band redundancy if the stream carries any.
	Decode(packet []byte, fec bool, pcm []float64) error

	// Reset drops all encoder and decoder history.
	Reset()

	SetComplexity(c int) error
	Complexity() int

	SetInbandFEC(enabled bool) error
	InbandFEC() bool

	SetPacketLossPerc(perc int) error
	PacketLossPerc() int

	SetMaxBandwidth(bw Bandwidth) error
	MaxBandwidth() Bandwidth

	// SetGain applies a decoder output gain in whole decibels.
	SetGain(db int) error
	Gain() int
}
