// Package wavio reads and writes the stereo float64 captures the codec
// pipeline works on, backed by 16-bit PCM WAV files.
package wavio

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ErrNotWav reports a file that is not a valid WAV container.
var ErrNotWav = errors.New("wavio: not a valid wav file")

// Capture is a decoded stereo signal. Mono sources are duplicated onto
// both channels.
type Capture struct {
	Left       []float64
	Right      []float64
	SampleRate int
}

// Frames returns the per-channel sample count.
func (c *Capture) Frames() int { return len(c.Left) }

// Read decodes a 1- or 2-channel PCM WAV file into a stereo capture.
func Read(path string) (*Capture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("wavio: open %q: %w", path, err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: %q", ErrNotWav, path)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("wavio: decode %q: %w", path, err)
	}

	channels := buf.Format.NumChannels
	if channels < 1 || channels > 2 {
		return nil, fmt.Errorf("wavio: %q has %d channels, want 1 or 2", path, channels)
	}

	scale := 1.0
	if bits := buf.SourceBitDepth; bits > 0 && bits <= 32 {
		scale = 1.0 / float64(int64(1)<<(bits-1))
	}

	frames := len(buf.Data) / channels
	out := &Capture{
		Left:       make([]float64, frames),
		Right:      make([]float64, frames),
		SampleRate: buf.Format.SampleRate,
	}
	for i := 0; i < frames; i++ {
		out.Left[i] = float64(buf.Data[i*channels]) * scale
		if channels == 2 {
			out.Right[i] = float64(buf.Data[i*channels+1]) * scale
		} else {
			out.Right[i] = out.Left[i]
		}
	}
	return out, nil
}

// Write encodes a stereo capture as a 16-bit PCM WAV file. Samples are
// clipped to [-1, 1].
func Write(path string, c *Capture) error {
	if len(c.Left) != len(c.Right) {
		return fmt.Errorf("wavio: channel length mismatch: %d vs %d", len(c.Left), len(c.Right))
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("wavio: create %q: %w", path, err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, c.SampleRate, 16, 2, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 2, SampleRate: c.SampleRate},
		Data:           make([]int, 2*len(c.Left)),
		SourceBitDepth: 16,
	}
	for i := range c.Left {
		buf.Data[2*i] = quantize16(c.Left[i])
		buf.Data[2*i+1] = quantize16(c.Right[i])
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("wavio: encode %q: %w", path, err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("wavio: finalize %q: %w", path, err)
	}
	return nil
}

func quantize16(v float64) int {
	if v > 1 {
		v = 1
	}
	if v < -1 {
		v = -1
	}
	return int(math.Round(v * 32767))
}
