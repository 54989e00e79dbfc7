// Command codecsim runs a stereo WAV file through the lossy codec round
// trip offline and writes the degraded result.
//
// Usage:
//
//	codecsim [flags] input.wav output.wav
//
// Examples:
//
//	codecsim voice.wav degraded.wav
//	codecsim -scenario lossy.yaml -block 256 voice.wav degraded.wav
//	codecsim -analyze 440 tone.wav degraded.wav
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/cwbudde/algo-codecsim/dsp/roundtrip"
	"github.com/cwbudde/algo-codecsim/dsp/spectrum"
	"github.com/cwbudde/algo-codecsim/internal/scenario"
	"github.com/cwbudde/algo-codecsim/internal/wavio"
)

func main() {
	scenarioPath := flag.String("scenario", "", "YAML scenario file with parameters and automation")
	block := flag.Int("block", 512, "host block size in frames")
	analyze := flag.Float64("analyze", 0, "report spectrum statistics around this frequency in Hz")
	verbose := flag.Bool("v", false, "enable debug logging")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: codecsim [flags] input.wav output.wav\n\n")
		fmt.Fprintf(os.Stderr, "Runs a stereo WAV file through the lossy codec round trip.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 2 {
		flag.Usage()
		os.Exit(2)
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if err := run(flag.Arg(0), flag.Arg(1), *scenarioPath, *block, *analyze); err != nil {
		slog.Error("codecsim failed", "err", err)
		os.Exit(1)
	}
}

func run(inPath, outPath, scenarioPath string, block int, analyzeHz float64) error {
	scn := &scenario.Scenario{}
	if scenarioPath != "" {
		loaded, err := scenario.Load(scenarioPath)
		if err != nil {
			return err
		}
		scn = loaded
	}
	if scn.BlockSize > 0 {
		block = scn.BlockSize
	}
	quality, err := scn.ResampleQuality()
	if err != nil {
		return err
	}
	seed := scn.Seed
	if seed == 0 {
		seed = 1
	}

	in, err := wavio.Read(inPath)
	if err != nil {
		return err
	}
	slog.Info("input loaded",
		"file", inPath,
		"sample_rate", in.SampleRate,
		"frames", in.Frames(),
	)

	proc := roundtrip.New(
		roundtrip.WithSeed(seed),
		roundtrip.WithQuality(quality),
	)
	if err := proc.Setup(float64(in.SampleRate), block); err != nil {
		return err
	}
	slog.Info("session configured", "block", block, "latency_frames", proc.Latency())

	out := &wavio.Capture{
		Left:       make([]float64, in.Frames()),
		Right:      make([]float64, in.Frames()),
		SampleRate: in.SampleRate,
	}

	initial := scn.InitialChanges()
	for start := 0; start < in.Frames(); start += block {
		end := start + block
		if end > in.Frames() {
			end = in.Frames()
		}

		blk := &roundtrip.StreamBlock{
			In0:     in.Left[start:end],
			In1:     in.Right[start:end],
			Out0:    out.Left[start:end],
			Out1:    out.Right[start:end],
			Changes: scn.ChangesForBlock(start, end-start, float64(in.SampleRate)),
		}
		blk.InSilent = isSilent(blk.In0) && isSilent(blk.In1)
		if start == 0 && len(initial) > 0 {
			blk.Changes = merged(initial, blk.Changes)
		}

		if err := proc.Process(blk); err != nil {
			return fmt.Errorf("block at frame %d: %w", start, err)
		}
	}

	if err := wavio.Write(outPath, out); err != nil {
		return err
	}
	slog.Info("output written",
		"file", outPath,
		"frames_coded", proc.FramesCoded(),
		"packets_lost", proc.PacketsLost(),
	)

	if analyzeHz > 0 {
		if err := report(out, analyzeHz); err != nil {
			return err
		}
	}
	return nil
}

// merged overlays per-block changes on top of the initial values. The
// initial breakpoints sit at offset 0, so later breakpoints win.
func merged(initial, blk roundtrip.AutomationChanges) roundtrip.AutomationChanges {
	out := roundtrip.AutomationChanges{}
	for p, points := range initial {
		out[p] = append(out[p], points...)
	}
	for p, points := range blk {
		out[p] = append(out[p], points...)
	}
	return out
}

func isSilent(samples []float64) bool {
	for _, v := range samples {
		if v != 0 {
			return false
		}
	}
	return true
}

func report(c *wavio.Capture, freqHz float64) error {
	const fftSize = 8192
	a, err := spectrum.Analyze(c.Left, float64(c.SampleRate), fftSize)
	if err != nil {
		return err
	}
	peakHz, peakMag := a.Peak()
	fmt.Printf("peak: %.1f Hz (magnitude %.3g)\n", peakHz, peakMag)
	fmt.Printf("tone-to-noise at %.1f Hz: %.1f dB\n", freqHz, a.ToneToNoiseDB(freqHz))
	return nil
}
