// Package scenario loads the YAML files that describe one offline
// simulation run: initial parameter values, timed parameter changes and
// rate-conversion quality.
package scenario

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/cwbudde/algo-codecsim/dsp/codec"
	"github.com/cwbudde/algo-codecsim/dsp/resample"
	"github.com/cwbudde/algo-codecsim/dsp/roundtrip"
)

// Scenario is the decoded form of one scenario file. Zero values mean
// "leave the default".
type Scenario struct {
	// BlockSize is the host block size in frames.
	BlockSize int `yaml:"block_size"`
	// Seed drives the packet loss decisions.
	Seed int64 `yaml:"seed"`
	// Quality selects the resampler filter: fast, balanced or best.
	Quality string `yaml:"quality"`
	// Params holds the initial parameter values in plain units.
	Params Params `yaml:"params"`
	// Automation lists timed parameter changes.
	Automation []Event `yaml:"automation"`
}

// Params carries plain-unit parameter values applied before the first
// block.
type Params struct {
	Complexity     *int     `yaml:"complexity"`
	InbandFEC      *bool    `yaml:"inband_fec"`
	PredictedLoss  *int     `yaml:"predicted_loss"`
	MaxBandwidth   *string  `yaml:"max_bandwidth"`
	GainDB         *int     `yaml:"gain_db"`
	RandomLoss     *float64 `yaml:"random_loss"`
	RoundRobinLoss *float64 `yaml:"round_robin_loss"`
}

// Event is one timed parameter change.
type Event struct {
	// AtSeconds is the position in the input where the change lands.
	AtSeconds float64 `yaml:"at_seconds"`
	Param     string  `yaml:"param"`
	Value     float64 `yaml:"value"`
}

var paramsByName = map[string]roundtrip.Param{
	"bypass":           roundtrip.ParamBypass,
	"complexity":       roundtrip.ParamComplexity,
	"inband_fec":       roundtrip.ParamInbandFEC,
	"predicted_loss":   roundtrip.ParamPredictedLoss,
	"max_bandwidth":    roundtrip.ParamMaxBandwidth,
	"gain_db":          roundtrip.ParamGain,
	"random_loss":      roundtrip.ParamRandomLoss,
	"round_robin_loss": roundtrip.ParamRoundRobinLoss,
}

var bandwidthsByName = map[string]codec.Bandwidth{
	"narrowband":    codec.Narrowband,
	"mediumband":    codec.Mediumband,
	"wideband":      codec.Wideband,
	"superwideband": codec.Superwideband,
	"fullband":      codec.Fullband,
}

// Load reads and validates the scenario file at path.
func Load(path string) (*Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("scenario: open %q: %w", path, err)
	}
	defer f.Close()

	s, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("scenario: parse %q: %w", path, err)
	}
	return s, nil
}

// LoadFromReader decodes a scenario from r and validates the result.
// Unknown YAML fields are rejected.
func LoadFromReader(r io.Reader) (*Scenario, error) {
	s := &Scenario{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(s); err != nil {
		if errors.Is(err, io.EOF) {
			return s, nil
		}
		return nil, fmt.Errorf("scenario: decode yaml: %w", err)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scenario) validate() error {
	var errs []error

	if s.BlockSize < 0 {
		errs = append(errs, fmt.Errorf("block_size must be >= 0: %d", s.BlockSize))
	}
	if _, err := s.ResampleQuality(); err != nil {
		errs = append(errs, err)
	}
	if p := s.Params.Complexity; p != nil && (*p < 0 || *p > 10) {
		errs = append(errs, fmt.Errorf("params.complexity must be in [0, 10]: %d", *p))
	}
	if p := s.Params.PredictedLoss; p != nil && (*p < 0 || *p > 100) {
		errs = append(errs, fmt.Errorf("params.predicted_loss must be in [0, 100]: %d", *p))
	}
	if p := s.Params.MaxBandwidth; p != nil {
		if _, ok := bandwidthsByName[*p]; !ok {
			errs = append(errs, fmt.Errorf("params.max_bandwidth %q is unknown", *p))
		}
	}
	if p := s.Params.GainDB; p != nil && (*p < -8 || *p > 8) {
		errs = append(errs, fmt.Errorf("params.gain_db must be in [-8, 8]: %d", *p))
	}
	for _, f := range []*float64{s.Params.RandomLoss, s.Params.RoundRobinLoss} {
		if f != nil && (*f < 0 || *f > 1) {
			errs = append(errs, fmt.Errorf("loss fractions must be in [0, 1]: %v", *f))
		}
	}
	for i, ev := range s.Automation {
		if ev.AtSeconds < 0 {
			errs = append(errs, fmt.Errorf("automation[%d].at_seconds must be >= 0: %v", i, ev.AtSeconds))
		}
		if _, ok := paramsByName[ev.Param]; !ok {
			errs = append(errs, fmt.Errorf("automation[%d].param %q is unknown", i, ev.Param))
		}
	}

	return errors.Join(errs...)
}

// ResampleQuality maps the quality name to the resampler setting. An
// empty name means balanced.
func (s *Scenario) ResampleQuality() (resample.Quality, error) {
	switch s.Quality {
	case "", "balanced":
		return resample.QualityBalanced, nil
	case "fast":
		return resample.QualityFast, nil
	case "best":
		return resample.QualityBest, nil
	default:
		return 0, fmt.Errorf("quality %q is unknown (fast, balanced, best)", s.Quality)
	}
}

// InitialChanges converts the initial parameter values to normalized
// block-start automation changes.
func (s *Scenario) InitialChanges() roundtrip.AutomationChanges {
	changes := roundtrip.AutomationChanges{}
	add := func(p roundtrip.Param, plain float64) {
		changes[p] = []roundtrip.Breakpoint{{Offset: 0, Value: p.Normalize(plain)}}
	}

	if v := s.Params.Complexity; v != nil {
		add(roundtrip.ParamComplexity, float64(*v))
	}
	if v := s.Params.InbandFEC; v != nil {
		plain := 0.0
		if *v {
			plain = 1
		}
		add(roundtrip.ParamInbandFEC, plain)
	}
	if v := s.Params.PredictedLoss; v != nil {
		add(roundtrip.ParamPredictedLoss, float64(*v))
	}
	if v := s.Params.MaxBandwidth; v != nil {
		add(roundtrip.ParamMaxBandwidth, float64(bandwidthsByName[*v]))
	}
	if v := s.Params.GainDB; v != nil {
		add(roundtrip.ParamGain, float64(*v))
	}
	if v := s.Params.RandomLoss; v != nil {
		add(roundtrip.ParamRandomLoss, *v)
	}
	if v := s.Params.RoundRobinLoss; v != nil {
		add(roundtrip.ParamRoundRobinLoss, *v)
	}
	return changes
}

// ChangesForBlock converts the automation events falling inside the
// block [startFrame, startFrame+blockLen) to per-block changes with
// offsets relative to the block start. Values are plain-unit and are
// normalized here.
func (s *Scenario) ChangesForBlock(startFrame, blockLen int, sampleRate float64) roundtrip.AutomationChanges {
	var changes roundtrip.AutomationChanges
	for _, ev := range s.Automation {
		at := int(ev.AtSeconds * sampleRate)
		if at < startFrame || at >= startFrame+blockLen {
			continue
		}
		if changes == nil {
			changes = roundtrip.AutomationChanges{}
		}
		p := paramsByName[ev.Param]
		changes[p] = append(changes[p], roundtrip.Breakpoint{
			Offset: at - startFrame,
			Value:  p.Normalize(ev.Value),
		})
	}
	for _, points := range changes {
		sort.Slice(points, func(i, j int) bool { return points[i].Offset < points[j].Offset })
	}
	return changes
}
