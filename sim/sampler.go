package sim

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// importanceMarker selects the parameters reweighted in importance mode.
// Matching is by substring of the parameter name.
const importanceMarker = "sca_risk"

// ParameterSampler turns a Config into reproducible parameter vectors.
// Distributions are built once at construction; unknown distribution types
// fail there rather than at sampling time.
type ParameterSampler struct {
	config        *Config
	mode          SamplingMode
	rng           *PartitionedRNG
	names         []string
	distributions map[string]Distribution
}

// NewParameterSampler builds one Distribution per configured parameter.
// The sampler does not know which names the simulator needs; use
// Config.Validate(RequiredParameters...) to check that up front.
func NewParameterSampler(cfg *Config, mode SamplingMode, rng *PartitionedRNG) (*ParameterSampler, error) {
	if cfg == nil || len(cfg.Parameters) == 0 {
		return nil, fmt.Errorf("%w: no parameters configured", ErrConfiguration)
	}
	if _, err := ParseSamplingMode(string(mode)); err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, fmt.Errorf("%w: nil random source", ErrConfiguration)
	}

	s := &ParameterSampler{
		config:        cfg,
		mode:          mode,
		rng:           rng,
		names:         cfg.ParameterNames(),
		distributions: make(map[string]Distribution, len(cfg.Parameters)),
	}
	for _, name := range s.names {
		d, err := NewDistribution(name, cfg.Parameters[name])
		if err != nil {
			return nil, err
		}
		if c, ok := d.(Categorical); ok && s.reweighted(name) && !c.Numeric() {
			return nil, fmt.Errorf("%w: parameter %q is reweighted in %s mode but has non-numeric categories",
				ErrConfiguration, name, mode)
		}
		s.distributions[name] = d
	}
	return s, nil
}

// Mode returns the sampling mode.
func (s *ParameterSampler) Mode() SamplingMode {
	return s.mode
}

func (s *ParameterSampler) reweighted(name string) bool {
	return s.mode == ModeImportance && strings.Contains(name, importanceMarker)
}

// GenerateSamples draws n samples for every configured parameter. In
// importance mode, parameters whose name contains "sca_risk" are multiplied
// by their importance factor (default 1.5). No inverse-weight correction is
// applied; SampleSet.Scaled records what was done.
func (s *ParameterSampler) GenerateSamples(n int) (*SampleSet, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: sample count must be >= 1, got %d", ErrInvalidParameter, n)
	}
	set := &SampleSet{
		Mode:    s.mode,
		Columns: make(map[string]Vector, len(s.names)),
		Scaled:  make(map[string]float64),
	}
	for _, name := range s.names {
		vec := s.distributions[name].Sample(s.rng.ForSubsystem(SubsystemParameter(name)), n)
		if s.reweighted(name) {
			factor := s.config.ImportanceFactor(name)
			// Labels keep the drawn category; only the numeric view is scaled.
			for i := range vec.Values {
				vec.Values[i] *= factor
			}
			set.Scaled[name] = factor
			logrus.Debugf("importance sampling: scaled %q by %g", name, factor)
		}
		set.Columns[name] = vec
	}
	logrus.Debugf("sampled %d parameters x %d trials (mode=%s)", len(s.names), n, s.mode)
	return set, nil
}
