package sim

import (
	"fmt"
	"math"
	"slices"
)

// SamplingMode selects how ParameterSampler draws parameter vectors.
type SamplingMode string

const (
	// ModeNominal draws every parameter from its configured distribution.
	ModeNominal SamplingMode = "nominal"
	// ModeImportance additionally scales every parameter whose name contains
	// "sca_risk" by its importance factor. Downstream statistics are biased
	// unless the caller applies an inverse-weight correction.
	ModeImportance SamplingMode = "importance"
)

// ParseSamplingMode converts a CLI/config string to a SamplingMode.
func ParseSamplingMode(s string) (SamplingMode, error) {
	switch SamplingMode(s) {
	case ModeNominal, ModeImportance:
		return SamplingMode(s), nil
	default:
		return "", fmt.Errorf("%w: unknown sampling mode %q; valid: %s, %s", ErrConfiguration, s, ModeNominal, ModeImportance)
	}
}

// Vector is one sampled parameter column.
type Vector struct {
	Values []float64 // numeric view; nil for non-numeric categorical labels
	Labels []string  // categorical labels; nil for continuous distributions
}

// Len returns the number of trials in the vector.
func (v Vector) Len() int {
	if v.Labels != nil {
		return len(v.Labels)
	}
	return len(v.Values)
}

// Numeric reports whether numeric models can consume the vector.
func (v Vector) Numeric() bool {
	return v.Values != nil
}

// SampleSet maps parameter names to equal-length vectors. It is produced once
// per run by ParameterSampler.GenerateSamples and not mutated afterwards.
type SampleSet struct {
	Mode    SamplingMode
	Columns map[string]Vector
	// Scaled records the importance factor applied to each reweighted
	// parameter, so callers can apply their own correction.
	Scaled map[string]float64
}

// Names returns the sampled parameter names in sorted order.
func (s *SampleSet) Names() []string {
	names := make([]string, 0, len(s.Columns))
	for name := range s.Columns {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Len returns the shared vector length, failing with
// ErrInconsistentSampleLength when the vectors disagree.
func (s *SampleSet) Len() (int, error) {
	names := s.Names()
	if len(names) == 0 {
		return 0, fmt.Errorf("%w: sample set is empty", ErrConfiguration)
	}
	n := s.Columns[names[0]].Len()
	for _, name := range names[1:] {
		if got := s.Columns[name].Len(); got != n {
			return 0, fmt.Errorf("%w: %q has %d samples, %q has %d",
				ErrInconsistentSampleLength, names[0], n, name, got)
		}
	}
	return n, nil
}

// Numeric returns the numeric view of the named column.
func (s *SampleSet) Numeric(name string) ([]float64, error) {
	v, ok := s.Columns[name]
	if !ok {
		return nil, fmt.Errorf("%w: required parameter %q was not sampled", ErrConfiguration, name)
	}
	if !v.Numeric() {
		return nil, fmt.Errorf("%w: parameter %q has non-numeric categories", ErrConfiguration, name)
	}
	return v.Values, nil
}

// DriverInputs is the fixed-schema view of a SampleSet consumed by
// CardiacArrestSimulator.
type DriverInputs struct {
	SCAProbability []float64
	Age            []float64
	HealthStatus   []float64
	Speed          []float64
}

// DriverInputs extracts the simulator inputs. Missing or non-numeric
// parameters fail with ErrConfiguration and non-finite values (an overflowed
// LogNormal, say) with ErrInvalidParameter; no defaults are substituted.
func (s *SampleSet) DriverInputs() (DriverInputs, error) {
	var in DriverInputs
	targets := []struct {
		name string
		dst  *[]float64
	}{
		{ParamSCAProbability, &in.SCAProbability},
		{ParamAge, &in.Age},
		{ParamHealthStatus, &in.HealthStatus},
		{ParamSpeed, &in.Speed},
	}
	for _, t := range targets {
		v, err := s.Numeric(t.name)
		if err != nil {
			return DriverInputs{}, err
		}
		for i, x := range v {
			if math.IsNaN(x) || math.IsInf(x, 0) {
				return DriverInputs{}, fmt.Errorf("%w: parameter %q trial %d is %g", ErrInvalidParameter, t.name, i, x)
			}
		}
		*t.dst = v
	}
	return in, nil
}
