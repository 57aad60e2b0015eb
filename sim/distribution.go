package sim

import (
	"fmt"
	"math"
	"math/rand"
	"strconv"

	"gonum.org/v1/gonum/stat/distuv"
)

// probabilityTolerance bounds |sum(probabilities) - 1| for Categorical.
const probabilityTolerance = 1e-6

// Distribution draws independent samples for one configured parameter.
// Implementations are immutable; all randomness comes from rng.
type Distribution interface {
	// Sample returns a Vector of n independent draws.
	Sample(rng *rand.Rand, n int) Vector
}

// Normal is the Gaussian distribution N(mean, std²).
type Normal struct {
	mean, std float64
}

// NewNormal validates std > 0.
func NewNormal(mean, std float64) (Normal, error) {
	if err := requireFinite("mean", mean); err != nil {
		return Normal{}, err
	}
	if !(std > 0) || math.IsInf(std, 0) {
		return Normal{}, fmt.Errorf("%w: normal std must be > 0, got %g", ErrInvalidParameter, std)
	}
	return Normal{mean: mean, std: std}, nil
}

func (d Normal) Sample(rng *rand.Rand, n int) Vector {
	dist := distuv.Normal{Mu: d.mean, Sigma: d.std, Src: rng}
	out := make([]float64, n)
	for i := range out {
		out[i] = dist.Rand()
	}
	return Vector{Values: out}
}

// LogNormal is exp(X) with X ~ N(mu, sigma²).
type LogNormal struct {
	mu, sigma float64
}

// NewLogNormal validates sigma > 0.
func NewLogNormal(mu, sigma float64) (LogNormal, error) {
	if err := requireFinite("mu", mu); err != nil {
		return LogNormal{}, err
	}
	if !(sigma > 0) || math.IsInf(sigma, 0) {
		return LogNormal{}, fmt.Errorf("%w: lognormal sigma must be > 0, got %g", ErrInvalidParameter, sigma)
	}
	return LogNormal{mu: mu, sigma: sigma}, nil
}

func (d LogNormal) Sample(rng *rand.Rand, n int) Vector {
	dist := distuv.LogNormal{Mu: d.mu, Sigma: d.sigma, Src: rng}
	out := make([]float64, n)
	for i := range out {
		out[i] = dist.Rand()
	}
	return Vector{Values: out}
}

// Categorical draws one label per trial according to a discrete probability
// vector. When every label parses as a number, samples also carry the
// numeric view so numeric models can consume them.
type Categorical struct {
	categories    []string
	probabilities []float64
	numeric       []float64 // nil when any label is non-numeric
}

// NewCategorical validates that categories and probabilities align, that
// probabilities are non-negative, and that they sum to 1 within 1e-6.
// Labels such as "NaN" or "Inf" parse as numbers but are rejected.
func NewCategorical(categories []string, probabilities []float64) (Categorical, error) {
	if len(categories) == 0 {
		return Categorical{}, fmt.Errorf("%w: categorical needs at least one category", ErrInvalidParameter)
	}
	if len(categories) != len(probabilities) {
		return Categorical{}, fmt.Errorf("%w: categorical has %d categories but %d probabilities",
			ErrInvalidParameter, len(categories), len(probabilities))
	}
	sum := 0.0
	for i, p := range probabilities {
		if math.IsNaN(p) || math.IsInf(p, 0) || p < 0 {
			return Categorical{}, fmt.Errorf("%w: probability[%d] = %g must be a finite non-negative number",
				ErrInvalidParameter, i, p)
		}
		sum += p
	}
	if math.Abs(sum-1) > probabilityTolerance {
		return Categorical{}, fmt.Errorf("%w: categorical probabilities sum to %g, want 1", ErrInvalidParameter, sum)
	}

	numeric := make([]float64, len(categories))
	for i, c := range categories {
		v, err := strconv.ParseFloat(c, 64)
		if err != nil {
			numeric = nil
			break
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Categorical{}, fmt.Errorf("%w: category[%d] %q is not a finite number", ErrInvalidParameter, i, c)
		}
		numeric[i] = v
	}
	return Categorical{
		categories:    append([]string(nil), categories...),
		probabilities: append([]float64(nil), probabilities...),
		numeric:       numeric,
	}, nil
}

// Numeric reports whether every category label is a number.
func (d Categorical) Numeric() bool {
	return d.numeric != nil
}

func (d Categorical) Sample(rng *rand.Rand, n int) Vector {
	dist := distuv.NewCategorical(d.probabilities, rng)
	labels := make([]string, n)
	var values []float64
	if d.numeric != nil {
		values = make([]float64, n)
	}
	for i := range labels {
		idx := int(dist.Rand())
		labels[i] = d.categories[idx]
		if values != nil {
			values[i] = d.numeric[idx]
		}
	}
	return Vector{Values: values, Labels: labels}
}

// NewDistribution builds the Distribution described by spec. name is only
// used in error messages. Unknown types fail immediately.
func NewDistribution(name string, spec DistSpec) (Distribution, error) {
	p := spec.Parameters
	var (
		d   Distribution
		err error
	)
	switch spec.Type {
	case DistNormal:
		if err := requireParams(name, spec.Type, field{"mean", p.Mean}, field{"std", p.Std}); err != nil {
			return nil, err
		}
		d, err = NewNormal(*p.Mean, *p.Std)

	case DistLogNormal:
		if err := requireParams(name, spec.Type, field{"mu", p.Mu}, field{"sigma", p.Sigma}); err != nil {
			return nil, err
		}
		d, err = NewLogNormal(*p.Mu, *p.Sigma)

	case DistCategorical:
		if p.Categories == nil || p.Probabilities == nil {
			return nil, fmt.Errorf("%w: parameter %q: categorical distribution requires \"categories\" and \"probabilities\"",
				ErrConfiguration, name)
		}
		d, err = NewCategorical(p.Categories, p.Probabilities)

	default:
		return nil, fmt.Errorf("%w: parameter %q: %q; valid: %s, %s, %s",
			ErrUnsupportedDistributionType, name, spec.Type, DistNormal, DistLogNormal, DistCategorical)
	}
	if err != nil {
		return nil, fmt.Errorf("parameter %q: %w", name, err)
	}
	return d, nil
}

type field struct {
	key   string
	value *float64
}

// requireParams reports the first absent field.
func requireParams(name, distType string, fields ...field) error {
	for _, f := range fields {
		if f.value == nil {
			return fmt.Errorf("%w: parameter %q: %s distribution requires parameter %q",
				ErrConfiguration, name, distType, f.key)
		}
	}
	return nil
}

func requireFinite(key string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %s must be a finite number, got %g", ErrInvalidParameter, key, v)
	}
	return nil
}
