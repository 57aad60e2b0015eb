package sim

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Parameter names consumed by the simulator.
const (
	ParamSCAProbability = "sca_probability"
	ParamAge            = "age"
	ParamHealthStatus   = "health_status"
	ParamSpeed          = "speed"
)

// RequiredParameters lists every parameter CardiacArrestSimulator.Run reads.
var RequiredParameters = []string{ParamSCAProbability, ParamAge, ParamHealthStatus, ParamSpeed}

// Distribution type tags accepted in DistSpec.Type.
const (
	DistNormal      = "normal"
	DistLogNormal   = "lognormal"
	DistCategorical = "categorical"
)

// DefaultImportanceFactor is applied to an sca_risk parameter in importance
// mode when importance_factors has no entry for it.
const DefaultImportanceFactor = 1.5

const importanceFactorsKey = "importance_factors"

// allowedParamKeys lists the parameter keys each distribution type accepts.
var allowedParamKeys = map[string][]string{
	DistNormal:      {"mean", "std"},
	DistLogNormal:   {"mu", "sigma"},
	DistCategorical: {"categories", "probabilities"},
}

// DistSpec is one configured parameter: a distribution type and its fields.
type DistSpec struct {
	Type       string     `yaml:"type"`
	Parameters DistParams `yaml:"parameters"`
}

// DistParams holds the type-specific fields of a DistSpec. Pointer fields
// distinguish "absent" from zero.
type DistParams struct {
	Mean          *float64  `yaml:"mean,omitempty"`
	Std           *float64  `yaml:"std,omitempty"`
	Mu            *float64  `yaml:"mu,omitempty"`
	Sigma         *float64  `yaml:"sigma,omitempty"`
	Categories    []string  `yaml:"categories,omitempty"`
	Probabilities []float64 `yaml:"probabilities,omitempty"`
}

// NormalSpec returns a DistSpec for Normal(mean, std).
func NormalSpec(mean, std float64) DistSpec {
	return DistSpec{Type: DistNormal, Parameters: DistParams{Mean: &mean, Std: &std}}
}

// LogNormalSpec returns a DistSpec for LogNormal(mu, sigma).
func LogNormalSpec(mu, sigma float64) DistSpec {
	return DistSpec{Type: DistLogNormal, Parameters: DistParams{Mu: &mu, Sigma: &sigma}}
}

// CategoricalSpec returns a DistSpec for a categorical distribution.
func CategoricalSpec(categories []string, probabilities []float64) DistSpec {
	return DistSpec{Type: DistCategorical, Parameters: DistParams{Categories: categories, Probabilities: probabilities}}
}

// Config is the parsed parameter configuration.
//
// On disk it is a single YAML mapping: every key except importance_factors
// names a parameter.
//
//	age:
//	  type: normal
//	  parameters: {mean: 45, std: 10}
//	importance_factors:
//	  sca_risk_multiplier: 2.0
type Config struct {
	Parameters        map[string]DistSpec
	ImportanceFactors map[string]float64
}

// ParameterNames returns the configured parameter names in sorted order.
func (c *Config) ParameterNames() []string {
	names := make([]string, 0, len(c.Parameters))
	for name := range c.Parameters {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// ImportanceFactor returns the multiplier for name, or DefaultImportanceFactor.
func (c *Config) ImportanceFactor(name string) float64 {
	if f, ok := c.ImportanceFactors[name]; ok {
		return f
	}
	return DefaultImportanceFactor
}

// UnmarshalYAML splits the flat document into parameters and importance
// factors. Unknown keys inside a parameter entry are rejected so that typos
// fail loudly instead of silently dropping a field.
func (c *Config) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("%w: line %d: configuration must be a mapping", ErrConfiguration, value.Line)
	}
	c.Parameters = make(map[string]DistSpec)
	for i := 0; i+1 < len(value.Content); i += 2 {
		key, val := value.Content[i], value.Content[i+1]
		name := key.Value

		if name == importanceFactorsKey {
			var factors map[string]float64
			if err := val.Decode(&factors); err != nil {
				return fmt.Errorf("%w: %s: %v", ErrConfiguration, importanceFactorsKey, err)
			}
			c.ImportanceFactors = factors
			continue
		}

		if _, dup := c.Parameters[name]; dup {
			return fmt.Errorf("%w: line %d: parameter %q defined twice", ErrConfiguration, key.Line, name)
		}
		if err := checkKeys(val, name, "type", "parameters"); err != nil {
			return err
		}
		var spec DistSpec
		if err := val.Decode(&spec); err != nil {
			return fmt.Errorf("%w: parameter %q: %v", ErrConfiguration, name, err)
		}
		if allowed, ok := allowedParamKeys[spec.Type]; ok {
			if params := mappingValue(val, "parameters"); params != nil {
				if err := checkKeys(params, name+".parameters", allowed...); err != nil {
					return err
				}
			}
		}
		c.Parameters[name] = spec
	}
	return nil
}

// checkKeys rejects mapping keys outside allowed.
func checkKeys(node *yaml.Node, path string, allowed ...string) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("%w: line %d: %s must be a mapping", ErrConfiguration, node.Line, path)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		k := node.Content[i]
		if !slices.Contains(allowed, k.Value) {
			return fmt.Errorf("%w: line %d: %s: unknown field %q; valid: %s",
				ErrConfiguration, k.Line, path, k.Value, strings.Join(allowed, ", "))
		}
	}
	return nil
}

func mappingValue(node *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}

// LoadConfig reads and parses a YAML parameter configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", ErrConfiguration, path, err)
	}
	return ParseConfig(data)
}

// ParseConfig parses a YAML parameter configuration document.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	if err := decoder.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty configuration", ErrConfiguration)
		}
		if errors.Is(err, ErrConfiguration) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: parsing configuration: %w", ErrConfiguration, err)
	}
	return &cfg, nil
}

// Validate checks that every name in required is configured, that every
// parameter builds through NewDistribution (known type, std > 0,
// probabilities summing to 1), and that importance factors are positive.
func (c *Config) Validate(required ...string) error {
	if len(c.Parameters) == 0 {
		return fmt.Errorf("%w: no parameters configured", ErrConfiguration)
	}
	for _, name := range required {
		if _, ok := c.Parameters[name]; !ok {
			return fmt.Errorf("%w: missing required parameter %q", ErrConfiguration, name)
		}
	}
	for _, name := range c.ParameterNames() {
		if err := validateDistSpec(name, c.Parameters[name]); err != nil {
			return err
		}
		if _, err := NewDistribution(name, c.Parameters[name]); err != nil {
			return err
		}
	}
	for name, f := range c.ImportanceFactors {
		if math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
			return fmt.Errorf("%w: %s.%s must be a finite positive number, got %f", ErrConfiguration, importanceFactorsKey, name, f)
		}
		if _, ok := c.Parameters[name]; !ok {
			logrus.Warnf("importance factor for %q has no matching parameter; ignored", name)
		} else if !strings.Contains(name, importanceMarker) {
			logrus.Warnf("importance factor for %q ignored: only parameters containing %q are reweighted", name, importanceMarker)
		}
	}
	return nil
}

func validateDistSpec(name string, d DistSpec) error {
	p := d.Parameters
	fields := map[string]*float64{"mean": p.Mean, "std": p.Std, "mu": p.Mu, "sigma": p.Sigma}
	for field, v := range fields {
		if v != nil && (math.IsNaN(*v) || math.IsInf(*v, 0)) {
			return fmt.Errorf("%w: %s.parameters.%s must be a finite number, got %f", ErrInvalidParameter, name, field, *v)
		}
	}
	for i, prob := range p.Probabilities {
		if math.IsNaN(prob) || math.IsInf(prob, 0) {
			return fmt.Errorf("%w: %s.parameters.probabilities[%d] must be a finite number, got %f", ErrInvalidParameter, name, i, prob)
		}
	}
	return nil
}
