package sim

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const exampleYAML = `
sca_probability:
  type: normal
  parameters: {mean: 0.01, std: 0.002}
age:
  type: normal
  parameters:
    mean: 45
    std: 10
health_status:
  type: categorical
  parameters:
    categories: [0, 1, 2]
    probabilities: [0.6, 0.3, 0.1]
speed:
  type: lognormal
  parameters: {mu: 4.3, sigma: 0.2}
sca_risk_multiplier:
  type: normal
  parameters: {mean: 1, std: 0.1}
importance_factors:
  sca_risk_multiplier: 2.0
`

func TestParseConfig_SplitsParametersAndFactors(t *testing.T) {
	cfg, err := ParseConfig([]byte(exampleYAML))
	require.NoError(t, err)

	want := &Config{
		Parameters: map[string]DistSpec{
			"sca_probability":     NormalSpec(0.01, 0.002),
			"age":                 NormalSpec(45, 10),
			"health_status":       CategoricalSpec([]string{"0", "1", "2"}, []float64{0.6, 0.3, 0.1}),
			"speed":               LogNormalSpec(4.3, 0.2),
			"sca_risk_multiplier": NormalSpec(1, 0.1),
		},
		ImportanceFactors: map[string]float64{"sca_risk_multiplier": 2.0},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("ParseConfig mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"age", "health_status", "sca_probability", "sca_risk_multiplier", "speed"}, cfg.ParameterNames())
	assert.NoError(t, cfg.Validate(RequiredParameters...))
}

func TestParseConfig_RejectsUnknownFields(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"typo in entry", "age:\n  type: normal\n  params: {mean: 1, std: 1}\n"},
		{"typo in parameters", "age:\n  type: normal\n  parameters: {mean: 1, stdev: 1}\n"},
		{"field of another type", "age:\n  type: normal\n  parameters: {mean: 1, std: 1, sigma: 2}\n"},
		{"entry not a mapping", "age: 45\n"},
		{"document not a mapping", "- age\n"},
		{"non-numeric factor", "importance_factors: {sca_risk: high}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.yaml))
			require.ErrorIs(t, err, ErrConfiguration)
		})
	}
}

func TestParseConfig_Empty(t *testing.T) {
	_, err := ParseConfig(nil)
	require.ErrorIs(t, err, ErrConfiguration)
}

func TestParseConfig_UnknownTypeDeferredToSampler(t *testing.T) {
	// Unknown types parse; NewParameterSampler rejects them.
	cfg, err := ParseConfig([]byte("age:\n  type: exponential\n  parameters: {rate: 2}\n"))
	require.NoError(t, err)
	assert.Equal(t, "exponential", cfg.Parameters["age"].Type)
}

func TestLoadConfig_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "parameters.yml")
	require.NoError(t, os.WriteFile(path, []byte(exampleYAML), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Parameters, 5)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yml"))
	require.ErrorIs(t, err, ErrConfiguration)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadConfig_ShippedDefault(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join("..", "config", "parameters.yml"))
	require.NoError(t, err)
	assert.NoError(t, cfg.Validate(RequiredParameters...))
}

func TestConfigValidate(t *testing.T) {
	base := func() *Config {
		return &Config{Parameters: map[string]DistSpec{
			ParamSCAProbability: NormalSpec(0.01, 0.002),
			ParamAge:            NormalSpec(45, 10),
			ParamHealthStatus:   NormalSpec(1, 0.3),
			ParamSpeed:          NormalSpec(80, 15),
		}}
	}

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, base().Validate(RequiredParameters...))
	})
	t.Run("missing speed", func(t *testing.T) {
		cfg := base()
		delete(cfg.Parameters, ParamSpeed)
		err := cfg.Validate(RequiredParameters...)
		require.ErrorIs(t, err, ErrConfiguration)
		assert.Contains(t, err.Error(), ParamSpeed)
	})
	t.Run("no parameters", func(t *testing.T) {
		require.ErrorIs(t, (&Config{}).Validate(), ErrConfiguration)
	})
	t.Run("non-positive factor", func(t *testing.T) {
		cfg := base()
		cfg.ImportanceFactors = map[string]float64{"sca_risk": 0}
		require.ErrorIs(t, cfg.Validate(), ErrConfiguration)
	})
	t.Run("non-finite field", func(t *testing.T) {
		cfg := base()
		inf := math.Inf(1)
		cfg.Parameters[ParamAge] = DistSpec{Type: DistNormal, Parameters: DistParams{Mean: &inf}}
		require.ErrorIs(t, cfg.Validate(), ErrInvalidParameter)
	})
	t.Run("domain errors", func(t *testing.T) {
		tests := []struct {
			name    string
			spec    DistSpec
			wantErr error
		}{
			{"unsupported type", DistSpec{Type: "exponential"}, ErrUnsupportedDistributionType},
			{"negative std", NormalSpec(45, -10), ErrInvalidParameter},
			{"zero sigma", LogNormalSpec(0, 0), ErrInvalidParameter},
			{"probabilities sum to 0.4", CategoricalSpec([]string{"a", "b"}, []float64{0.2, 0.2}), ErrInvalidParameter},
			{"nan label", CategoricalSpec([]string{"NaN"}, []float64{1}), ErrInvalidParameter},
			{"missing std", DistSpec{Type: DistNormal, Parameters: DistParams{Mean: NormalSpec(45, 1).Parameters.Mean}}, ErrConfiguration},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				cfg := base()
				cfg.Parameters[ParamAge] = tt.spec
				err := cfg.Validate(RequiredParameters...)
				require.ErrorIs(t, err, tt.wantErr)
				assert.Contains(t, err.Error(), ParamAge)
			})
		}
	})
}

func TestConfigImportanceFactor_Default(t *testing.T) {
	cfg := &Config{ImportanceFactors: map[string]float64{"sca_risk_a": 3}}
	assert.Equal(t, 3.0, cfg.ImportanceFactor("sca_risk_a"))
	assert.Equal(t, DefaultImportanceFactor, cfg.ImportanceFactor("sca_risk_b"))
	assert.Equal(t, DefaultImportanceFactor, (&Config{}).ImportanceFactor("sca_risk_b"))
}
