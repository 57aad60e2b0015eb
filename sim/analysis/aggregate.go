// Package analysis summarizes a simulation ResultSet into risk statistics.
package analysis

import (
	"fmt"
	"io"
	"maps"
	"math"
	"slices"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/sca-traffic/sca-mcs/sim"
)

// Moments summarizes one continuous outcome vector.
type Moments struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	P05    float64 `json:"p05"`
	P50    float64 `json:"p50"`
	P95    float64 `json:"p95"`
	Max    float64 `json:"max"`
}

// RiskSummary aggregates a ResultSet.
type RiskSummary struct {
	NumSamples int    `json:"num_samples"`
	Mode       string `json:"mode"`

	SCAEvents   int `json:"sca_events"`
	Accidents   int `json:"accidents"`
	JointEvents int `json:"joint_events"`

	SCARate              float64    `json:"sca_rate"`
	AccidentRate         float64    `json:"accident_rate"`
	JointRate            float64    `json:"joint_rate"`
	JointRateCI          [2]float64 `json:"joint_rate_ci"`
	Confidence           float64    `json:"confidence"`
	AccidentRateGivenSCA float64    `json:"accident_rate_given_sca"` // 0 when no SCA events

	ReactionTimes Moments `json:"reaction_times"`
	AccidentProbs Moments `json:"accident_probs"`

	// Biased is set for importance-sampled runs. Rates are reported as drawn;
	// no inverse-weight correction is applied.
	Biased            bool               `json:"biased"`
	ImportanceFactors map[string]float64 `json:"importance_factors,omitempty"`
}

// RiskAggregator computes RiskSummary values.
type RiskAggregator struct {
	// Confidence is the coverage of the Wilson interval on the joint rate.
	Confidence float64
}

// NewRiskAggregator returns an aggregator reporting 95% intervals.
func NewRiskAggregator() *RiskAggregator {
	return &RiskAggregator{Confidence: 0.95}
}

// Analyze summarizes results. samples may be nil; when given, its sampling
// mode and importance factors are carried into the summary.
func (a *RiskAggregator) Analyze(results *sim.ResultSet, samples *sim.SampleSet) (*RiskSummary, error) {
	if results == nil || results.Len() == 0 {
		return nil, fmt.Errorf("%w: no results to analyze", sim.ErrConfiguration)
	}
	n := results.Len()
	if len(results.SCAEvents) != n || len(results.AccidentProbs) != n || len(results.AccidentsOccurred) != n {
		return nil, fmt.Errorf("%w: result vectors differ in length", sim.ErrInconsistentSampleLength)
	}
	if !(a.Confidence > 0 && a.Confidence < 1) {
		return nil, fmt.Errorf("%w: confidence must be in (0, 1), got %g", sim.ErrConfiguration, a.Confidence)
	}

	s := &RiskSummary{NumSamples: n, Mode: string(sim.ModeNominal), Confidence: a.Confidence}
	if samples != nil {
		s.Mode = string(samples.Mode)
		if len(samples.Scaled) > 0 {
			s.Biased = true
			s.ImportanceFactors = maps.Clone(samples.Scaled)
		}
	}

	for i := 0; i < n; i++ {
		sca, acc := results.SCAEvents[i], results.AccidentsOccurred[i]
		if sca {
			s.SCAEvents++
		}
		if acc {
			s.Accidents++
		}
		if sca && acc {
			s.JointEvents++
		}
	}
	total := float64(n)
	s.SCARate = float64(s.SCAEvents) / total
	s.AccidentRate = float64(s.Accidents) / total
	s.JointRate = float64(s.JointEvents) / total
	if s.SCAEvents > 0 {
		s.AccidentRateGivenSCA = float64(s.JointEvents) / float64(s.SCAEvents)
	}
	s.JointRateCI = wilsonInterval(s.JointEvents, n, a.Confidence)

	s.ReactionTimes = moments(results.ReactionTimes)
	s.AccidentProbs = moments(results.AccidentProbs)

	if s.Biased {
		logrus.Warnf("importance-sampled run (factors %v): rates are not reweighted to the nominal distribution",
			s.ImportanceFactors)
	}
	return s, nil
}

// wilsonInterval is the Wilson score interval for k successes in n trials.
func wilsonInterval(k, n int, confidence float64) [2]float64 {
	z := distuv.UnitNormal.Quantile(1 - (1-confidence)/2)
	nf := float64(n)
	p := float64(k) / nf
	z2 := z * z
	denom := 1 + z2/nf
	center := (p + z2/(2*nf)) / denom
	half := z / denom * math.Sqrt(p*(1-p)/nf+z2/(4*nf*nf))
	return [2]float64{math.Max(0, center-half), math.Min(1, center+half)}
}

func moments(x []float64) Moments {
	sorted := slices.Clone(x)
	slices.Sort(sorted)
	mean, std := stat.MeanStdDev(sorted, nil)
	if len(sorted) < 2 {
		std = 0
	}
	return Moments{
		Mean:   mean,
		StdDev: std,
		Min:    sorted[0],
		P05:    stat.Quantile(0.05, stat.Empirical, sorted, nil),
		P50:    stat.Quantile(0.50, stat.Empirical, sorted, nil),
		P95:    stat.Quantile(0.95, stat.Empirical, sorted, nil),
		Max:    sorted[len(sorted)-1],
	}
}

// Print writes a human-readable summary block.
func (s *RiskSummary) Print(w io.Writer) {
	fmt.Fprintln(w, "=== Risk Summary ===")
	fmt.Fprintf(w, "Trials               : %d (mode=%s)\n", s.NumSamples, s.Mode)
	fmt.Fprintf(w, "SCA Events           : %d (%.4f%%)\n", s.SCAEvents, 100*s.SCARate)
	fmt.Fprintf(w, "Accidents            : %d (%.4f%%)\n", s.Accidents, 100*s.AccidentRate)
	fmt.Fprintf(w, "SCA + Accident       : %d (%.4f%%, %.0f%% CI [%.4f%%, %.4f%%])\n",
		s.JointEvents, 100*s.JointRate, 100*s.Confidence, 100*s.JointRateCI[0], 100*s.JointRateCI[1])
	fmt.Fprintf(w, "P(Accident | SCA)    : %.4f\n", s.AccidentRateGivenSCA)
	fmt.Fprintf(w, "Critical Window      : mean %.2f, p05 %.2f, p50 %.2f, p95 %.2f\n",
		s.ReactionTimes.Mean, s.ReactionTimes.P05, s.ReactionTimes.P50, s.ReactionTimes.P95)
	fmt.Fprintf(w, "Accident Probability : mean %.4f, p05 %.4f, p50 %.4f, p95 %.4f\n",
		s.AccidentProbs.Mean, s.AccidentProbs.P05, s.AccidentProbs.P50, s.AccidentProbs.P95)
	if s.Biased {
		fmt.Fprintf(w, "NOTE: importance-sampled (factors %v); rates are not reweighted\n", s.ImportanceFactors)
	}
}
