package sim

import (
	"fmt"
	"math"
	"math/rand"
	"runtime"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/interp"
	"gonum.org/v1/gonum/stat/distuv"
)

// Model constants.
const (
	// Base critical window ~ N(15, 5²) before age and health adjustments.
	windowMean = 15.0
	windowStd  = 5.0
	// Critical windows are clamped to [MinCriticalWindow, MaxCriticalWindow].
	MinCriticalWindow = 2.0
	MaxCriticalWindow = 30.0

	// Speed factor control points: 30 → 0.2, 120 → 1.0, constant outside.
	speedLow        = 30.0
	speedHigh       = 120.0
	speedFactorLow  = 0.2
	speedFactorHigh = 1.0

	// Logistic midpoint of the time factor.
	reactionMidpoint = 5.0
)

// chunkSize is the number of trials per RNG stream. It is fixed so that the
// results depend only on the seed and N, never on the worker count.
const chunkSize = 4096

var speedCurve = mustFitSpeedCurve()

func mustFitSpeedCurve() interp.PiecewiseLinear {
	var pl interp.PiecewiseLinear
	if err := pl.Fit([]float64{speedLow, speedHigh}, []float64{speedFactorLow, speedFactorHigh}); err != nil {
		panic(fmt.Sprintf("fitting speed curve: %v", err))
	}
	return pl
}

// ResultSet holds the per-trial outcomes of one simulation run.
type ResultSet struct {
	SCAEvents         []bool    `json:"sca_events"`
	ReactionTimes     []float64 `json:"reaction_times"`
	AccidentProbs     []float64 `json:"accident_probs"`
	AccidentsOccurred []bool    `json:"accidents_occurred"`
}

func newResultSet(n int) *ResultSet {
	return &ResultSet{
		SCAEvents:         make([]bool, n),
		ReactionTimes:     make([]float64, n),
		AccidentProbs:     make([]float64, n),
		AccidentsOccurred: make([]bool, n),
	}
}

// Len returns the number of trials.
func (r *ResultSet) Len() int {
	return len(r.ReactionTimes)
}

// CardiacArrestSimulator turns a SampleSet into a ResultSet.
type CardiacArrestSimulator struct {
	// Workers bounds the number of chunks simulated concurrently.
	// Zero means runtime.GOMAXPROCS(0).
	Workers int

	samples *SampleSet
	n       int
	rng     *PartitionedRNG
}

// NewCardiacArrestSimulator infers N from samples and checks that every
// vector has length N.
func NewCardiacArrestSimulator(samples *SampleSet, rng *PartitionedRNG) (*CardiacArrestSimulator, error) {
	if samples == nil {
		return nil, fmt.Errorf("%w: nil sample set", ErrConfiguration)
	}
	if rng == nil {
		return nil, fmt.Errorf("%w: nil random source", ErrConfiguration)
	}
	n, err := samples.Len()
	if err != nil {
		return nil, err
	}
	return &CardiacArrestSimulator{samples: samples, n: n, rng: rng}, nil
}

// NumSamples returns N.
func (s *CardiacArrestSimulator) NumSamples() int {
	return s.n
}

// Run computes critical windows, accident probabilities and the two
// independent event realizations for every trial. The SCA event and the
// accident are drawn independently; the model does not link them.
func (s *CardiacArrestSimulator) Run() (*ResultSet, error) {
	in, err := s.samples.DriverInputs()
	if err != nil {
		return nil, err
	}

	res := newResultSet(s.n)
	numChunks := (s.n + chunkSize - 1) / chunkSize

	// PartitionedRNG is single-goroutine: derive all streams before fan-out.
	streams := make([]*rand.Rand, numChunks)
	for c := range streams {
		streams[c] = s.rng.ForSubsystem(SubsystemChunk(c))
	}

	workers := s.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	var g errgroup.Group
	g.SetLimit(workers)
	for c := 0; c < numChunks; c++ {
		lo := c * chunkSize
		hi := min(lo+chunkSize, s.n)
		rng := streams[c]
		g.Go(func() error {
			simulateChunk(in, res, lo, hi, rng)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	logrus.Debugf("simulated %d trials in %d chunks (workers=%d)", s.n, numChunks, workers)
	return res, nil
}

// simulateChunk fills res[lo:hi]. Chunks write disjoint index ranges.
func simulateChunk(in DriverInputs, res *ResultSet, lo, hi int, rng *rand.Rand) {
	for i := lo; i < hi; i++ {
		res.SCAEvents[i] = rng.Float64() < in.SCAProbability[i]
	}
	base := distuv.Normal{Mu: windowMean, Sigma: windowStd, Src: rng}
	for i := lo; i < hi; i++ {
		res.ReactionTimes[i] = CriticalWindow(base.Rand(), in.Age[i], in.HealthStatus[i])
	}
	for i := lo; i < hi; i++ {
		p := AccidentProbability(res.ReactionTimes[i], in.Speed[i])
		res.AccidentProbs[i] = p
		res.AccidentsOccurred[i] = p > rng.Float64()
	}
}

// CriticalWindow shrinks the base intervention window with age and worse
// health status, clamped to [MinCriticalWindow, MaxCriticalWindow].
func CriticalWindow(base, age, healthStatus float64) float64 {
	return clip(base-age/5-healthStatus*2, MinCriticalWindow, MaxCriticalWindow)
}

// SpeedFactor linearly interpolates speed over (30 → 0.2, 120 → 1.0),
// holding the endpoint values outside that range.
func SpeedFactor(speed float64) float64 {
	return speedCurve.Predict(clip(speed, speedLow, speedHigh))
}

// TimeFactor is the logistic 1/(1+exp(-(reactionTime-5))).
func TimeFactor(reactionTime float64) float64 {
	return 1 / (1 + math.Exp(-(reactionTime - reactionMidpoint)))
}

// AccidentProbability is SpeedFactor(speed) * TimeFactor(reactionTime),
// always within [0, 1].
func AccidentProbability(reactionTime, speed float64) float64 {
	return clip(SpeedFactor(speed)*TimeFactor(reactionTime), 0, 1)
}

// clip clamps v to [lo, hi]. NaN maps to lo.
func clip(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
