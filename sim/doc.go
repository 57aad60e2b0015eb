// Package sim provides the Monte Carlo engine estimating how often a sudden
// cardiac arrest (SCA) coincides with a traffic accident.
//
// # Reading Guide
//
//   - config.go: YAML parameter configuration (DistSpec per parameter, importance factors)
//   - distribution.go: Normal, LogNormal and Categorical sampling primitives
//   - sampler.go: ParameterSampler, nominal and importance sampling
//   - samples.go: SampleSet, Vector and the DriverInputs record the simulator reads
//   - simulator.go: CardiacArrestSimulator, critical window and accident risk models
//   - rng.go: PartitionedRNG, per-subsystem deterministic streams
//   - errors.go: sentinel errors
//
// # Data flow
//
//	Config → ParameterSampler.GenerateSamples(n) → SampleSet
//	SampleSet → CardiacArrestSimulator.Run() → ResultSet
//
// Post-processing lives in sub-packages:
//   - sim/analysis/: risk aggregation over a ResultSet
//   - sim/visualize/: PNG and HTML plots
//   - sim/store/: JSON output and SQLite run history
//
// # Reproducibility
//
// All randomness flows from a PartitionedRNG seeded by a SimulationKey. Each
// parameter and each simulator chunk draws from its own derived stream, so a
// run is fully determined by (seed, configuration, mode, N).
package sim
