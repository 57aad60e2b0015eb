package sim

import (
	"math"
	"testing"
)

// === SimulationKey Tests ===

func TestSimulationKey_Creation(t *testing.T) {
	tests := []struct {
		name string
		seed int64
	}{
		{"positive seed", 42},
		{"zero seed", 0},
		{"negative seed", -1},
		{"max int64", math.MaxInt64},
		{"min int64", math.MinInt64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := NewSimulationKey(tt.seed)
			if int64(key) != tt.seed {
				t.Errorf("NewSimulationKey(%d) = %d, want %d", tt.seed, key, tt.seed)
			}
		})
	}
}

// === PartitionedRNG Tests ===

func TestPartitionedRNG_DeterministicDerivation(t *testing.T) {
	rng1 := NewPartitionedRNG(NewSimulationKey(42))
	rng2 := NewPartitionedRNG(NewSimulationKey(42))

	name := SubsystemParameter(ParamAge)
	for i := 0; i < 3; i++ {
		v1 := rng1.ForSubsystem(name).Float64()
		v2 := rng2.ForSubsystem(name).Float64()
		if v1 != v2 {
			t.Errorf("value %d: got %v and %v, want identical", i, v1, v2)
		}
	}
}

func TestPartitionedRNG_SubsystemIsolation(t *testing.T) {
	// Drawing from one parameter's stream must not shift another's.
	rngA := NewPartitionedRNG(NewSimulationKey(42))
	for i := 0; i < 10; i++ {
		rngA.ForSubsystem(SubsystemParameter(ParamSpeed)).Float64()
	}
	got := rngA.ForSubsystem(SubsystemParameter(ParamAge)).Float64()

	fresh := NewPartitionedRNG(NewSimulationKey(42))
	want := fresh.ForSubsystem(SubsystemParameter(ParamAge)).Float64()

	if got != want {
		t.Errorf("age first value = %v, want %v (isolation broken)", got, want)
	}
}

func TestPartitionedRNG_DistinctSubsystemsDiffer(t *testing.T) {
	rng := NewPartitionedRNG(NewSimulationKey(42))
	a := rng.ForSubsystem(SubsystemChunk(0)).Float64()
	b := rng.ForSubsystem(SubsystemChunk(1)).Float64()
	if a == b {
		t.Errorf("chunk 0 and chunk 1 produced the same first value %v", a)
	}
}

func TestPartitionedRNG_CachesInstance(t *testing.T) {
	rng := NewPartitionedRNG(NewSimulationKey(42))

	rng1 := rng.ForSubsystem(SubsystemChunk(3))
	rng2 := rng.ForSubsystem(SubsystemChunk(3))

	if rng1 != rng2 {
		t.Error("ForSubsystem returned different instances for same name")
	}
}

func TestPartitionedRNG_Key(t *testing.T) {
	seed := int64(12345)
	rng := NewPartitionedRNG(NewSimulationKey(seed))

	if rng.Key() != SimulationKey(seed) {
		t.Errorf("Key() = %v, want %v", rng.Key(), seed)
	}
}

func TestPartitionedRNG_ExtremeSeeds(t *testing.T) {
	for _, seed := range []int64{0, math.MinInt64, math.MaxInt64} {
		rng := NewPartitionedRNG(NewSimulationKey(seed))
		r := rng.ForSubsystem(SubsystemParameter(ParamSCAProbability))
		if r == nil {
			t.Fatalf("seed %d: ForSubsystem returned nil", seed)
		}
		if v := r.Float64(); v < 0 || v >= 1 {
			t.Errorf("seed %d: Float64() returned %v, want [0, 1)", seed, v)
		}
	}
}

func TestPartitionedRNG_LazyInitialization(t *testing.T) {
	rng := NewPartitionedRNG(NewSimulationKey(42))

	if len(rng.subsystems) != 0 {
		t.Errorf("new PartitionedRNG has %d subsystems, want 0", len(rng.subsystems))
	}
	rng.ForSubsystem(SubsystemChunk(0))
	if len(rng.subsystems) != 1 {
		t.Errorf("after one ForSubsystem call, got %d subsystems, want 1", len(rng.subsystems))
	}
}

func TestSubsystemNames(t *testing.T) {
	if got := SubsystemParameter("age"); got != "param_age" {
		t.Errorf("SubsystemParameter(age) = %q", got)
	}
	if got := SubsystemChunk(7); got != "simulator_chunk_7" {
		t.Errorf("SubsystemChunk(7) = %q", got)
	}
}
