package utils

import (
	"sort"
	"testing"
)

func TestNewRandSourceSeed(t *testing.T) {
	if got := NewRandSource(12345).Seed(); got != 12345 {
		t.Fatalf("expected seed 12345, got %d", got)
	}
	if NewRandSource(0).Seed() == 0 {
		t.Fatal("zero seed should be replaced by a time-based seed")
	}
}

func TestRandSourceDeterministic(t *testing.T) {
	a := NewRandSource(99)
	b := NewRandSource(99)
	for i := 0; i < 50; i++ {
		if a.Float64() != b.Float64() {
			t.Fatalf("sources with equal seeds diverged at draw %d", i)
		}
	}
}

func TestRandSourceUniformFloat64(t *testing.T) {
	rng := NewRandSource(12345)
	for i := 0; i < 100; i++ {
		v := rng.UniformFloat64(-2, 3)
		if v < -2 || v >= 3 {
			t.Errorf("UniformFloat64 returned value outside [-2, 3): %f", v)
		}
	}
}

func TestRandSourcePerm(t *testing.T) {
	p := NewRandSource(3).Perm(10)
	sorted := append([]int(nil), p...)
	sort.Ints(sorted)
	for i, v := range sorted {
		if v != i {
			t.Fatalf("Perm(10) is not a permutation: %v", p)
		}
	}
}

func TestDistinctExcept(t *testing.T) {
	rng := NewRandSource(42)
	for trial := 0; trial < 200; trial++ {
		got := rng.DistinctExcept(5, 3, trial%5)
		if len(got) != 3 {
			t.Fatalf("expected 3 indices, got %v", got)
		}
		seen := map[int]bool{}
		for _, v := range got {
			if v == trial%5 {
				t.Fatalf("skip index %d was drawn: %v", trial%5, got)
			}
			if seen[v] {
				t.Fatalf("duplicate index in %v", got)
			}
			seen[v] = true
		}
	}
}

func TestDistinctExceptPanicsWhenTooSmall(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic when n-1 < k")
		}
	}()
	NewRandSource(1).DistinctExcept(3, 3, 0)
}
