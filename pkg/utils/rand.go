package utils

import (
	"math/rand"
	"sync"
	"time"
)

// RandSource is a thread-safe random number generator
type RandSource struct {
	mu   sync.Mutex
	rng  *rand.Rand
	seed int64
}

// NewRandSource creates a new random source with the given seed.
// A zero seed is replaced by the current time.
func NewRandSource(seed int64) *RandSource {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RandSource{
		rng:  rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Seed returns the effective seed of the source
func (r *RandSource) Seed() int64 {
	return r.seed
}

// Float64 returns a random float64 in [0.0, 1.0)
func (r *RandSource) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Float64()
}

// Intn returns a random int in [0, n)
func (r *RandSource) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Intn(n)
}

// Perm returns a random permutation of [0, n)
func (r *RandSource) Perm(n int) []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Perm(n)
}

// UniformFloat64 returns a uniformly distributed random number in [min, max)
func (r *RandSource) UniformFloat64(min, max float64) float64 {
	return min + r.Float64()*(max-min)
}

// BernoulliBool returns true with probability p, false otherwise
func (r *RandSource) BernoulliBool(p float64) bool {
	return r.Float64() < p
}

// DistinctExcept draws k distinct indices from [0, n) none of which equal skip.
// It panics if fewer than k candidates exist.
func (r *RandSource) DistinctExcept(n, k, skip int) []int {
	if n-1 < k {
		panic("utils: not enough indices to draw from")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	picked := make([]int, 0, k)
	for len(picked) < k {
		c := r.rng.Intn(n)
		if c == skip || containsInt(picked, c) {
			continue
		}
		picked = append(picked, c)
	}
	return picked
}

func containsInt(values []int, v int) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
