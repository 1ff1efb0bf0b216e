package loader

import (
	"math/rand/v2"
)

// Sized is anything with a number of examples.
type Sized interface {
	Len() int
}

// Sampler yields the example order for an epoch.
type Sampler interface {
	Indices(epoch int) []int
}

// SequentialSampler visits examples in order.
type SequentialSampler struct {
	src Sized
}

// NewSequentialSampler creates a SequentialSampler over src.
func NewSequentialSampler(src Sized) *SequentialSampler {
	return &SequentialSampler{src: src}
}

// Indices returns 0..Len-1.
func (s *SequentialSampler) Indices(int) []int {
	out := make([]int, s.src.Len())
	for i := range out {
		out[i] = i
	}

	return out
}

// RandomSampler visits examples in a seeded random order that changes every epoch.
type RandomSampler struct {
	src  Sized
	seed uint64
}

// NewRandomSampler creates a RandomSampler over src.
// The same seed and epoch always give the same permutation.
func NewRandomSampler(src Sized, seed uint64) *RandomSampler {
	return &RandomSampler{src: src, seed: seed}
}

// Indices returns a permutation of 0..Len-1 for epoch.
func (s *RandomSampler) Indices(epoch int) []int {
	rng := rand.New(rand.NewPCG(s.seed, uint64(epoch)))

	return rng.Perm(s.src.Len())
}

// Seed returns the generator seed.
func (s *RandomSampler) Seed() uint64 { return s.seed }
