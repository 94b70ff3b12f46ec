// Package minhash provides MinHash sketches for Jaccard similarity
// estimation over string-valued sets.
//
// A sketch holds k minimums, one per hash permutation. Permutation i maps
// a value v to (a_i*base(v) + b_i) mod 2^61-1, where base is a 64-bit
// FNV-1a hash and the a_i, b_i coefficients derive from a fixed splitmix64
// seed chain, so two processes always produce identical sketches for the
// same input set. The probability that two sketches agree at a position
// equals the Jaccard index of the underlying sets; averaging across k
// positions gives an unbiased estimator with variance O(1/k).
//
// A Sketch is not safe for concurrent mutation. Once fully built, a sketch
// may be read concurrently: Update, Merge and Reset are the only mutating
// operations, and no read path mutates interior state.
package minhash

import (
	"errors"
	"math"

	"github.com/tablescope/tablescope/pkg/alg/internal/hashutil"
)

var (
	// ErrZeroPermutations is returned when the permutation count is not positive.
	ErrZeroPermutations = errors.New("minhash: number of permutations must be positive")

	// ErrSizeMismatch is returned when comparing sketches of different widths.
	ErrSizeMismatch = errors.New("minhash: sketch widths do not match")

	// ErrNilSketch is returned when a nil sketch is provided.
	ErrNilSketch = errors.New("minhash: sketch must not be nil")
)

// Sketch is a MinHash summary of a set of byte strings.
type Sketch struct {
	mins  []uint64
	coefA []uint64
	coefB []uint64
}

// New creates an empty sketch with k permutations. Each minimum is
// initialized to [math.MaxUint64], the "no value seen" sentinel. Returns
// ErrZeroPermutations if k is not positive.
func New(k int) (*Sketch, error) {
	if k <= 0 {
		return nil, ErrZeroPermutations
	}

	mins := make([]uint64, k)
	for i := range mins {
		mins[i] = math.MaxUint64
	}

	coefA, coefB := permutationCoefficients(k)

	return &Sketch{
		mins:  mins,
		coefA: coefA,
		coefB: coefB,
	}, nil
}

// permutationCoefficients derives the k (a_i, b_i) pairs of the universal
// hash family from the fixed seed chain. a_i is forced into [1, p-1] so no
// permutation degenerates to a constant.
func permutationCoefficients(k int) (coefA, coefB []uint64) {
	seeds := hashutil.GenerateSeeds(2 * k)

	coefA = make([]uint64, k)
	coefB = make([]uint64, k)

	for i := range k {
		coefA[i] = seeds[2*i]%(hashutil.Mersenne61-1) + 1
		coefB[i] = seeds[2*i+1] % hashutil.Mersenne61
	}

	return coefA, coefB
}

// Update folds one set value into the sketch: for every permutation i the
// stored minimum becomes min(mins[i], h_i(value)). Presenting a value the
// sketch has already seen leaves it unchanged.
func (s *Sketch) Update(value []byte) {
	base := hashutil.FNV64a(value)

	for i := range s.mins {
		h := hashutil.MulAddMod61(s.coefA[i], base, s.coefB[i])
		if h < s.mins[i] {
			s.mins[i] = h
		}
	}
}

// HashValues returns the current hash minimums. The returned slice is the
// sketch's internal state; callers must not modify it.
func (s *Sketch) HashValues() []uint64 {
	return s.mins
}

// K returns the number of permutations.
func (s *Sketch) K() int {
	return len(s.mins)
}

// EstimateJaccard returns the estimated Jaccard index between this sketch
// and another: the fraction of positions at which the two agree. Returns
// ErrSizeMismatch if the sketches have different widths, ErrNilSketch if
// other is nil.
func (s *Sketch) EstimateJaccard(other *Sketch) (float64, error) {
	if other == nil {
		return 0, ErrNilSketch
	}

	if len(s.mins) != len(other.mins) {
		return 0, ErrSizeMismatch
	}

	matches := 0

	for i := range s.mins {
		if s.mins[i] == other.mins[i] {
			matches++
		}
	}

	return float64(matches) / float64(len(s.mins)), nil
}

// Merge folds another sketch into this one, element-wise. The result
// summarizes the union of the two underlying sets. Returns ErrSizeMismatch
// if the sketches have different widths, ErrNilSketch if other is nil.
func (s *Sketch) Merge(other *Sketch) error {
	if other == nil {
		return ErrNilSketch
	}

	if s == other {
		return nil
	}

	if len(s.mins) != len(other.mins) {
		return ErrSizeMismatch
	}

	for i := range s.mins {
		if other.mins[i] < s.mins[i] {
			s.mins[i] = other.mins[i]
		}
	}

	return nil
}

// Clone returns an independent copy of the sketch.
func (s *Sketch) Clone() *Sketch {
	mins := make([]uint64, len(s.mins))
	copy(mins, s.mins)

	return &Sketch{
		mins:  mins,
		coefA: s.coefA,
		coefB: s.coefB,
	}
}

// Reset returns the sketch to its empty state.
func (s *Sketch) Reset() {
	for i := range s.mins {
		s.mins[i] = math.MaxUint64
	}
}

// IsEmpty reports whether the sketch has seen no values.
func (s *Sketch) IsEmpty() bool {
	for _, v := range s.mins {
		if v != math.MaxUint64 {
			return false
		}
	}

	return true
}
