package minhash

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tablescope/tablescope/pkg/alg/internal/hashutil"
)

// Test constants for MinHash tests.
const (
	// testPermutations is the default number of permutations used in tests.
	testPermutations = 128

	// testSmallPermutations is a small permutation count for focused tests.
	testSmallPermutations = 16

	// testAccuracyPermutations is the permutation count for statistical
	// accuracy tests.
	testAccuracyPermutations = 256

	// testOverlapSetSize is the number of values per set in overlap tests.
	testOverlapSetSize = 1000

	// testOverlapTolerance is the allowed deviation from the true Jaccard
	// index in single-pair estimates.
	testOverlapTolerance = 0.1

	// testDisjointCeiling is the maximum expected estimate for disjoint sets.
	testDisjointCeiling = 0.1

	// testUnbiasedTrials is the number of independent trials in the
	// estimator bias test.
	testUnbiasedTrials = 100

	// testUnbiasedMAELimit bounds the mean absolute error of the estimator
	// across trials.
	testUnbiasedMAELimit = 0.1

	// testIdenticalFloor is the minimum estimate for two sketches of the
	// same large set.
	testIdenticalFloor = 0.99
)

// --- Constructor Tests ---.

func TestNew_Valid(t *testing.T) {
	t.Parallel()

	sk, err := New(testPermutations)

	require.NoError(t, err)
	require.NotNil(t, sk)
	assert.Equal(t, testPermutations, sk.K())
	assert.Len(t, sk.HashValues(), testPermutations)
}

func TestNew_SinglePermutation(t *testing.T) {
	t.Parallel()

	sk, err := New(1)

	require.NoError(t, err)
	assert.Equal(t, 1, sk.K())
}

func TestNew_ZeroPermutations(t *testing.T) {
	t.Parallel()

	sk, err := New(0)

	require.Error(t, err)
	assert.Nil(t, sk)
	assert.ErrorIs(t, err, ErrZeroPermutations)
}

func TestNew_NegativePermutations(t *testing.T) {
	t.Parallel()

	_, err := New(-3)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrZeroPermutations)
}

func TestNew_InitialSentinel(t *testing.T) {
	t.Parallel()

	sk, err := New(testSmallPermutations)
	require.NoError(t, err)

	for i, v := range sk.HashValues() {
		assert.Equal(t, uint64(math.MaxUint64), v, "mins[%d] not at sentinel", i)
	}

	assert.True(t, sk.IsEmpty())
}

// --- Update Tests ---.

func TestUpdate_Monotone(t *testing.T) {
	t.Parallel()

	sk, err := New(testPermutations)
	require.NoError(t, err)

	sk.Update([]byte("first"))

	before := make([]uint64, sk.K())
	copy(before, sk.HashValues())

	sk.Update([]byte("second"))

	for i, v := range sk.HashValues() {
		assert.LessOrEqual(t, v, before[i], "mins[%d] increased", i)
	}
}

func TestUpdate_Idempotent(t *testing.T) {
	t.Parallel()

	sk, err := New(testPermutations)
	require.NoError(t, err)

	sk.Update([]byte("value"))

	before := make([]uint64, sk.K())
	copy(before, sk.HashValues())

	sk.Update([]byte("value"))

	assert.Equal(t, before, sk.HashValues())
}

func TestUpdate_ValuesBelowModulus(t *testing.T) {
	t.Parallel()

	sk, err := New(testSmallPermutations)
	require.NoError(t, err)

	sk.Update([]byte("anything"))

	for i, v := range sk.HashValues() {
		assert.Less(t, v, hashutil.Mersenne61, "mins[%d] outside field", i)
	}
}

func TestUpdate_OrderIndependent(t *testing.T) {
	t.Parallel()

	values := []string{"alpha", "beta", "gamma", "delta", "epsilon"}

	skA, err := New(testPermutations)
	require.NoError(t, err)

	skB, err := New(testPermutations)
	require.NoError(t, err)

	for _, v := range values {
		skA.Update([]byte(v))
	}

	for i := len(values) - 1; i >= 0; i-- {
		skB.Update([]byte(values[i]))
	}

	assert.Equal(t, skA.HashValues(), skB.HashValues(),
		"same set in different order must produce identical sketches")
}

// --- EstimateJaccard Tests ---.

func TestEstimateJaccard_IdenticalLargeSets(t *testing.T) {
	t.Parallel()

	skA, err := New(testAccuracyPermutations)
	require.NoError(t, err)

	skB, err := New(testAccuracyPermutations)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(7))

	for range testOverlapSetSize {
		v := fmt.Appendf(nil, "value_%d", rng.Int63())
		skA.Update(v)
		skB.Update(v)
	}

	sim, err := skA.EstimateJaccard(skB)

	require.NoError(t, err)
	assert.GreaterOrEqual(t, sim, testIdenticalFloor,
		"sketches of the same set should estimate near 1.0, got %f", sim)
}

func TestEstimateJaccard_Disjoint(t *testing.T) {
	t.Parallel()

	skA, err := New(testPermutations)
	require.NoError(t, err)

	skB, err := New(testPermutations)
	require.NoError(t, err)

	for i := range testOverlapSetSize {
		skA.Update(fmt.Appendf(nil, "left_%d", i))
		skB.Update(fmt.Appendf(nil, "right_%d", i))
	}

	sim, err := skA.EstimateJaccard(skB)

	require.NoError(t, err)
	assert.Less(t, sim, testDisjointCeiling,
		"disjoint sets should estimate near 0.0, got %f", sim)
}

func TestEstimateJaccard_PartialOverlap(t *testing.T) {
	t.Parallel()

	skA, err := New(testAccuracyPermutations)
	require.NoError(t, err)

	skB, err := New(testAccuracyPermutations)
	require.NoError(t, err)

	// A and B share 500 values and hold 500 unique each:
	// Jaccard = 500 / 1500 = 1/3.
	half := testOverlapSetSize / 2

	for i := range half {
		shared := fmt.Appendf(nil, "shared_%d", i)
		skA.Update(shared)
		skB.Update(shared)
	}

	for i := range half {
		skA.Update(fmt.Appendf(nil, "uniqueA_%d", i))
		skB.Update(fmt.Appendf(nil, "uniqueB_%d", i))
	}

	sim, err := skA.EstimateJaccard(skB)

	require.NoError(t, err)
	assert.InDelta(t, 1.0/3.0, sim, testOverlapTolerance)
}

func TestEstimateJaccard_Unbiased(t *testing.T) {
	t.Parallel()

	// 100 independent pairs with true Jaccard 1/3; the mean absolute error
	// of the k=256 estimator must stay under 0.1.
	rng := rand.New(rand.NewSource(3))
	trueJaccard := 1.0 / 3.0
	sumAbsErr := 0.0

	for trial := range testUnbiasedTrials {
		skA, err := New(testAccuracyPermutations)
		require.NoError(t, err)

		skB, err := New(testAccuracyPermutations)
		require.NoError(t, err)

		for i := range 50 {
			shared := fmt.Appendf(nil, "t%d_shared_%d_%d", trial, i, rng.Int63())
			skA.Update(shared)
			skB.Update(shared)
		}

		for i := range 50 {
			skA.Update(fmt.Appendf(nil, "t%d_a_%d_%d", trial, i, rng.Int63()))
			skB.Update(fmt.Appendf(nil, "t%d_b_%d_%d", trial, i, rng.Int63()))
		}

		sim, err := skA.EstimateJaccard(skB)
		require.NoError(t, err)

		sumAbsErr += math.Abs(sim - trueJaccard)
	}

	mae := sumAbsErr / testUnbiasedTrials
	assert.Less(t, mae, testUnbiasedMAELimit, "mean absolute error %f too high", mae)
}

func TestEstimateJaccard_SizeMismatch(t *testing.T) {
	t.Parallel()

	skA, err := New(testPermutations)
	require.NoError(t, err)

	skB, err := New(testSmallPermutations)
	require.NoError(t, err)

	_, err = skA.EstimateJaccard(skB)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSizeMismatch)
}

func TestEstimateJaccard_Nil(t *testing.T) {
	t.Parallel()

	sk, err := New(testPermutations)
	require.NoError(t, err)

	_, err = sk.EstimateJaccard(nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNilSketch)
}

func TestEstimateJaccard_BothEmpty(t *testing.T) {
	t.Parallel()

	skA, err := New(testPermutations)
	require.NoError(t, err)

	skB, err := New(testPermutations)
	require.NoError(t, err)

	sim, err := skA.EstimateJaccard(skB)

	require.NoError(t, err)
	assert.InDelta(t, 1.0, sim, 0.001, "two empty sketches agree everywhere")
}

// --- Merge Tests ---.

func TestMerge_EqualsUnionSketch(t *testing.T) {
	t.Parallel()

	skA, err := New(testSmallPermutations)
	require.NoError(t, err)

	skB, err := New(testSmallPermutations)
	require.NoError(t, err)

	skA.Update([]byte("alpha"))
	skB.Update([]byte("beta"))

	err = skA.Merge(skB)
	require.NoError(t, err)

	union, err := New(testSmallPermutations)
	require.NoError(t, err)

	union.Update([]byte("alpha"))
	union.Update([]byte("beta"))

	assert.Equal(t, union.HashValues(), skA.HashValues())
}

func TestMerge_SizeMismatch(t *testing.T) {
	t.Parallel()

	skA, err := New(testPermutations)
	require.NoError(t, err)

	skB, err := New(testSmallPermutations)
	require.NoError(t, err)

	err = skA.Merge(skB)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSizeMismatch)
}

func TestMerge_Nil(t *testing.T) {
	t.Parallel()

	sk, err := New(testPermutations)
	require.NoError(t, err)

	err = sk.Merge(nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNilSketch)
}

func TestMerge_Self(t *testing.T) {
	t.Parallel()

	sk, err := New(testSmallPermutations)
	require.NoError(t, err)

	sk.Update([]byte("alpha"))

	before := make([]uint64, sk.K())
	copy(before, sk.HashValues())

	err = sk.Merge(sk)

	require.NoError(t, err)
	assert.Equal(t, before, sk.HashValues())
}

// --- Clone and Reset Tests ---.

func TestClone_Independent(t *testing.T) {
	t.Parallel()

	sk, err := New(testSmallPermutations)
	require.NoError(t, err)

	sk.Update([]byte("hello"))

	cloned := sk.Clone()
	require.NotNil(t, cloned)
	assert.Equal(t, sk.HashValues(), cloned.HashValues())

	cloned.Update([]byte("world"))

	sim, err := sk.EstimateJaccard(cloned)
	require.NoError(t, err)
	assert.Less(t, sim, 1.0, "clone must be independent of the original")
}

func TestReset(t *testing.T) {
	t.Parallel()

	sk, err := New(testSmallPermutations)
	require.NoError(t, err)

	sk.Update([]byte("value"))
	assert.False(t, sk.IsEmpty())

	sk.Reset()

	assert.True(t, sk.IsEmpty())
}

// --- IsEmpty Tests ---.

func TestIsEmpty_TracksUpdates(t *testing.T) {
	t.Parallel()

	sk, err := New(testSmallPermutations)
	require.NoError(t, err)

	assert.True(t, sk.IsEmpty())

	sk.Update([]byte("value"))

	assert.False(t, sk.IsEmpty())
}
