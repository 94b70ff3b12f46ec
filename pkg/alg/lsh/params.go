package lsh

import (
	"errors"
	"math"
)

const (
	// DefaultFPWeight is the default weight of the false-positive mass in
	// the optimizer's error functional.
	DefaultFPWeight = 0.5

	// DefaultFNWeight is the default weight of the false-negative mass in
	// the optimizer's error functional.
	DefaultFNWeight = 0.5

	// integrationPrecision is the Riemann step for the error-mass integrals.
	integrationPrecision = 0.001
)

// ErrNoParams is returned when the optimizer explored no candidate
// parameters. Unreachable for any positive permutation count.
var ErrNoParams = errors.New("lsh: optimizer produced no candidate parameters")

// OptimalParams returns the (bands, rows) split minimizing
// fpWeight*FP + fnWeight*FN for the given threshold, where FP is the
// integral of the collision probability S(x; bands, rows) below the
// threshold and FN the integral of its complement above. All splits with
// bands*rows <= k are explored; ties keep the first candidate found, bands
// ascending then rows ascending.
func OptimalParams(threshold float64, k int, fpWeight, fnWeight float64) (bands, rows int, err error) {
	if threshold < 0 || threshold > 1 {
		return 0, 0, ErrInvalidThreshold
	}

	if k <= 0 {
		return 0, 0, ErrZeroPermutations
	}

	minError := math.Inf(1)
	found := false

	for b := 1; b <= k; b++ {
		maxRows := k / b
		for r := 1; r <= maxRows; r++ {
			fp := falsePositiveMass(threshold, b, r)
			fn := falseNegativeMass(threshold, b, r)

			weighted := fpWeight*fp + fnWeight*fn
			if weighted < minError {
				minError = weighted
				bands = b
				rows = r
				found = true
			}
		}
	}

	if !found {
		return 0, 0, ErrNoParams
	}

	return bands, rows, nil
}

// SCurve is the probability that two sets with Jaccard index x collide in
// at least one band: 1 - (1 - x^rows)^bands.
func SCurve(x float64, bands, rows int) float64 {
	return 1 - math.Pow(1-math.Pow(x, float64(rows)), float64(bands))
}

// falsePositiveMass integrates the S-curve over [0, threshold]: the
// expected candidate mass contributed by pairs below the threshold.
// Riemann summation with the step's midpoint as the evaluation point.
func falsePositiveMass(threshold float64, bands, rows int) float64 {
	area := 0.0

	for x := 0.0; x < threshold; x += integrationPrecision {
		area += SCurve(x+integrationPrecision/2, bands, rows) * integrationPrecision
	}

	return area
}

// falseNegativeMass integrates the S-curve's complement over
// [threshold, 1]: the expected mass of truly-similar pairs the bands miss.
func falseNegativeMass(threshold float64, bands, rows int) float64 {
	area := 0.0

	for x := threshold; x < 1; x += integrationPrecision {
		area += (1 - SCurve(x+integrationPrecision/2, bands, rows)) * integrationPrecision
	}

	return area
}
