// Package lsh provides a banded Locality-Sensitive Hashing index over
// MinHash sketches for approximate set-similarity retrieval.
//
// The index partitions each k-wide sketch into bands of rows consecutive
// hash values. Two sketches become candidates when at least one band hashes
// to the same 64-bit signature, which happens for sets with Jaccard index x
// with probability S(x; bands, rows) = 1 - (1 - x^rows)^bands. The band and
// row counts are either supplied directly or derived from the similarity
// threshold by the parameter optimizer in this package.
//
// An Index is not safe for concurrent mutation. Once fully populated, an
// index may serve Query calls concurrently: Query only reads the band
// tables and mutates no interior state.
package lsh

import (
	"encoding/binary"
	"errors"

	"github.com/spaolacci/murmur3"

	"github.com/tablescope/tablescope/pkg/alg/minhash"
)

// bytesPerUint64 is the size of a uint64 in bytes for band hashing.
const bytesPerUint64 = 8

var (
	// ErrInvalidThreshold is returned when the similarity threshold is
	// outside [0,1].
	ErrInvalidThreshold = errors.New("lsh: threshold must be in the range [0,1]")

	// ErrZeroPermutations is returned when the permutation count is not positive.
	ErrZeroPermutations = errors.New("lsh: number of permutations must be positive")

	// ErrInvalidParams is returned when bands or rows is not positive.
	ErrInvalidParams = errors.New("lsh: bands and rows must be positive")

	// ErrBandsRowsExceedK is returned when bands*rows exceeds the
	// permutation count.
	ErrBandsRowsExceedK = errors.New("lsh: bands * rows cannot be larger than the number of permutations")

	// ErrSizeMismatch is returned when a sketch's width does not match the
	// index's permutation count.
	ErrSizeMismatch = errors.New("lsh: sketch width must match the index permutation count")

	// ErrNilSketch is returned when a nil sketch is provided.
	ErrNilSketch = errors.New("lsh: sketch must not be nil")
)

// Index is a banded LSH index mapping MinHash sketches to opaque keys.
// The key type needs only equality and hashability; the index stores keys
// by value and never takes ownership of sketches.
type Index[K comparable] struct {
	threshold float64
	k         int
	bands     int
	rows      int
	bandStart []int
	tables    []map[uint64][]K
}

// New creates an index for the given similarity threshold and permutation
// count, deriving the band and row counts from the parameter optimizer with
// the default false-positive and false-negative weights.
func New[K comparable](threshold float64, k int) (*Index[K], error) {
	return NewWithWeights[K](threshold, k, DefaultFPWeight, DefaultFNWeight)
}

// NewWithWeights is like New but with explicit false-positive and
// false-negative weights for the parameter optimizer.
func NewWithWeights[K comparable](threshold float64, k int, fpWeight, fnWeight float64) (*Index[K], error) {
	if threshold < 0 || threshold > 1 {
		return nil, ErrInvalidThreshold
	}

	if k <= 0 {
		return nil, ErrZeroPermutations
	}

	bands, rows, err := OptimalParams(threshold, k, fpWeight, fnWeight)
	if err != nil {
		return nil, err
	}

	return newIndex[K](threshold, k, bands, rows), nil
}

// NewWithParams creates an index with explicit band and row counts,
// bypassing the optimizer. bands*rows must not exceed k.
func NewWithParams[K comparable](threshold float64, k, bands, rows int) (*Index[K], error) {
	if threshold < 0 || threshold > 1 {
		return nil, ErrInvalidThreshold
	}

	if k <= 0 {
		return nil, ErrZeroPermutations
	}

	if bands <= 0 || rows <= 0 {
		return nil, ErrInvalidParams
	}

	if bands*rows > k {
		return nil, ErrBandsRowsExceedK
	}

	return newIndex[K](threshold, k, bands, rows), nil
}

func newIndex[K comparable](threshold float64, k, bands, rows int) *Index[K] {
	tables := make([]map[uint64][]K, bands)
	for i := range tables {
		tables[i] = make(map[uint64][]K)
	}

	bandStart := make([]int, bands)
	for i := range bandStart {
		bandStart[i] = i * rows
	}

	return &Index[K]{
		threshold: threshold,
		k:         k,
		bands:     bands,
		rows:      rows,
		bandStart: bandStart,
		tables:    tables,
	}
}

// Insert adds a key under the sketch's band signatures. Every insert lands
// in exactly one bucket per band. Duplicate inserts append duplicate
// entries; the index does not deduplicate on insert.
func (idx *Index[K]) Insert(key K, sk *minhash.Sketch) error {
	if sk == nil {
		return ErrNilSketch
	}

	if sk.K() != idx.k {
		return ErrSizeMismatch
	}

	values := sk.HashValues()

	for band := range idx.bands {
		sig := idx.bandSignature(band, values)
		idx.tables[band][sig] = append(idx.tables[band][sig], key)
	}

	return nil
}

// Query returns the keys sharing at least one band signature with the
// given sketch. The result is deduplicated and unordered. A key inserted
// under this exact sketch is always returned.
func (idx *Index[K]) Query(sk *minhash.Sketch) ([]K, error) {
	if sk == nil {
		return nil, ErrNilSketch
	}

	if sk.K() != idx.k {
		return nil, ErrSizeMismatch
	}

	values := sk.HashValues()
	seen := make(map[K]struct{})

	for band := range idx.bands {
		sig := idx.bandSignature(band, values)
		for _, key := range idx.tables[band][sig] {
			seen[key] = struct{}{}
		}
	}

	result := make([]K, 0, len(seen))
	for key := range seen {
		result = append(result, key)
	}

	return result, nil
}

// bandSignature hashes the band's slice of hash values to a 64-bit bucket
// signature. The band index seeds the hash for domain separation between
// bands.
func (idx *Index[K]) bandSignature(band int, values []uint64) uint64 {
	start := idx.bandStart[band]
	segment := values[start : start+idx.rows]

	buf := make([]byte, idx.rows*bytesPerUint64)
	for i, v := range segment {
		binary.BigEndian.PutUint64(buf[i*bytesPerUint64:(i+1)*bytesPerUint64], v)
	}

	return murmur3.Sum64WithSeed(buf, uint32(band))
}

// Threshold returns the similarity threshold the index was built for.
func (idx *Index[K]) Threshold() float64 {
	return idx.threshold
}

// K returns the permutation count sketches must match.
func (idx *Index[K]) K() int {
	return idx.k
}

// Bands returns the number of bands.
func (idx *Index[K]) Bands() int {
	return idx.bands
}

// Rows returns the number of rows per band.
func (idx *Index[K]) Rows() int {
	return idx.rows
}
