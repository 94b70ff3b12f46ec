// Package hashutil provides the hash mixing and modular arithmetic
// primitives shared by the MinHash and LSH packages.
//
// Seed generation uses the splitmix64 finalizer by Vigna (2014), which
// provides full-avalanche mixing across all 64 bits. The permutation hash
// family works in the field of integers modulo the Mersenne prime 2^61 - 1,
// which admits a cheap carry-fold reduction.
package hashutil

import (
	"hash/fnv"
	"math/bits"
)

// Splitmix64 constants from the splitmix64 finalizer by Vigna (2014).
const (
	// BaseSeed is the starting seed for deterministic seed generation.
	BaseSeed = 0x517cc1b727220a95

	// MixShift1 is the first right-shift in the splitmix64 finalizer.
	MixShift1 = 30

	// MixMul1 is the first multiplier in the splitmix64 finalizer.
	MixMul1 = 0xbf58476d1ce4e5b9

	// MixShift2 is the second right-shift in the splitmix64 finalizer.
	MixShift2 = 27

	// MixMul2 is the second multiplier in the splitmix64 finalizer.
	MixMul2 = 0x94d049bb133111eb

	// MixShift3 is the third right-shift in the splitmix64 finalizer.
	MixShift3 = 31

	// splitmix64Increment is the golden-ratio-derived increment
	// used in the Splitmix64 state-advance function.
	splitmix64Increment = 0x9e3779b97f4a7c15
)

// Mersenne61 is the Mersenne prime 2^61 - 1, the modulus of the
// permutation hash family.
const Mersenne61 uint64 = (1 << 61) - 1

// mersenne61Bits is the bit width of the Mersenne61 modulus.
const mersenne61Bits = 61

// Splitmix64 advances the state by the golden-ratio increment and applies
// the mix64 finalizer. This is a full PRNG step that both advances state
// and produces output.
func Splitmix64(state uint64) uint64 {
	state += splitmix64Increment
	z := state
	z = (z ^ (z >> MixShift1)) * MixMul1
	z = (z ^ (z >> MixShift2)) * MixMul2
	z ^= z >> MixShift3

	return z
}

// FNV64a computes a 64-bit FNV-1a hash of the given data.
func FNV64a(data []byte) uint64 {
	h := fnv.New64a()
	_, _ = h.Write(data)

	return h.Sum64()
}

// GenerateSeeds creates n deterministic seeds from the fixed BaseSeed
// using the splitmix64 state-advance function.
func GenerateSeeds(n int) []uint64 {
	seeds := make([]uint64, n)
	state := uint64(BaseSeed)

	for i := range n {
		state = Splitmix64(state)
		seeds[i] = state
	}

	return seeds
}

// Mod61 reduces a 64-bit value modulo 2^61 - 1 via carry folding.
func Mod61(v uint64) uint64 {
	v = (v >> mersenne61Bits) + (v & Mersenne61)
	if v >= Mersenne61 {
		v -= Mersenne61
	}

	return v
}

// MulAddMod61 computes (a*x + b) mod 2^61 - 1 using a 128-bit intermediate
// product. The product is split into 61-bit chunks; 2^61 ≡ 1 (mod 2^61-1),
// so the chunks simply add.
func MulAddMod61(a, x, b uint64) uint64 {
	hi, lo := bits.Mul64(a, x)

	c0 := lo & Mersenne61
	c1 := ((lo >> mersenne61Bits) | (hi << (64 - mersenne61Bits))) & Mersenne61
	c2 := hi >> (2*mersenne61Bits - 64)

	s := c0 + c1 + c2
	s = (s >> mersenne61Bits) + (s & Mersenne61)

	if s >= Mersenne61 {
		s -= Mersenne61
	}

	return Mod61(s + Mod61(b))
}
