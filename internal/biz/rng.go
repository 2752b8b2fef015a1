package biz

import "math/rand/v2"

// RNG is the uniform randomness source for spins and board generation,
// injected so outcomes are scriptable in tests.
type RNG interface {
	Float64() float64
	IntN(n int) int
}

type stdRNG struct{}

func (stdRNG) Float64() float64 { return rand.Float64() }
func (stdRNG) IntN(n int) int   { return rand.IntN(n) }
