// Package photon provides utilities for handling qubits encoded in one of two
// conjugate polarization bases, modelled at the level of classical
// probabilities rather than state vectors.
package photon

import (
	"fmt"
	"math/rand"
)

// A Basis is one of the two mutually unbiased bases a qubit may be prepared
// or measured in.
type Basis uint8

const (
	Rectilinear Basis = iota
	Diagonal
)

func (b Basis) String() string {
	switch b {
	case Rectilinear:
		return "+"
	case Diagonal:
		return "x"
	default:
		return fmt.Sprintf("Basis(%d)", uint8(b))
	}
}

// A Bit is the classical outcome of a preparation or a measurement.
type Bit uint8

const (
	Zero Bit = iota
	One
)

// Flip returns the complement of b.
func (b Bit) Flip() Bit {
	return b ^ 1
}

func (b Bit) String() string {
	if b == Zero {
		return "0"
	}
	return "1"
}

// A State is the classical description of a photon in flight: the value it
// encodes and the basis it was encoded in.
type State struct {
	Bit   Bit
	Basis Basis
}

// A NoiseModel selects how a channel noise event acts on a photon.
type NoiseModel uint8

const (
	// SimpleQBER flips the encoded bit.
	SimpleQBER NoiseModel = iota
	// Depolarizing replaces the photon with a maximally mixed state, so the
	// receiver's outcome is uniformly random.
	Depolarizing
)

func (m NoiseModel) String() string {
	switch m {
	case SimpleQBER:
		return "SimpleQBER"
	case Depolarizing:
		return "Depolarizing"
	default:
		return fmt.Sprintf("NoiseModel(%d)", uint8(m))
	}
}

// Valid reports whether m is one of the known noise models.
func (m NoiseModel) Valid() bool {
	return m == SimpleQBER || m == Depolarizing
}

// ParseNoiseModel converts the textual name of a noise model.
func ParseNoiseModel(s string) (NoiseModel, error) {
	switch s {
	case "SimpleQBER", "simple", "bitflip":
		return SimpleQBER, nil
	case "Depolarizing", "depolarizing":
		return Depolarizing, nil
	}
	return 0, fmt.Errorf("unknown noise model %q", s)
}

// Chance draws a Bernoulli trial that succeeds with probability percent/100.
func Chance(r *rand.Rand, percent float64) bool {
	return r.Float64()*100 < percent
}

// RandomBit draws a uniformly random bit.
func RandomBit(r *rand.Rand) Bit {
	if r.Float64() < 0.5 {
		return Zero
	}
	return One
}

// RandomBasis draws a uniformly random basis.
func RandomBasis(r *rand.Rand) Basis {
	if r.Float64() < 0.5 {
		return Rectilinear
	}
	return Diagonal
}

// BiasedBasis draws Rectilinear with probability rectilinearPercent/100, and
// Diagonal otherwise.
func BiasedBasis(r *rand.Rand, rectilinearPercent float64) Basis {
	if Chance(r, rectilinearPercent) {
		return Rectilinear
	}
	return Diagonal
}
