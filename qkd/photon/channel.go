package photon

import "math/rand"

// Prepare draws a fresh photon: a uniformly random bit encoded in a basis that
// is Rectilinear with probability rectilinearPercent/100.
func Prepare(r *rand.Rand, rectilinearPercent float64) State {
	bit := RandomBit(r)
	basis := BiasedBasis(r, rectilinearPercent)
	return State{Bit: bit, Basis: basis}
}

// Intercept performs an intercept-resend attack on s. The eavesdropper measures
// in a uniformly random basis; if it disagrees with the encoding basis the
// outcome is random. The returned state is what she forwards, and doubles as
// her record of the measurement.
func Intercept(r *rand.Rand, s State) State {
	basis := RandomBasis(r)
	bit := s.Bit
	if basis != s.Basis {
		bit = RandomBit(r)
	}
	return State{Bit: bit, Basis: basis}
}

// A Channel applies noise events to photons in flight. Percent is the
// per-photon probability of a noise event; its meaning (bit-flip or
// depolarization probability) depends on Model.
type Channel struct {
	Model   NoiseModel
	Percent float64
}

// Disturb draws whether a noise event hits the next photon.
func (c Channel) Disturb(r *rand.Rand) bool {
	return Chance(r, c.Percent)
}

// Perturb applies a noise event to a single measured bit: a flip under
// SimpleQBER, a uniform redraw under Depolarizing.
func (c Channel) Perturb(r *rand.Rand, b Bit) Bit {
	if c.Model == Depolarizing {
		return RandomBit(r)
	}
	return b.Flip()
}

// Measure returns the outcome of measuring s in basis, given whether a noise
// event hit the photon on its way. A depolarized photon yields a random bit in
// either basis. Otherwise the (possibly flipped) bit is recovered exactly when
// the bases agree and is random when they do not.
func (c Channel) Measure(r *rand.Rand, s State, basis Basis, noisy bool) Bit {
	if noisy && c.Model == Depolarizing {
		return RandomBit(r)
	}
	bit := s.Bit
	if noisy {
		bit = bit.Flip()
	}
	if basis == s.Basis {
		return bit
	}
	return RandomBit(r)
}
