package photon

import (
	"math"
	"math/rand"
	"testing"
)

func TestInterceptMatchingBasisPreservesBit(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 1000; i++ {
		s := Prepare(r, 50)
		got := Intercept(r, s)
		if got.Basis == s.Basis && got.Bit != s.Bit {
			t.Fatalf("Intercept(%v) == %v, bit changed despite matching basis", s, got)
		}
	}
}

func TestInterceptDisturbance(t *testing.T) {
	// A mismatched eavesdropper basis randomizes the bit, so half of those
	// photons, a quarter of all, come out flipped.
	r := rand.New(rand.NewSource(11))
	n, flipped := 20000, 0
	for i := 0; i < n; i++ {
		s := Prepare(r, 50)
		if Intercept(r, s).Bit != s.Bit {
			flipped++
		}
	}
	if got := float64(flipped) / float64(n); math.Abs(got-0.25) > 0.02 {
		t.Errorf("flip rate after interception = %v, want ~0.25", got)
	}
}

func TestMeasure(t *testing.T) {
	tcs := []struct {
		name     string
		ch       Channel
		basis    Basis
		noisy    bool
		wantRate float64 // expected rate of outcomes differing from the encoded bit
	}{
		{"matching basis", Channel{Model: SimpleQBER}, Rectilinear, false, 0},
		{"matching basis bit flip", Channel{Model: SimpleQBER}, Rectilinear, true, 1},
		{"mismatched basis", Channel{Model: SimpleQBER}, Diagonal, false, 0.5},
		{"mismatched basis bit flip", Channel{Model: SimpleQBER}, Diagonal, true, 0.5},
		{"depolarized", Channel{Model: Depolarizing}, Rectilinear, true, 0.5},
		{"depolarizing quiet", Channel{Model: Depolarizing}, Rectilinear, false, 0},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			r := rand.New(rand.NewSource(3))
			s := State{Bit: One, Basis: Rectilinear}
			n, diff := 10000, 0
			for i := 0; i < n; i++ {
				if tc.ch.Measure(r, s, tc.basis, tc.noisy) != s.Bit {
					diff++
				}
			}
			if got := float64(diff) / float64(n); math.Abs(got-tc.wantRate) > 0.03 {
				t.Errorf("Measure mismatch rate = %v, want %v", got, tc.wantRate)
			}
		})
	}
}

func TestPerturb(t *testing.T) {
	r := rand.New(rand.NewSource(5))
	flip := Channel{Model: SimpleQBER}
	if got := flip.Perturb(r, Zero); got != One {
		t.Errorf("SimpleQBER Perturb(0) == %v, want 1", got)
	}
	dep := Channel{Model: Depolarizing}
	ones := 0
	for i := 0; i < 10000; i++ {
		if dep.Perturb(r, Zero) == One {
			ones++
		}
	}
	if ones < 4700 || ones > 5300 {
		t.Errorf("Depolarizing Perturb produced %d ones in 10000, want ~5000", ones)
	}
}

func TestBiasedBasisBoundaries(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		if b := BiasedBasis(r, 100); b != Rectilinear {
			t.Fatalf("BiasedBasis(100) == %v", b)
		}
		if b := BiasedBasis(r, 0); b != Diagonal {
			t.Fatalf("BiasedBasis(0) == %v", b)
		}
	}
}

func TestParseNoiseModel(t *testing.T) {
	for _, m := range []NoiseModel{SimpleQBER, Depolarizing} {
		got, err := ParseNoiseModel(m.String())
		if err != nil || got != m {
			t.Errorf("ParseNoiseModel(%q) == (%v, %v), want %v", m.String(), got, err, m)
		}
	}
	if _, err := ParseNoiseModel("thermal"); err == nil {
		t.Errorf("ParseNoiseModel(thermal) did not fail")
	}
}
