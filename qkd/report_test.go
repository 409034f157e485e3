package qkd

import (
	"testing"

	"github.com/alan-christopher/qkdsim/qkd/photon"
)

func TestBreakdown(t *testing.T) {
	qs := buildQubits("mxx-xm")
	qs[1].EveInterfered = true
	qs[1].Eve = &photon.State{}
	// Unsifted qubits never count, even with Eve present.
	qs[3].EveInterfered = true
	qs[3].Eve = &photon.State{}

	got := Breakdown(Result{Qubits: qs})
	want := ErrorBreakdown{Eavesdropper: 1, Channel: 2}
	if got != want {
		t.Errorf("Breakdown = %+v, want %+v", got, want)
	}
}

func TestLengths(t *testing.T) {
	p := Params{QubitCount: 200}
	r := Result{SiftedKeyLength: 97, FinalKeyLength: 41}
	if got, want := Lengths(p, r), (KeyLengths{Sent: 200, Sifted: 97, Final: 41}); got != want {
		t.Errorf("Lengths = %+v, want %+v", got, want)
	}
}

func TestFullInterceptQBER(t *testing.T) {
	tcs := []struct {
		qber, want float64
	}{
		{0, 25},
		{2, 26.5},
		{100, 100},
	}
	for _, tc := range tcs {
		if got := FullInterceptQBER(tc.qber); got != tc.want {
			t.Errorf("FullInterceptQBER(%v) = %v, want %v", tc.qber, got, tc.want)
		}
	}
}
