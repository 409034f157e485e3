package qkd

import (
	"fmt"
	"math"

	"github.com/alan-christopher/qkdsim/qkd/bitmap"
	"github.com/alan-christopher/qkdsim/qkd/photon"
)

// An estimate packages together the statistics of the public discussion phase.
type estimate struct {
	sifted  int
	sampled int
	final   int
	qber    float64
}

// sift performs basis reconciliation and parameter estimation over a run.
//
// The QBER sample is the leading sampleProp fraction of the sifted qubits in
// arrival order, not a random subset. The final key length discards the sample
// and then shrinks the remainder by the measured error rate, a stand-in for the
// cost of error correction and privacy amplification.
//
// sift fills in KeyMatch on every sifted qubit.
func sift(qubits []Qubit, sampleProp float64) (estimate, error) {
	var aliceBits, bobBits, siftMask bitmap.Bits
	for _, q := range qubits {
		aliceBits.Push(q.AliceBit == photon.One)
		bobBits.Push(q.BobBit == photon.One)
		siftMask.Push(q.BasisMatch)
	}
	aSifted := aliceBits.Filter(siftMask)
	bSifted := bobBits.Filter(siftMask)

	n := aSifted.Len()
	k := int(math.Ceil(float64(n) * sampleProp))
	aSampled, err := aSifted.Head(k)
	if err != nil {
		return estimate{}, fmt.Errorf("sampling sifted bits: %w", err)
	}
	bSampled, err := bSifted.Head(k)
	if err != nil {
		return estimate{}, fmt.Errorf("sampling sifted bits: %w", err)
	}
	var qber float64
	if k > 0 {
		qber = float64(bitmap.Distance(aSampled, bSampled)) / float64(k)
	}

	for i := range qubits {
		if !qubits[i].BasisMatch {
			continue
		}
		match := qubits[i].AliceBit == qubits[i].BobBit
		qubits[i].KeyMatch = &match
	}

	remaining := n - k
	final := remaining - int(math.Ceil(float64(remaining)*qber))
	if final < 0 {
		final = 0
	}
	return estimate{sifted: n, sampled: k, final: final, qber: qber}, nil
}
