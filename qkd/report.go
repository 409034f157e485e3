package qkd

// An ErrorBreakdown attributes the bit mismatches among sifted qubits to their
// likely source.
type ErrorBreakdown struct {
	// Eavesdropper counts mismatched sifted qubits Eve interfered with.
	Eavesdropper int
	// Channel counts the remaining mismatched sifted qubits.
	Channel int
}

// Breakdown partitions the mismatched sifted qubits of r by whether Eve
// interfered with them.
func Breakdown(r Result) ErrorBreakdown {
	var b ErrorBreakdown
	for _, q := range r.Qubits {
		if !q.BasisMatch || q.AliceBit == q.BobBit {
			continue
		}
		if q.EveInterfered {
			b.Eavesdropper++
		} else {
			b.Channel++
		}
	}
	return b
}

// KeyLengths compares the key material at each stage of a run.
type KeyLengths struct {
	Sent   int
	Sifted int
	Final  int
}

// Lengths returns the key lengths of r, simulated with parameters p.
func Lengths(p Params, r Result) KeyLengths {
	return KeyLengths{Sent: p.QubitCount, Sifted: r.SiftedKeyLength, Final: r.FinalKeyLength}
}

// FullInterceptQBER returns the QBER percentage expected under BB84 when Eve
// intercepts every photon of a channel whose intrinsic error rate is
// qberPercent: the intercept-resend attack disturbs a quarter of the bits the
// channel left intact.
func FullInterceptQBER(qberPercent float64) float64 {
	return qberPercent + (100-qberPercent)*0.25
}
