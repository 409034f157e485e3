package qkd

import "github.com/alan-christopher/qkdsim/qkd/photon"

// A Qubit records everything that happened to one exchanged photon, or one
// entangled pair under E91.
type Qubit struct {
	// ID is the 0-based position of the qubit within its run.
	ID int

	// AliceBit is the bit Alice encoded (BB84) or measured (E91).
	AliceBit   photon.Bit
	AliceBasis photon.Basis

	EveInterfered bool
	// Eve holds the basis Eve measured in and the bit she obtained. It is
	// non-nil iff EveInterfered.
	Eve *photon.State

	ChannelError bool

	BobBasis photon.Basis
	BobBit   photon.Bit

	// BasisMatch reports whether Alice's and Bob's bases agree. Under BB84
	// this compares Alice's original basis, whatever Eve forwarded.
	BasisMatch bool
	// KeyMatch is set by sifting, and only for qubits with BasisMatch. It is
	// nil otherwise.
	KeyMatch *bool
}

// A Result is the outcome of a single simulation run.
type Result struct {
	Qubits []Qubit

	// SiftedKeyLength counts the qubits with BasisMatch.
	SiftedKeyLength int
	// SampleSize counts the sifted qubits disclosed for QBER estimation.
	SampleSize int
	// FinalKeyLength estimates the key left after discarding the sample and
	// paying for error correction and privacy amplification.
	FinalKeyLength int
	// MeasuredQBER is the fraction of sampled qubits whose bits disagree, or
	// 0 if nothing was sampled.
	MeasuredQBER float64
}

// An AggregatedResult summarizes repeated runs with identical parameters.
type AggregatedResult struct {
	TotalRuns          int
	AvgSiftedKeyLength float64
	AvgFinalKeyLength  float64
	AvgMeasuredQBER    float64
	// QBERStdDev is the sample standard deviation of MeasuredQBER across
	// runs, or 0 for a single run.
	QBERStdDev float64
	// FinalKeyRate is AvgFinalKeyLength per exchanged qubit.
	FinalKeyRate float64

	// LastRun is the complete result of the final run.
	LastRun Result
}
