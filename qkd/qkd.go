// Package qkd simulates the BB84 and E91 quantum key distribution protocols at
// the level of classical outcome probabilities. A simulation generates one
// Qubit record per exchanged photon (or entangled pair), sifts the records by
// basis agreement, estimates the QBER on a public sample and derives an
// analytic estimate of the final secure key length.
package qkd

import (
	"errors"
	"fmt"

	"github.com/alan-christopher/qkdsim/qkd/photon"
)

var (
	DefaultSampleProportion = 0.5
	DefaultParallelism      = 1
)

// A Protocol selects which key distribution scheme to simulate.
type Protocol uint8

const (
	// BB84 is the prepare-and-measure protocol of Bennett and Brassard.
	BB84 Protocol = iota
	// E91 is Ekert's entanglement-based protocol.
	E91
)

func (p Protocol) String() string {
	switch p {
	case BB84:
		return "BB84"
	case E91:
		return "E91"
	default:
		return fmt.Sprintf("Protocol(%d)", uint8(p))
	}
}

// ParseProtocol converts the textual name of a protocol.
func ParseProtocol(s string) (Protocol, error) {
	switch s {
	case "BB84", "bb84":
		return BB84, nil
	case "E91", "e91":
		return E91, nil
	}
	return 0, fmt.Errorf("unknown protocol %q", s)
}

// Params configures a simulation. All probabilities are percentages in
// [0, 100] and apply as independent per-qubit Bernoulli draws.
type Params struct {
	Protocol   Protocol
	QubitCount int
	// RunCount is the number of repetitions Aggregate performs.
	RunCount   int
	NoiseModel photon.NoiseModel

	// RectilinearBasisPercent is the probability that a party picks the
	// Rectilinear basis where the protocol lets the choice be biased: Alice's
	// encoding basis in BB84, both measurement bases in E91.
	RectilinearBasisPercent float64
	EavesdropPercent        float64
	// QBERPercent is the per-qubit probability of a channel noise event: a bit
	// flip under SimpleQBER, a depolarization under Depolarizing.
	QBERPercent float64
}

func (p Params) channel() photon.Channel {
	return photon.Channel{Model: p.NoiseModel, Percent: p.QBERPercent}
}

// ErrInvalidParams is wrapped by every error Validate returns.
var ErrInvalidParams = errors.New("qkd: invalid simulation parameters")

// A ParamError reports a single rejected field of a Params.
type ParamError struct {
	Field  string
	Value  float64
	Reason string
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("qkd: invalid %s %v: %s", e.Field, e.Value, e.Reason)
}

func (e *ParamError) Unwrap() error {
	return ErrInvalidParams
}

// Validate reports the first problem with p, if any. Out of range values are
// rejected rather than clamped.
func (p Params) Validate() error {
	if p.Protocol != BB84 && p.Protocol != E91 {
		return &ParamError{"Protocol", float64(p.Protocol), "unknown protocol"}
	}
	if !p.NoiseModel.Valid() {
		return &ParamError{"NoiseModel", float64(p.NoiseModel), "unknown noise model"}
	}
	if p.QubitCount <= 0 {
		return &ParamError{"QubitCount", float64(p.QubitCount), "must be positive"}
	}
	if p.RunCount <= 0 {
		return &ParamError{"RunCount", float64(p.RunCount), "must be positive"}
	}
	percents := []struct {
		name string
		v    float64
	}{
		{"RectilinearBasisPercent", p.RectilinearBasisPercent},
		{"EavesdropPercent", p.EavesdropPercent},
		{"QBERPercent", p.QBERPercent},
	}
	for _, pc := range percents {
		// Written as a negated range check so that NaN is rejected too.
		if !(pc.v >= 0 && pc.v <= 100) {
			return &ParamError{pc.name, pc.v, "must lie in [0, 100]"}
		}
	}
	return nil
}
