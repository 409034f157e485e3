package qkd

import (
	"fmt"
	"math/rand"

	"github.com/alan-christopher/qkdsim/qkd/photon"
)

// A Strategy captures the protocol specific part of a simulation: how a single
// qubit is produced, disturbed and measured. Sifting and estimation are shared.
type Strategy interface {
	Protocol() Protocol
	// Exchange simulates the id-th qubit of a run, drawing all randomness
	// from r.
	Exchange(r *rand.Rand, id int, p Params) Qubit
}

// StrategyFor returns the Strategy implementing protocol p.
func StrategyFor(p Protocol) (Strategy, error) {
	switch p {
	case BB84:
		return BB84Strategy{}, nil
	case E91:
		return E91Strategy{}, nil
	}
	return nil, fmt.Errorf("no strategy for %v", p)
}

// BB84Strategy simulates prepare-and-measure exchanges subject to an
// intercept-resend eavesdropper.
type BB84Strategy struct{}

func (BB84Strategy) Protocol() Protocol { return BB84 }

// Exchange implements the Strategy interface.
func (BB84Strategy) Exchange(r *rand.Rand, id int, p Params) Qubit {
	ch := p.channel()

	// prepare
	sent := photon.Prepare(r, p.RectilinearBasisPercent)
	q := Qubit{ID: id, AliceBit: sent.Bit, AliceBasis: sent.Basis}

	// intercept
	inFlight := sent
	if photon.Chance(r, p.EavesdropPercent) {
		inFlight = photon.Intercept(r, sent)
		eve := inFlight
		q.EveInterfered, q.Eve = true, &eve
	}

	// transmit
	q.ChannelError = ch.Disturb(r)

	// measure
	q.BobBasis = photon.RandomBasis(r)
	q.BobBit = ch.Measure(r, inFlight, q.BobBasis, q.ChannelError)
	q.BasisMatch = q.AliceBasis == q.BobBasis
	return q
}

// E91Strategy simulates measurements on maximally entangled pairs. An
// eavesdropper destroys the entanglement, which decorrelates both legs, while
// basis mismatch and channel noise act on Bob's leg alone.
type E91Strategy struct{}

func (E91Strategy) Protocol() Protocol { return E91 }

// Exchange implements the Strategy interface.
func (E91Strategy) Exchange(r *rand.Rand, id int, p Params) Qubit {
	ch := p.channel()

	// prepare
	correlated := photon.RandomBit(r)
	q := Qubit{
		ID:         id,
		AliceBasis: photon.BiasedBasis(r, p.RectilinearBasisPercent),
		BobBasis:   photon.BiasedBasis(r, p.RectilinearBasisPercent),
		AliceBit:   correlated,
		BobBit:     correlated,
	}
	q.BasisMatch = q.AliceBasis == q.BobBasis

	// intercept
	if photon.Chance(r, p.EavesdropPercent) {
		eve := photon.Intercept(r, photon.State{Bit: correlated, Basis: q.BobBasis})
		q.EveInterfered, q.Eve = true, &eve
		q.AliceBit = photon.RandomBit(r)
		q.BobBit = photon.RandomBit(r)
	} else if !q.BasisMatch {
		q.BobBit = photon.RandomBit(r)
	}

	// transmit
	q.ChannelError = ch.Disturb(r)
	if q.ChannelError {
		q.BobBit = ch.Perturb(r, q.BobBit)
	}
	return q
}
