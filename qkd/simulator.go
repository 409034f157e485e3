package qkd

import (
	"errors"
	"math/rand"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/alan-christopher/qkdsim/qkd"

// An Observer is notified of every completed simulation run. Aggregate may
// notify from several goroutines at once, so implementations must be safe for
// concurrent use.
type Observer interface {
	ObserveRun(p Params, r Result)
}

// SimulatorOpts packages together the arguments necessary to construct a new
// Simulator. Rand has no reasonable default; leaving it nil results in
// NewSimulator returning an error.
type SimulatorOpts struct {
	// Rand provides the source of randomness. Each run draws a seed from it
	// and simulates with its own generator, so a seeded Rand makes every
	// result reproducible. Must be non-nil.
	Rand *rand.Rand

	// SampleProportion specifies the proportion of sifted bits disclosed
	// during error rate estimation. Must lie in (0, 1]. Defaults to
	// DefaultSampleProportion.
	SampleProportion float64

	// Parallelism bounds the number of runs Aggregate executes at once.
	// Defaults to DefaultParallelism.
	Parallelism int

	// Logger receives debug output. Defaults to a disabled logger.
	Logger *zerolog.Logger

	// Observer, if non-nil, is notified of each completed run.
	Observer Observer

	// Tracer wraps Aggregate and Sweep in spans. Defaults to the global
	// OpenTelemetry tracer provider.
	Tracer trace.Tracer
}

// A Simulator runs simulations with a fixed configuration. It is not safe for
// concurrent use, as every call advances the shared random source.
type Simulator struct {
	rand        *rand.Rand
	sampleProp  float64
	parallelism int
	log         *zerolog.Logger
	observer    Observer
	tracer      trace.Tracer
}

// NewSimulator returns a new Simulator, configured in accordance with opts, or
// an error if the options are nonsensical.
func NewSimulator(opts SimulatorOpts) (*Simulator, error) {
	if opts.Rand == nil {
		return nil, errors.New("must provide Rand")
	}
	sampleProp := opts.SampleProportion
	if sampleProp == 0 {
		sampleProp = DefaultSampleProportion
	}
	if !(sampleProp > 0 && sampleProp <= 1) {
		return nil, errors.New("sample proportion must lie in (0, 1]")
	}
	parallelism := opts.Parallelism
	if parallelism == 0 {
		parallelism = DefaultParallelism
	}
	if parallelism < 0 {
		return nil, errors.New("parallelism must be positive")
	}
	log := opts.Logger
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	return &Simulator{
		rand:        opts.Rand,
		sampleProp:  sampleProp,
		parallelism: parallelism,
		log:         log,
		observer:    opts.Observer,
		tracer:      tracer,
	}, nil
}

// Run performs a single simulation pass with parameters p. p.RunCount is
// validated but otherwise ignored.
func (s *Simulator) Run(p Params) (Result, error) {
	if err := p.Validate(); err != nil {
		return Result{}, err
	}
	strat, err := StrategyFor(p.Protocol)
	if err != nil {
		return Result{}, err
	}
	return s.run(strat, p, s.rand.Int63())
}

func (s *Simulator) run(strat Strategy, p Params, seed int64) (Result, error) {
	r := rand.New(rand.NewSource(seed))
	qubits := make([]Qubit, p.QubitCount)
	for i := range qubits {
		qubits[i] = strat.Exchange(r, i, p)
	}
	est, err := sift(qubits, s.sampleProp)
	if err != nil {
		return Result{}, err
	}
	res := Result{
		Qubits:          qubits,
		SiftedKeyLength: est.sifted,
		SampleSize:      est.sampled,
		FinalKeyLength:  est.final,
		MeasuredQBER:    est.qber,
	}
	if s.observer != nil {
		s.observer.ObserveRun(p, res)
	}
	return res, nil
}
