package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"text/template"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/alan-christopher/qkdsim/analysis"
	"github.com/alan-christopher/qkdsim/metrics"
	"github.com/alan-christopher/qkdsim/qkd"
	"github.com/alan-christopher/qkdsim/qkd/photon"
	"github.com/alan-christopher/qkdsim/store"
)

var (
	columns = []string{"Protocol", "Qubits", "Runs", "Noise", "Rect", "Eve", "QBER",
		"AvgSifted", "AvgFinal", "AvgQBER", "QBERStdDev", "KeyRate", "RecordID",
		"Succeeded"}
	sweepColumns = []string{"Protocol", "Qubits", "Noise", "Rect", "QBER", "Eve", "KeyRate"}
)

// An Experiment packages together the result of simulating a single
// parameterization for easy formatting.
type Experiment struct {
	// Fields corresponding to simulation parameters
	Protocol  string
	Qubits    int
	Runs      int
	Noise     string
	Rect, Eve float64
	QBER      float64

	// Fields corresponding to simulation results
	AvgSifted  float64
	AvgFinal   float64
	AvgQBER    float64
	QBERStdDev float64
	KeyRate    float64
	RecordID   string
	Succeeded  bool
}

func (e *Experiment) params() (qkd.Params, error) {
	protocol, err := qkd.ParseProtocol(e.Protocol)
	if err != nil {
		return qkd.Params{}, err
	}
	model, err := photon.ParseNoiseModel(e.Noise)
	if err != nil {
		return qkd.Params{}, err
	}
	p := qkd.Params{
		Protocol:                protocol,
		QubitCount:              e.Qubits,
		RunCount:                e.Runs,
		NoiseModel:              model,
		RectilinearBasisPercent: e.Rect,
		EavesdropPercent:        e.Eve,
		QBERPercent:             e.QBER,
	}
	if err := p.Validate(); err != nil {
		return qkd.Params{}, err
	}
	return p, nil
}

func (e *Experiment) fill(agg qkd.AggregatedResult) {
	e.AvgSifted = agg.AvgSiftedKeyLength
	e.AvgFinal = agg.AvgFinalKeyLength
	e.AvgQBER = agg.AvgMeasuredQBER
	e.QBERStdDev = agg.QBERStdDev
	e.KeyRate = agg.FinalKeyRate
	e.Succeeded = true
}

func experimentFor(p qkd.Params) *Experiment {
	return &Experiment{
		Protocol: p.Protocol.String(),
		Qubits:   p.QubitCount,
		Runs:     p.RunCount,
		Noise:    p.NoiseModel.String(),
		Rect:     p.RectilinearBasisPercent,
		Eve:      p.EavesdropPercent,
		QBER:     p.QBERPercent,
	}
}

type runner struct {
	f     *flags
	log   *zerolog.Logger
	sim   *qkd.Simulator
	reg   *prometheus.Registry
	store *store.Store
	gen   analysis.Generator
}

func newRunner(f *flags, log *zerolog.Logger) (*runner, error) {
	r := &runner{f: f, log: log, reg: prometheus.NewRegistry()}
	col, err := metrics.NewCollector(r.reg)
	if err != nil {
		return nil, fmt.Errorf("registering metrics: %w", err)
	}
	r.sim, err = qkd.NewSimulator(qkd.SimulatorOpts{
		Rand:             rand.New(rand.NewSource(*f.seed)),
		SampleProportion: *f.sample,
		Parallelism:      *f.parallel,
		Logger:           log,
		Observer:         col,
	})
	if err != nil {
		return nil, err
	}
	if *f.history != "" {
		r.store, err = store.Open(store.Opts{Dir: *f.history, Logger: log})
		if err != nil {
			return nil, err
		}
	}
	r.gen = &analysis.Gemini{APIKey: os.Getenv("GEMINI_API_KEY")}
	return r, nil
}

func (r *runner) close() error {
	var err error
	if r.store != nil {
		err = r.store.Close()
	}
	if *r.f.metricsFile != "" {
		if werr := prometheus.WriteToTextfile(*r.f.metricsFile, r.reg); werr != nil && err == nil {
			err = fmt.Errorf("writing metrics: %w", werr)
		}
	}
	return err
}

func (r *runner) run(ctx context.Context, stdout io.Writer) error {
	w := stdout
	if *r.f.out != "" {
		file, err := os.Create(*r.f.out)
		if err != nil {
			return err
		}
		defer file.Close()
		w = file
	}

	switch *r.f.mode {
	case "history":
		return r.listHistory(w)
	case "educate":
		return r.educate(ctx, w)
	}

	exps, err := r.f.experiments()
	if err != nil {
		return err
	}
	switch *r.f.mode {
	case "aggregate":
		return r.aggregateAll(ctx, w, exps)
	case "sweep":
		return r.sweepAll(ctx, w, exps)
	case "export":
		return r.export(ctx, w, exps)
	case "analyze":
		return r.analyze(ctx, w, exps)
	}
	return fmt.Errorf("unknown mode %q", *r.f.mode)
}

// simulate aggregates exp, recording it in history when enabled.
func (r *runner) simulate(ctx context.Context, exp *Experiment) (qkd.Record, error) {
	p, err := exp.params()
	if err != nil {
		return qkd.Record{}, err
	}
	agg, err := r.sim.Aggregate(ctx, p)
	if err != nil {
		return qkd.Record{}, err
	}
	exp.fill(agg)
	rec := qkd.Record{Params: p, Result: agg}
	if r.store != nil {
		if exp.RecordID, err = r.store.Put(rec); err != nil {
			return rec, err
		}
	}
	return rec, nil
}

func (r *runner) aggregateAll(ctx context.Context, w io.Writer, exps []*Experiment) error {
	fmt.Fprintln(w, header(columns))
	tmpl := template.Must(template.New("line").Parse(lineTmpl(columns)))
	for _, exp := range exps {
		if _, err := r.simulate(ctx, exp); err != nil {
			if ctx.Err() != nil {
				return err
			}
			r.log.Error().Err(err).Msgf("Simulating %+v", *exp)
		}
		if err := tmpl.Execute(w, exp); err != nil {
			return fmt.Errorf("BUG: could not fill in line template: %w", err)
		}
	}
	return nil
}

func (r *runner) sweepAll(ctx context.Context, w io.Writer, exps []*Experiment) error {
	fmt.Fprintln(w, header(sweepColumns))
	tmpl := template.Must(template.New("line").Parse(lineTmpl(sweepColumns)))
	seen := map[Experiment]bool{}
	for _, exp := range exps {
		// The swept parameter and run count are ignored, so skip duplicates.
		key := *exp
		key.Eve, key.Runs = 0, 0
		if seen[key] {
			continue
		}
		seen[key] = true

		p, err := exp.params()
		if err != nil {
			r.log.Error().Err(err).Msgf("Sweeping %+v", *exp)
			continue
		}
		points, err := r.sim.Sweep(ctx, p)
		if err != nil {
			return err
		}
		for _, pt := range points {
			row := *exp
			row.Eve, row.KeyRate = pt.Parameter, pt.KeyRate
			if err := tmpl.Execute(w, &row); err != nil {
				return fmt.Errorf("BUG: could not fill in line template: %w", err)
			}
		}
		r.log.Info().
			Str("protocol", exp.Protocol).
			Float64("trend", qkd.SweepTrend(points)).
			Msg("Key rate trend per eavesdrop percent")
	}
	return nil
}

func single(exps []*Experiment, mode string) (*Experiment, error) {
	if len(exps) != 1 {
		return nil, fmt.Errorf("%s mode takes a single parameterization, got %d", mode, len(exps))
	}
	return exps[0], nil
}

// export writes the qubits of the last run of a single simulation as CSV.
func (r *runner) export(ctx context.Context, w io.Writer, exps []*Experiment) error {
	exp, err := single(exps, "export")
	if err != nil {
		return err
	}
	rec, err := r.simulate(ctx, exp)
	if err != nil {
		return err
	}
	last := rec.Result.LastRun
	errs := qkd.Breakdown(last)
	lens := qkd.Lengths(rec.Params, last)
	r.log.Info().
		Int("sent", lens.Sent).
		Int("sifted", lens.Sifted).
		Int("final", lens.Final).
		Int("eveErrors", errs.Eavesdropper).
		Int("channelErrors", errs.Channel).
		Float64("qber", last.MeasuredQBER).
		Float64("fullInterceptQBERPercent", qkd.FullInterceptQBER(rec.Params.QBERPercent)).
		Msg("Exported run")
	return qkd.WriteCSV(w, last.Qubits)
}

func (r *runner) listHistory(w io.Writer) error {
	if r.store == nil {
		return errors.New("history mode requires --history")
	}
	entries, err := r.store.List()
	if err != nil {
		return err
	}
	fmt.Fprintln(w, header(columns))
	tmpl := template.Must(template.New("line").Parse(lineTmpl(columns)))
	for _, e := range entries {
		exp := experimentFor(e.Record.Params)
		exp.fill(e.Record.Result)
		exp.RecordID = e.ID
		if err := tmpl.Execute(w, exp); err != nil {
			return fmt.Errorf("BUG: could not fill in line template: %w", err)
		}
	}
	if *r.f.dump == "" {
		return nil
	}
	file, err := os.Create(*r.f.dump)
	if err != nil {
		return err
	}
	n, err := r.store.Export(file)
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	r.log.Info().Int("records", n).Str("file", *r.f.dump).Msg("Dumped history")
	return err
}

func (r *runner) client() (*analysis.Client, error) {
	return analysis.NewClient(analysis.ClientOpts{
		Generator: r.gen,
		Language:  *r.f.language,
		Logger:    r.log,
	})
}

func (r *runner) analyze(ctx context.Context, w io.Writer, exps []*Experiment) error {
	exp, err := single(exps, "analyze")
	if err != nil {
		return err
	}
	rec, err := r.simulate(ctx, exp)
	if err != nil {
		return err
	}
	c, err := r.client()
	if err != nil {
		return err
	}
	a, err := c.Analyze(ctx, rec.Params, rec.Result)
	if err != nil {
		return err
	}
	if a.Failed {
		r.log.Warn().Msg("Analysis unavailable, writing placeholder")
	}
	_, err = fmt.Fprintf(w, "# Textual Analysis\n\n%s\n\n# Mathematical Walkthrough\n\n%s\n", a.Textual, a.Mathematical)
	return err
}

func (r *runner) educate(ctx context.Context, w io.Writer) error {
	protocols, err := r.f.fs.GetStringSlice("protocol")
	if err != nil {
		return err
	}
	c, err := r.client()
	if err != nil {
		return err
	}
	for _, name := range protocols {
		protocol, err := qkd.ParseProtocol(name)
		if err != nil {
			return err
		}
		e, err := c.Educate(ctx, protocol)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "# %v\n\n## Prerequisites\n\n%s\n\n## Protocol Steps\n\n%s\n\n## Security Analysis\n\n%s\n\n",
			protocol, e.Prerequisites, e.ProtocolSteps, e.SecurityAnalysis)
		if err != nil {
			return err
		}
	}
	return nil
}
