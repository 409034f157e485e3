package qkd

import (
	"context"
	"iter"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gonum.org/v1/gonum/stat"
)

// The eavesdrop percentages visited by a sweep, inclusive.
const (
	SweepFrom = 0
	SweepTo   = 50
	SweepStep = 5
)

// A SweepPoint is the final key rate observed at one eavesdrop percentage.
type SweepPoint struct {
	Parameter float64
	KeyRate   float64
}

// Points lazily sweeps the eavesdrop percentage from SweepFrom to SweepTo,
// holding every other parameter of p fixed. Each point is a single run; the
// final key rate is FinalKeyLength / QubitCount. Iteration stops at the first
// error, which is yielded with a zero SweepPoint.
func (s *Simulator) Points(ctx context.Context, p Params) iter.Seq2[SweepPoint, error] {
	return func(yield func(SweepPoint, error) bool) {
		p.RunCount = 1
		if err := p.Validate(); err != nil {
			yield(SweepPoint{}, err)
			return
		}
		strat, err := StrategyFor(p.Protocol)
		if err != nil {
			yield(SweepPoint{}, err)
			return
		}
		for pct := SweepFrom; pct <= SweepTo; pct += SweepStep {
			if err := ctx.Err(); err != nil {
				yield(SweepPoint{}, err)
				return
			}
			p.EavesdropPercent = float64(pct)
			res, err := s.run(strat, p, s.rand.Int63())
			if err != nil {
				yield(SweepPoint{}, err)
				return
			}
			pt := SweepPoint{
				Parameter: p.EavesdropPercent,
				KeyRate:   float64(res.FinalKeyLength) / float64(p.QubitCount),
			}
			if !yield(pt, nil) {
				return
			}
		}
	}
}

// Sweep collects every point of Points.
func (s *Simulator) Sweep(ctx context.Context, p Params) ([]SweepPoint, error) {
	ctx, span := s.tracer.Start(ctx, "qkd.Sweep", trace.WithAttributes(
		attribute.String("qkd.protocol", p.Protocol.String()),
		attribute.Int("qkd.qubits", p.QubitCount),
	))
	defer span.End()

	var points []SweepPoint
	for pt, err := range s.Points(ctx, p) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		points = append(points, pt)
	}
	s.log.Debug().
		Str("protocol", p.Protocol.String()).
		Int("points", len(points)).
		Float64("trend", SweepTrend(points)).
		Msg("Swept eavesdrop percentage")
	return points, nil
}

// SweepTrend returns the least-squares slope of key rate against the swept
// parameter. A negative trend means the key rate degrades as eavesdropping
// intensifies.
func SweepTrend(points []SweepPoint) float64 {
	if len(points) < 2 {
		return 0
	}
	x := make([]float64, len(points))
	y := make([]float64, len(points))
	for i, pt := range points {
		x[i], y[i] = pt.Parameter, pt.KeyRate
	}
	_, beta := stat.LinearRegression(x, y, nil, false)
	return beta
}
