package qkd

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
)

// Aggregate performs p.RunCount independent runs with parameters p and
// averages their statistics. Every run gets a seed drawn from the simulator's
// random source in run order, so the result does not depend on Parallelism.
// The run with the highest index is kept in full as LastRun.
//
// Cancelling ctx stops further runs from starting; runs already in flight
// complete and are discarded.
func (s *Simulator) Aggregate(ctx context.Context, p Params) (AggregatedResult, error) {
	if err := p.Validate(); err != nil {
		return AggregatedResult{}, err
	}
	strat, err := StrategyFor(p.Protocol)
	if err != nil {
		return AggregatedResult{}, err
	}
	ctx, span := s.tracer.Start(ctx, "qkd.Aggregate", trace.WithAttributes(
		attribute.String("qkd.protocol", p.Protocol.String()),
		attribute.Int("qkd.qubits", p.QubitCount),
		attribute.Int("qkd.runs", p.RunCount),
	))
	defer span.End()

	seeds := make([]int64, p.RunCount)
	for i := range seeds {
		seeds[i] = s.rand.Int63()
	}
	var (
		sifted = make([]float64, p.RunCount)
		final  = make([]float64, p.RunCount)
		qber   = make([]float64, p.RunCount)
		last   Result
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)
	for i, seed := range seeds {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := s.run(strat, p, seed)
			if err != nil {
				return err
			}
			sifted[i] = float64(res.SiftedKeyLength)
			final[i] = float64(res.FinalKeyLength)
			qber[i] = res.MeasuredQBER
			if i == len(seeds)-1 {
				last = res
			}
			return nil
		})
	}
	err = g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return AggregatedResult{}, err
	}

	agg := AggregatedResult{
		TotalRuns:          p.RunCount,
		AvgSiftedKeyLength: stat.Mean(sifted, nil),
		AvgFinalKeyLength:  stat.Mean(final, nil),
		LastRun:            last,
	}
	if p.RunCount > 1 {
		agg.AvgMeasuredQBER, agg.QBERStdDev = stat.MeanStdDev(qber, nil)
	} else {
		agg.AvgMeasuredQBER = qber[0]
	}
	agg.FinalKeyRate = agg.AvgFinalKeyLength / float64(p.QubitCount)

	span.SetAttributes(attribute.Float64("qkd.avg_qber", agg.AvgMeasuredQBER))
	s.log.Debug().
		Str("protocol", p.Protocol.String()).
		Int("qubits", p.QubitCount).
		Int("runs", p.RunCount).
		Float64("avgQBER", agg.AvgMeasuredQBER).
		Float64("keyRate", agg.FinalKeyRate).
		Msg("Aggregated simulation runs")
	return agg, nil
}
