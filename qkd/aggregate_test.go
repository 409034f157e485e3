package qkd

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"
)

func TestAggregateBounds(t *testing.T) {
	tcs := []struct {
		protocol Protocol
		maxQBER  float64
	}{
		{BB84, 0.25},
		{E91, 0.5},
	}

	for _, tc := range tcs {
		t.Run(tc.protocol.String(), func(t *testing.T) {
			s := newTestSimulator(t, 2024)
			p := baseParams(tc.protocol)
			p.QubitCount, p.RunCount = 100, 50
			p.EavesdropPercent, p.QBERPercent = 20, 2
			agg, err := s.Aggregate(context.Background(), p)
			if err != nil {
				t.Fatalf("Aggregate: %v", err)
			}
			if agg.TotalRuns != 50 {
				t.Errorf("TotalRuns = %d, want 50", agg.TotalRuns)
			}
			if !(agg.AvgMeasuredQBER > 0 && agg.AvgMeasuredQBER < tc.maxQBER) {
				t.Errorf("AvgMeasuredQBER = %v, want in (0, %v)", agg.AvgMeasuredQBER, tc.maxQBER)
			}
			if siftRate := agg.AvgSiftedKeyLength / float64(p.QubitCount); agg.FinalKeyRate >= siftRate {
				t.Errorf("FinalKeyRate = %v, want < sifted rate %v", agg.FinalKeyRate, siftRate)
			}
			if want := agg.AvgFinalKeyLength / float64(p.QubitCount); math.Abs(agg.FinalKeyRate-want) > 1e-12 {
				t.Errorf("FinalKeyRate = %v, want %v", agg.FinalKeyRate, want)
			}
			if agg.QBERStdDev <= 0 {
				t.Errorf("QBERStdDev = %v, want > 0 across 50 noisy runs", agg.QBERStdDev)
			}
			checkInvariants(t, p, agg.LastRun)
		})
	}
}

func TestAggregateSingleRun(t *testing.T) {
	p := baseParams(BB84)
	p.EavesdropPercent = 40
	agg, err := newTestSimulator(t, 8).Aggregate(context.Background(), p)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if agg.AvgMeasuredQBER != agg.LastRun.MeasuredQBER {
		t.Errorf("AvgMeasuredQBER = %v, want the only run's %v", agg.AvgMeasuredQBER, agg.LastRun.MeasuredQBER)
	}
	if agg.AvgFinalKeyLength != float64(agg.LastRun.FinalKeyLength) {
		t.Errorf("AvgFinalKeyLength = %v, want %d", agg.AvgFinalKeyLength, agg.LastRun.FinalKeyLength)
	}
	if agg.QBERStdDev != 0 {
		t.Errorf("QBERStdDev = %v, want 0 for a single run", agg.QBERStdDev)
	}
}

func TestAggregateIndependentOfParallelism(t *testing.T) {
	p := baseParams(E91)
	p.QubitCount, p.RunCount = 200, 16
	p.EavesdropPercent, p.QBERPercent = 10, 5

	var results []AggregatedResult
	for _, par := range []int{1, 4, 16} {
		s, err := NewSimulator(SimulatorOpts{Rand: rand.New(rand.NewSource(31)), Parallelism: par})
		if err != nil {
			t.Fatalf("Building simulator: %v", err)
		}
		agg, err := s.Aggregate(context.Background(), p)
		if err != nil {
			t.Fatalf("Aggregate with parallelism %d: %v", par, err)
		}
		results = append(results, agg)
	}
	for i := 1; i < len(results); i++ {
		a, b := results[0], results[i]
		if a.AvgSiftedKeyLength != b.AvgSiftedKeyLength ||
			a.AvgFinalKeyLength != b.AvgFinalKeyLength ||
			a.AvgMeasuredQBER != b.AvgMeasuredQBER ||
			a.LastRun.FinalKeyLength != b.LastRun.FinalKeyLength {
			t.Errorf("aggregate %d differs from sequential aggregate", i)
		}
	}
}

func TestAggregateCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := baseParams(BB84)
	p.RunCount = 10
	_, err := newTestSimulator(t, 1).Aggregate(ctx, p)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Aggregate on cancelled context = %v, want context.Canceled", err)
	}
}

func TestAggregateRejectsInvalidParams(t *testing.T) {
	p := baseParams(BB84)
	p.RunCount = 0
	if _, err := newTestSimulator(t, 1).Aggregate(context.Background(), p); !errors.Is(err, ErrInvalidParams) {
		t.Errorf("Aggregate(%+v) = %v, want ErrInvalidParams", p, err)
	}
}
