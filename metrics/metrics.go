// Package metrics exports simulation statistics to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/alan-christopher/qkdsim/qkd"
)

const namespace = "qkd"

var labels = []string{"protocol", "noise_model"}

// A Collector implements qkd.Observer by recording every completed run.
type Collector struct {
	runs         *prometheus.CounterVec
	qubits       *prometheus.CounterVec
	intercepted  *prometheus.CounterVec
	siftedBits   *prometheus.CounterVec
	finalBits    *prometheus.CounterVec
	measuredQBER *prometheus.HistogramVec
	keyRate      *prometheus.HistogramVec
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "runs_total",
			Help:      "Count of completed simulation runs",
		}, labels),
		qubits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "qubits_total",
			Help:      "Count of simulated qubits, or entangled pairs under E91",
		}, labels),
		intercepted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "intercepted_qubits_total",
			Help:      "Count of simulated qubits the eavesdropper interfered with",
		}, labels),
		siftedBits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "key",
			Name:      "sifted_bits_total",
			Help:      "Count of bits surviving basis reconciliation",
		}, labels),
		finalBits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "key",
			Name:      "final_bits_total",
			Help:      "Estimated count of secure key bits after error correction and privacy amplification",
		}, labels),
		measuredQBER: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "measured_qber",
			Help:      "QBER measured on the public sample of each run",
			Buckets:   []float64{0.01, 0.02, 0.05, 0.08, 0.11, 0.15, 0.2, 0.25, 0.3, 0.4, 0.5},
		}, labels),
		keyRate: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "key",
			Name:      "final_key_rate",
			Help:      "Final key bits per exchanged qubit for each run",
			Buckets:   prometheus.LinearBuckets(0, 0.05, 11),
		}, labels),
	}
	for _, col := range []prometheus.Collector{
		c.runs, c.qubits, c.intercepted, c.siftedBits, c.finalBits, c.measuredQBER, c.keyRate,
	} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// ObserveRun implements qkd.Observer.
func (c *Collector) ObserveRun(p qkd.Params, r qkd.Result) {
	lv := []string{p.Protocol.String(), p.NoiseModel.String()}
	intercepted := 0
	for _, q := range r.Qubits {
		if q.EveInterfered {
			intercepted++
		}
	}
	c.runs.WithLabelValues(lv...).Inc()
	c.qubits.WithLabelValues(lv...).Add(float64(len(r.Qubits)))
	c.intercepted.WithLabelValues(lv...).Add(float64(intercepted))
	c.siftedBits.WithLabelValues(lv...).Add(float64(r.SiftedKeyLength))
	c.finalBits.WithLabelValues(lv...).Add(float64(r.FinalKeyLength))
	c.measuredQBER.WithLabelValues(lv...).Observe(r.MeasuredQBER)
	if p.QubitCount > 0 {
		c.keyRate.WithLabelValues(lv...).Observe(float64(r.FinalKeyLength) / float64(p.QubitCount))
	}
}
