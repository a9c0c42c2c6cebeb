package kv

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	labelOp     = "op"
	labelResult = "result"
)

// Instrumented records latency and outcome of every call to the wrapped
// store. Errors still reach the caller untouched.
type Instrumented struct {
	next Store

	ops     *prometheus.CounterVec
	latency *prometheus.HistogramVec
}

func NewInstrumented(next Store, reg prometheus.Registerer) *Instrumented {
	s := &Instrumented{
		next: next,
		ops: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "storefront",
				Subsystem: "kv",
				Name:      "operations_total",
				Help:      "Key-value store calls by operation and result.",
			},
			[]string{labelOp, labelResult},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "storefront",
				Subsystem: "kv",
				Name:      "operation_duration_seconds",
				Help:      "Key-value store call latency.",
				Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{labelOp},
		),
	}
	reg.MustRegister(s.ops, s.latency)
	return s
}

func (s *Instrumented) observe(op string, start time.Time, err error) {
	s.latency.WithLabelValues(op).Observe(time.Since(start).Seconds())
	result := "ok"
	if err != nil {
		result = "error"
	}
	s.ops.WithLabelValues(op, result).Inc()
}

func (s *Instrumented) GetItem(ctx context.Context, key string) (string, bool, error) {
	start := time.Now()
	v, ok, err := s.next.GetItem(ctx, key)
	s.observe("get", start, err)
	return v, ok, err
}

func (s *Instrumented) SetItem(ctx context.Context, key, value string) error {
	start := time.Now()
	err := s.next.SetItem(ctx, key, value)
	s.observe("set", start, err)
	return err
}

func (s *Instrumented) RemoveItem(ctx context.Context, key string) error {
	start := time.Now()
	err := s.next.RemoveItem(ctx, key)
	s.observe("remove", start, err)
	return err
}

func (s *Instrumented) MultiRemove(ctx context.Context, keys []string) error {
	start := time.Now()
	err := s.next.MultiRemove(ctx, keys)
	s.observe("multi_remove", start, err)
	return err
}

func (s *Instrumented) Ping(ctx context.Context) error {
	return s.next.Ping(ctx)
}
