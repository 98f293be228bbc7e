package transcription

import (
	"github.com/airenas/meetscribe/internal/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "transcription"

type processorMetrics struct {
	jobs     *prometheus.CounterVec
	retries  prometheus.Counter
	duration prometheus.Histogram
	pending  prometheus.Gauge
}

func newProcessorMetrics() (*processorMetrics, error) {
	res := &processorMetrics{}
	res.jobs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_total",
			Help:      "Finished jobs counter",
		}, []string{"result"})
	if err := metrics.Register(res.jobs); err != nil {
		return nil, err
	}
	res.retries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_retries_total",
			Help:      "Transient provider failures retried",
		})
	if err := metrics.Register(res.retries); err != nil {
		return nil, err
	}
	res.duration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Job processing duration",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 13),
		})
	if err := metrics.Register(res.duration); err != nil {
		return nil, err
	}
	res.pending = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_pending",
			Help:      "Queued jobs seen on the last pass",
		})
	if err := metrics.Register(res.pending); err != nil {
		return nil, err
	}
	return res, nil
}
