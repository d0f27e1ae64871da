// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Dispatch results reported in the result label of
// gpgpu_dispatches_total.
const (
	ResultOK         = "ok"
	ResultIncomplete = "incomplete"
	ResultError      = "error"
)

// Kinds of command resources reported in the kind label of
// gpgpu_resources_released_total.
const (
	KindProgram     = "program"
	KindVertexArray = "vertex_array"
	KindUniforms    = "uniform_buffer"
)

// Default histogram buckets for dispatch duration (in seconds).
var defaultBuckets = []float64{0.0001, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1}

// Metrics wraps the prometheus collectors updated by a ComputeEngine.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	dispatchesTotal  *prometheus.CounterVec
	releasedTotal    *prometheus.CounterVec
	dispatchDuration prometheus.Histogram
	cachedPrograms   prometheus.Gauge
}

// NewMetrics creates the engine collectors and registers them with reg.
// A nil reg leaves the collectors unregistered, which is useful in tests.
// Registering twice with the same registry panics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		dispatchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gpgpu_dispatches_total",
				Help: "Total number of compute command dispatches",
			},
			[]string{"result"},
		),

		releasedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gpgpu_resources_released_total",
				Help: "Total number of command resources released after dispatch",
			},
			[]string{"kind"},
		),

		dispatchDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "gpgpu_dispatch_duration_seconds",
				Help:    "Duration of compute command dispatches in seconds",
				Buckets: defaultBuckets,
			},
		),

		cachedPrograms: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "gpgpu_cached_programs",
				Help: "Number of programs held by the engine's program cache",
			},
		),
	}

	if reg != nil {
		reg.MustRegister(
			m.dispatchesTotal,
			m.releasedTotal,
			m.dispatchDuration,
			m.cachedPrograms,
		)
	}
	return m
}

func (m *Metrics) dispatch(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.dispatchesTotal.WithLabelValues(result).Inc()
	m.dispatchDuration.Observe(d.Seconds())
}

func (m *Metrics) released(kind string) {
	if m == nil {
		return
	}
	m.releasedTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) setCached(n int) {
	if m == nil {
		return
	}
	m.cachedPrograms.Set(float64(n))
}
