/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package ioengine

import "github.com/prometheus/client_golang/prometheus"

// Metrics is a prometheus.Collector exposing the completion queue's
// depth, worker busy count and per-outcome counters. It is wired the way
// collectors are registered the usual Prometheus way throughout the
// prometheus/* packages: a plain struct of vec/gauge fields registered as
// a unit via Describe/Collect, constructed once and handed to an
// application's own registry (this package never starts its own HTTP
// exposition server — that belongs to an embedding application, outside
// this core).
type Metrics struct {
	queued    prometheus.Counter
	completed prometheus.Counter
	errors    prometheus.Counter
	inFlight  prometheus.Gauge
}

// NewMetrics constructs a Metrics collector with the given namespace
// (e.g. "netcore") prefixing every metric name.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		queued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "ioengine", Name: "completions_queued_total",
			Help: "Total completions submitted to the engine.",
		}),
		completed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "ioengine", Name: "completions_done_total",
			Help: "Total completions that ran without error.",
		}),
		errors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "ioengine", Name: "completions_failed_total",
			Help: "Total completions whose Handle returned an error.",
		}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "ioengine", Name: "completions_in_flight",
			Help: "Completions currently being handled by a worker.",
		}),
	}
}

// Describe implements prometheus.Collector.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	if m == nil {
		return
	}
	m.queued.Describe(ch)
	m.completed.Describe(ch)
	m.errors.Describe(ch)
	m.inFlight.Describe(ch)
}

// Collect implements prometheus.Collector.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	if m == nil {
		return
	}
	m.queued.Collect(ch)
	m.completed.Collect(ch)
	m.errors.Collect(ch)
	m.inFlight.Collect(ch)
}

func (m *Metrics) incQueued() {
	if m != nil {
		m.queued.Inc()
	}
}

func (m *Metrics) incCompleted() {
	if m != nil {
		m.completed.Inc()
	}
}

func (m *Metrics) incErrors() {
	if m != nil {
		m.errors.Inc()
	}
}

func (m *Metrics) incInFlight() {
	if m != nil {
		m.inFlight.Inc()
	}
}

func (m *Metrics) decInFlight() {
	if m != nil {
		m.inFlight.Dec()
	}
}
