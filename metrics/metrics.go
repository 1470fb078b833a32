// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package metrics holds the Prometheus collectors for the service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namePrefix = "votedesk_"

// Rejection reasons
const (
	ReasonAlreadyVoted = "already_voted"
	ReasonValidation   = "validation"
	ReasonNotFound     = "not_found"
	ReasonBackend      = "backend"
)

type Metrics struct {
	registry        *prometheus.Registry
	votesRecorded   prometheus.Counter
	voteRejections  *prometheus.CounterVec
	resets          *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// New registers all collectors on a fresh registry. droppedEvents, when not
// nil, is exposed as a counter of skipped event deliveries.
func New(droppedEvents func() uint64) *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		votesRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: namePrefix + "votes_recorded_total",
			Help: "Total number of ballot records written",
		}),
		voteRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: namePrefix + "vote_rejections_total",
			Help: "Total number of rejected vote attempts by reason",
		}, []string{"reason"}),
		resets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: namePrefix + "resets_total",
			Help: "Total number of vote resets by scope",
		}, []string{"scope"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    namePrefix + "http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	reg.MustRegister(m.votesRecorded, m.voteRejections, m.resets, m.requestDuration)

	if droppedEvents != nil {
		reg.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: namePrefix + "events_dropped_total",
			Help: "Total number of change events skipped for slow subscribers",
		}, func() float64 { return float64(droppedEvents()) }))
	}

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) VotesRecorded(n int) {
	m.votesRecorded.Add(float64(n))
}

func (m *Metrics) VoteRejected(reason string) {
	m.voteRejections.WithLabelValues(reason).Inc()
}

// Reset counts a reset; scope is "topic" or "all".
func (m *Metrics) Reset(scope string) {
	m.resets.WithLabelValues(scope).Inc()
}

func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	m.requestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}
