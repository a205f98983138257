// Copyright 2026 The Matrix Free Stuff Authors
// SPDX-License-Identifier: Apache-2.0

// Package metrics defines the bridge's Prometheus instrumentation.
// A single Metrics value is created in main and passed to the
// components that record into it; the registry is exposed over
// promhttp on the metrics listener.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the bridge.
type Metrics struct {
	// PingsTotal counts inbound appservice pings by outcome
	// (ok, unauthorized, bad_request).
	PingsTotal *prometheus.CounterVec

	// DedupObservations counts dedup store outcomes for ping
	// transaction ids (none, retransmit, stale, unknown).
	DedupObservations *prometheus.CounterVec

	// TransactionsTotal counts inbound appservice transactions by
	// outcome (ok, duplicate, bad_request).
	TransactionsTotal *prometheus.CounterVec

	// EventsTotal counts events seen in transaction batches by
	// disposition (invite_join, unhandled, malformed).
	EventsTotal *prometheus.CounterVec

	// JoinsTotal counts outbound auto-join attempts by result
	// (ok, error).
	JoinsTotal *prometheus.CounterVec

	// WebhookEventsTotal counts inbound webhook events by outcome
	// (ok, unauthorized, invalid_event, malformed, bad_data).
	WebhookEventsTotal *prometheus.CounterVec
}

// New creates and registers all metrics with the given registry.
func New(registry prometheus.Registerer) *Metrics {
	return &Metrics{
		PingsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "freestuff",
				Name:      "pings_total",
				Help:      "Inbound appservice ping requests by outcome",
			},
			[]string{"outcome"},
		),
		DedupObservations: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "freestuff",
				Name:      "dedup_observations_total",
				Help:      "Transaction dedup store observations by outcome",
			},
			[]string{"outcome"},
		),
		TransactionsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "freestuff",
				Name:      "transactions_total",
				Help:      "Inbound appservice transactions by outcome",
			},
			[]string{"outcome"},
		),
		EventsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "freestuff",
				Name:      "events_total",
				Help:      "Events seen in transaction batches by disposition",
			},
			[]string{"disposition"},
		),
		JoinsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "freestuff",
				Name:      "joins_total",
				Help:      "Outbound auto-join attempts by result",
			},
			[]string{"result"},
		),
		WebhookEventsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "freestuff",
				Name:      "webhook_events_total",
				Help:      "Inbound webhook events by outcome",
			},
			[]string{"outcome"},
		),
	}
}
