// Package metrics exposes Prometheus counters for the bot's event handling.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Events counts handled chat events by outcome (ignored, expired,
	// acknowledged, checked_in, already_checked_in, roster, ...).
	Events = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rollcall",
		Name:      "events_total",
		Help:      "Chat events handled, by outcome.",
	}, []string{"outcome"})

	// Checkins counts ledger writes by result.
	Checkins = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rollcall",
		Name:      "checkins_total",
		Help:      "Check-in attempts by ledger result.",
	}, []string{"result"})

	// PlatformFailures counts failed chat-platform calls by operation.
	PlatformFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rollcall",
		Name:      "platform_failures_total",
		Help:      "Failed chat platform calls, by operation.",
	}, []string{"op"})

	// RenderFallbacks counts renders that produced blank text and fell
	// back to a built-in template.
	RenderFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "rollcall",
		Name:      "render_fallbacks_total",
		Help:      "Templates that rendered blank and were replaced by the default.",
	})

	// DuplicateUpdates counts platform updates dropped as redeliveries.
	DuplicateUpdates = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "rollcall",
		Name:      "duplicate_updates_total",
		Help:      "Platform updates dropped because they were already seen.",
	})
)
