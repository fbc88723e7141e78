// Package metrics exposes Prometheus collectors for the card service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Submissions counts submitted records by outcome (saved, duplicate, rejected).
	Submissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "persona_card_submissions_total",
		Help: "Submitted scored answers by outcome",
	}, []string{"status"})

	// ImportedRecords counts records seen during import by outcome.
	ImportedRecords = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "persona_card_import_records_total",
		Help: "Records processed by card import, by outcome",
	}, []string{"outcome"})

	// BankLookups counts question bank cache lookups by layer and result.
	BankLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "persona_card_bank_lookups_total",
		Help: "Question bank cache lookups by cache layer and result",
	}, []string{"cache", "result"})

	// Subscribers tracks open card subscriptions.
	Subscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "persona_card_subscribers",
		Help: "Open card snapshot subscriptions",
	})

	// SubmitDuration observes end-to-end submit latency.
	SubmitDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "persona_card_submit_duration_seconds",
		Help:    "Duration of a submit including validation, storage and broadcast",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
	})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
