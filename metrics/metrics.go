// Package metrics bündelt die Prometheus-Kennzahlen der Ingestion-Pipeline.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// IngestRuns zählt Ingestion-Läufe nach Ergebnis (persisted, aborted, failed).
	IngestRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "compound_ingest_runs_total",
			Help: "Total number of compound ingestion runs by outcome.",
		},
		[]string{"outcome"},
	)

	// IngestDuration misst die Dauer eines vollständigen Laufs.
	IngestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "compound_ingest_duration_seconds",
			Help:    "Duration of compound ingestion runs.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
		},
	)

	// AdapterResults zählt Ergebnisse der optionalen Quellen (present, skipped).
	AdapterResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "source_adapter_results_total",
			Help: "Optional source adapter results by source and result.",
		},
		[]string{"source", "result"},
	)

	// FetchRetries zählt Wiederholungsversuche des Fetch-Clients nach Ursache.
	FetchRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fetch_retries_total",
			Help: "HTTP fetch retries by cause (429, 5xx, 4xx, transport).",
		},
		[]string{"cause"},
	)

	// WriteFailures zählt fehlgeschlagene Schreibvorgänge optionaler Tabellen.
	WriteFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "optional_table_write_failures_total",
			Help: "Failed writes to optional tables by table.",
		},
		[]string{"table"},
	)

	// QueueItems zählt abgearbeitete Queue-Einträge nach Ergebnis (done, error).
	QueueItems = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_queue_items_total",
			Help: "Processed ingest queue items by result.",
		},
		[]string{"result"},
	)

	// CardsWritten zählt neu geschriebene Card-Versionen.
	CardsWritten = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "compound_cards_written_total",
			Help: "Total number of compound card versions written.",
		},
	)
)

func init() {
	prometheus.MustRegister(IngestRuns, IngestDuration, AdapterResults, FetchRetries, WriteFailures, QueueItems, CardsWritten)
}
