// Package metrics holds the Prometheus collectors shared by the CLI tools and the server.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// Derivations counts derived identifiers, labelled by the entry point that asked for them.
	Derivations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "projectid",
			Name:      "derivations_total",
			Help:      "Count of project identifiers derived, by entry point.",
		},
		[]string{"source"},
	)

	// IngestRecords counts ingested crawler records by outcome:
	// inserted, refreshed, duplicate, collision or failed.
	IngestRecords = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "projectid",
			Name:      "ingest_records_total",
			Help:      "Crawler records handled by the ingest pipeline, by outcome.",
		},
		[]string{"outcome"},
	)

	// Collisions counts identifier collisions detected by ingest or registration.
	Collisions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "projectid",
			Name:      "collisions_total",
			Help:      "Distinct URLs found sharing an identifier.",
		},
	)

	// RateLimitClients is the number of client buckets the rate limiter holds.
	RateLimitClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "projectid",
			Name:      "rate_limit_clients",
			Help:      "Clients tracked by the REST rate limiter.",
		},
	)

	// HTTPRequestDuration observes REST latency by matched route and status code.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "projectid",
			Name:      "http_request_duration_seconds",
			Help:      "Latency of REST API requests.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route", "status"},
	)
)

// Register registers the project id metrics into the default registry.
func Register() {
	RegisterWith(prometheus.DefaultRegisterer)
}

// RegisterWith registers the metrics into reg, ignoring ones already present.
func RegisterWith(reg prometheus.Registerer) {
	for _, c := range []prometheus.Collector{Derivations, IngestRecords, Collisions, RateLimitClients, HTTPRequestDuration} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			panic(err)
		}
	}
}
