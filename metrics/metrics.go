package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ParseRequestsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cid_parse_requests_total",
		Help: "Total number of /api/parse requests",
	})
	ParseDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cid_parse_duration_ms",
		Help:    "Parse request duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
	})
	ValidateRequestsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cid_validate_requests_total",
		Help: "Total number of /api/validate requests",
	})
	ChecksumFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cid_checksum_failures_total",
		Help: "Total identifiers rejected by check digit validation",
	})
	RegionMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cid_region_misses_total",
		Help: "Total region code lookups not found in the reference table",
	})
	CacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cid_cache_hits_total",
		Help: "Total parse result cache hits",
	})
	CacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cid_cache_misses_total",
		Help: "Total parse result cache misses",
	})
	AttestationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cid_attestations_total",
		Help: "Total attestation JWTs issued",
	})
)

func init() {
	prometheus.MustRegister(ParseRequestsTotal)
	prometheus.MustRegister(ParseDurationMs)
	prometheus.MustRegister(ValidateRequestsTotal)
	prometheus.MustRegister(ChecksumFailuresTotal)
	prometheus.MustRegister(RegionMissesTotal)
	prometheus.MustRegister(CacheHitsTotal)
	prometheus.MustRegister(CacheMissesTotal)
	prometheus.MustRegister(AttestationsTotal)
}

// Handler exposes the registered metrics for scraping; mounted on /metrics
// by the server.
func Handler() http.Handler { return promhttp.Handler() }
