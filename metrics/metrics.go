// Package metrics holds the Prometheus counters exported by authzone. Counters are
// registered with the default registry at init time and Handler serves them.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "authzone"

var (
	Answers = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "answers_total",
			Help:      "Synthesized answers by path and answer kind.",
		},
		[]string{
			"path", // "upstream", "downstream"
			"kind", // "positive", "nxdomain", "referral", ...
		},
	)
	Fallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallbacks_total",
			Help:      "Lookups handed back to the recursive path.",
		},
	)
	ServFails = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "servfails_total",
			Help:      "SERVFAIL answers by reason.",
		},
		[]string{
			"reason", // "unusable", "scratch"
		},
	)
	Probes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "probes_total",
			Help:      "SOA probes sent to masters by outcome.",
		},
		[]string{
			"result", // "newer", "current", "timeout", "error"
		},
	)
	Transfers = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transfers_total",
			Help:      "Zone transfers by type and outcome.",
		},
		[]string{
			"type",   // "axfr", "ixfr"
			"result", // "ok", "uptodate", "refused", "error"
		},
	)
	Expired = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "zone_expiries_total",
			Help:      "Secondary zones which reached their SOA expire time.",
		},
	)
	Notifies = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifies_total",
			Help:      "NOTIFY messages received by outcome.",
		},
		[]string{
			"result", // "probe", "current", "refused"
		},
	)
	Zones = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "zones",
			Help:      "Zones currently in the catalog.",
		},
	)
)

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
