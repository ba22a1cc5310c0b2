// Package metrics registers the Prometheus instruments for rosterd.
// Instruments are package-level so every caller shares one registration.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values shared by the auth counters.
const (
	OutcomeSuccess = "success"
	OutcomeInvalid = "invalid"
	OutcomeExpired = "expired"
	OutcomeError   = "error"
)

var (
	loginsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rosterd_logins_total",
		Help: "Login attempts by outcome",
	}, []string{"outcome"})

	refreshesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rosterd_token_refreshes_total",
		Help: "Access token refresh attempts by outcome",
	}, []string{"outcome"})

	logoutsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rosterd_logouts_total",
		Help: "Logout requests (idempotent, always succeed)",
	})

	directoryCacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rosterd_directory_cache_total",
		Help: "Directory cache lookups by result (hit or miss)",
	}, []string{"result"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rosterd_http_request_duration_seconds",
		Help:    "HTTP request latency by route and status",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "route", "status"})
)

func IncLogin(outcome string)   { loginsTotal.WithLabelValues(outcome).Inc() }
func IncRefresh(outcome string) { refreshesTotal.WithLabelValues(outcome).Inc() }
func IncLogout()                { logoutsTotal.Inc() }

func IncDirectoryCacheHit()  { directoryCacheTotal.WithLabelValues("hit").Inc() }
func IncDirectoryCacheMiss() { directoryCacheTotal.WithLabelValues("miss").Inc() }

func ObserveRequest(method, route, status string, seconds float64) {
	requestDuration.WithLabelValues(method, route, status).Observe(seconds)
}
