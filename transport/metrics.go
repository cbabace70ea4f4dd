package transport

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bioverify_client_requests_total",
		Help: "Requests issued through the authenticated pipeline, by outcome.",
	}, []string{"outcome"})

	refreshesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bioverify_client_refreshes_total",
		Help: "Refresh cycles triggered by an authorization failure.",
	})

	refreshFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bioverify_client_refresh_failures_total",
		Help: "Refresh cycles that failed and tore down the session.",
	})

	replaysTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bioverify_client_replays_total",
		Help: "Requests replayed with a refreshed access token.",
	})
)

const (
	outcomeOK           = "ok"
	outcomeUnauthorized = "unauthorized"
	outcomeError        = "error"
)
