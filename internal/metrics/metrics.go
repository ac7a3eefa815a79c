// Package metrics defines the Prometheus collectors exported at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moviejournal_http_requests_total",
			Help: "HTTP requests served, by method and status code",
		},
		[]string{"method", "status"},
	)

	Registrations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moviejournal_registrations_total",
			Help: "Registration attempts by result (ok, duplicate, invalid, error)",
		},
		[]string{"result"},
	)

	ChatMessages = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "moviejournal_chat_messages_total",
			Help: "Chat lines accepted by this process",
		},
	)

	ChatClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "moviejournal_chat_clients",
			Help: "Websocket chat clients currently connected to this process",
		},
	)
)
