package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "logit_active_connections",
		Help: "Number of live WebSocket connections.",
	})

	EventsDelivered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "logit_events_delivered_total",
		Help: "Server events enqueued for delivery, by event name.",
	}, []string{"event"})

	SendFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "logit_send_failures_total",
		Help: "Deliveries dropped because a connection was dead or its send buffer overflowed.",
	})

	Calls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "logit_calls_total",
		Help: "Call sessions reaching a terminal phase, by outcome.",
	}, []string{"outcome"})
)
