package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	turnsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pai_chat_turns_total",
		Help: "Chat turns accepted for processing.",
	})
	gatewayErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pai_chat_gateway_errors_total",
		Help: "Turns that ended in the errored state.",
	})
	cancellations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pai_chat_cancellations_total",
		Help: "Reveals stopped by the user.",
	})
)
