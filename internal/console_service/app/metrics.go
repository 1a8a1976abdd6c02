package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	consoleActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "console",
			Name:      "actions_total",
			Help:      "Total number of operator actions handled.",
		},
		[]string{"action", "status"}, // status: "ok", "not_found", "store_error", "delivery_error", "unauthorized", "unknown_token"
	)

	exportPartsSentTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "console",
			Name:      "export_parts_sent_total",
			Help:      "Total number of export parts delivered to the operator.",
		},
	)

	notificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "console",
			Name:      "notifications_total",
			Help:      "Total number of ingestion-event notifications processed.",
		},
		[]string{"subject", "status"}, // status: "sent", "decode_error", "delivery_error"
	)
)
