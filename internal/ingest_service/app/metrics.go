package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	devicesRegisteredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ingest",
			Name:      "devices_registered_total",
			Help:      "Total number of device registrations processed.",
		},
		[]string{"status"}, // "created", "updated"
	)

	messagesStoredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ingest",
			Name:      "messages_stored_total",
			Help:      "Total number of forwarded messages stored.",
		},
		[]string{"path"}, // "single", "bulk"
	)
)
