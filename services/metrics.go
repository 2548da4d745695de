package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	likeTogglesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "post_like_toggles_total",
			Help: "Like toggles by ledger outcome",
		},
		[]string{"outcome"},
	)

	likeCounterDriftTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "post_like_counter_drift_total",
			Help: "Ledger writes whose counter update failed afterwards",
		},
	)

	likeRecountsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "post_like_recounts_total",
			Help: "Reconciliation recounts by status",
		},
		[]string{"status"},
	)

	likeRecountQueueLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "post_like_recount_queue_length",
			Help: "Posts waiting in the recount queue",
		},
	)

	chatMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_messages_total",
			Help: "Chat messages by delivery path",
		},
		[]string{"path"},
	)
)
