package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WebhooksReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "riskradar_webhooks_received_total",
		Help: "Order webhooks received, before verification.",
	})

	WebhooksRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "riskradar_webhooks_rejected_total",
		Help: "Order webhooks dropped on signature mismatch.",
	})

	OrdersScored = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "riskradar_orders_scored_total",
		Help: "Orders scored, labeled by resulting risk level.",
	}, []string{"risk_level"})

	OrdersDuplicate = promauto.NewCounter(prometheus.CounterOpts{
		Name: "riskradar_orders_duplicate_total",
		Help: "Webhook deliveries skipped because the order was already ingested.",
	})

	NotificationsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "riskradar_notifications_sent_total",
		Help: "Notifications dispatched, labeled by channel.",
	}, []string{"channel"})

	NotificationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "riskradar_notification_failures_total",
		Help: "Notification dispatch failures, labeled by channel.",
	}, []string{"channel"})

	RealtimeConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "riskradar_realtime_connections",
		Help: "Currently open realtime dashboard connections.",
	})
)
