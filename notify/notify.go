package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mmdatafocus/riskradar_backend/config"
	"github.com/mmdatafocus/riskradar_backend/metrics"
	"github.com/mmdatafocus/riskradar_backend/models"
	"github.com/mmdatafocus/riskradar_backend/utils"
	"github.com/sirupsen/logrus"
)

// Notification is the channel-independent alert content.
type Notification struct {
	ShopId         string
	OrderId        int
	OrderNumber    string
	TotalPrice     string
	Currency       string
	CustomerName   string
	RiskScore      int
	RiskLevel      models.RiskLevel
	RiskFactors    []string
	Status         models.OrderStatus
	CustomTemplate string
}

type EmailSender interface {
	SendRiskAlert(ctx context.Context, recipient string, n Notification) error
}

type ChatSender interface {
	SendRiskAlert(ctx context.Context, webhookUrl string, n Notification) error
}

type DigestQueue interface {
	Enqueue(ctx context.Context, msg config.DigestMessage) error
}

// Dispatcher routes scored orders to the configured sinks. Strictly
// best-effort: every sink failure is logged and swallowed; a notification
// must never fail or block the ingestion pipeline.
type Dispatcher struct {
	logger *logrus.Logger
	email  EmailSender
	chat   ChatSender
	digest DigestQueue
}

func NewDispatcher(logger *logrus.Logger) *Dispatcher {
	return &Dispatcher{
		logger: logger,
		email:  newSmtpEmailSender(),
		chat:   newHttpChatSender(),
		digest: pubSubDigestQueue{},
	}
}

// Notify applies the delivery policy in order, short-circuiting on the first
// failed condition:
//  1. low-risk verdicts are never notified
//  2. no configured sink, nothing to do
//  3. free tier only gets high-risk alerts
//  4. hourly/daily stores get a digest record queued instead of an
//     immediate send (the batching worker owns delivery)
// then dispatches email and, for pro stores, the chat webhook.
func (d *Dispatcher) Notify(ctx context.Context, order *models.Order, settings *models.StoreSettings, sub *models.Subscription) {
	if d == nil || order == nil {
		return
	}
	if config.NotificationsDisabled() {
		return
	}

	if order.RiskLevel == models.RiskLevelLow {
		return
	}
	if settings == nil || !settings.HasNotificationSettings() {
		return
	}
	isPro := sub.IsProOrTrial()
	if !isPro && order.RiskLevel != models.RiskLevelHigh {
		return
	}

	if settings.Frequency != "" && settings.Frequency != models.DeliveryFrequencyImmediate {
		d.enqueueDigest(ctx, order, settings)
		return
	}

	n := Notification{
		ShopId:       order.ShopId,
		OrderId:      order.ID,
		OrderNumber:  order.OrderNumber,
		TotalPrice:   order.TotalPrice.String(),
		Currency:     order.Currency,
		CustomerName: order.CustomerName,
		RiskScore:    order.RiskScore,
		RiskLevel:    order.RiskLevel,
		RiskFactors:  []string(order.RiskFactors),
		Status:       order.Status,
	}
	if settings.CustomEmail != nil && *settings.CustomEmail {
		n.CustomTemplate = settings.CustomEmailTemplate
	}

	if settings.EmailEnabled != nil && *settings.EmailEnabled && settings.EmailAddress != "" {
		if err := d.email.SendRiskAlert(ctx, settings.EmailAddress, n); err != nil {
			metrics.NotificationFailures.WithLabelValues("email").Inc()
			config.LogError(d.logger, "notify", "Notify", "email dispatch", order.ShopId, err)
		} else {
			metrics.NotificationsSent.WithLabelValues("email").Inc()
		}
	}

	if isPro && settings.ChatWebhookEnabled != nil && *settings.ChatWebhookEnabled && settings.ChatWebhookUrl != "" {
		if err := d.chat.SendRiskAlert(ctx, settings.ChatWebhookUrl, n); err != nil {
			metrics.NotificationFailures.WithLabelValues("chat").Inc()
			config.LogError(d.logger, "notify", "Notify", "chat dispatch", order.ShopId, err)
		} else {
			metrics.NotificationsSent.WithLabelValues("chat").Inc()
		}
	}
}

func (d *Dispatcher) enqueueDigest(ctx context.Context, order *models.Order, settings *models.StoreSettings) {
	correlationId, _ := utils.GetCorrelationIdFromContext(ctx)
	if correlationId == "" {
		correlationId = uuid.NewString()
	}
	msg := config.DigestMessage{
		ShopId:        order.ShopId,
		OrderId:       order.ShopifyOrderId,
		OrderNumber:   order.OrderNumber,
		RiskScore:     order.RiskScore,
		RiskLevel:     string(order.RiskLevel),
		RiskFactors:   []string(order.RiskFactors),
		Frequency:     string(settings.Frequency),
		QueuedAt:      time.Now().UTC(),
		CorrelationId: correlationId,
	}
	if err := d.digest.Enqueue(ctx, msg); err != nil {
		metrics.NotificationFailures.WithLabelValues("digest").Inc()
		config.LogError(d.logger, "notify", "enqueueDigest", "publish digest", order.ShopId, err)
		return
	}
	metrics.NotificationsSent.WithLabelValues("digest").Inc()
}

// pubSubDigestQueue hands queued notifications to the external batching
// worker via Pub/Sub.
type pubSubDigestQueue struct{}

func (pubSubDigestQueue) Enqueue(ctx context.Context, msg config.DigestMessage) error {
	_, err := config.PublishNotificationDigest(ctx, msg)
	return err
}
