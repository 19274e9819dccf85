package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/riskradar_backend/config"
	"github.com/mmdatafocus/riskradar_backend/metrics"
	"github.com/mmdatafocus/riskradar_backend/utils"
	"github.com/sirupsen/logrus"
)

// orderProcessor is the detached pipeline behind the webhook ack.
type orderProcessor interface {
	ProcessOrderEvent(ctx context.Context, shopId string, body []byte) error
}

// ordersCreateWebhookHandler receives Shopify orders/create deliveries.
//
// Contract with Shopify: respond 200 with an empty body fast, always.
// Shopify retries non-2xx responses and deregisters chronically slow
// webhooks, so every internal outcome (bad signature, bad payload, downstream
// failure) is observability-only. Verification happens before the detached
// pipeline is spawned; the response code never reflects it.
func ordersCreateWebhookHandler(processor orderProcessor) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()
		metrics.WebhooksReceived.Inc()

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			config.LogError(logger, "webhookHandler", "ordersCreateWebhookHandler", "io.ReadAll", nil, err)
			c.Status(http.StatusOK)
			return
		}

		shopDomain := c.GetHeader("x-shopify-shop-domain")
		topic := c.GetHeader("x-shopify-topic")
		signature := c.GetHeader("x-shopify-hmac-sha256")

		if signature == "" {
			// Dev stores and manual replays omit the header; permissive unless
			// the strict flag is set.
			if config.StrictWebhookVerification() {
				metrics.WebhooksRejected.Inc()
				logger.WithFields(logrus.Fields{
					"module":  "webhookHandler",
					"shop_id": shopDomain,
					"topic":   topic,
				}).Warn("unsigned webhook rejected (STRICT_WEBHOOK_VERIFICATION)")
				c.Status(http.StatusOK)
				return
			}
		} else if !utils.VerifyShopifyHmac(os.Getenv("SHOPIFY_API_SECRET"), body, signature) {
			metrics.WebhooksRejected.Inc()
			logger.WithFields(logrus.Fields{
				"module":  "webhookHandler",
				"shop_id": shopDomain,
				"topic":   topic,
			}).Warn("webhook signature mismatch; dropping delivery")
			c.Status(http.StatusOK)
			return
		}

		if shopDomain == "" {
			logger.WithFields(logrus.Fields{
				"module": "webhookHandler",
				"topic":  topic,
			}).Warn("webhook missing x-shopify-shop-domain; dropping delivery")
			c.Status(http.StatusOK)
			return
		}

		correlationId, _ := utils.GetCorrelationIdFromContext(c.Request.Context())

		// Ack first; everything after this line is detached.
		c.Status(http.StatusOK)

		go func() {
			defer func() {
				if r := recover(); r != nil {
					config.LogError(logger, "webhookHandler", "ordersCreateWebhookHandler", "panic in detached pipeline", shopDomain, fmt.Errorf("%v", r))
				}
			}()

			// The request context dies with the response; the detached task
			// carries its own.
			ctx := utils.SetShopDomainInContext(context.Background(), shopDomain)
			ctx = utils.SetWebhookTopicInContext(ctx, topic)
			ctx = utils.SetCorrelationIdInContext(ctx, correlationId)

			if err := processor.ProcessOrderEvent(ctx, shopDomain, body); err != nil {
				logger.WithFields(logrus.Fields{
					"module":         "webhookHandler",
					"shop_id":        shopDomain,
					"topic":          topic,
					"correlation_id": correlationId,
				}).Error("order pipeline failed: " + err.Error())
			}
		}()
	}
}
