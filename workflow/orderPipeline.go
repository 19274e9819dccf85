package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/mmdatafocus/riskradar_backend/config"
	"github.com/mmdatafocus/riskradar_backend/metrics"
	"github.com/mmdatafocus/riskradar_backend/models"
	"github.com/mmdatafocus/riskradar_backend/notify"
	"github.com/mmdatafocus/riskradar_backend/realtime"
	"github.com/mmdatafocus/riskradar_backend/risk"
	"github.com/mmdatafocus/riskradar_backend/utils"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const orderLockTTL = 30 * time.Second

// Dispatcher is the notification side of the pipeline.
type Dispatcher interface {
	Notify(ctx context.Context, order *models.Order, settings *models.StoreSettings, sub *models.Subscription)
}

// Broadcaster is the realtime side of the pipeline.
type Broadcaster interface {
	BroadcastNewOrder(shopId string, order *models.Order) int
}

// Processor owns the detached post-ack order pipeline:
// parse -> score -> persist -> notify + broadcast.
//
// The webhook handler's synchronous path ends at "ack sent"; a Processor call
// runs on its own goroutine and owns its error handling. Nothing here ever
// reports back to the webhook caller.
type Processor struct {
	Logger     *logrus.Logger
	Dispatcher Dispatcher
	Hub        Broadcaster
	Tracer     trace.Tracer

	// Seams over the persistence layer, swappable in tests.
	loadSettings     func(ctx context.Context, shopId string) (*models.StoreSettings, error)
	loadSubscription func(ctx context.Context, shopId string) (*models.Subscription, error)
	createOrder      func(ctx context.Context, order *models.Order) error
}

func NewProcessor(logger *logrus.Logger, dispatcher *notify.Dispatcher, hub *realtime.Hub) *Processor {
	return &Processor{
		Logger:           logger,
		Dispatcher:       dispatcher,
		Hub:              hub,
		loadSettings:     models.GetOrCreateStoreSettings,
		loadSubscription: models.GetSubscription,
		createOrder:      models.CreateOrderRecord,
	}
}

// ProcessOrderEvent ingests one orders/create delivery. Returns an error for
// the caller to log; by contract the ack has already been sent, so errors
// never translate into a retry signal.
//
// Duplicate delivery: the storage layer's (shop_id, shopify_order_id) unique
// index is the guarantee; a best-effort redis lock narrows the race window
// between two concurrent deliveries of the same order. Lock failure is not
// an error.
func (p *Processor) ProcessOrderEvent(ctx context.Context, shopId string, body []byte) error {
	if shopId == "" {
		return errors.New("shop domain is required")
	}

	if p.Tracer != nil {
		topic, _ := utils.GetWebhookTopicFromContext(ctx)
		var span trace.Span
		ctx, span = p.Tracer.Start(ctx, "workflow.ProcessOrderEvent",
			trace.WithAttributes(
				attribute.String("shop_id", shopId),
				attribute.String("webhook_topic", topic),
			))
		defer span.End()
	}

	payload, err := models.ParseShopifyOrder(body)
	if err != nil {
		return err
	}

	if lock := p.obtainOrderLock(ctx, shopId, payload.ID); lock != nil {
		defer func() {
			if releaseErr := lock.Release(ctx); releaseErr != nil && p.Logger != nil {
				p.Logger.WithFields(logrus.Fields{
					"module":  "workflow",
					"shop_id": shopId,
				}).Warn("failed to release order lock: " + releaseErr.Error())
			}
		}()
	}

	// Configuration reads are downstream collaborators: a failure is logged
	// and decays to defaults so one flaky read does not drop the order.
	settings, err := p.loadSettings(ctx, shopId)
	if err != nil {
		config.LogError(p.Logger, "workflow", "ProcessOrderEvent", "load store settings", shopId, err)
		settings = nil
	}
	sub, err := p.loadSubscription(ctx, shopId)
	if err != nil {
		config.LogError(p.Logger, "workflow", "ProcessOrderEvent", "load subscription", shopId, err)
		sub = nil
	}

	order := payload.ToOrderRecord(shopId)
	verdict := risk.Score(order, settings, sub)
	verdict.ApplyTo(order)

	if err := p.createOrder(ctx, order); err != nil {
		if errors.Is(err, models.ErrOrderAlreadyIngested) {
			metrics.OrdersDuplicate.Inc()
			if p.Logger != nil {
				p.Logger.WithFields(logrus.Fields{
					"module":           "workflow",
					"shop_id":          shopId,
					"shopify_order_id": order.ShopifyOrderId,
				}).Info("duplicate delivery; order already ingested")
			}
			return nil
		}
		return fmt.Errorf("persist order: %w", err)
	}
	metrics.OrdersScored.WithLabelValues(string(order.RiskLevel)).Inc()

	// Persisted; the remaining stages are best-effort fan-out and cannot
	// undo the write.
	if p.Dispatcher != nil {
		p.Dispatcher.Notify(ctx, order, settings, sub)
	}
	if p.Hub != nil {
		p.Hub.BroadcastNewOrder(shopId, order)
	}

	return nil
}

func (p *Processor) obtainOrderLock(ctx context.Context, shopId string, shopifyOrderId int64) *redislock.Lock {
	locker := config.GetRedisLock()
	if locker == nil {
		return nil
	}
	key := fmt.Sprintf("lock:order:%s:%d", shopId, shopifyOrderId)
	lock, err := locker.Obtain(ctx, key, orderLockTTL, nil)
	if err != nil {
		if !errors.Is(err, redislock.ErrNotObtained) && p.Logger != nil {
			p.Logger.WithFields(logrus.Fields{
				"module":  "workflow",
				"shop_id": shopId,
			}).Warn("error obtaining order lock; proceeding without it: " + err.Error())
		}
		return nil
	}
	return lock
}
