package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/mmdatafocus/riskradar_backend/metrics"
	"github.com/mmdatafocus/riskradar_backend/models"
	"github.com/sirupsen/logrus"
)

const writeTimeout = 5 * time.Second

// Envelope is the server->client message shape.
type Envelope struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// NewOrderEvent wraps one scored order for the dashboard feed.
type NewOrderEvent struct {
	Event string       `json:"event"`
	Order OrderSummary `json:"order"`
}

type OrderSummary struct {
	Id           int                `json:"id"`
	OrderNumber  string             `json:"order_number"`
	TotalPrice   string             `json:"total_price"`
	Currency     string             `json:"currency"`
	CustomerName string             `json:"customer_name"`
	RiskScore    int                `json:"risk_score"`
	RiskLevel    models.RiskLevel   `json:"risk_level"`
	Status       models.OrderStatus `json:"status"`
	CreatedAt    time.Time          `json:"created_at"`
}

func SummarizeOrder(order *models.Order) OrderSummary {
	return OrderSummary{
		Id:           order.ID,
		OrderNumber:  order.OrderNumber,
		TotalPrice:   order.TotalPrice.String(),
		Currency:     order.Currency,
		CustomerName: order.CustomerName,
		RiskScore:    order.RiskScore,
		RiskLevel:    order.RiskLevel,
		Status:       order.Status,
		CreatedAt:    order.CreatedAt,
	}
}

// sender is one attached client connection. Writable reports whether the
// underlying connection can still take a frame; broadcast skips (does not
// queue for) non-writable members.
type sender interface {
	Send(ctx context.Context, v any) error
	Writable() bool
}

// Hub is the tenant-scoped connection registry. It replaces an implicit
// global map: one instance is constructed in main and handed to both the
// attach path and the broadcast path. All registry mutations hold mu.
type Hub struct {
	logger *logrus.Logger

	mu          sync.Mutex
	subscribers map[string]map[sender]struct{}
}

func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{
		logger:      logger,
		subscribers: make(map[string]map[sender]struct{}),
	}
}

func (h *Hub) register(shopId string, s sender) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.subscribers[shopId]
	if set == nil {
		set = make(map[sender]struct{})
		h.subscribers[shopId] = set
	}
	set[s] = struct{}{}
	metrics.RealtimeConnections.Inc()
}

func (h *Hub) unregister(shopId string, s sender) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.subscribers[shopId]
	if set == nil {
		return
	}
	if _, ok := set[s]; !ok {
		return
	}
	delete(set, s)
	metrics.RealtimeConnections.Dec()
	// Prune empty per-shop sets so the registry never holds dangling entries.
	if len(set) == 0 {
		delete(h.subscribers, shopId)
	}
}

// SubscriberCount reports the open connections for one shop.
func (h *Hub) SubscriberCount(shopId string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers[shopId])
}

// Broadcast pushes {type:"update", data:payload} to every currently-writable
// connection of the shop. Zero subscribers is a no-op. A failed write detaches
// that connection; other members are unaffected.
func (h *Hub) Broadcast(shopId string, payload any) int {
	h.mu.Lock()
	targets := make([]sender, 0, len(h.subscribers[shopId]))
	for s := range h.subscribers[shopId] {
		targets = append(targets, s)
	}
	h.mu.Unlock()

	envelope := Envelope{Type: "update", Data: payload}
	sent := 0
	for _, s := range targets {
		if !s.Writable() {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		err := s.Send(ctx, envelope)
		cancel()
		if err != nil {
			if h.logger != nil {
				h.logger.WithFields(logrus.Fields{
					"module":  "realtime",
					"shop_id": shopId,
				}).Warn("dropping realtime subscriber: " + err.Error())
			}
			h.unregister(shopId, s)
			continue
		}
		sent++
	}
	return sent
}

// BroadcastNewOrder is the convenience shape the dashboard listens for.
func (h *Hub) BroadcastNewOrder(shopId string, order *models.Order) int {
	return h.Broadcast(shopId, NewOrderEvent{
		Event: "new_order",
		Order: SummarizeOrder(order),
	})
}
