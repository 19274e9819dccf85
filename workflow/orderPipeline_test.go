package workflow

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/mmdatafocus/riskradar_backend/models"
	"github.com/sirupsen/logrus"
)

// NOTE: These tests are intentionally DB-free. They validate the pipeline
// semantics (parse -> score -> persist -> fan-out) through the processor's
// persistence seams; MySQL-backed integration coverage needs an environment
// that can run docker.

const testShop = "risky-shop.myshopify.com"

const orderPayload = `{
	"id": 450789469,
	"order_number": 1001,
	"name": "#1001",
	"created_at": "2026-03-14T12:00:00Z",
	"currency": "USD",
	"total_price": "1200.00",
	"customer": {"id": 207119551, "first_name": "Bob", "last_name": "Norman", "email": "bob@mailinator.com", "orders_count": 1, "total_spent": "41.94"},
	"billing_address": {"address1": "1 Main St", "city": "Austin", "zip": "78701", "country": "US"},
	"shipping_address": {"address1": "1 Main St", "city": "Austin", "zip": "78701", "country": "CA"},
	"line_items": [{"id": 466157049, "title": "Widget", "quantity": 1, "price": "1200.00", "sku": "W-1"}]
}`

type fakeStore struct {
	mu        sync.Mutex
	created   []*models.Order
	createErr error
}

func (f *fakeStore) create(ctx context.Context, order *models.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, order)
	return nil
}

type fakeDispatcher struct {
	notified []*models.Order
}

func (f *fakeDispatcher) Notify(ctx context.Context, order *models.Order, settings *models.StoreSettings, sub *models.Subscription) {
	f.notified = append(f.notified, order)
}

type fakeBroadcaster struct {
	broadcasts []string
}

func (f *fakeBroadcaster) BroadcastNewOrder(shopId string, order *models.Order) int {
	f.broadcasts = append(f.broadcasts, shopId)
	return 1
}

func boolPtr(b bool) *bool { return &b }

func testProcessor(store *fakeStore, dispatcher *fakeDispatcher, hub *fakeBroadcaster, settings *models.StoreSettings, sub *models.Subscription) *Processor {
	return &Processor{
		Logger:     logrus.New(),
		Dispatcher: dispatcher,
		Hub:        hub,
		loadSettings: func(ctx context.Context, shopId string) (*models.StoreSettings, error) {
			return settings, nil
		},
		loadSubscription: func(ctx context.Context, shopId string) (*models.Subscription, error) {
			return sub, nil
		},
		createOrder: store.create,
	}
}

func defaultTestSettings() *models.StoreSettings {
	return &models.StoreSettings{
		ShopId:              testShop,
		HighRiskThreshold:   models.DefaultHighRiskThreshold,
		MediumRiskThreshold: models.DefaultMediumRiskThreshold,
	}
}

func freeSub() *models.Subscription {
	return &models.Subscription{ShopId: testShop, PlanTier: models.PlanTierFree, IsActive: boolPtr(false)}
}

func TestProcessOrderEventScoresAndPersists(t *testing.T) {
	store := &fakeStore{}
	dispatcher := &fakeDispatcher{}
	hub := &fakeBroadcaster{}
	p := testProcessor(store, dispatcher, hub, defaultTestSettings(), freeSub())

	if err := p.ProcessOrderEvent(context.Background(), testShop, []byte(orderPayload)); err != nil {
		t.Fatalf("ProcessOrderEvent: %v", err)
	}

	if len(store.created) != 1 {
		t.Fatalf("created=%d, want 1", len(store.created))
	}
	order := store.created[0]
	if order.ShopId != testShop || order.ShopifyOrderId != "450789469" {
		t.Fatalf("identity fields wrong: %+v", order)
	}
	// 20 (high value) + 15 (country mismatch) + 25 (disposable domain) = 60.
	if order.RiskScore != 60 {
		t.Fatalf("score=%d, want 60 (factors=%v)", order.RiskScore, order.RiskFactors)
	}
	if order.RiskLevel != models.RiskLevelMedium {
		t.Fatalf("level=%s, want medium", order.RiskLevel)
	}
	if order.Status != models.OrderStatusApproved {
		t.Fatalf("status=%s, want approved", order.Status)
	}

	if len(dispatcher.notified) != 1 {
		t.Fatalf("dispatcher not invoked")
	}
	if len(hub.broadcasts) != 1 || hub.broadcasts[0] != testShop {
		t.Fatalf("broadcast=%v, want [%s]", hub.broadcasts, testShop)
	}
}

func TestProcessOrderEventMalformedPayload(t *testing.T) {
	store := &fakeStore{}
	p := testProcessor(store, &fakeDispatcher{}, &fakeBroadcaster{}, defaultTestSettings(), freeSub())

	if err := p.ProcessOrderEvent(context.Background(), testShop, []byte("{not json")); err == nil {
		t.Fatal("malformed payload did not error")
	}
	if len(store.created) != 0 {
		t.Fatalf("malformed payload created %d records", len(store.created))
	}
}

func TestProcessOrderEventMissingShop(t *testing.T) {
	store := &fakeStore{}
	p := testProcessor(store, &fakeDispatcher{}, &fakeBroadcaster{}, defaultTestSettings(), freeSub())

	if err := p.ProcessOrderEvent(context.Background(), "", []byte(orderPayload)); err == nil {
		t.Fatal("missing shop did not error")
	}
	if len(store.created) != 0 {
		t.Fatalf("missing shop created %d records", len(store.created))
	}
}

func TestDuplicateDeliveryIsBenign(t *testing.T) {
	store := &fakeStore{createErr: models.ErrOrderAlreadyIngested}
	dispatcher := &fakeDispatcher{}
	hub := &fakeBroadcaster{}
	p := testProcessor(store, dispatcher, hub, defaultTestSettings(), freeSub())

	if err := p.ProcessOrderEvent(context.Background(), testShop, []byte(orderPayload)); err != nil {
		t.Fatalf("duplicate delivery errored: %v", err)
	}
	// Duplicate never re-notifies or re-broadcasts.
	if len(dispatcher.notified) != 0 || len(hub.broadcasts) != 0 {
		t.Fatalf("duplicate delivery fanned out: notified=%d broadcasts=%d", len(dispatcher.notified), len(hub.broadcasts))
	}
}

func TestPersistFailureSkipsFanOut(t *testing.T) {
	store := &fakeStore{createErr: errors.New("mysql is down")}
	dispatcher := &fakeDispatcher{}
	hub := &fakeBroadcaster{}
	p := testProcessor(store, dispatcher, hub, defaultTestSettings(), freeSub())

	if err := p.ProcessOrderEvent(context.Background(), testShop, []byte(orderPayload)); err == nil {
		t.Fatal("persist failure did not error")
	}
	if len(dispatcher.notified) != 0 || len(hub.broadcasts) != 0 {
		t.Fatalf("persist failure still fanned out")
	}
}

func TestConfigReadFailureDecaysToDefaults(t *testing.T) {
	store := &fakeStore{}
	p := testProcessor(store, &fakeDispatcher{}, &fakeBroadcaster{}, nil, nil)
	p.loadSettings = func(ctx context.Context, shopId string) (*models.StoreSettings, error) {
		return nil, errors.New("redis timeout")
	}
	p.loadSubscription = func(ctx context.Context, shopId string) (*models.Subscription, error) {
		return nil, errors.New("redis timeout")
	}

	if err := p.ProcessOrderEvent(context.Background(), testShop, []byte(orderPayload)); err != nil {
		t.Fatalf("config failure dropped the order: %v", err)
	}
	if len(store.created) != 1 {
		t.Fatalf("order not persisted under default config")
	}
	// Default thresholds: 60 is still medium.
	if store.created[0].RiskLevel != models.RiskLevelMedium {
		t.Fatalf("level=%s, want medium", store.created[0].RiskLevel)
	}
}
