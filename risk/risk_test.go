package risk

import (
	"testing"
	"time"

	"github.com/mmdatafocus/riskradar_backend/models"
	"github.com/shopspring/decimal"
)

// NOTE: These tests are intentionally DB-free. Score is a pure function of
// (order, settings, subscription); everything here builds inputs in memory.

func boolPtr(b bool) *bool { return &b }

func testSettings() *models.StoreSettings {
	return &models.StoreSettings{
		ShopId:                "risky-shop.myshopify.com",
		HighRiskThreshold:     models.DefaultHighRiskThreshold,
		MediumRiskThreshold:   models.DefaultMediumRiskThreshold,
		OrderValueFactor:      boolPtr(true),
		AddressMismatchFactor: boolPtr(true),
		EmailDomainFactor:     boolPtr(true),
		IpLocationFactor:      boolPtr(true),
		OrderTimeFactor:       boolPtr(true),
		GiftCardFactor:        boolPtr(true),
		CustomerHistoryFactor: boolPtr(true),
		CheckoutSpeedFactor:   boolPtr(true),
		QuantitySpikeFactor:   boolPtr(true),
	}
}

func freeSub() *models.Subscription {
	return &models.Subscription{
		ShopId:   "risky-shop.myshopify.com",
		IsActive: boolPtr(false),
		PlanTier: models.PlanTierFree,
	}
}

func proSub() *models.Subscription {
	return &models.Subscription{
		ShopId:   "risky-shop.myshopify.com",
		IsActive: boolPtr(true),
		PlanTier: models.PlanTierPro,
	}
}

func daytimeOrder(totalPrice string) *models.Order {
	price, err := decimal.NewFromString(totalPrice)
	if err != nil {
		price = decimal.Zero
	}
	return &models.Order{
		ShopId:         "risky-shop.myshopify.com",
		ShopifyOrderId: "450789469",
		OrderNumber:    "#1001",
		OrderDate:      time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
		TotalPrice:     price,
		CustomerEmail:  "buyer@gmail.com",
	}
}

func sameAddress() models.OrderAddress {
	return models.OrderAddress{
		Address1: "1 Main St",
		City:     "Austin",
		Province: "TX",
		Zip:      "78701",
		Country:  "US",
	}
}

func TestOrderValueContributions(t *testing.T) {
	cases := []struct {
		price string
		want  int
	}{
		{"1200.00", 20},
		{"1000.01", 20},
		{"1000.00", 10},
		{"700.00", 10},
		{"500.01", 10},
		{"500.00", 0},
		{"12.50", 0},
	}
	for _, tc := range cases {
		v := Score(daytimeOrder(tc.price), testSettings(), freeSub())
		if v.Score != tc.want {
			t.Errorf("price=%s: score=%d, want %d (factors=%v)", tc.price, v.Score, tc.want, v.Factors)
		}
	}
}

func TestAddressMismatch(t *testing.T) {
	order := daytimeOrder("12.50")
	order.ShippingAddress = sameAddress()
	order.BillingAddress = sameAddress()

	v := Score(order, testSettings(), freeSub())
	if v.Score != 0 {
		t.Fatalf("identical addresses: score=%d, want 0", v.Score)
	}

	order.BillingAddress.Country = "CA"
	v = Score(order, testSettings(), freeSub())
	if v.Score != 15 {
		t.Fatalf("mismatched country: score=%d, want 15", v.Score)
	}

	// One side absent: no mismatch signal.
	order.ShippingAddress = models.OrderAddress{}
	v = Score(order, testSettings(), freeSub())
	if v.Score != 0 {
		t.Fatalf("missing shipping address: score=%d, want 0", v.Score)
	}
}

func TestDisposableEmailDomain(t *testing.T) {
	order := daytimeOrder("12.50")
	order.CustomerEmail = "fraudster@MAILINATOR.COM"

	v := Score(order, testSettings(), freeSub())
	if v.Score != 25 {
		t.Fatalf("disposable domain: score=%d, want 25", v.Score)
	}

	order.CustomerEmail = "legit@gmail.com"
	v = Score(order, testSettings(), freeSub())
	if v.Score != 0 {
		t.Fatalf("regular domain: score=%d, want 0", v.Score)
	}
}

func TestLevelThresholds(t *testing.T) {
	settings := testSettings()
	cases := []struct {
		score int
		want  models.RiskLevel
	}{
		{0, models.RiskLevelLow},
		{49, models.RiskLevelLow},
		{50, models.RiskLevelMedium},
		{74, models.RiskLevelMedium},
		{75, models.RiskLevelHigh},
		{200, models.RiskLevelHigh},
	}
	for _, tc := range cases {
		got := levelForScore(tc.score, settings)
		if got != tc.want {
			t.Errorf("score=%d: level=%s, want %s", tc.score, got, tc.want)
		}
	}

	// Custom thresholds follow the same step function.
	settings.HighRiskThreshold = 40
	settings.MediumRiskThreshold = 20
	if got := levelForScore(39, settings); got != models.RiskLevelMedium {
		t.Errorf("custom thresholds score=39: level=%s, want medium", got)
	}
	if got := levelForScore(40, settings); got != models.RiskLevelHigh {
		t.Errorf("custom thresholds score=40: level=%s, want high", got)
	}
}

func TestFreeTierNeverScoresProFactors(t *testing.T) {
	order := daytimeOrder("12.50")
	order.OrderDate = time.Date(2026, 3, 14, 23, 0, 0, 0, time.UTC)
	order.CapturedIp = "203.0.113.7"
	order.PaymentGateways = models.StringSlice{"Gift Card"}

	v := Score(order, testSettings(), freeSub())
	if v.Score != 0 {
		t.Fatalf("free tier: score=%d, want 0 (factors=%v)", v.Score, v.Factors)
	}

	// Same order on pro scores all three pro-only signals.
	v = Score(order, testSettings(), proSub())
	if v.Score != 5+10+15 {
		t.Fatalf("pro tier: score=%d, want 30 (factors=%v)", v.Score, v.Factors)
	}
}

func TestProFactorTogglesStillApplyOnPro(t *testing.T) {
	order := daytimeOrder("12.50")
	order.PaymentGateways = models.StringSlice{"shopify_gift_card"}

	settings := testSettings()
	settings.GiftCardFactor = boolPtr(false)

	v := Score(order, settings, proSub())
	if v.Score != 0 {
		t.Fatalf("disabled gift card toggle: score=%d, want 0", v.Score)
	}
}

func TestStatusPriorityHoldWins(t *testing.T) {
	settings := testSettings()
	settings.HoldHighRiskOrders = boolPtr(true)
	settings.FlagForReview = boolPtr(true)
	settings.CancelHighRiskOrders = boolPtr(true)

	if got := statusForLevel(models.RiskLevelHigh, settings); got != models.OrderStatusOnHold {
		t.Fatalf("all automations on: status=%s, want on_hold", got)
	}

	settings.HoldHighRiskOrders = boolPtr(false)
	if got := statusForLevel(models.RiskLevelHigh, settings); got != models.OrderStatusPending {
		t.Fatalf("flag before cancel: status=%s, want pending", got)
	}

	settings.FlagForReview = boolPtr(false)
	if got := statusForLevel(models.RiskLevelHigh, settings); got != models.OrderStatusDeclined {
		t.Fatalf("cancel only: status=%s, want declined", got)
	}

	// Medium and low never trigger automation.
	if got := statusForLevel(models.RiskLevelMedium, settings); got != models.OrderStatusApproved {
		t.Fatalf("medium: status=%s, want approved", got)
	}
	if got := statusForLevel(models.RiskLevelLow, settings); got != models.OrderStatusApproved {
		t.Fatalf("low: status=%s, want approved", got)
	}
}

func TestScenarioHighValueCleanOrderFreeTier(t *testing.T) {
	order := daytimeOrder("1200.00")
	order.ShippingAddress = sameAddress()
	order.BillingAddress = sameAddress()

	v := Score(order, testSettings(), freeSub())
	if v.Score != 20 {
		t.Fatalf("score=%d, want 20", v.Score)
	}
	if v.Level != models.RiskLevelLow {
		t.Fatalf("level=%s, want low", v.Level)
	}
	if v.Status != models.OrderStatusApproved {
		t.Fatalf("status=%s, want approved", v.Status)
	}
}

func TestScenarioMediumRiskFreeTier(t *testing.T) {
	order := daytimeOrder("1200.00")
	order.ShippingAddress = sameAddress()
	order.BillingAddress = sameAddress()
	order.BillingAddress.Country = "CA"
	order.CustomerEmail = "buyer@mailinator.com"

	v := Score(order, testSettings(), freeSub())
	if v.Score != 20+15+25 {
		t.Fatalf("score=%d, want 60 (factors=%v)", v.Score, v.Factors)
	}
	if v.Level != models.RiskLevelMedium {
		t.Fatalf("level=%s, want medium", v.Level)
	}
	if v.Status != models.OrderStatusApproved {
		t.Fatalf("status=%s, want approved (medium never triggers automation)", v.Status)
	}
}

func TestScenarioHighRiskProTierOnHold(t *testing.T) {
	order := daytimeOrder("1200.00")
	order.OrderDate = time.Date(2026, 3, 14, 23, 0, 0, 0, time.UTC)
	order.ShippingAddress = sameAddress()
	order.BillingAddress = sameAddress()
	order.BillingAddress.Country = "CA"
	order.CustomerEmail = "buyer@mailinator.com"
	order.PaymentGateways = models.StringSlice{"Gift Card"}

	settings := testSettings()
	settings.HoldHighRiskOrders = boolPtr(true)

	v := Score(order, settings, proSub())
	if v.Score != 60+10+15 {
		t.Fatalf("score=%d, want 85 (factors=%v)", v.Score, v.Factors)
	}
	if v.Level != models.RiskLevelHigh {
		t.Fatalf("level=%s, want high", v.Level)
	}
	if v.Status != models.OrderStatusOnHold {
		t.Fatalf("status=%s, want on_hold", v.Status)
	}
}

func TestFactorDescriptionsFollowEvaluationOrder(t *testing.T) {
	order := daytimeOrder("1200.00")
	order.OrderDate = time.Date(2026, 3, 14, 2, 0, 0, 0, time.UTC)
	order.ShippingAddress = sameAddress()
	order.BillingAddress = sameAddress()
	order.BillingAddress.Zip = "10001"
	order.CustomerEmail = "buyer@yopmail.com"
	order.CapturedIp = "203.0.113.7"
	order.PaymentGateways = models.StringSlice{"GIFT card", "visa"}

	v := Score(order, testSettings(), proSub())
	want := []string{
		"High value order",
		"Billing and shipping addresses do not match",
		"Disposable email domain: yopmail.com",
		"IP address captured for location check",
		"Order placed during high-risk hours",
		"Paid with gift card",
	}
	if len(v.Factors) != len(want) {
		t.Fatalf("factors=%v, want %v", v.Factors, want)
	}
	for i := range want {
		if v.Factors[i] != want[i] {
			t.Fatalf("factor[%d]=%q, want %q", i, v.Factors[i], want[i])
		}
	}
}

func TestTrialCountsAsPro(t *testing.T) {
	order := daytimeOrder("12.50")
	order.CapturedIp = "203.0.113.7"

	trial := &models.Subscription{
		ShopId:             "risky-shop.myshopify.com",
		IsActive:           boolPtr(true),
		PlanTier:           models.PlanTierFree,
		TrialDaysRemaining: 7,
	}
	v := Score(order, testSettings(), trial)
	if v.Score != 5 {
		t.Fatalf("trial tier ipLocation: score=%d, want 5", v.Score)
	}
}
