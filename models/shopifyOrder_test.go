package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

const sampleOrderJSON = `{
	"id": 820982911946154508,
	"order_number": 1234,
	"name": "#1234",
	"created_at": "2024-03-15T02:30:00-05:00",
	"currency": "USD",
	"total_price": "749.50",
	"financial_status": "paid",
	"browser_ip": "203.0.113.7",
	"payment_gateway_names": ["shopify_payments"],
	"customer": {
		"id": 115310627314723954,
		"first_name": "Jane",
		"last_name": "Smith",
		"email": "jane@example.com",
		"orders_count": 3,
		"total_spent": "2100.00"
	},
	"shipping_address": {
		"address1": "123 Amoebobacterieae St",
		"city": "Ottawa",
		"zip": "K2P0V6",
		"country": "Canada"
	},
	"billing_address": {
		"address1": "123 Amoebobacterieae St",
		"city": "Ottawa",
		"zip": "K2P0V6",
		"country": "Canada"
	},
	"line_items": [
		{"id": 466157049, "title": "Widget", "quantity": 2, "price": "374.75", "sku": "W-1"}
	]
}`

func TestParseShopifyOrderRejectsMissingId(t *testing.T) {
	if _, err := ParseShopifyOrder([]byte(`{"name": "#1"}`)); err == nil {
		t.Fatal("expected error for payload without id")
	}
	if _, err := ParseShopifyOrder([]byte(`not json`)); err == nil {
		t.Fatal("expected error for malformed payload")
	}
}

func TestToOrderRecordMapsIdentityAndMoney(t *testing.T) {
	payload, err := ParseShopifyOrder([]byte(sampleOrderJSON))
	if err != nil {
		t.Fatalf("ParseShopifyOrder: %v", err)
	}

	order := payload.ToOrderRecord("test-shop.myshopify.com")

	if order.ShopId != "test-shop.myshopify.com" {
		t.Fatalf("ShopId = %q", order.ShopId)
	}
	if order.ShopifyOrderId != "820982911946154508" {
		t.Fatalf("ShopifyOrderId = %q", order.ShopifyOrderId)
	}
	if order.OrderNumber != "#1234" {
		t.Fatalf("OrderNumber = %q", order.OrderNumber)
	}
	if !order.TotalPrice.Equal(decimal.RequireFromString("749.50")) {
		t.Fatalf("TotalPrice = %s", order.TotalPrice)
	}
	if order.CustomerName != "Jane Smith" {
		t.Fatalf("CustomerName = %q", order.CustomerName)
	}
	if !order.CustomerTotalSpent.Equal(decimal.RequireFromString("2100.00")) {
		t.Fatalf("CustomerTotalSpent = %s", order.CustomerTotalSpent)
	}
	if order.CapturedIp != "203.0.113.7" {
		t.Fatalf("CapturedIp = %q", order.CapturedIp)
	}
	if len(order.LineItems) != 1 || order.LineItems[0].Quantity != 2 {
		t.Fatalf("LineItems = %+v", order.LineItems)
	}
	if order.ShippingAddress.IsZero() || order.BillingAddress.IsZero() {
		t.Fatal("addresses should be mapped")
	}

	wantDate, _ := time.Parse(time.RFC3339, "2024-03-15T02:30:00-05:00")
	if !order.OrderDate.Equal(wantDate) {
		t.Fatalf("OrderDate = %s", order.OrderDate)
	}
}

func TestToOrderRecordToleratesSparsePayload(t *testing.T) {
	payload, err := ParseShopifyOrder([]byte(`{"id": 42, "total_price": "not-a-number"}`))
	if err != nil {
		t.Fatalf("ParseShopifyOrder: %v", err)
	}

	order := payload.ToOrderRecord("test-shop.myshopify.com")

	if !order.TotalPrice.IsZero() {
		t.Fatalf("malformed price should decay to zero, got %s", order.TotalPrice)
	}
	if order.OrderNumber != "42" {
		t.Fatalf("OrderNumber fallback = %q", order.OrderNumber)
	}
	if order.CustomerEmail != "" || order.CustomerId != "" {
		t.Fatal("missing customer should leave customer fields empty")
	}
	if !order.ShippingAddress.IsZero() {
		t.Fatal("missing shipping address should stay zero")
	}
	if order.OrderDate.IsZero() {
		t.Fatal("missing created_at should fall back to now")
	}
}

func TestHumanOrderNumberPrecedence(t *testing.T) {
	p := &ShopifyOrderPayload{ID: 9, OrderNumber: 1001, Name: "#1001"}
	if got := p.humanOrderNumber(); got != "#1001" {
		t.Fatalf("name should win, got %q", got)
	}
	p.Name = ""
	if got := p.humanOrderNumber(); got != "#1001" {
		t.Fatalf("order_number fallback, got %q", got)
	}
	p.OrderNumber = 0
	if got := p.humanOrderNumber(); got != "9" {
		t.Fatalf("id fallback, got %q", got)
	}
}

func TestCapturedIpFallsBackToClientDetails(t *testing.T) {
	p := &ShopifyOrderPayload{ClientDetails: &ShopifyClientInfo{BrowserIp: "198.51.100.4"}}
	if got := p.CapturedIp(); got != "198.51.100.4" {
		t.Fatalf("CapturedIp = %q", got)
	}
	p.BrowserIp = "203.0.113.9"
	if got := p.CapturedIp(); got != "203.0.113.9" {
		t.Fatalf("top-level browser_ip should win, got %q", got)
	}
}
