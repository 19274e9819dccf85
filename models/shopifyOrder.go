package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Shopify Order resource, reduced to the fields this app consumes.
// https://shopify.dev/docs/api/webhooks -> orders/create payload.
type ShopifyOrderPayload struct {
	ID                int64              `json:"id"`
	OrderNumber       int                `json:"order_number"`
	Name              string             `json:"name"`
	CreatedAt         string             `json:"created_at"`
	Currency          string             `json:"currency"`
	TotalPrice        string             `json:"total_price"`
	FinancialStatus   string             `json:"financial_status"`
	FulfillmentStatus string             `json:"fulfillment_status"`
	BrowserIp         string             `json:"browser_ip"`
	ClientDetails     *ShopifyClientInfo `json:"client_details"`
	PaymentGateways   []string           `json:"payment_gateway_names"`

	Customer        *ShopifyCustomer  `json:"customer"`
	LineItems       []ShopifyLineItem `json:"line_items"`
	ShippingAddress *ShopifyAddress   `json:"shipping_address"`
	BillingAddress  *ShopifyAddress   `json:"billing_address"`
}

type ShopifyClientInfo struct {
	BrowserIp string `json:"browser_ip"`
}

type ShopifyCustomer struct {
	ID          int64  `json:"id"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	OrdersCount int    `json:"orders_count"`
	TotalSpent  string `json:"total_spent"`
}

type ShopifyLineItem struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Quantity int    `json:"quantity"`
	Price    string `json:"price"`
	Sku      string `json:"sku"`
}

type ShopifyAddress struct {
	Address1 string `json:"address1"`
	Address2 string `json:"address2"`
	City     string `json:"city"`
	Province string `json:"province"`
	Zip      string `json:"zip"`
	Country  string `json:"country"`
}

func ParseShopifyOrder(body []byte) (*ShopifyOrderPayload, error) {
	var payload ShopifyOrderPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("unmarshal order payload: %w", err)
	}
	if payload.ID == 0 {
		return nil, errors.New("order payload has no id")
	}
	return &payload, nil
}

// CapturedIp prefers the top-level browser_ip and falls back to the nested
// client_details field.
func (p *ShopifyOrderPayload) CapturedIp() string {
	if p.BrowserIp != "" {
		return p.BrowserIp
	}
	if p.ClientDetails != nil {
		return p.ClientDetails.BrowserIp
	}
	return ""
}

// ToOrderRecord maps the webhook payload to a persistable Order (without a
// verdict; scoring fills that in). Malformed numeric fields never fail the
// mapping; they decay to zero.
func (p *ShopifyOrderPayload) ToOrderRecord(shopId string) *Order {
	order := &Order{
		ShopId:            shopId,
		ShopifyOrderId:    strconv.FormatInt(p.ID, 10),
		OrderNumber:       p.humanOrderNumber(),
		OrderDate:         p.orderDate(),
		Currency:          p.Currency,
		TotalPrice:        decimalOrZero(p.TotalPrice),
		FinancialStatus:   p.FinancialStatus,
		FulfillmentStatus: p.FulfillmentStatus,
		PaymentGateways:   StringSlice(p.PaymentGateways),
		CapturedIp:        p.CapturedIp(),
	}

	if p.Customer != nil {
		order.CustomerId = strconv.FormatInt(p.Customer.ID, 10)
		order.CustomerName = strings.TrimSpace(p.Customer.FirstName + " " + p.Customer.LastName)
		order.CustomerEmail = p.Customer.Email
		order.CustomerPhone = p.Customer.Phone
		order.CustomerOrdersCount = p.Customer.OrdersCount
		order.CustomerTotalSpent = decimalOrZero(p.Customer.TotalSpent)
	}

	if p.ShippingAddress != nil {
		order.ShippingAddress = mapShopifyAddress(p.ShippingAddress)
	}
	if p.BillingAddress != nil {
		order.BillingAddress = mapShopifyAddress(p.BillingAddress)
	}

	for _, li := range p.LineItems {
		order.LineItems = append(order.LineItems, OrderLineItem{
			ShopifyLineId: strconv.FormatInt(li.ID, 10),
			Title:         li.Title,
			Quantity:      li.Quantity,
			Price:         decimalOrZero(li.Price),
			Sku:           li.Sku,
		})
	}

	return order
}

func (p *ShopifyOrderPayload) humanOrderNumber() string {
	if p.Name != "" {
		return p.Name
	}
	if p.OrderNumber > 0 {
		return "#" + strconv.Itoa(p.OrderNumber)
	}
	return strconv.FormatInt(p.ID, 10)
}

func (p *ShopifyOrderPayload) orderDate() time.Time {
	if p.CreatedAt != "" {
		if t, err := time.Parse(time.RFC3339, p.CreatedAt); err == nil {
			return t
		}
	}
	return time.Now().UTC()
}

func mapShopifyAddress(a *ShopifyAddress) OrderAddress {
	return OrderAddress{
		Address1: a.Address1,
		Address2: a.Address2,
		City:     a.City,
		Province: a.Province,
		Zip:      a.Zip,
		Country:  a.Country,
	}
}

func decimalOrZero(raw string) decimal.Decimal {
	if raw == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return d
}
