package models

import (
	"context"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/mmdatafocus/riskradar_backend/config"
	"github.com/mmdatafocus/riskradar_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ErrOrderAlreadyIngested signals a duplicate webhook delivery: the unique
// index on (shop_id, shopify_order_id) already holds a row for this order.
// Callers treat it as a benign no-op.
var ErrOrderAlreadyIngested = errors.New("order already ingested")

const mysqlDuplicateEntry = 1062

// OrderAddress is the snapshot of one Shopify address at ingestion time.
// Stored embedded (value, not pointer); a fully zero address means "absent".
type OrderAddress struct {
	Address1 string `gorm:"size:255" json:"address1"`
	Address2 string `gorm:"size:255" json:"address2"`
	City     string `gorm:"size:100" json:"city"`
	Province string `gorm:"size:100" json:"province"`
	Zip      string `gorm:"size:20" json:"zip"`
	Country  string `gorm:"size:100" json:"country"`
}

func (a OrderAddress) IsZero() bool {
	return a == OrderAddress{}
}

type OrderLineItem struct {
	ID               int             `gorm:"primary_key" json:"id"`
	OrderId          int             `gorm:"index;not null" json:"order_id"`
	ShopifyLineId    string          `gorm:"size:64" json:"shopify_line_id"`
	Title            string          `gorm:"size:255" json:"title"`
	Quantity         int             `json:"quantity"`
	Price            decimal.Decimal `gorm:"type:decimal(20,6)" json:"price"`
	Sku              string          `gorm:"size:100" json:"sku"`
}

// Order is one ingested Shopify order plus its risk verdict. One row per
// (shop, shopify order id); identity fields never change after create.
type Order struct {
	ID             int    `gorm:"primary_key" json:"id"`
	ShopId         string `gorm:"size:255;not null;index:uniq_shop_order,unique" json:"shop_id"`
	ShopifyOrderId string `gorm:"size:64;not null;index:uniq_shop_order,unique" json:"shopify_order_id"`
	OrderNumber    string `gorm:"size:50" json:"order_number"`

	OrderDate         time.Time       `gorm:"index" json:"order_date"`
	Currency          string          `gorm:"size:10" json:"currency"`
	TotalPrice        decimal.Decimal `gorm:"type:decimal(20,6)" json:"total_price"`
	FinancialStatus   string          `gorm:"size:50" json:"financial_status"`
	FulfillmentStatus string          `gorm:"size:50" json:"fulfillment_status"`
	PaymentGateways   StringSlice     `gorm:"type:text" json:"payment_gateways"`

	CustomerId          string          `gorm:"size:64" json:"customer_id"`
	CustomerName        string          `gorm:"size:200" json:"customer_name"`
	CustomerEmail       string          `gorm:"size:255" json:"customer_email"`
	CustomerPhone       string          `gorm:"size:30" json:"customer_phone"`
	CustomerOrdersCount int             `json:"customer_orders_count"`
	CustomerTotalSpent  decimal.Decimal `gorm:"type:decimal(20,6)" json:"customer_total_spent"`

	ShippingAddress OrderAddress `gorm:"embedded;embeddedPrefix:shipping_" json:"shipping_address"`
	BillingAddress  OrderAddress `gorm:"embedded;embeddedPrefix:billing_" json:"billing_address"`

	LineItems []OrderLineItem `gorm:"foreignKey:OrderId" json:"line_items"`

	// Risk verdict. Immutable once computed; merchant feedback and explicit
	// re-review are the only mutations.
	RiskScore   int         `gorm:"not null;default:0" json:"risk_score"`
	RiskLevel   RiskLevel   `gorm:"type:enum('low','medium','high');default:low" json:"risk_level"`
	RiskFactors StringSlice `gorm:"type:text" json:"risk_factors"`
	Status      OrderStatus `gorm:"type:enum('approved','pending','declined','on_hold');default:approved" json:"status"`
	Reviewed    *bool       `gorm:"not null;default:false" json:"reviewed"`
	CapturedIp  string      `gorm:"size:45" json:"captured_ip"`

	// Merchant feedback on the verdict (AI feedback loop).
	FeedbackOriginalScore  *int       `json:"feedback_original_score"`
	FeedbackCorrect        *bool      `json:"feedback_correct"`
	FeedbackCorrectedLevel *RiskLevel `gorm:"type:enum('low','medium','high')" json:"feedback_corrected_level"`
	FeedbackAt             *time.Time `json:"feedback_at"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// CreateOrderRecord persists one scored order. Idempotent against duplicate
// webhook delivery: the (shop_id, shopify_order_id) unique index rejects the
// second insert and the MySQL duplicate-entry error is mapped to
// ErrOrderAlreadyIngested.
func CreateOrderRecord(ctx context.Context, order *Order) error {
	db := config.GetDB()
	if db == nil {
		return errors.New("db is nil")
	}
	if order.ShopId == "" || order.ShopifyOrderId == "" {
		return errors.New("shop_id and shopify_order_id are required")
	}

	err := db.WithContext(ctx).Create(order).Error
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry {
			return ErrOrderAlreadyIngested
		}
		return err
	}
	return nil
}

func GetOrderById(ctx context.Context, id int) (*Order, error) {
	db := config.GetDB()
	if db == nil {
		return nil, errors.New("db is nil")
	}

	var order Order
	err := db.WithContext(ctx).Preload("LineItems").Where("id = ?", id).Take(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &order, nil
}

func GetOrderByShopifyId(ctx context.Context, shopId string, shopifyOrderId string) (*Order, error) {
	db := config.GetDB()
	if db == nil {
		return nil, errors.New("db is nil")
	}

	var order Order
	err := db.WithContext(ctx).Preload("LineItems").
		Where("shop_id = ? AND shopify_order_id = ?", shopId, shopifyOrderId).
		Take(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &order, nil
}

const maxListLimit = 100

// clampListLimit bounds a caller-supplied page size: unset/invalid falls back
// to the default, oversized is capped at the max rather than reset.
func clampListLimit(limit int) int {
	if limit <= 0 {
		return config.SearchLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

// ListOrders returns the newest orders for a shop, paged.
func ListOrders(ctx context.Context, shopId string, limit int, offset int) ([]*Order, error) {
	db := config.GetDB()
	if db == nil {
		return nil, errors.New("db is nil")
	}
	limit = clampListLimit(limit)
	if offset < 0 {
		offset = 0
	}

	var orders []*Order
	err := db.WithContext(ctx).Preload("LineItems").
		Where("shop_id = ?", shopId).
		Order("created_at DESC, id DESC").
		Limit(limit).Offset(offset).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

type VerdictFeedbackInput struct {
	Correct        *bool      `json:"correct" binding:"required"`
	CorrectedLevel *RiskLevel `json:"corrected_level"`
}

// SaveVerdictFeedback records the merchant's judgement on one verdict.
// Mutates the verdict feedback fields in place; identity fields and the
// original score are never changed (original score is snapshotted into
// feedback_original_score).
func SaveVerdictFeedback(ctx context.Context, shopId string, orderId int, input *VerdictFeedbackInput) (*Order, error) {
	db := config.GetDB()
	if db == nil {
		return nil, errors.New("db is nil")
	}
	if input == nil || input.Correct == nil {
		return nil, errors.New("correct flag is required")
	}
	if input.CorrectedLevel != nil && !input.CorrectedLevel.IsValid() {
		return nil, errors.New("invalid corrected level")
	}

	var order Order
	err := db.WithContext(ctx).
		Where("id = ? AND shop_id = ?", orderId, shopId).
		Take(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}

	now := time.Now().UTC()
	reviewed := true
	originalScore := order.RiskScore
	updates := map[string]interface{}{
		"reviewed":                 &reviewed,
		"feedback_original_score":  &originalScore,
		"feedback_correct":         input.Correct,
		"feedback_corrected_level": input.CorrectedLevel,
		"feedback_at":              &now,
	}
	if err := db.WithContext(ctx).Model(&Order{}).
		Where("id = ? AND shop_id = ?", orderId, shopId).
		Updates(updates).Error; err != nil {
		return nil, err
	}

	return GetOrderById(ctx, orderId)
}

type DashboardStats struct {
	TotalOrders  int64 `json:"total_orders"`
	LowRisk      int64 `json:"low_risk"`
	MediumRisk   int64 `json:"medium_risk"`
	HighRisk     int64 `json:"high_risk"`
	OnHold       int64 `json:"on_hold"`
	FlaggedToday int64 `json:"flagged_today"`
}

// GetDashboardStats aggregates the counters the embedded dashboard shows.
func GetDashboardStats(ctx context.Context, shopId string) (*DashboardStats, error) {
	db := config.GetDB()
	if db == nil {
		return nil, errors.New("db is nil")
	}

	var stats DashboardStats
	base := func() *gorm.DB {
		return db.WithContext(ctx).Model(&Order{}).Where("shop_id = ?", shopId)
	}

	if err := base().Count(&stats.TotalOrders).Error; err != nil {
		return nil, err
	}
	if err := base().Where("risk_level = ?", RiskLevelLow).Count(&stats.LowRisk).Error; err != nil {
		return nil, err
	}
	if err := base().Where("risk_level = ?", RiskLevelMedium).Count(&stats.MediumRisk).Error; err != nil {
		return nil, err
	}
	if err := base().Where("risk_level = ?", RiskLevelHigh).Count(&stats.HighRisk).Error; err != nil {
		return nil, err
	}
	if err := base().Where("status = ?", OrderStatusOnHold).Count(&stats.OnHold).Error; err != nil {
		return nil, err
	}
	startOfDay := time.Now().UTC().Truncate(24 * time.Hour)
	if err := base().Where("risk_level IN ? AND created_at >= ?", []RiskLevel{RiskLevelMedium, RiskLevelHigh}, startOfDay).
		Count(&stats.FlaggedToday).Error; err != nil {
		return nil, err
	}

	return &stats, nil
}
