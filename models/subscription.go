package models

import (
	"context"
	"errors"
	"time"

	"github.com/mmdatafocus/riskradar_backend/config"
	"gorm.io/gorm"
)

const subscriptionCacheTTL = 5 * time.Minute

// Subscription is a read-only input to scoring and notification policy.
// Its lifecycle (trial start, billing, expiry) is owned by the billing
// integration, not this service.
type Subscription struct {
	ID                 int        `gorm:"primary_key" json:"id"`
	ShopId             string     `gorm:"size:255;not null;uniqueIndex" json:"shop_id"`
	IsActive           *bool      `gorm:"not null;default:false" json:"is_active"`
	PlanTier           PlanTier   `gorm:"type:enum('free','pro','business');default:free" json:"plan_tier"`
	TrialDaysRemaining int        `gorm:"not null;default:0" json:"trial_days_remaining"`
	TrialStartedAt     *time.Time `json:"trial_started_at"`
	CreatedAt          time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func subscriptionCacheKey(shopId string) string {
	return "Subscription:" + shopId
}

// TrialActive reports whether the store is inside an active trial window.
func (s *Subscription) TrialActive() bool {
	if s == nil {
		return false
	}
	active := s.IsActive != nil && *s.IsActive
	return active && s.TrialDaysRemaining > 0
}

// IsProOrTrial gates the pro-only risk factors and the chat notification
// channel: active trial counts as pro.
func (s *Subscription) IsProOrTrial() bool {
	if s == nil {
		return false
	}
	if s.TrialActive() {
		return true
	}
	return s.PlanTier == PlanTierPro || s.PlanTier == PlanTierBusiness
}

// GetSubscription returns the store's subscription status. A store with no
// row yet is on the free tier; missing is not an error.
func GetSubscription(ctx context.Context, shopId string) (*Subscription, error) {
	if shopId == "" {
		return nil, errors.New("shop_id is required")
	}

	var cached Subscription
	if exists, err := config.GetRedisObject(subscriptionCacheKey(shopId), &cached); err == nil && exists {
		return &cached, nil
	}

	db := config.GetDB()
	if db == nil {
		return nil, errors.New("db is nil")
	}

	var sub Subscription
	err := db.WithContext(ctx).Where("shop_id = ?", shopId).Take(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		inactive := false
		sub = Subscription{
			ShopId:   shopId,
			IsActive: &inactive,
			PlanTier: PlanTierFree,
		}
		err = nil
	}
	if err != nil {
		return nil, err
	}

	_ = config.SetRedisObject(subscriptionCacheKey(shopId), &sub, subscriptionCacheTTL)
	return &sub, nil
}
