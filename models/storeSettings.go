package models

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mmdatafocus/riskradar_backend/config"
	"gorm.io/gorm"
)

const (
	DefaultHighRiskThreshold   = 75
	DefaultMediumRiskThreshold = 50

	storeSettingsCacheTTL = 10 * time.Minute
)

var validate = validator.New()

// StoreSettings holds one store's risk thresholds, factor toggles,
// notification preferences and automation flags. Created with defaults on
// first access; updated wholesale by the merchant; never deleted here
// (uninstall cleanup is an external lifecycle concern).
type StoreSettings struct {
	ID     int    `gorm:"primary_key" json:"id"`
	ShopId string `gorm:"size:255;not null;uniqueIndex" json:"shop_id"`

	HighRiskThreshold   int `gorm:"not null;default:75" json:"high_risk_threshold"`
	MediumRiskThreshold int `gorm:"not null;default:50" json:"medium_risk_threshold"`

	// Risk factor toggles. Free plans only get the first three; the rest are
	// force-disabled at scoring time regardless of the stored value.
	OrderValueFactor      *bool `gorm:"not null;default:true" json:"order_value_factor"`
	AddressMismatchFactor *bool `gorm:"not null;default:true" json:"address_mismatch_factor"`
	EmailDomainFactor     *bool `gorm:"not null;default:true" json:"email_domain_factor"`
	IpLocationFactor      *bool `gorm:"not null;default:true" json:"ip_location_factor"`
	OrderTimeFactor       *bool `gorm:"not null;default:true" json:"order_time_factor"`
	GiftCardFactor        *bool `gorm:"not null;default:true" json:"gift_card_factor"`
	CustomerHistoryFactor *bool `gorm:"not null;default:true" json:"customer_history_factor"`
	CheckoutSpeedFactor   *bool `gorm:"not null;default:true" json:"checkout_speed_factor"`
	QuantitySpikeFactor   *bool `gorm:"not null;default:true" json:"quantity_spike_factor"`

	// Notification preferences.
	EmailEnabled       *bool             `gorm:"not null;default:false" json:"email_enabled"`
	EmailAddress       string            `gorm:"size:255" json:"email_address"`
	ChatWebhookEnabled *bool             `gorm:"not null;default:false" json:"chat_webhook_enabled"`
	ChatWebhookUrl     string            `gorm:"size:500" json:"chat_webhook_url"`
	Frequency          DeliveryFrequency `gorm:"type:enum('immediate','hourly','daily');default:immediate" json:"frequency"`

	// Automation flags, evaluated against high-risk verdicts only.
	HoldHighRiskOrders   *bool  `gorm:"not null;default:false" json:"hold_high_risk_orders"`
	CancelHighRiskOrders *bool  `gorm:"not null;default:false" json:"cancel_high_risk_orders"`
	FlagForReview        *bool  `gorm:"not null;default:false" json:"flag_for_review"`
	EmailVerification    *bool  `gorm:"not null;default:false" json:"email_verification"`
	CustomEmail          *bool  `gorm:"not null;default:false" json:"custom_email"`
	CustomEmailTemplate  string `gorm:"type:text" json:"custom_email_template"`

	// AI feedback loop settings.
	AiFeedbackEnabled *bool  `gorm:"not null;default:true" json:"ai_feedback_enabled"`
	DataSharingLevel  string `gorm:"size:20;default:basic" json:"data_sharing_level"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// UpdateStoreSettingsInput is a wholesale replacement of the merchant-editable
// settings. Thresholds must keep high > medium.
type UpdateStoreSettingsInput struct {
	HighRiskThreshold   int `json:"high_risk_threshold" validate:"required,gt=0"`
	MediumRiskThreshold int `json:"medium_risk_threshold" validate:"required,gt=0"`

	OrderValueFactor      *bool `json:"order_value_factor" validate:"required"`
	AddressMismatchFactor *bool `json:"address_mismatch_factor" validate:"required"`
	EmailDomainFactor     *bool `json:"email_domain_factor" validate:"required"`
	IpLocationFactor      *bool `json:"ip_location_factor" validate:"required"`
	OrderTimeFactor       *bool `json:"order_time_factor" validate:"required"`
	GiftCardFactor        *bool `json:"gift_card_factor" validate:"required"`
	CustomerHistoryFactor *bool `json:"customer_history_factor" validate:"required"`
	CheckoutSpeedFactor   *bool `json:"checkout_speed_factor" validate:"required"`
	QuantitySpikeFactor   *bool `json:"quantity_spike_factor" validate:"required"`

	EmailEnabled       *bool             `json:"email_enabled" validate:"required"`
	EmailAddress       string            `json:"email_address" validate:"omitempty,email"`
	ChatWebhookEnabled *bool             `json:"chat_webhook_enabled" validate:"required"`
	ChatWebhookUrl     string            `json:"chat_webhook_url" validate:"omitempty,url"`
	Frequency          DeliveryFrequency `json:"frequency" validate:"required,oneof=immediate hourly daily"`

	HoldHighRiskOrders   *bool  `json:"hold_high_risk_orders" validate:"required"`
	CancelHighRiskOrders *bool  `json:"cancel_high_risk_orders" validate:"required"`
	FlagForReview        *bool  `json:"flag_for_review" validate:"required"`
	EmailVerification    *bool  `json:"email_verification" validate:"required"`
	CustomEmail          *bool  `json:"custom_email" validate:"required"`
	CustomEmailTemplate  string `json:"custom_email_template"`

	AiFeedbackEnabled *bool  `json:"ai_feedback_enabled" validate:"required"`
	DataSharingLevel  string `json:"data_sharing_level" validate:"omitempty,oneof=none basic full"`
}

func storeSettingsCacheKey(shopId string) string {
	return "StoreSettings:" + shopId
}

func boolPtr(b bool) *bool { return &b }

func defaultStoreSettings(shopId string) *StoreSettings {
	return &StoreSettings{
		ShopId:                shopId,
		HighRiskThreshold:     DefaultHighRiskThreshold,
		MediumRiskThreshold:   DefaultMediumRiskThreshold,
		OrderValueFactor:      boolPtr(true),
		AddressMismatchFactor: boolPtr(true),
		EmailDomainFactor:     boolPtr(true),
		IpLocationFactor:      boolPtr(true),
		OrderTimeFactor:       boolPtr(true),
		GiftCardFactor:        boolPtr(true),
		CustomerHistoryFactor: boolPtr(true),
		CheckoutSpeedFactor:   boolPtr(true),
		QuantitySpikeFactor:   boolPtr(true),
		EmailEnabled:          boolPtr(false),
		ChatWebhookEnabled:    boolPtr(false),
		Frequency:             DeliveryFrequencyImmediate,
		HoldHighRiskOrders:    boolPtr(false),
		CancelHighRiskOrders:  boolPtr(false),
		FlagForReview:         boolPtr(false),
		EmailVerification:     boolPtr(false),
		CustomEmail:           boolPtr(false),
		AiFeedbackEnabled:     boolPtr(true),
		DataSharingLevel:      "basic",
	}
}

// GetOrCreateStoreSettings returns the store's settings, creating a row with
// defaults on first access. Read-through cached in Redis.
func GetOrCreateStoreSettings(ctx context.Context, shopId string) (*StoreSettings, error) {
	if shopId == "" {
		return nil, errors.New("shop_id is required")
	}

	var cached StoreSettings
	if exists, err := config.GetRedisObject(storeSettingsCacheKey(shopId), &cached); err == nil && exists {
		return &cached, nil
	}

	db := config.GetDB()
	if db == nil {
		return nil, errors.New("db is nil")
	}

	var settings StoreSettings
	err := db.WithContext(ctx).Where("shop_id = ?", shopId).Take(&settings).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		created := defaultStoreSettings(shopId)
		if createErr := db.WithContext(ctx).Create(created).Error; createErr != nil {
			// Concurrent first access can race the insert; re-read wins.
			if rereadErr := db.WithContext(ctx).Where("shop_id = ?", shopId).Take(&settings).Error; rereadErr != nil {
				return nil, createErr
			}
		} else {
			settings = *created
		}
		err = nil
	}
	if err != nil {
		return nil, err
	}

	_ = config.SetRedisObject(storeSettingsCacheKey(shopId), &settings, storeSettingsCacheTTL)
	return &settings, nil
}

// UpdateStoreSettings replaces the merchant-editable settings wholesale and
// invalidates the cache.
func UpdateStoreSettings(ctx context.Context, shopId string, input *UpdateStoreSettingsInput) (*StoreSettings, error) {
	if shopId == "" {
		return nil, errors.New("shop_id is required")
	}
	if input == nil {
		return nil, errors.New("input is required")
	}
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	if input.HighRiskThreshold <= input.MediumRiskThreshold {
		return nil, errors.New("high threshold must be greater than medium threshold")
	}

	settings, err := GetOrCreateStoreSettings(ctx, shopId)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	if db == nil {
		return nil, errors.New("db is nil")
	}

	settings.HighRiskThreshold = input.HighRiskThreshold
	settings.MediumRiskThreshold = input.MediumRiskThreshold
	settings.OrderValueFactor = input.OrderValueFactor
	settings.AddressMismatchFactor = input.AddressMismatchFactor
	settings.EmailDomainFactor = input.EmailDomainFactor
	settings.IpLocationFactor = input.IpLocationFactor
	settings.OrderTimeFactor = input.OrderTimeFactor
	settings.GiftCardFactor = input.GiftCardFactor
	settings.CustomerHistoryFactor = input.CustomerHistoryFactor
	settings.CheckoutSpeedFactor = input.CheckoutSpeedFactor
	settings.QuantitySpikeFactor = input.QuantitySpikeFactor
	settings.EmailEnabled = input.EmailEnabled
	settings.EmailAddress = input.EmailAddress
	settings.ChatWebhookEnabled = input.ChatWebhookEnabled
	settings.ChatWebhookUrl = input.ChatWebhookUrl
	settings.Frequency = input.Frequency
	settings.HoldHighRiskOrders = input.HoldHighRiskOrders
	settings.CancelHighRiskOrders = input.CancelHighRiskOrders
	settings.FlagForReview = input.FlagForReview
	settings.EmailVerification = input.EmailVerification
	settings.CustomEmail = input.CustomEmail
	settings.CustomEmailTemplate = input.CustomEmailTemplate
	settings.AiFeedbackEnabled = input.AiFeedbackEnabled
	settings.DataSharingLevel = input.DataSharingLevel

	if err := db.WithContext(ctx).Save(settings).Error; err != nil {
		return nil, err
	}

	_ = config.RemoveRedisKey(storeSettingsCacheKey(shopId))
	return settings, nil
}

// HasNotificationSettings reports whether any notification sink is configured.
func (s *StoreSettings) HasNotificationSettings() bool {
	if s == nil {
		return false
	}
	emailOn := s.EmailEnabled != nil && *s.EmailEnabled
	chatOn := s.ChatWebhookEnabled != nil && *s.ChatWebhookEnabled
	return emailOn || chatOn
}
