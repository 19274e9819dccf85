package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

type RiskLevel string

const (
	RiskLevelLow    RiskLevel = "low"
	RiskLevelMedium RiskLevel = "medium"
	RiskLevelHigh   RiskLevel = "high"
)

func (l RiskLevel) IsValid() bool {
	switch l {
	case RiskLevelLow, RiskLevelMedium, RiskLevelHigh:
		return true
	}
	return false
}

type OrderStatus string

const (
	OrderStatusApproved OrderStatus = "approved"
	OrderStatusPending  OrderStatus = "pending"
	OrderStatusDeclined OrderStatus = "declined"
	OrderStatusOnHold   OrderStatus = "on_hold"
)

func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusApproved, OrderStatusPending, OrderStatusDeclined, OrderStatusOnHold:
		return true
	}
	return false
}

type PlanTier string

const (
	PlanTierFree     PlanTier = "free"
	PlanTierPro      PlanTier = "pro"
	PlanTierBusiness PlanTier = "business"
)

type DeliveryFrequency string

const (
	DeliveryFrequencyImmediate DeliveryFrequency = "immediate"
	DeliveryFrequencyHourly    DeliveryFrequency = "hourly"
	DeliveryFrequencyDaily     DeliveryFrequency = "daily"
)

func (f DeliveryFrequency) IsValid() bool {
	switch f {
	case DeliveryFrequencyImmediate, DeliveryFrequencyHourly, DeliveryFrequencyDaily:
		return true
	}
	return false
}

// StringSlice stores an ordered list of strings as a JSON text column.
// Used for the verdict's contributing-factor descriptions; order matters
// (evaluation order), so a normalized join/split is not enough.
type StringSlice []string

func (s StringSlice) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(s))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (s *StringSlice) Scan(src interface{}) error {
	if src == nil {
		*s = nil
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, (*[]string)(s))
	case string:
		return json.Unmarshal([]byte(v), (*[]string)(s))
	}
	return fmt.Errorf("cannot scan %T into StringSlice", src)
}
