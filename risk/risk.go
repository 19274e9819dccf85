package risk

import (
	"strings"

	"github.com/mmdatafocus/riskradar_backend/models"
	"github.com/shopspring/decimal"
)

// Factor names one scoring rule. The names match the merchant-facing
// settings toggles.
type Factor string

const (
	FactorOrderValue      Factor = "orderValue"
	FactorAddressMismatch Factor = "addressMismatch"
	FactorEmailDomain     Factor = "emailDomain"
	FactorIpLocation      Factor = "ipLocation"
	FactorOrderTime       Factor = "orderTime"
	FactorGiftCard        Factor = "giftCardUse"

	// Declared toggles with no scoring rule yet. Kept in the capability set
	// so plan gating stays uniform when rules land.
	FactorCustomerHistory Factor = "customerHistory"
	FactorCheckoutSpeed   Factor = "checkoutSpeed"
	FactorQuantitySpike   Factor = "quantitySpike"
)

// proOnlyFactors are force-disabled on the free tier regardless of the
// stored toggle.
var proOnlyFactors = map[Factor]bool{
	FactorIpLocation:      true,
	FactorOrderTime:       true,
	FactorGiftCard:        true,
	FactorCustomerHistory: true,
	FactorCheckoutSpeed:   true,
	FactorQuantitySpike:   true,
}

// disposableEmailDomains is the fixed deny list for the emailDomain factor.
var disposableEmailDomains = map[string]bool{
	"mailinator.com":    true,
	"guerrillamail.com": true,
	"10minutemail.com":  true,
	"tempmail.com":      true,
	"temp-mail.org":     true,
	"throwaway.email":   true,
	"yopmail.com":       true,
	"getnada.com":       true,
	"trashmail.com":     true,
	"sharklasers.com":   true,
}

var (
	orderValueHighCutoff   = decimal.NewFromInt(1000)
	orderValueMediumCutoff = decimal.NewFromInt(500)
)

// Capabilities is the resolved per-scoring-call factor-enabled map:
// tenant toggles overlaid with the plan-tier precedence rule.
type Capabilities map[Factor]bool

// ResolveCapabilities computes the active factor set once, so the scoring
// rules below never branch on plan strings themselves.
func ResolveCapabilities(settings *models.StoreSettings, sub *models.Subscription) Capabilities {
	isPro := sub.IsProOrTrial()

	caps := Capabilities{
		FactorOrderValue:      toggleEnabled(settingsToggle(settings, FactorOrderValue)),
		FactorAddressMismatch: toggleEnabled(settingsToggle(settings, FactorAddressMismatch)),
		FactorEmailDomain:     toggleEnabled(settingsToggle(settings, FactorEmailDomain)),
		FactorIpLocation:      toggleEnabled(settingsToggle(settings, FactorIpLocation)),
		FactorOrderTime:       toggleEnabled(settingsToggle(settings, FactorOrderTime)),
		FactorGiftCard:        toggleEnabled(settingsToggle(settings, FactorGiftCard)),
		FactorCustomerHistory: toggleEnabled(settingsToggle(settings, FactorCustomerHistory)),
		FactorCheckoutSpeed:   toggleEnabled(settingsToggle(settings, FactorCheckoutSpeed)),
		FactorQuantitySpike:   toggleEnabled(settingsToggle(settings, FactorQuantitySpike)),
	}

	if !isPro {
		for f := range proOnlyFactors {
			caps[f] = false
		}
	}

	return caps
}

func settingsToggle(settings *models.StoreSettings, f Factor) *bool {
	if settings == nil {
		return nil
	}
	switch f {
	case FactorOrderValue:
		return settings.OrderValueFactor
	case FactorAddressMismatch:
		return settings.AddressMismatchFactor
	case FactorEmailDomain:
		return settings.EmailDomainFactor
	case FactorIpLocation:
		return settings.IpLocationFactor
	case FactorOrderTime:
		return settings.OrderTimeFactor
	case FactorGiftCard:
		return settings.GiftCardFactor
	case FactorCustomerHistory:
		return settings.CustomerHistoryFactor
	case FactorCheckoutSpeed:
		return settings.CheckoutSpeedFactor
	case FactorQuantitySpike:
		return settings.QuantitySpikeFactor
	}
	return nil
}

// Missing toggle rows default to enabled; the merchant has to opt out.
func toggleEnabled(b *bool) bool {
	return b == nil || *b
}

// Verdict is the scoring outcome for one order.
type Verdict struct {
	Score      int
	Level      models.RiskLevel
	Factors    []string
	Status     models.OrderStatus
	CapturedIp string
}

// ApplyTo stamps the verdict onto the order record before persistence.
func (v Verdict) ApplyTo(order *models.Order) {
	reviewed := false
	order.RiskScore = v.Score
	order.RiskLevel = v.Level
	order.RiskFactors = models.StringSlice(v.Factors)
	order.Status = v.Status
	order.Reviewed = &reviewed
	if order.CapturedIp == "" {
		order.CapturedIp = v.CapturedIp
	}
}

// Score runs the deterministic multi-factor evaluation. Pure: all inputs are
// arguments, no I/O. Factor descriptions are appended in evaluation order.
func Score(order *models.Order, settings *models.StoreSettings, sub *models.Subscription) Verdict {
	caps := ResolveCapabilities(settings, sub)

	score := 0
	var factors []string
	addFactor := func(points int, description string) {
		score += points
		factors = append(factors, description)
	}

	if caps[FactorOrderValue] {
		if order.TotalPrice.GreaterThan(orderValueHighCutoff) {
			addFactor(20, "High value order")
		} else if order.TotalPrice.GreaterThan(orderValueMediumCutoff) {
			addFactor(10, "Medium-high value order")
		}
	}

	if caps[FactorAddressMismatch] && addressesMismatch(order.ShippingAddress, order.BillingAddress) {
		addFactor(15, "Billing and shipping addresses do not match")
	}

	if caps[FactorEmailDomain] {
		if domain := emailDomain(order.CustomerEmail); domain != "" && disposableEmailDomains[domain] {
			addFactor(25, "Disposable email domain: "+domain)
		}
	}

	if caps[FactorIpLocation] && order.CapturedIp != "" {
		// Placeholder signal until real geolocation comparison lands.
		addFactor(5, "IP address captured for location check")
	}

	if caps[FactorOrderTime] && isHighRiskHour(order.OrderDate.Hour()) {
		addFactor(10, "Order placed during high-risk hours")
	}

	if caps[FactorGiftCard] && usesGiftCard(order.PaymentGateways) {
		addFactor(15, "Paid with gift card")
	}

	// customerHistory, checkoutSpeed and quantitySpike are exposed as
	// toggles but carry no scoring rule yet.

	level := levelForScore(score, settings)

	return Verdict{
		Score:      score,
		Level:      level,
		Factors:    factors,
		Status:     statusForLevel(level, settings),
		CapturedIp: order.CapturedIp,
	}
}

func addressesMismatch(shipping, billing models.OrderAddress) bool {
	if shipping.IsZero() || billing.IsZero() {
		return false
	}
	return shipping.Zip != billing.Zip ||
		shipping.City != billing.City ||
		shipping.Country != billing.Country
}

func emailDomain(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return ""
	}
	return strings.ToLower(email[at+1:])
}

// Night-window hours: [22,24) and [0,4].
func isHighRiskHour(hour int) bool {
	return hour >= 22 || hour <= 4
}

func usesGiftCard(gateways models.StringSlice) bool {
	for _, g := range gateways {
		if strings.Contains(strings.ToLower(g), "gift") {
			return true
		}
	}
	return false
}

func levelForScore(score int, settings *models.StoreSettings) models.RiskLevel {
	high := models.DefaultHighRiskThreshold
	medium := models.DefaultMediumRiskThreshold
	if settings != nil && settings.HighRiskThreshold > 0 {
		high = settings.HighRiskThreshold
	}
	if settings != nil && settings.MediumRiskThreshold > 0 {
		medium = settings.MediumRiskThreshold
	}

	switch {
	case score >= high:
		return models.RiskLevelHigh
	case score >= medium:
		return models.RiskLevelMedium
	default:
		return models.RiskLevelLow
	}
}

// statusForLevel derives the recommended status. Only high risk triggers
// automation; medium is watch-only and resolves to approved.
func statusForLevel(level models.RiskLevel, settings *models.StoreSettings) models.OrderStatus {
	if level != models.RiskLevelHigh || settings == nil {
		return models.OrderStatusApproved
	}
	switch {
	case settings.HoldHighRiskOrders != nil && *settings.HoldHighRiskOrders:
		return models.OrderStatusOnHold
	case settings.FlagForReview != nil && *settings.FlagForReview:
		return models.OrderStatusPending
	case settings.CancelHighRiskOrders != nil && *settings.CancelHighRiskOrders:
		return models.OrderStatusDeclined
	default:
		return models.OrderStatusApproved
	}
}
