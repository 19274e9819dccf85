package config

import (
	"os"
	"strings"
)

// StrictWebhookVerification rejects webhook deliveries that carry no HMAC
// signature header. Default is permissive: Shopify development stores and
// locally replayed deliveries often omit the header, and the fallback keeps
// those flows working. Production should set it.
//
// Set via env:
// - STRICT_WEBHOOK_VERIFICATION=true
func StrictWebhookVerification() bool {
	return boolFromEnv("STRICT_WEBHOOK_VERIFICATION")
}

// NotificationsDisabled is a global kill switch for all outbound
// notifications (email + chat webhook). Digest queueing is also skipped
// when set. Default: notifications run.
//
// Set via env:
// - NOTIFICATIONS_DISABLED=true
func NotificationsDisabled() bool {
	return boolFromEnv("NOTIFICATIONS_DISABLED")
}

func boolFromEnv(key string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}
