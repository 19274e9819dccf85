package utils

import (
	"context"

	"github.com/mmdatafocus/riskradar_backend/appctx"
)

var (
	ContextKeyShopDomain    = appctx.ContextKeyShopDomain
	ContextKeyWebhookTopic  = appctx.ContextKeyWebhookTopic
	ContextKeyCorrelationId = appctx.ContextKeyCorrelationId

	ContextKeySkipTenantScope = appctx.ContextKeySkipTenantScope
)

func GetShopDomainFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyShopDomain)
}

func SetShopDomainInContext(ctx context.Context, shopDomain string) context.Context {
	return appctx.Set(ctx, ContextKeyShopDomain, shopDomain)
}

func GetWebhookTopicFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyWebhookTopic)
}

func SetWebhookTopicInContext(ctx context.Context, topic string) context.Context {
	return appctx.Set(ctx, ContextKeyWebhookTopic, topic)
}

func GetCorrelationIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyCorrelationId)
}

func SetCorrelationIdInContext(ctx context.Context, correlationId string) context.Context {
	return appctx.Set(ctx, ContextKeyCorrelationId, correlationId)
}

func SetSkipTenantScopeInContext(ctx context.Context) context.Context {
	return appctx.Set(ctx, ContextKeySkipTenantScope, true)
}
