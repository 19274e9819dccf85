package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/mmdatafocus/riskradar_backend/config"
	"github.com/mmdatafocus/riskradar_backend/models"
	"github.com/mmdatafocus/riskradar_backend/risk"
	"github.com/mmdatafocus/riskradar_backend/utils"
)

// Re-scores persisted orders with the shop's current settings and plan.
// Useful after a merchant changes thresholds or factor toggles and wants
// historical verdicts to match. Reviewed orders are left alone: a human
// verdict outranks a recomputed one.
func main() {
	shopFlag := flag.String("shop", "", "Optional: backfill only one shop domain. If empty, backfills all shops.")
	batch := flag.Int("batch", 500, "Max orders to re-score per shop")
	dryRun := flag.Bool("dry-run", false, "Compute and print new verdicts without writing them")
	flag.Parse()

	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil)")
		os.Exit(1)
	}

	models.MigrateTable()

	// Shop discovery runs across tenants, so it must bypass the guard.
	adminCtx := utils.SetSkipTenantScopeInContext(ctx)

	var shops []string
	shopQuery := db.WithContext(adminCtx).Model(&models.Order{}).Distinct("shop_id")
	if strings.TrimSpace(*shopFlag) != "" {
		shopQuery = shopQuery.Where("shop_id = ?", strings.TrimSpace(*shopFlag))
	}
	if err := shopQuery.Pluck("shop_id", &shops).Error; err != nil {
		fmt.Fprintf(os.Stderr, "failed to list shops: %v\n", err)
		os.Exit(1)
	}
	if len(shops) == 0 {
		fmt.Fprintln(os.Stderr, "no shops found to backfill")
		return
	}

	for _, shop := range shops {
		shopCtx := utils.SetShopDomainInContext(ctx, shop)

		settings, err := models.GetOrCreateStoreSettings(shopCtx, shop)
		if err != nil {
			fmt.Fprintf(os.Stderr, "shop %s: failed to load settings: %v\n", shop, err)
			continue
		}
		sub, err := models.GetSubscription(shopCtx, shop)
		if err != nil {
			fmt.Fprintf(os.Stderr, "shop %s: failed to load subscription: %v\n", shop, err)
			continue
		}

		var orders []*models.Order
		if err := db.WithContext(shopCtx).
			Where("reviewed IS NULL OR reviewed = ?", false).
			Order("id DESC").
			Limit(*batch).
			Find(&orders).Error; err != nil {
			fmt.Fprintf(os.Stderr, "shop %s: failed to list orders: %v\n", shop, err)
			continue
		}

		changed := 0
		for _, order := range orders {
			verdict := risk.Score(order, settings, sub)
			if verdict.Score == order.RiskScore && verdict.Level == order.RiskLevel && verdict.Status == order.Status {
				continue
			}
			changed++
			if *dryRun {
				fmt.Printf("shop=%s order=%s score %d -> %d level %s -> %s status %s -> %s\n",
					shop, order.OrderNumber, order.RiskScore, verdict.Score,
					order.RiskLevel, verdict.Level, order.Status, verdict.Status)
				continue
			}
			verdict.ApplyTo(order)
			if err := db.WithContext(shopCtx).Model(order).
				Select("risk_score", "risk_level", "risk_factors", "status", "captured_ip").
				Updates(order).Error; err != nil {
				fmt.Fprintf(os.Stderr, "shop %s: order %d update failed: %v\n", shop, order.ID, err)
			}
		}

		fmt.Printf("shop=%s scanned=%d changed=%d dry_run=%v\n", shop, len(orders), changed, *dryRun)
	}

	fmt.Println("Backfill complete")
}
