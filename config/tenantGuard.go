package config

import (
	"context"
	"strings"

	"github.com/mmdatafocus/riskradar_backend/appctx"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TenantGuardPlugin enforces multi-tenant isolation by automatically scoping
// queries/updates/deletes to the request's shop_id when the model has a shop_id column.
//
// NOTE:
// - This does NOT apply to Raw SQL queries. Those must include shop_id manually.
// - Internal tooling bypass is explicit via context flag.
type TenantGuardPlugin struct{}

func NewTenantGuardPlugin() *TenantGuardPlugin { return &TenantGuardPlugin{} }

func (p *TenantGuardPlugin) Name() string { return "tenant_guard" }

func (p *TenantGuardPlugin) Initialize(db *gorm.DB) error {
	// Query
	if err := db.Callback().Query().Before("gorm:query").Register("tenant_guard:query", tenantGuardCallback); err != nil {
		return err
	}
	// Row (First/Take)
	if err := db.Callback().Row().Before("gorm:row").Register("tenant_guard:row", tenantGuardCallback); err != nil {
		return err
	}
	// Update
	if err := db.Callback().Update().Before("gorm:update").Register("tenant_guard:update", tenantGuardCallback); err != nil {
		return err
	}
	// Delete
	if err := db.Callback().Delete().Before("gorm:delete").Register("tenant_guard:delete", tenantGuardCallback); err != nil {
		return err
	}
	return nil
}

func tenantGuardCallback(db *gorm.DB) {
	if db == nil || db.Statement == nil {
		return
	}
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}
	if shouldBypassTenantScope(ctx) {
		return
	}
	shopID := shopIdFromContext(ctx)
	if shopID == "" {
		return
	}

	// Only apply if the current model/table includes a shop_id column.
	if db.Statement.Schema == nil {
		return
	}
	hasShopID := false
	for _, f := range db.Statement.Schema.Fields {
		if strings.EqualFold(f.DBName, "shop_id") {
			hasShopID = true
			break
		}
	}
	if !hasShopID {
		return
	}

	// Don't duplicate an explicit tenant filter.
	if whereHasShopID(db.Statement.Clauses["WHERE"]) {
		return
	}

	db.Statement.AddClause(clause.Where{
		Exprs: []clause.Expression{
			clause.Eq{
				Column: clause.Column{Table: db.Statement.Table, Name: "shop_id"},
				Value:  shopID,
			},
		},
	})
}

func shopIdFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(appctx.ContextKeyShopDomain).(string); ok && v != "" {
		return v
	}
	return ""
}

func shouldBypassTenantScope(ctx context.Context) bool {
	if v, ok := ctx.Value(appctx.ContextKeySkipTenantScope).(bool); ok && v {
		return true
	}
	return false
}

func whereHasShopID(c clause.Clause) bool {
	if c.Expression == nil {
		return false
	}
	w, ok := c.Expression.(clause.Where)
	if !ok {
		return false
	}
	for _, e := range w.Exprs {
		if exprHasShopID(e) {
			return true
		}
	}
	return false
}

func exprHasShopID(e clause.Expression) bool {
	switch v := e.(type) {
	case clause.Eq:
		return colIsShopID(v.Column)
	case clause.Neq:
		return colIsShopID(v.Column)
	case clause.IN:
		return colIsShopID(v.Column)
	case clause.AndConditions:
		for _, x := range v.Exprs {
			if exprHasShopID(x) {
				return true
			}
		}
	case clause.OrConditions:
		for _, x := range v.Exprs {
			if exprHasShopID(x) {
				return true
			}
		}
	case clause.Expr:
		return strings.Contains(strings.ToLower(v.SQL), "shop_id")
	case clause.NamedExpr:
		return strings.Contains(strings.ToLower(v.SQL), "shop_id")
	}
	return false
}

func colIsShopID(col interface{}) bool {
	switch c := col.(type) {
	case string:
		return strings.EqualFold(c, "shop_id") || strings.HasSuffix(strings.ToLower(c), ".shop_id")
	case clause.Column:
		return strings.EqualFold(c.Name, "shop_id")
	}
	return false
}
