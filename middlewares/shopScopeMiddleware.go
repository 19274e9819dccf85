package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/riskradar_backend/utils"
)

// ShopScopeMiddleware resolves the tenant for dashboard API requests: the
// embedded app sends its shop domain either as a ?shop= query value or the
// x-shopify-shop-domain header. The resolved domain is placed in the request
// context, where the tenant guard plugin picks it up for query scoping.
func ShopScopeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		shop := strings.TrimSpace(c.Query("shop"))
		if shop == "" {
			shop = strings.TrimSpace(c.GetHeader("x-shopify-shop-domain"))
		}
		if shop == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "shop is required"})
			return
		}
		c.Request = c.Request.WithContext(utils.SetShopDomainInContext(c.Request.Context(), shop))
		c.Next()
	}
}
