package main

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/riskradar_backend/config"
	"github.com/mmdatafocus/riskradar_backend/models"
	"github.com/mmdatafocus/riskradar_backend/models/reports"
	"github.com/mmdatafocus/riskradar_backend/utils"
)

func shopFromRequest(c *gin.Context) string {
	shop, _ := utils.GetShopDomainFromContext(c.Request.Context())
	return shop
}

func listOrdersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		shop := shopFromRequest(c)
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
		offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

		orders, err := models.ListOrders(c.Request.Context(), shop, limit, offset)
		if err != nil {
			config.LogError(config.GetLogger(), "apiHandlers", "listOrdersHandler", "ListOrders", shop, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list orders"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"orders": orders})
	}
}

func getOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		shop := shopFromRequest(c)
		raw := c.Param("id")

		// The dashboard links by internal id; deep links from Shopify admin
		// carry the Shopify order id instead. Internal ids fit in an int,
		// Shopify ids don't, so a failed Atoi means the latter.
		var order *models.Order
		var err error
		if id, convErr := strconv.Atoi(raw); convErr == nil && id > 0 {
			order, err = models.GetOrderById(c.Request.Context(), id)
		} else if raw != "" {
			order, err = models.GetOrderByShopifyId(c.Request.Context(), shop, raw)
		} else {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
			return
		}
		if err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
				return
			}
			config.LogError(config.GetLogger(), "apiHandlers", "getOrderHandler", "load order", raw, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load order"})
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

func orderFeedbackHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		shop := shopFromRequest(c)
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
			return
		}

		var input models.VerdictFeedbackInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}

		order, err := models.SaveVerdictFeedback(c.Request.Context(), shop, id, &input)
		if err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

func statsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		shop := shopFromRequest(c)
		stats, err := models.GetDashboardStats(c.Request.Context(), shop)
		if err != nil {
			config.LogError(config.GetLogger(), "apiHandlers", "statsHandler", "GetDashboardStats", shop, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load stats"})
			return
		}
		c.JSON(http.StatusOK, stats)
	}
}

func getSettingsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		shop := shopFromRequest(c)
		settings, err := models.GetOrCreateStoreSettings(c.Request.Context(), shop)
		if err != nil {
			config.LogError(config.GetLogger(), "apiHandlers", "getSettingsHandler", "GetOrCreateStoreSettings", shop, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load settings"})
			return
		}
		c.JSON(http.StatusOK, settings)
	}
}

func updateSettingsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		shop := shopFromRequest(c)

		var input models.UpdateStoreSettingsInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}

		settings, err := models.UpdateStoreSettings(c.Request.Context(), shop, &input)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, settings)
	}
}

func exportOrdersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		shop := shopFromRequest(c)
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

		orders, err := models.ListOrders(c.Request.Context(), shop, limit, 0)
		if err != nil {
			config.LogError(config.GetLogger(), "apiHandlers", "exportOrdersHandler", "ListOrders", shop, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list orders"})
			return
		}

		if err := reports.WriteOrdersExcel(c.Writer, shop, orders); err != nil {
			config.LogError(config.GetLogger(), "apiHandlers", "exportOrdersHandler", "WriteOrdersExcel", shop, err)
		}
	}
}
