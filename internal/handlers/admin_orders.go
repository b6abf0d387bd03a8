package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tulipes/internal/middleware"
	"tulipes/internal/orders"
)

type updateStatusRequest struct {
	PaymentIntentID string `json:"paymentIntentId" binding:"required"`
	Status          string `json:"status" binding:"required"`
}

type deleteOrderRequest struct {
	PaymentIntentID string `json:"paymentIntentId" binding:"required"`
}

type editOrderRequest struct {
	PaymentIntentID string            `json:"paymentIntentId" binding:"required"`
	Updates         map[string]string `json:"updates" binding:"required"`
}

// GetOrders lists every live order for the admin dashboard, newest first,
// multi-item records expanded.
func GetOrders(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/admin/orders"
		defer handlePanic(c, route)

		ctx, cancel := requestContext(c)
		defer cancel()

		list, err := svc.List(ctx)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"orders": list})
	}
}

// UpdateOrderStatus toggles one order between pending and delivered.
func UpdateOrderStatus(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/admin/orders/status"
		defer handlePanic(c, route)

		var req updateStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "missing required fields")
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		if err := svc.UpdateDeliveryStatus(ctx, req.PaymentIntentID, req.Status); err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

// DeleteOrder soft-deletes the underlying payment record.
func DeleteOrder(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/admin/orders/delete"
		defer handlePanic(c, route)

		var req deleteOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "missing required fields")
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		if err := svc.SoftDelete(ctx, req.PaymentIntentID); err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

// EditOrder applies whitelisted metadata edits, recording each change in
// the audit log. Guarded by the super-admin secret plus the confirmation
// header.
func EditOrder(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/admin/orders/edit"
		defer handlePanic(c, route)

		var req editOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid request body")
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		result, err := svc.EditFields(ctx, req.PaymentIntentID, req.Updates, middleware.ClientIP(c))
		if err != nil {
			respondServiceError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"updated": result.Updated,
			"order": gin.H{
				"id":       result.Record.ID,
				"metadata": result.Record.Metadata,
			},
		})
	}
}
