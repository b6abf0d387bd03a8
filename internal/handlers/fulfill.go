package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tulipes/internal/fulfillment"
)

type fulfillRequest struct {
	Type            string `json:"type"`
	PaymentIntentID string `json:"paymentIntentId"`

	// Delivery-notice fields.
	ToEmail       string `json:"toEmail"`
	RecipientName string `json:"recipientName"`
	Formation     string `json:"formation"`
}

// Fulfill is the explicit email-trigger path. type=delivery sends the
// delivered notice; anything else runs the idempotent fulfillment for the
// given record, so retrying a webhook by hand is always safe.
func Fulfill(svc *fulfillment.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/fulfill"
		defer handlePanic(c, route)

		var req fulfillRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid request body")
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		if req.Type == "delivery" {
			if req.ToEmail == "" {
				respondWithError(c, http.StatusBadRequest, route, "missing required fields")
				return
			}
			if err := svc.NotifyDelivered(ctx, req.ToEmail, req.RecipientName, req.Formation); err != nil {
				respondServiceError(c, route, err)
				return
			}
			c.JSON(http.StatusOK, gin.H{"success": true, "message": "delivery email sent"})
			return
		}

		if req.PaymentIntentID == "" {
			respondWithError(c, http.StatusBadRequest, route, "missing required fields")
			return
		}
		if err := svc.Fulfill(ctx, req.PaymentIntentID); err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}
