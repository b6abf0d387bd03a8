package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tulipes/internal/models"
	"tulipes/internal/orders"
	"tulipes/internal/payments"
)

type createOrderRequest struct {
	Items         []models.OrderDraft `json:"items"`
	CustomerEmail string              `json:"customerEmail"`

	// Legacy single-item checkout fields, still sent by old clients.
	TulipType          string `json:"tulipType"`
	Name               string `json:"name"`
	Message            string `json:"message"`
	IsAnonymous        bool   `json:"isAnonymous"`
	RecipientName      string `json:"recipientName"`
	RecipientFirstName string `json:"recipientFirstName"`
	RecipientLastName  string `json:"recipientLastName"`
	Formation          string `json:"formation"`
}

func (r createOrderRequest) drafts() []models.OrderDraft {
	if len(r.Items) > 0 {
		return r.Items
	}
	if r.TulipType == "" {
		return nil
	}
	return []models.OrderDraft{{
		FlowerType:         r.TulipType,
		SenderName:         r.Name,
		Message:            r.Message,
		IsAnonymous:        r.IsAnonymous,
		RecipientName:      r.RecipientName,
		RecipientFirstName: r.RecipientFirstName,
		RecipientLastName:  r.RecipientLastName,
		Formation:          r.Formation,
	}}
}

// CreateOrder opens a payment record for the cart and hands the client the
// secret it needs to complete the payment.
func CreateOrder(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/orders"
		defer handlePanic(c, route)

		var req createOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid request body")
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		result, err := svc.Create(ctx, req.drafts(), req.CustomerEmail)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"clientSecret": result.ClientSecret,
			"recordId":     result.RecordID,
		})
	}
}

// GetPrice exposes the active unit price plus the product metadata so the
// storefront can display live stock.
func GetPrice(products payments.ProductStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/price"
		defer handlePanic(c, route)

		ctx, cancel := requestContext(c)
		defer cancel()

		amount, currency, err := products.UnitAmount(ctx)
		if err != nil {
			respondServiceError(c, route, orders.ConfigError{Message: err.Error()})
			return
		}
		meta, err := products.ProductMetadata(ctx)
		if err != nil {
			respondServiceError(c, route, orders.UpstreamError{Op: "retrieve product", Err: err})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"amount":   float64(amount) / 100,
			"currency": currency,
			"metadata": meta,
		})
	}
}
