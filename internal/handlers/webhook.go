package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"tulipes/internal/fulfillment"
	"tulipes/internal/payments"
)

// StripeWebhook handles payment events from the provider. Signature
// failures get a 400 so the provider retries; every failure after a valid
// signature is still acknowledged with 200 - otherwise the provider would
// retry forever - and logged loudly for manual reconciliation.
func StripeWebhook(parser payments.EventParser, fulfil *fulfillment.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/webhook"
		defer handlePanic(c, route)

		payload, err := c.GetRawData()
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "unreadable payload")
			return
		}

		eventType, record, err := parser.ParseEvent(payload, c.GetHeader("Stripe-Signature"))
		if err != nil {
			if errors.Is(err, payments.ErrBadSignature) {
				respondWithError(c, http.StatusBadRequest, route, "invalid signature")
				return
			}
			// Verified but undecodable; ack so the provider stops retrying.
			log.Printf("[%s] [ERROR] event decode failed: %v", route, err)
			c.JSON(http.StatusOK, gin.H{"received": true})
			return
		}

		if eventType != "payment_intent.succeeded" || record == nil {
			c.JSON(http.StatusOK, gin.H{"received": true})
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		if err := fulfil.Fulfill(ctx, record.ID); err != nil {
			log.Printf("[%s] [ERROR] fulfillment failed for %s, acking anyway: %v", route, record.ID, err)
		}
		c.JSON(http.StatusOK, gin.H{"received": true})
	}
}
