package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"tulipes/internal/orders"
)

const providerTimeout = 10 * time.Second

func requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), providerTimeout)
}

func handlePanic(c *gin.Context, route string) {
	if r := recover(); r != nil {
		log.Printf("[%s] panic recovered: %v", route, r)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func respondWithError(c *gin.Context, status int, route string, message string) {
	log.Printf("[%s] returning error %d: %s", route, status, message)
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}

// respondServiceError maps the error taxonomy onto HTTP statuses.
// Validation messages go back to the caller; config and upstream details
// are logged but never leaked.
func respondServiceError(c *gin.Context, route string, err error) {
	var validationErr orders.ValidationError
	if errors.As(err, &validationErr) {
		respondWithError(c, http.StatusBadRequest, route, validationErr.Message)
		return
	}
	var notFoundErr orders.NotFoundError
	if errors.As(err, &notFoundErr) {
		respondWithError(c, http.StatusNotFound, route, "order not found")
		return
	}
	var configErr orders.ConfigError
	if errors.As(err, &configErr) {
		log.Printf("[%s] [ERROR] configuration: %s", route, configErr.Message)
		respondWithError(c, http.StatusInternalServerError, route, "server configuration error")
		return
	}
	log.Printf("[%s] [ERROR] %v", route, err)
	respondWithError(c, http.StatusInternalServerError, route, "internal error")
}
