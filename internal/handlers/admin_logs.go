package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"tulipes/internal/logbook"
	"tulipes/internal/middleware"
	"tulipes/internal/models"
)

type blockedIPRequest struct {
	IP     string `json:"ip" binding:"required"`
	Action string `json:"action" binding:"required"`
}

type loginEventRequest struct {
	UserAgent string `json:"userAgent"`
}

// GetAdminLogs returns the login log and the current blocklist.
func GetAdminLogs(book *logbook.Book) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/admin/logs"
		defer handlePanic(c, route)

		ctx, cancel := requestContext(c)
		defer cancel()

		logins, blockedIPs, err := book.Logins(ctx)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		if blockedIPs == nil {
			blockedIPs = []string{}
		}
		c.JSON(http.StatusOK, gin.H{"logs": logins, "blockedIps": blockedIPs})
	}
}

// GetAuditLog returns the field-edit audit trail.
func GetAuditLog(book *logbook.Book) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/admin/edits"
		defer handlePanic(c, route)

		ctx, cancel := requestContext(c)
		defer cancel()

		edits, err := book.Audits(ctx)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"edits": edits})
	}
}

// ManageBlockedIP blocks or unblocks one address, idempotently.
func ManageBlockedIP(book *logbook.Book) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/admin/blocked-ips"
		defer handlePanic(c, route)

		var req blockedIPRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "missing ip or action")
			return
		}
		if req.Action != "block" && req.Action != "unblock" {
			respondWithError(c, http.StatusBadRequest, route, "action must be block or unblock")
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		blockedIPs, err := book.SetBlocked(ctx, req.IP, req.Action == "block")
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		if blockedIPs == nil {
			blockedIPs = []string{}
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "blockedIps": blockedIPs})
	}
}

// LogAdminLogin appends the caller to the login log. Called by the admin
// UI on every login attempt, before authentication.
func LogAdminLogin(book *logbook.Book) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/login-events"
		defer handlePanic(c, route)

		var req loginEventRequest
		_ = c.ShouldBindJSON(&req)

		userAgent := req.UserAgent
		if userAgent == "" {
			userAgent = c.GetHeader("User-Agent")
		}

		entry := models.LoginLogEntry{
			IP:        middleware.ClientIP(c),
			UserAgent: userAgent,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Country:   middleware.Country(c),
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		if err := book.AppendLogin(ctx, entry); err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

// CheckIPBlocked tells the admin UI whether the caller may even attempt a
// login. Fails open: a provider error reports not-blocked rather than
// locking every admin out.
func CheckIPBlocked(book *logbook.Book) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/blocked"
		defer handlePanic(c, route)

		ip := middleware.ClientIP(c)

		ctx, cancel := requestContext(c)
		defer cancel()

		blocked, err := book.IsBlocked(ctx, ip)
		if err != nil {
			log.Printf("[%s] [ERROR] blocklist lookup failed, failing open: %v", route, err)
			c.JSON(http.StatusOK, gin.H{"blocked": false, "ip": ip})
			return
		}
		c.JSON(http.StatusOK, gin.H{"blocked": blocked, "ip": ip})
	}
}
