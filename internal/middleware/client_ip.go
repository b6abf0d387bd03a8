package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// ipHeaders in lookup order; the service can sit behind several proxy
// layers depending on the deployment.
var ipHeaders = []string{
	"X-Client-Connection-Ip",
	"X-Forwarded-For",
	"CF-Connecting-IP",
	"X-Real-Ip",
}

// ClientIP resolves the caller's address from the proxy headers, falling
// back to the socket address and then "unknown".
func ClientIP(c *gin.Context) string {
	for _, header := range ipHeaders {
		value := strings.TrimSpace(c.GetHeader(header))
		if value == "" {
			continue
		}
		// X-Forwarded-For may carry a chain; the client is first.
		if comma := strings.Index(value, ","); comma >= 0 {
			value = strings.TrimSpace(value[:comma])
		}
		if value != "" {
			return value
		}
	}
	if ip := c.ClientIP(); ip != "" {
		return ip
	}
	return "unknown"
}

// Country resolves the caller's country from the CDN header, "?" when
// absent.
func Country(c *gin.Context) string {
	if country := strings.TrimSpace(c.GetHeader("CF-IPCountry")); country != "" {
		return country
	}
	return "?"
}
