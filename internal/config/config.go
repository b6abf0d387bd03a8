package config

import (
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config carries every deployment setting the service needs. It is built
// once in Load and injected explicitly; handlers never read the environment
// themselves.
type Config struct {
	Port string

	StripeKey           string
	StripeProductID     string
	StripeWebhookSecret string

	ResendKey string
	EmailFrom string

	AdminToken      string
	SuperAdminToken string

	Currency string
}

func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println(".env not loaded:", err)
	}
	return Config{
		Port:                getEnvOrDefault("PORT", "8080"),
		StripeKey:           getEnvOrDefault("STRIPE_SECRET_KEY", ""),
		StripeProductID:     getEnvOrDefault("STRIPE_PRODUCT_ID", ""),
		StripeWebhookSecret: getEnvOrDefault("STRIPE_WEBHOOK_SECRET", ""),
		ResendKey:           getEnvOrDefault("RESEND_API_KEY", ""),
		EmailFrom:           getEnvOrDefault("EMAIL_FROM", "Les tulipes d'Inter-Asso <tulipes@pay.inter-asso.fr>"),
		AdminToken:          getEnvOrDefault("ADMIN_PASSWORD", ""),
		SuperAdminToken:     getEnvOrDefault("SUPER_ADMIN_PASSWORD", ""),
		Currency:            getEnvOrDefault("CURRENCY", "eur"),
	}
}

// HasSuperAdmin reports whether elevated operations are enabled at all.
// A missing super-admin secret disables them; there is no fallback to the
// regular admin secret.
func (c Config) HasSuperAdmin() bool {
	return c.SuperAdminToken != ""
}

// AdminTokens returns the secrets accepted on the regular admin surface.
// The super-admin secret always works there too.
func (c Config) AdminTokens() []string {
	tokens := make([]string, 0, 2)
	if c.AdminToken != "" {
		tokens = append(tokens, c.AdminToken)
	}
	if c.SuperAdminToken != "" {
		tokens = append(tokens, c.SuperAdminToken)
	}
	return tokens
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}
