package config

import (
	"os"
)

type Config struct {
	// Developer API (search)
	APIToken string

	// Durable store (sqlite file)
	DatabasePath string

	// Condition set
	ConditionsPath string

	// Discord webhooks: one channel per message class
	LowestPriceWebhookURL string
	NewListingWebhookURL  string

	// Buy server / purchase automation
	BuyServerBaseURL string
	Port             string
	SecondPassword   string
	PCName           string
	WorldID          string

	// Front-site session (scrape + purchase). The cookie is captured from a
	// logged-in browser session.
	FrontCookie    string
	FrontUserAgent string
}

func Load() *Config {
	return &Config{
		APIToken:              getEnv("LOSTARK_API_TOKEN", ""),
		DatabasePath:          getEnv("DATABASE_PATH", "items.db"),
		ConditionsPath:        getEnv("CONDITIONS_PATH", "conditions.json"),
		LowestPriceWebhookURL: getEnv("LOWEST_PRICE_WEBHOOK_URL", ""),
		NewListingWebhookURL:  getEnv("NEW_LISTING_WEBHOOK_URL", ""),
		BuyServerBaseURL:      getEnv("BUY_SERVER_BASE_URL", "http://localhost:50000"),
		Port:                  getEnv("PORT", "50000"),
		SecondPassword:        getEnv("SECOND_PASSWORD", ""),
		PCName:                getEnv("PC_NAME", ""),
		WorldID:               getEnv("WORLD_ID", "1"),
		FrontCookie:           getEnv("FRONT_COOKIE", ""),
		FrontUserAgent:        getEnv("FRONT_USER_AGENT", "Mozilla/5.0"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
