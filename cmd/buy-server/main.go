package main

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"lostark-auction-noti/internal/config"
	"lostark-auction-noti/internal/services/lostark"
)

// buy-server exposes the purchase deep link target. The monitor only builds
// /buy URLs; a human (or nothing) decides to open them.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg := config.Load()
	if cfg.SecondPassword == "" {
		log.Fatal("SECOND_PASSWORD is not set")
	}
	if cfg.FrontCookie == "" {
		log.Fatal("FRONT_COOKIE is not set")
	}

	purchaser := lostark.NewPurchaser(
		cfg.FrontCookie,
		cfg.FrontUserAgent,
		cfg.SecondPassword,
		cfg.PCName,
		cfg.WorldID,
	)

	r := gin.Default()

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/buy", func(c *gin.Context) {
		itemno := c.Query("itemno")
		price := c.Query("price")
		if itemno == "" || price == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing itemno or price"})
			return
		}

		body, err := purchaser.Buy(c.Request.Context(), itemno, price)
		if err != nil {
			log.Printf("buy failed (itemno=%s): %v", itemno, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.Data(http.StatusOK, "application/json; charset=utf-8", body)
	})

	log.Printf("buy server listening on :%s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("buy server stopped: %v", err)
	}
}
