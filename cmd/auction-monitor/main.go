package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"lostark-auction-noti/internal/config"
	"lostark-auction-noti/internal/database"
	"lostark-auction-noti/internal/notify"
	"lostark-auction-noti/internal/services/lostark"
	"lostark-auction-noti/internal/store"
	"lostark-auction-noti/internal/tracker"
)

var (
	interval          = flag.Duration("interval", 10*time.Minute, "polling interval in loop mode")
	once              = flag.Bool("once", true, "run a single cycle and exit (cron mode)")
	conditionsPath    = flag.String("conditions", "", "path to conditions.json (overrides CONDITIONS_PATH)")
	dbPath            = flag.String("db", "", "sqlite database path (overrides DATABASE_PATH)")
	logFile           = flag.String("log", "", "log file path (default stdout)")
	notifyNewListings = flag.Bool("notify-new-listings", false, "also notify per new near-lowest listing")
	maxPages          = flag.Int("max-pages", 10, "pagination safety cap per condition")
)

func main() {
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	var logWriter *os.File
	var err error
	if *logFile != "" {
		logWriter, err = os.OpenFile(*logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			log.Fatalf("unable to open log file: %v", err)
		}
		defer logWriter.Close()
	} else {
		logWriter = os.Stdout
	}
	logger := log.New(logWriter, "[AuctionMonitor] ", log.LstdFlags|log.Lshortfile)

	cfg := config.Load()
	if *dbPath != "" {
		cfg.DatabasePath = *dbPath
	}
	if *conditionsPath != "" {
		cfg.ConditionsPath = *conditionsPath
	}

	if cfg.APIToken == "" {
		logger.Fatalf("LOSTARK_API_TOKEN is not set")
	}

	conditions, err := config.LoadConditions(cfg.ConditionsPath)
	if err != nil {
		logger.Fatalf("[x] condition load error: %v", err)
	}
	logger.Printf("[+] condition load success (%d conditions)", len(conditions))

	db, err := database.Initialize(cfg.DatabasePath)
	if err != nil {
		logger.Fatalf("database initialization failed: %v", err)
	}

	var scraper tracker.CandidateFetcher
	if cfg.FrontCookie != "" {
		scraper = lostark.NewScraper(cfg.FrontCookie, cfg.FrontUserAgent)
	} else {
		logger.Printf("FRONT_COOKIE not set, purchase links disabled")
	}

	engine := tracker.NewEngine(
		store.New(db),
		lostark.NewClient(cfg.APIToken),
		scraper,
		notify.NewDiscordNotifier(cfg.LowestPriceWebhookURL, cfg.NewListingWebhookURL),
		logger,
		tracker.Options{
			MaxPages:          *maxPages,
			NotifyNewListings: *notifyNewListings,
			BuyServerBaseURL:  cfg.BuyServerBaseURL,
		},
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *once {
		engine.RunOnce(ctx, conditions)
		return
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	logger.Printf("monitoring %d conditions every %v", len(conditions), *interval)
	engine.RunOnce(ctx, conditions)

	for {
		select {
		case <-ticker.C:
			engine.RunOnce(ctx, conditions)
		case <-sigChan:
			logger.Printf("shutdown signal received, stopping")
			return
		}
	}
}
