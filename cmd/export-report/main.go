package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/xuri/excelize/v2"

	"lostark-auction-noti/internal/config"
	"lostark-auction-noti/internal/database"
	"lostark-auction-noti/internal/models"
)

var (
	dbPath  = flag.String("db", "", "sqlite database path (overrides DATABASE_PATH)")
	outPath = flag.String("out", "auction-report.xlsx", "output workbook path")
)

// export-report dumps the tracking state into a workbook for manual review:
// one sheet of per-condition lowest prices with active listing counts, one
// sheet of the current transient listings.
func main() {
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg := config.Load()
	if *dbPath != "" {
		cfg.DatabasePath = *dbPath
	}

	db, err := database.Initialize(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("database initialization failed: %v", err)
	}

	var records []models.LowestPriceRecord
	if err := db.Order("condition_name asc").Find(&records).Error; err != nil {
		log.Fatalf("load lowest prices: %v", err)
	}

	var listings []models.AuctionListing
	if err := db.Order("condition_name asc, buy_price asc").Find(&listings).Error; err != nil {
		log.Fatalf("load listings: %v", err)
	}

	var notifiedCount int64
	if err := db.Model(&models.NotifiedItem{}).Count(&notifiedCount).Error; err != nil {
		log.Fatalf("count notified items: %v", err)
	}

	now := time.Now()
	activeByCondition := make(map[string]int)
	for i := range listings {
		if listings[i].Active(now) {
			activeByCondition[listings[i].ConditionName]++
		}
	}

	f := excelize.NewFile()
	defer f.Close()

	summary := "Summary"
	f.SetSheetName(f.GetSheetName(0), summary)
	headers := []string{"Condition", "Lowest Price", "Active Listings", "Updated At"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(summary, cell, h)
	}
	for i, rec := range records {
		row := i + 2
		f.SetCellValue(summary, fmt.Sprintf("A%d", row), rec.ConditionName)
		f.SetCellValue(summary, fmt.Sprintf("B%d", row), rec.LowestPrice)
		f.SetCellValue(summary, fmt.Sprintf("C%d", row), activeByCondition[rec.ConditionName])
		f.SetCellValue(summary, fmt.Sprintf("D%d", row), rec.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
	f.SetCellValue(summary, fmt.Sprintf("A%d", len(records)+3), fmt.Sprintf("Notified items total: %d", notifiedCount))

	sheet := "Listings"
	if _, err := f.NewSheet(sheet); err != nil {
		log.Fatalf("create listings sheet: %v", err)
	}
	listingHeaders := []string{"Condition", "Item", "Buy Price", "Quality", "Trades Left", "Ends At", "Options"}
	for i, h := range listingHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}
	for i, l := range listings {
		row := i + 2
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), l.ConditionName)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), l.ItemName)
		f.SetCellValue(sheet, fmt.Sprintf("C%d", row), l.BuyPrice)
		f.SetCellValue(sheet, fmt.Sprintf("D%d", row), l.GradeQuality)
		f.SetCellValue(sheet, fmt.Sprintf("E%d", row), l.TradeAllowCount)
		f.SetCellValue(sheet, fmt.Sprintf("F%d", row), l.EndDate.Format("2006-01-02 15:04:05"))
		f.SetCellValue(sheet, fmt.Sprintf("G%d", row), l.OptionInfo)
	}

	if err := f.SaveAs(*outPath); err != nil {
		log.Fatalf("save workbook: %v", err)
	}
	log.Printf("report written to %s (%d conditions, %d listings)", *outPath, len(records), len(listings))
}
