package models

import (
	"time"
)

// AuctionListing is the canonical form of one auction entry for a condition.
// The table is transient: it is truncated and repopulated per condition on
// every run, so no row identity survives between runs.
type AuctionListing struct {
	ID              uint      `json:"id" gorm:"primaryKey"`
	ConditionName   string    `json:"condition_name" gorm:"index;not null"`
	ItemName        string    `json:"item_name" gorm:"not null"`
	OptionInfo      string    `json:"option_info" gorm:"type:text"`
	StartPrice      float64   `json:"start_price"`
	BidPrice        float64   `json:"bid_price"`
	BuyPrice        float64   `json:"buy_price" gorm:"not null"` // comparison price
	TradeAllowCount int       `json:"trade_allow_count"`
	GradeQuality    int       `json:"grade_quality"`
	EndDate         time.Time `json:"end_date" gorm:"not null"`
	Icon            string    `json:"icon"`
	// SourceParams is an opaque JSON blob sufficient to rebuild a
	// single-item-scoped front-site query for re-verification.
	SourceParams string    `json:"source_params" gorm:"type:text"`
	CreatedAt    time.Time `json:"created_at"`
}

// Active reports whether the listing's auction has not yet ended at now.
func (l *AuctionListing) Active(now time.Time) bool {
	return l.EndDate.After(now)
}

// LowestPriceRecord holds the lowest confirmed buy price per condition.
// One row per condition name; overwritten only by a strictly lower price.
type LowestPriceRecord struct {
	ConditionName string    `json:"condition_name" gorm:"primaryKey"`
	LowestPrice   float64   `json:"lowest_price" gorm:"not null"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NotifiedItem marks a listing fingerprint as already notified. Append-only:
// rows are never updated or deleted.
type NotifiedItem struct {
	Fingerprint string    `json:"fingerprint" gorm:"primaryKey"`
	CreatedAt   time.Time `json:"created_at"`
}
