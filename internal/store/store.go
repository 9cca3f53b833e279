package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"lostark-auction-noti/internal/models"
)

// Store wraps the three logical tables: transient per-run listings, durable
// lowest prices, and the durable append-only notified set.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// ReplaceListings clears and repopulates the transient table for one
// condition in a single transaction. Calling it again with the same batch is
// a no-op in effect, so a retried ingestion cannot double rows.
func (s *Store) ReplaceListings(ctx context.Context, conditionName string, listings []models.AuctionListing) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("condition_name = ?", conditionName).
			Delete(&models.AuctionListing{}).Error; err != nil {
			return fmt.Errorf("clear listings for %q: %w", conditionName, err)
		}

		if len(listings) == 0 {
			return nil
		}

		rows := make([]models.AuctionListing, len(listings))
		copy(rows, listings)
		for i := range rows {
			rows[i].ID = 0
			rows[i].ConditionName = conditionName
		}

		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("insert listings for %q: %w", conditionName, err)
		}
		return nil
	})
}

// ActiveListings returns listings whose auction ends strictly after now,
// cheapest first.
func (s *Store) ActiveListings(ctx context.Context, conditionName string, now time.Time) ([]models.AuctionListing, error) {
	var listings []models.AuctionListing
	err := s.db.WithContext(ctx).
		Where("condition_name = ? AND end_date > ?", conditionName, now).
		Order("buy_price asc").
		Find(&listings).Error
	if err != nil {
		return nil, fmt.Errorf("active listings for %q: %w", conditionName, err)
	}
	return listings, nil
}

// LowestPrice returns the stored lowest price for a condition. The found flag
// distinguishes "no record yet" from a numerically zero price.
func (s *Store) LowestPrice(ctx context.Context, conditionName string) (float64, bool, error) {
	var record models.LowestPriceRecord
	err := s.db.WithContext(ctx).
		First(&record, "condition_name = ?", conditionName).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("lowest price for %q: %w", conditionName, err)
	}
	return record.LowestPrice, true, nil
}

// SetLowestPriceIfLower upserts the lowest price for a condition, but only
// when price strictly improves on the stored record. The check and write run
// in one transaction so two overlapping runs cannot clobber each other's
// lower observation; the loser gets updated=false instead of silently winning.
func (s *Store) SetLowestPriceIfLower(ctx context.Context, conditionName string, price float64) (bool, error) {
	updated := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record models.LowestPriceRecord
		err := tx.First(&record, "condition_name = ?", conditionName).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if err := tx.Create(&models.LowestPriceRecord{
				ConditionName: conditionName,
				LowestPrice:   price,
			}).Error; err != nil {
				return err
			}
			updated = true
			return nil
		}
		if err != nil {
			return err
		}

		if price >= record.LowestPrice {
			return nil
		}

		if err := tx.Model(&models.LowestPriceRecord{}).
			Where("condition_name = ?", conditionName).
			Update("lowest_price", price).Error; err != nil {
			return err
		}
		updated = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("set lowest price for %q: %w", conditionName, err)
	}
	return updated, nil
}

// IsNotified reports whether a listing fingerprint was already notified.
func (s *Store) IsNotified(ctx context.Context, fingerprint string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.NotifiedItem{}).
		Where("fingerprint = ?", fingerprint).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("notified lookup: %w", err)
	}
	return count > 0, nil
}

// MarkNotified records a fingerprint as notified. Inserting an existing
// fingerprint is a no-op, not an error: overlapping runs race on this table.
func (s *Store) MarkNotified(ctx context.Context, fingerprint string) error {
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.NotifiedItem{Fingerprint: fingerprint}).Error
	if err != nil {
		return fmt.Errorf("mark notified: %w", err)
	}
	return nil
}
