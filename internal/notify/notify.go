package notify

import (
	"context"

	"lostark-auction-noti/internal/models"
)

// Notifier delivers tracking decisions. Implementations must treat delivery
// failures as reportable, never fatal: the tracker's state updates stand
// whether or not the message went out.
type Notifier interface {
	// NotifyLowestPrice announces a lowest-price improvement for a condition.
	// previous is nil on the first observation. buyLink may be empty when
	// cross-source matching failed to recover a purchase identifier.
	NotifyLowestPrice(ctx context.Context, conditionName string, previous *float64, current float64, listing *models.AuctionListing, buyLink string) error

	// NotifyNewListing announces a newly discovered near-lowest listing.
	NotifyNewListing(ctx context.Context, conditionName string, listing *models.AuctionListing) error
}
