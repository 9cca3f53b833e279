package tracker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"lostark-auction-noti/internal/models"
	"lostark-auction-noti/internal/services/lostark"
)

func TestFingerprintDeterministic(t *testing.T) {
	end := time.Date(2026, 1, 2, 15, 0, 0, 0, lostark.KST)
	a := &models.AuctionListing{ItemName: "목걸이", OptionInfo: "공격력 - 1.55%", BuyPrice: 1500, EndDate: end}
	b := &models.AuctionListing{ItemName: "목걸이", OptionInfo: "공격력 - 1.55%", BuyPrice: 1500, EndDate: end}

	assert.Equal(t, Fingerprint(a), Fingerprint(b))

	// identity-bearing fields only: condition or icon changes do not matter
	b.ConditionName = "different"
	b.Icon = "other.png"
	assert.Equal(t, Fingerprint(a), Fingerprint(b))
}

func TestFingerprintSensitivity(t *testing.T) {
	end := time.Date(2026, 1, 2, 15, 0, 0, 0, lostark.KST)
	base := models.AuctionListing{ItemName: "목걸이", OptionInfo: "공격력 - 1.55%", BuyPrice: 1500, EndDate: end}

	byName := base
	byName.ItemName = "반지"

	byOptions := base
	byOptions.OptionInfo = "공격력 - 1.6%"

	byPrice := base
	byPrice.BuyPrice = 1499

	byEndDate := base
	byEndDate.EndDate = end.Add(time.Second)

	ids := map[string]bool{
		Fingerprint(&base):      true,
		Fingerprint(&byName):    true,
		Fingerprint(&byOptions): true,
		Fingerprint(&byPrice):   true,
		Fingerprint(&byEndDate): true,
	}
	assert.Len(t, ids, 5, "each field change must produce a distinct identifier")
}
