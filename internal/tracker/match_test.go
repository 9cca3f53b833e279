package tracker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lostark-auction-noti/internal/models"
	"lostark-auction-noti/internal/services/lostark"
)

func matchFixtures() (*models.AuctionListing, lostark.ScrapedItem) {
	end := time.Date(2026, 1, 2, 15, 0, 0, 0, lostark.KST)

	listing := &models.AuctionListing{
		ItemName:        "반짝이는 목걸이",
		OptionInfo:      "공격력 - 1.55%\n깨달음 - 5",
		StartPrice:      1000,
		BidPrice:        1100,
		BuyPrice:        1500,
		TradeAllowCount: 2,
		GradeQuality:    92,
		EndDate:         end,
	}
	candidate := lostark.ScrapedItem{
		ProductID:       "987654321",
		Name:            "반짝이는 목걸이",
		OptionInfo:      "깨달음 - 5\n공격력 - 1.55%",
		StartPrice:      1000,
		BidPrice:        1100,
		BuyPrice:        1500,
		TradeAllowCount: 2,
		GradeQuality:    92,
		EndDate:         end,
	}
	return listing, candidate
}

func TestResolveProductID(t *testing.T) {
	listing, candidate := matchFixtures()

	id, err := ResolveProductID(listing, []lostark.ScrapedItem{candidate})
	require.NoError(t, err)
	assert.Equal(t, "987654321", id)
}

func TestResolveProductIDFirstSatisfyingWins(t *testing.T) {
	listing, candidate := matchFixtures()

	wrong := candidate
	wrong.ProductID = "111"
	wrong.BuyPrice = 1501

	second := candidate
	second.ProductID = "222"

	third := candidate
	third.ProductID = "333"

	id, err := ResolveProductID(listing, []lostark.ScrapedItem{wrong, second, third})
	require.NoError(t, err)
	assert.Equal(t, "222", id)
}

func TestResolveProductIDEndDateTolerance(t *testing.T) {
	listing, candidate := matchFixtures()

	candidate.EndDate = listing.EndDate.Add(3 * time.Minute)
	_, err := ResolveProductID(listing, []lostark.ScrapedItem{candidate})
	assert.NoError(t, err, "exactly 3 minutes of drift must match")

	candidate.EndDate = listing.EndDate.Add(-3 * time.Minute)
	_, err = ResolveProductID(listing, []lostark.ScrapedItem{candidate})
	assert.NoError(t, err)

	candidate.EndDate = listing.EndDate.Add(3*time.Minute + time.Second)
	_, err = ResolveProductID(listing, []lostark.ScrapedItem{candidate})
	assert.ErrorIs(t, err, ErrNoMatch, "3 minutes and 1 second must not match")
}

func TestResolveProductIDFieldMismatches(t *testing.T) {
	listing, candidate := matchFixtures()

	cases := map[string]func(*lostark.ScrapedItem){
		"name":        func(c *lostark.ScrapedItem) { c.Name = "다른 목걸이" },
		"quality":     func(c *lostark.ScrapedItem) { c.GradeQuality = 91 },
		"buy price":   func(c *lostark.ScrapedItem) { c.BuyPrice = 1499 },
		"start price": func(c *lostark.ScrapedItem) { c.StartPrice = 999 },
		"bid price":   func(c *lostark.ScrapedItem) { c.BidPrice = 1099 },
		"trade count": func(c *lostark.ScrapedItem) { c.TradeAllowCount = 1 },
		"options":     func(c *lostark.ScrapedItem) { c.OptionInfo = "공격력 - 1.55%" },
	}

	for name, mutate := range cases {
		c := candidate
		mutate(&c)
		_, err := ResolveProductID(listing, []lostark.ScrapedItem{c})
		assert.ErrorIs(t, err, ErrNoMatch, name)
	}
}

func TestSameOptionMultiset(t *testing.T) {
	// percentage signs and ordering are formatting, not identity
	assert.True(t, sameOptionMultiset("공격력 - 1.55%\n깨달음 - 5", "깨달음 - 5\n공격력 - 1.55"))

	// multiset, not set: duplicate lines count
	assert.False(t, sameOptionMultiset("깨달음 - 5\n깨달음 - 5", "깨달음 - 5"))
	assert.True(t, sameOptionMultiset("깨달음 - 5\n깨달음 - 5", "깨달음 - 5\n깨달음 - 5"))

	assert.True(t, sameOptionMultiset("", ""))
	assert.False(t, sameOptionMultiset("", "깨달음 - 5"))
}
