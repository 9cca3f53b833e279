package tracker

import (
	"errors"
	"strings"
	"time"

	"lostark-auction-noti/internal/models"
	"lostark-auction-noti/internal/services/lostark"
)

// ErrNoMatch means no scraped candidate could be reconciled with the listing.
// Callers proceed without a purchase link.
var ErrNoMatch = errors.New("no matching candidate")

// endDateTolerance absorbs clock and rounding drift between the API snapshot
// and the re-verification scrape.
const endDateTolerance = 3 * time.Minute

// ResolveProductID matches a previously ingested listing against freshly
// scraped candidates and returns the first candidate's product id. The match
// requires exact equality on name, quality, buy/start/bid price and
// trade-allow count, end timestamps within the tolerance, and option multiset
// equality ignoring percentage signs and ordering.
func ResolveProductID(listing *models.AuctionListing, candidates []lostark.ScrapedItem) (string, error) {
	for i := range candidates {
		if matches(listing, &candidates[i]) {
			return candidates[i].ProductID, nil
		}
	}
	return "", ErrNoMatch
}

func matches(listing *models.AuctionListing, candidate *lostark.ScrapedItem) bool {
	if listing.ItemName != candidate.Name ||
		listing.GradeQuality != candidate.GradeQuality ||
		listing.BuyPrice != candidate.BuyPrice ||
		listing.TradeAllowCount != candidate.TradeAllowCount ||
		listing.StartPrice != candidate.StartPrice ||
		listing.BidPrice != candidate.BidPrice {
		return false
	}

	drift := listing.EndDate.Sub(candidate.EndDate)
	if drift < 0 {
		drift = -drift
	}
	if drift > endDateTolerance {
		return false
	}

	return sameOptionMultiset(listing.OptionInfo, candidate.OptionInfo)
}

// sameOptionMultiset compares serialized option text as a multiset of
// (name, value) lines, with percentage signs stripped so source formatting
// differences cannot break the match.
func sameOptionMultiset(a, b string) bool {
	countsA := optionCounts(a)
	countsB := optionCounts(b)

	if len(countsA) != len(countsB) {
		return false
	}
	for line, count := range countsA {
		if countsB[line] != count {
			return false
		}
	}
	return true
}

func optionCounts(serialized string) map[string]int {
	counts := make(map[string]int)
	for _, line := range strings.Split(serialized, "\n") {
		line = strings.TrimSuffix(strings.TrimSpace(line), "%")
		if line == "" {
			continue
		}
		counts[line]++
	}
	return counts
}
