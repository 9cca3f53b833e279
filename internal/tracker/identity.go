package tracker

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"lostark-auction-noti/internal/models"
)

// fingerprintVersion tags the identifier scheme. Adding or removing a field
// from the hash is an identifier migration and must bump this.
const fingerprintVersion = "v1"

const fingerprintSeparator = "\x1f"

// Fingerprint derives the content identifier used for notification dedup.
// It is a pure function of (name, option text, buy price, end timestamp):
// a listing that reappears with any of those changed counts as a new listing.
func Fingerprint(listing *models.AuctionListing) string {
	payload := strings.Join([]string{
		fingerprintVersion,
		listing.ItemName,
		listing.OptionInfo,
		strconv.FormatFloat(listing.BuyPrice, 'f', -1, 64),
		listing.EndDate.UTC().Format(time.RFC3339),
	}, fingerprintSeparator)

	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}
