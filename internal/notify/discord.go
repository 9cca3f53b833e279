package notify

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"lostark-auction-noti/internal/models"
)

const (
	colorLowestPrice = 0x00ff00
	colorNewListing  = 0x3498db
)

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type embedThumbnail struct {
	URL string `json:"url"`
}

type embed struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Color       int             `json:"color"`
	Fields      []embedField    `json:"fields"`
	Thumbnail   *embedThumbnail `json:"thumbnail,omitempty"`
	Timestamp   string          `json:"timestamp"`
}

type webhookPayload struct {
	Embeds []embed `json:"embeds"`
}

// DiscordNotifier posts embeds to Discord webhooks. The two message classes
// go to two separate channels: lowest-price records on one, per-listing
// discovery notices on the other.
type DiscordNotifier struct {
	http           *resty.Client
	lowestPriceURL string
	newListingURL  string
	now            func() time.Time
}

func NewDiscordNotifier(lowestPriceURL, newListingURL string) *DiscordNotifier {
	client := resty.New()
	client.SetTimeout(15 * time.Second)
	client.SetHeader("Content-Type", "application/json")

	return &DiscordNotifier{
		http:           client,
		lowestPriceURL: lowestPriceURL,
		newListingURL:  newListingURL,
		now:            time.Now,
	}
}

func (n *DiscordNotifier) NotifyLowestPrice(ctx context.Context, conditionName string, previous *float64, current float64, listing *models.AuctionListing, buyLink string) error {
	description := fmt.Sprintf("최초 최저가 %s", formatPrice(current))
	if previous != nil {
		change := (current - *previous) / *previous * 100
		description = fmt.Sprintf("%s → %s (%.1f%%)", formatPrice(*previous), formatPrice(current), change)
	}

	e := embed{
		Title:       fmt.Sprintf("[%s] 최저가 갱신", conditionName),
		Description: description,
		Color:       colorLowestPrice,
		Fields:      n.listingFields(listing),
		Timestamp:   n.now().In(kst()).Format(time.RFC3339),
	}
	if buyLink != "" {
		e.Fields = append(e.Fields, embedField{Name: "구매 링크", Value: buyLink})
	}
	if listing.Icon != "" {
		e.Thumbnail = &embedThumbnail{URL: listing.Icon}
	}

	return n.send(ctx, n.lowestPriceURL, e)
}

func (n *DiscordNotifier) NotifyNewListing(ctx context.Context, conditionName string, listing *models.AuctionListing) error {
	e := embed{
		Title:       fmt.Sprintf("[%s] 신규 매물", conditionName),
		Description: fmt.Sprintf("즉시 구매가 %s", formatPrice(listing.BuyPrice)),
		Color:       colorNewListing,
		Fields:      n.listingFields(listing),
		Timestamp:   n.now().In(kst()).Format(time.RFC3339),
	}
	if listing.Icon != "" {
		e.Thumbnail = &embedThumbnail{URL: listing.Icon}
	}

	return n.send(ctx, n.newListingURL, e)
}

func (n *DiscordNotifier) listingFields(listing *models.AuctionListing) []embedField {
	options := listing.OptionInfo
	if options == "" {
		options = "-"
	}

	return []embedField{
		{Name: "아이템 이름", Value: listing.ItemName},
		{Name: "옵션 정보", Value: options},
		{Name: "거래 가능 횟수", Value: strconv.Itoa(listing.TradeAllowCount), Inline: true},
		{Name: "품질", Value: strconv.Itoa(listing.GradeQuality), Inline: true},
		{Name: "남은 시간", Value: FormatRemaining(listing.EndDate, n.now())},
	}
}

func (n *DiscordNotifier) send(ctx context.Context, webhookURL string, e embed) error {
	if webhookURL == "" {
		return fmt.Errorf("webhook url not configured")
	}

	resp, err := n.http.R().
		SetContext(ctx).
		SetBody(webhookPayload{Embeds: []embed{e}}).
		Post(webhookURL)
	if err != nil {
		return fmt.Errorf("send webhook: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("webhook returned %s: %s", resp.Status(), resp.Body())
	}
	return nil
}

// FormatRemaining renders the time left on an auction as whole hours and
// minutes, or an ended marker once the end time has passed.
func FormatRemaining(endDate, now time.Time) string {
	remaining := endDate.Sub(now)
	if remaining <= 0 {
		return "경매 종료"
	}

	total := int(remaining.Seconds())
	hours := total / 3600
	minutes := (total % 3600) / 60
	return fmt.Sprintf("%d시간 %d분 남음", hours, minutes)
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func kst() *time.Location {
	return time.FixedZone("KST", 9*60*60)
}
