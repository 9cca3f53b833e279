package lostark

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"lostark-auction-noti/internal/models"
)

// FrontBaseURL is the game's front site. Unlike the developer API, its auction
// list page exposes the productId needed to actually buy a listing.
const FrontBaseURL = "https://lostark.game.onstove.com"

// ScrapedItem is one candidate row parsed out of the front-site auction list.
type ScrapedItem struct {
	ProductID       string
	Name            string
	GradeQuality    int
	TradeAllowCount int
	StartPrice      float64
	BidPrice        float64
	BuyPrice        float64
	OptionInfo      string
	EndDate         time.Time
}

// Scraper fetches and parses the front-site auction list. It needs a
// logged-in session cookie; the front site serves nothing without one.
type Scraper struct {
	http *resty.Client
}

func NewScraper(cookie, userAgent string) *Scraper {
	client := resty.New()
	client.SetBaseURL(FrontBaseURL)
	client.SetTimeout(30 * time.Second)
	client.SetHeader("Cookie", cookie)
	client.SetHeader("User-Agent", userAgent)

	return &Scraper{http: client}
}

// FetchCandidates re-issues a single-item-scoped auction query built from a
// listing's retained source parameters and returns the parsed candidates.
func (s *Scraper) FetchCandidates(ctx context.Context, sourceParams string) ([]ScrapedItem, error) {
	var params SourceParams
	if err := json.Unmarshal([]byte(sourceParams), &params); err != nil {
		return nil, fmt.Errorf("decode source params: %w", err)
	}

	resp, err := s.http.R().
		SetContext(ctx).
		SetQueryParamsFromValues(buildFrontQuery(&params)).
		Get("/Auction/GetAuctionListV2")
	if err != nil {
		return nil, fmt.Errorf("auction list request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("auction list returned %s", resp.Status())
	}

	return ParseAuctionList(bytes.NewReader(resp.Body()))
}

func buildFrontQuery(params *SourceParams) url.Values {
	query := url.Values{}
	query.Set("request[itemName]", params.ItemName)
	query.Set("request[auctionItemCategoryCode]", strconv.Itoa(params.CategoryCode))
	if params.ItemTier > 0 {
		query.Set("request[itemTierMin]", strconv.Itoa(params.ItemTier))
		query.Set("request[itemTierMax]", strconv.Itoa(params.ItemTier))
	}
	if params.ItemGrade != "" {
		query.Set("request[itemGrade]", params.ItemGrade)
	}
	if params.ItemGradeQuality > 0 {
		query.Set("request[gradeQuality]", strconv.Itoa(params.ItemGradeQuality))
	}
	for i, opt := range append(append([]SearchOption{}, params.EtcOptions...), params.SkillOptions...) {
		prefix := fmt.Sprintf("request[etcOptionList][%d]", i)
		query.Set(prefix+"[firstOption]", strconv.Itoa(opt.FirstOption))
		if opt.SecondOption != 0 {
			query.Set(prefix+"[secondOption]", strconv.Itoa(opt.SecondOption))
		}
		if opt.MinValue != 0 {
			query.Set(prefix+"[minValue]", strconv.Itoa(opt.MinValue))
		}
		if opt.MaxValue != 0 {
			query.Set(prefix+"[maxValue]", strconv.Itoa(opt.MaxValue))
		}
	}
	query.Set("request[sortOption][Sort]", "BUY_PRICE")
	query.Set("request[sortOption][IsDesc]", "false")
	query.Set("request[pageNo]", "1")
	return query
}

// ParseAuctionList parses the auction list HTML into candidate rows. Rows
// without a product id (placeholder/empty rows) are skipped; rows with a
// malformed end date or no buy price are skipped like any other bad record.
func ParseAuctionList(r io.Reader) ([]ScrapedItem, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse auction list html: %w", err)
	}

	var items []ScrapedItem
	doc.Find("table.auction-list tbody tr[data-productid]").Each(func(_ int, row *goquery.Selection) {
		item, err := parseAuctionRow(row)
		if err != nil {
			return
		}
		items = append(items, *item)
	})

	return items, nil
}

func parseAuctionRow(row *goquery.Selection) (*ScrapedItem, error) {
	productID, _ := row.Attr("data-productid")
	if productID == "" {
		return nil, fmt.Errorf("missing product id: %w", ErrParse)
	}

	name := strings.TrimSpace(row.Find("td.name .name-text").Text())
	if name == "" {
		return nil, fmt.Errorf("missing item name: %w", ErrParse)
	}

	endDateRaw, _ := row.Attr("data-enddate")
	endDate, err := ParseEndDate(endDateRaw)
	if err != nil {
		return nil, err
	}

	buyPrice, err := parsePrice(row.Find("td.price-buy em").Text())
	if err != nil || buyPrice <= 0 {
		return nil, fmt.Errorf("item %q has no buy price: %w", name, ErrParse)
	}
	startPrice, _ := parsePrice(row.Find("td.price-start em").Text())
	bidPrice, _ := parsePrice(row.Find("td.price-bid em").Text())

	quality, _ := strconv.Atoi(strings.TrimSpace(row.Find("td.name .quality").Text()))
	tradeAllow, _ := strconv.Atoi(strings.TrimSpace(row.Find("td.trade em").Text()))

	var opts []ItemOption
	row.Find("td.effect li").Each(func(_ int, li *goquery.Selection) {
		if opt, ok := parseOptionLine(li.Text()); ok {
			opts = append(opts, opt)
		}
	})

	return &ScrapedItem{
		ProductID:       productID,
		Name:            name,
		GradeQuality:    quality,
		TradeAllowCount: tradeAllow,
		StartPrice:      startPrice,
		BidPrice:        bidPrice,
		BuyPrice:        buyPrice,
		OptionInfo:      SerializeOptions(opts),
		EndDate:         endDate,
	}, nil
}

// parseOptionLine splits an effect line like "공격력 +1.55%" into an option.
// The value is the last whitespace-separated token.
func parseOptionLine(text string) (ItemOption, bool) {
	text = strings.TrimSpace(text)
	idx := strings.LastIndexByte(text, ' ')
	if idx < 0 {
		return ItemOption{}, false
	}

	name := strings.TrimSpace(text[:idx])
	raw := strings.TrimPrefix(text[idx+1:], "+")
	isPercentage := strings.HasSuffix(raw, "%")
	raw = strings.TrimSuffix(raw, "%")

	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || name == "" {
		return ItemOption{}, false
	}

	return ItemOption{
		OptionName:        name,
		Value:             value,
		IsValuePercentage: isPercentage,
	}, true
}

func parsePrice(s string) (float64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, fmt.Errorf("empty price")
	}
	return strconv.ParseFloat(s, 64)
}

// Listing converts a scraped candidate into the canonical listing shape, so
// both data sources share one representation.
func (s *ScrapedItem) Listing(conditionName string) *models.AuctionListing {
	return &models.AuctionListing{
		ConditionName:   conditionName,
		ItemName:        s.Name,
		OptionInfo:      s.OptionInfo,
		StartPrice:      s.StartPrice,
		BidPrice:        s.BidPrice,
		BuyPrice:        s.BuyPrice,
		TradeAllowCount: s.TradeAllowCount,
		GradeQuality:    s.GradeQuality,
		EndDate:         s.EndDate,
	}
}
