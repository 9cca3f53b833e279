package lostark

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"lostark-auction-noti/internal/models"
)

// ErrParse marks a raw record that cannot be normalized into a listing.
// Callers skip the single record and keep ingesting.
var ErrParse = errors.New("malformed auction record")

// KST is the marketplace's server timezone. End timestamps arrive without an
// offset and are local to it.
var KST = time.FixedZone("KST", 9*60*60)

const endDateLayout = "2006-01-02T15:04:05"

// ParseEndDate parses an end timestamp from either source, with or without
// fractional seconds, interpreting it as KST.
func ParseEndDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(endDateLayout, s, KST)
	if err != nil {
		return time.Time{}, fmt.Errorf("end date %q: %w", s, ErrParse)
	}
	return t, nil
}

// SerializeOptions renders options as canonical order-stable text: one option
// per line, sorted, `NAME - VALUE` with a trailing % for percentage values.
// Both data sources serialize through here so later multiset comparison does
// not depend on source ordering.
func SerializeOptions(opts []ItemOption) string {
	lines := make([]string, 0, len(opts))
	for _, opt := range opts {
		if opt.OptionName == "" {
			continue
		}
		line := opt.OptionName + " - " + formatOptionValue(opt.Value)
		if opt.IsValuePercentage {
			line += "%"
		}
		lines = append(lines, line)
	}
	sort.Strings(lines)
	return strings.Join(lines, "\n")
}

func formatOptionValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FromSearchItem normalizes one developer API record into a canonical listing
// for the given condition. It fails with an ErrParse-wrapped error when the
// name, buy price, or end timestamp is absent or malformed.
func FromSearchItem(conditionName string, req *SearchRequest, item *SearchItem) (*models.AuctionListing, error) {
	if item.Name == "" {
		return nil, fmt.Errorf("missing item name: %w", ErrParse)
	}
	if item.AuctionInfo.BuyPrice == nil {
		return nil, fmt.Errorf("item %q has no buy price: %w", item.Name, ErrParse)
	}

	endDate, err := ParseEndDate(item.AuctionInfo.EndDate)
	if err != nil {
		return nil, fmt.Errorf("item %q: %w", item.Name, err)
	}

	sourceParams, err := buildSourceParams(req, item.Name)
	if err != nil {
		return nil, fmt.Errorf("item %q source params: %w", item.Name, err)
	}

	return &models.AuctionListing{
		ConditionName:   conditionName,
		ItemName:        item.Name,
		OptionInfo:      SerializeOptions(item.Options),
		StartPrice:      item.AuctionInfo.StartPrice,
		BidPrice:        item.AuctionInfo.BidPrice,
		BuyPrice:        *item.AuctionInfo.BuyPrice,
		TradeAllowCount: item.AuctionInfo.TradeAllowCount,
		GradeQuality:    item.GradeQuality,
		EndDate:         endDate,
		Icon:            item.Icon,
		SourceParams:    sourceParams,
	}, nil
}

// buildSourceParams narrows the search request to the single item, so a later
// re-verification scrape returns only candidates comparable to this listing.
func buildSourceParams(req *SearchRequest, itemName string) (string, error) {
	params := SourceParams{
		ItemName:         itemName,
		CategoryCode:     req.CategoryCode,
		ItemTier:         req.ItemTier,
		ItemGrade:        req.ItemGrade,
		ItemGradeQuality: req.ItemGradeQuality,
		EtcOptions:       req.EtcOptions,
		SkillOptions:     req.SkillOptions,
	}

	data, err := json.Marshal(params)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
