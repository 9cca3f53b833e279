package tracker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"time"

	"lostark-auction-noti/internal/config"
	"lostark-auction-noti/internal/models"
	"lostark-auction-noti/internal/notify"
	"lostark-auction-noti/internal/services/lostark"
	"lostark-auction-noti/internal/store"
)

// SearchClient fetches one page of auction search results.
type SearchClient interface {
	SearchAuctionItems(ctx context.Context, req *lostark.SearchRequest) (*lostark.SearchResponse, error)
}

// CandidateFetcher re-scrapes candidates for a listing's source parameters.
type CandidateFetcher interface {
	FetchCandidates(ctx context.Context, sourceParams string) ([]lostark.ScrapedItem, error)
}

type Options struct {
	// ThresholdRatio bounds the near-lowest band: listings priced at or
	// below currentLowest*ThresholdRatio are considered. Defaults to 1.2.
	ThresholdRatio float64

	// MaxPages caps pagination per condition. Ingestion normally stops when
	// the accumulated count reaches TotalCount; the cap is a guard against a
	// runaway result set. Defaults to 10.
	MaxPages int

	// NotifyNewListings enables the per-listing discovery path in addition
	// to lowest-price events.
	NotifyNewListings bool

	// BuyServerBaseURL is the base of the purchase deep link. Empty disables
	// deep links entirely.
	BuyServerBaseURL string
}

// Engine is the per-run pipeline: paginate search results into the transient
// store, then evaluate each condition's lowest price against the durable
// record and notify on improvement.
type Engine struct {
	store    *store.Store
	client   SearchClient
	scraper  CandidateFetcher
	notifier notify.Notifier
	logger   *log.Logger
	opts     Options
}

func NewEngine(st *store.Store, client SearchClient, scraper CandidateFetcher, notifier notify.Notifier, logger *log.Logger, opts Options) *Engine {
	if opts.ThresholdRatio <= 0 {
		opts.ThresholdRatio = 1.2
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = 10
	}
	if logger == nil {
		logger = log.Default()
	}

	return &Engine{
		store:    st,
		client:   client,
		scraper:  scraper,
		notifier: notifier,
		logger:   logger,
		opts:     opts,
	}
}

// RunOnce executes one full cycle: ingestion for every condition, then
// evaluation for every condition. Each condition sits behind its own failure
// boundary, so a failing condition never takes down the rest of the run.
func (e *Engine) RunOnce(ctx context.Context, conditions []config.Condition) {
	for _, cond := range conditions {
		if err := e.ingestCondition(ctx, cond); err != nil {
			e.logger.Printf("[x] search error - %s: %v", cond.Name, err)
		}
	}

	now := time.Now().In(lostark.KST)
	for _, cond := range conditions {
		if err := e.EvaluateCondition(ctx, cond.Name, now); err != nil {
			e.logger.Printf("[x] evaluate error - %s: %v", cond.Name, err)
		}
	}
}

// ingestCondition pages through the search API for one condition and replaces
// its transient listings. A network error aborts this condition's loop only;
// a malformed record is skipped and ingestion continues.
func (e *Engine) ingestCondition(ctx context.Context, cond config.Condition) error {
	req := *cond.Request
	req.Sort = "BUY_PRICE"
	req.SortCondition = "ASC"

	var listings []models.AuctionListing
	accumulated := 0

	for page := 1; ; page++ {
		req.PageNo = page

		resp, err := e.client.SearchAuctionItems(ctx, &req)
		if err != nil {
			return fmt.Errorf("page %d: %w", page, err)
		}

		for i := range resp.Items {
			listing, err := lostark.FromSearchItem(cond.Name, cond.Request, &resp.Items[i])
			if err != nil {
				if errors.Is(err, lostark.ErrParse) {
					e.logger.Printf("skip record for %s: %v", cond.Name, err)
					continue
				}
				return err
			}
			listings = append(listings, *listing)
		}

		accumulated += resp.PageSize
		if accumulated >= resp.TotalCount {
			break
		}
		if page >= e.opts.MaxPages {
			e.logger.Printf("page cap %d reached for %s (%d of %d results)",
				e.opts.MaxPages, cond.Name, accumulated, resp.TotalCount)
			break
		}
	}

	if err := e.store.ReplaceListings(ctx, cond.Name, listings); err != nil {
		return err
	}

	e.logger.Printf("ingested %d listings for %s", len(listings), cond.Name)
	return nil
}

// EvaluateCondition runs the decision logic for one condition at the given
// evaluation time.
func (e *Engine) EvaluateCondition(ctx context.Context, conditionName string, now time.Time) error {
	active, err := e.store.ActiveListings(ctx, conditionName, now)
	if err != nil {
		return err
	}
	if len(active) == 0 {
		e.logger.Printf("no active items for condition %s", conditionName)
		return nil
	}

	priced := active[:0:0]
	for _, listing := range active {
		if listing.BuyPrice > 0 {
			priced = append(priced, listing)
		}
	}
	if len(priced) == 0 {
		e.logger.Printf("no active items for condition %s", conditionName)
		return nil
	}

	currentLowest := priced[0].BuyPrice
	lowestListing := &priced[0]
	for i := range priced {
		if priced[i].BuyPrice < currentLowest {
			currentLowest = priced[i].BuyPrice
			lowestListing = &priced[i]
		}
	}

	// Inclusive near-lowest band; the minimum always qualifies.
	threshold := currentLowest * e.opts.ThresholdRatio
	var filtered []models.AuctionListing
	for _, listing := range priced {
		if listing.BuyPrice <= threshold {
			filtered = append(filtered, listing)
		}
	}

	previous, found, err := e.store.LowestPrice(ctx, conditionName)
	if err != nil {
		return err
	}

	if !found || currentLowest < previous {
		e.handleLowestPriceEvent(ctx, conditionName, previous, found, currentLowest, lowestListing)
	}

	if e.opts.NotifyNewListings {
		e.notifyNewListings(ctx, conditionName, filtered)
	}

	return nil
}

// handleLowestPriceEvent resolves a purchase link, notifies, and persists the
// improved price. The persist happens regardless of notification delivery:
// state updates are authoritative even when the message is lost.
func (e *Engine) handleLowestPriceEvent(ctx context.Context, conditionName string, previous float64, hadPrevious bool, currentLowest float64, lowestListing *models.AuctionListing) {
	buyLink := e.resolveBuyLink(ctx, lowestListing)

	var previousPtr *float64
	if hadPrevious {
		previousPtr = &previous
	}

	if err := e.notifier.NotifyLowestPrice(ctx, conditionName, previousPtr, currentLowest, lowestListing, buyLink); err != nil {
		e.logger.Printf("lowest price notification failed for %s: %v", conditionName, err)
	}

	updated, err := e.store.SetLowestPriceIfLower(ctx, conditionName, currentLowest)
	if err != nil {
		e.logger.Printf("persist lowest price failed for %s: %v", conditionName, err)
		return
	}
	if !updated {
		e.logger.Printf("lowest price for %s already at or below %s (concurrent run?)",
			conditionName, strconv.FormatFloat(currentLowest, 'f', -1, 64))
		return
	}

	e.logger.Printf("lowest price for %s updated to %s",
		conditionName, strconv.FormatFloat(currentLowest, 'f', -1, 64))
}

// notifyNewListings dedups the near-lowest set against the notified table and
// announces listings seen for the first time. Marking happens even when
// delivery failed, so a flaky webhook cannot cause repeat notifications.
func (e *Engine) notifyNewListings(ctx context.Context, conditionName string, filtered []models.AuctionListing) {
	for i := range filtered {
		listing := &filtered[i]
		fingerprint := Fingerprint(listing)

		seen, err := e.store.IsNotified(ctx, fingerprint)
		if err != nil {
			e.logger.Printf("notified lookup failed for %s: %v", conditionName, err)
			continue
		}
		if seen {
			continue
		}

		if err := e.notifier.NotifyNewListing(ctx, conditionName, listing); err != nil {
			e.logger.Printf("new listing notification failed for %s: %v", conditionName, err)
		}
		if err := e.store.MarkNotified(ctx, fingerprint); err != nil {
			e.logger.Printf("mark notified failed for %s: %v", conditionName, err)
		}
	}
}

// resolveBuyLink re-scrapes candidates for the listing and builds the
// purchase deep link. Any failure here degrades to an empty link; the
// lowest-price notification still goes out.
func (e *Engine) resolveBuyLink(ctx context.Context, listing *models.AuctionListing) string {
	if e.scraper == nil || e.opts.BuyServerBaseURL == "" || listing.SourceParams == "" {
		return ""
	}

	candidates, err := e.scraper.FetchCandidates(ctx, listing.SourceParams)
	if err != nil {
		e.logger.Printf("re-verification scrape failed for %q: %v", listing.ItemName, err)
		return ""
	}

	productID, err := ResolveProductID(listing, candidates)
	if err != nil {
		e.logger.Printf("cross-source match failed for %q: %v", listing.ItemName, err)
		return ""
	}

	query := url.Values{}
	query.Set("itemno", productID)
	query.Set("price", strconv.Itoa(int(listing.BuyPrice)))
	return e.opts.BuyServerBaseURL + "/buy?" + query.Encode()
}
