package tracker

import (
	"context"
	"fmt"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"lostark-auction-noti/internal/config"
	"lostark-auction-noti/internal/models"
	"lostark-auction-noti/internal/services/lostark"
	"lostark-auction-noti/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.AuctionListing{},
		&models.LowestPriceRecord{},
		&models.NotifiedItem{},
	))

	return store.New(db)
}

type lowestCall struct {
	condition string
	previous  *float64
	current   float64
	buyLink   string
}

type fakeNotifier struct {
	lowest      []lowestCall
	newListings []string
	err         error
}

func (f *fakeNotifier) NotifyLowestPrice(_ context.Context, conditionName string, previous *float64, current float64, _ *models.AuctionListing, buyLink string) error {
	f.lowest = append(f.lowest, lowestCall{conditionName, previous, current, buyLink})
	return f.err
}

func (f *fakeNotifier) NotifyNewListing(_ context.Context, _ string, listing *models.AuctionListing) error {
	f.newListings = append(f.newListings, listing.ItemName)
	return f.err
}

type fakeScraper struct {
	candidates []lostark.ScrapedItem
	err        error
	calls      int
}

func (f *fakeScraper) FetchCandidates(context.Context, string) ([]lostark.ScrapedItem, error) {
	f.calls++
	return f.candidates, f.err
}

type fakeSearchClient struct {
	pages []*lostark.SearchResponse
	seen  []int
}

func (f *fakeSearchClient) SearchAuctionItems(_ context.Context, req *lostark.SearchRequest) (*lostark.SearchResponse, error) {
	f.seen = append(f.seen, req.PageNo)
	if req.PageNo > len(f.pages) {
		return nil, fmt.Errorf("no page %d", req.PageNo)
	}
	return f.pages[req.PageNo-1], nil
}

var testNow = time.Date(2026, 1, 2, 12, 0, 0, 0, lostark.KST)

func testListing(name string, price float64) models.AuctionListing {
	return models.AuctionListing{
		ItemName:     name,
		OptionInfo:   "깨달음 - 5",
		BuyPrice:     price,
		EndDate:      testNow.Add(time.Hour),
		SourceParams: `{"ItemName":"` + name + `"}`,
	}
}

func newTestEngine(t *testing.T, st *store.Store, notifier *fakeNotifier, scraper CandidateFetcher, opts Options) *Engine {
	t.Helper()
	return NewEngine(st, nil, scraper, notifier, log.New(log.Writer(), "[test] ", 0), opts)
}

func TestEvaluateNoActiveListings(t *testing.T) {
	st := newTestStore(t)
	notifier := &fakeNotifier{}
	engine := newTestEngine(t, st, notifier, nil, Options{NotifyNewListings: true})
	ctx := context.Background()

	require.NoError(t, engine.EvaluateCondition(ctx, "X", testNow))

	// only expired listings is the same outcome
	require.NoError(t, st.ReplaceListings(ctx, "X", []models.AuctionListing{
		{ItemName: "ended", BuyPrice: 50, EndDate: testNow.Add(-time.Minute)},
	}))
	require.NoError(t, engine.EvaluateCondition(ctx, "X", testNow))

	assert.Empty(t, notifier.lowest)
	assert.Empty(t, notifier.newListings)

	_, found, err := st.LowestPrice(ctx, "X")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestEvaluateFirstObservation(t *testing.T) {
	st := newTestStore(t)
	notifier := &fakeNotifier{}
	engine := newTestEngine(t, st, notifier, nil, Options{})
	ctx := context.Background()

	require.NoError(t, st.ReplaceListings(ctx, "X", []models.AuctionListing{
		testListing("a", 100),
		testListing("b", 110),
		testListing("c", 115),
		testListing("d", 130),
	}))

	require.NoError(t, engine.EvaluateCondition(ctx, "X", testNow))

	require.Len(t, notifier.lowest, 1)
	assert.Nil(t, notifier.lowest[0].previous)
	assert.Equal(t, 100.0, notifier.lowest[0].current)

	price, found, err := st.LowestPrice(ctx, "X")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 100.0, price)
}

func TestThresholdBoundaryInclusive(t *testing.T) {
	st := newTestStore(t)
	notifier := &fakeNotifier{}
	engine := newTestEngine(t, st, notifier, nil, Options{NotifyNewListings: true})
	ctx := context.Background()

	require.NoError(t, st.ReplaceListings(ctx, "X", []models.AuctionListing{
		testListing("lowest", 100),
		testListing("at-threshold", 120),
		testListing("above-threshold", 120.01),
	}))

	require.NoError(t, engine.EvaluateCondition(ctx, "X", testNow))

	assert.ElementsMatch(t, []string{"lowest", "at-threshold"}, notifier.newListings)
}

func TestEvaluateIdempotentWhenUnchanged(t *testing.T) {
	st := newTestStore(t)
	notifier := &fakeNotifier{}
	engine := newTestEngine(t, st, notifier, nil, Options{})
	ctx := context.Background()

	require.NoError(t, st.ReplaceListings(ctx, "X", []models.AuctionListing{
		testListing("a", 100),
		testListing("b", 110),
	}))

	require.NoError(t, engine.EvaluateCondition(ctx, "X", testNow))
	require.Len(t, notifier.lowest, 1)

	// unchanged listing set: previous == current, no second event
	require.NoError(t, engine.EvaluateCondition(ctx, "X", testNow))
	assert.Len(t, notifier.lowest, 1)
}

func TestEvaluateImprovementInvokesMatcher(t *testing.T) {
	st := newTestStore(t)
	notifier := &fakeNotifier{}

	match := testListing("cheap", 95)
	scraper := &fakeScraper{candidates: []lostark.ScrapedItem{{
		ProductID:  "555000111",
		Name:       match.ItemName,
		OptionInfo: match.OptionInfo,
		BuyPrice:   match.BuyPrice,
		EndDate:    match.EndDate.Add(2 * time.Minute),
	}}}

	engine := newTestEngine(t, st, notifier, scraper, Options{BuyServerBaseURL: "http://localhost:50000"})
	ctx := context.Background()

	_, err := st.SetLowestPriceIfLower(ctx, "X", 100)
	require.NoError(t, err)

	require.NoError(t, st.ReplaceListings(ctx, "X", []models.AuctionListing{
		match,
		testListing("pricey", 140),
	}))

	require.NoError(t, engine.EvaluateCondition(ctx, "X", testNow))

	require.Len(t, notifier.lowest, 1)
	require.NotNil(t, notifier.lowest[0].previous)
	assert.Equal(t, 100.0, *notifier.lowest[0].previous)
	assert.Equal(t, 95.0, notifier.lowest[0].current)
	assert.Equal(t, 1, scraper.calls)
	assert.Contains(t, notifier.lowest[0].buyLink, "itemno=555000111")
	assert.Contains(t, notifier.lowest[0].buyLink, "price=95")

	price, _, err := st.LowestPrice(ctx, "X")
	require.NoError(t, err)
	assert.Equal(t, 95.0, price)
}

func TestEvaluateMatchFailureStillNotifies(t *testing.T) {
	st := newTestStore(t)
	notifier := &fakeNotifier{}
	scraper := &fakeScraper{err: fmt.Errorf("front site down")}
	engine := newTestEngine(t, st, notifier, scraper, Options{BuyServerBaseURL: "http://localhost:50000"})
	ctx := context.Background()

	require.NoError(t, st.ReplaceListings(ctx, "X", []models.AuctionListing{testListing("a", 100)}))
	require.NoError(t, engine.EvaluateCondition(ctx, "X", testNow))

	require.Len(t, notifier.lowest, 1)
	assert.Empty(t, notifier.lowest[0].buyLink)

	price, found, err := st.LowestPrice(ctx, "X")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 100.0, price)
}

func TestEvaluateTiesFireSingleEvent(t *testing.T) {
	st := newTestStore(t)
	notifier := &fakeNotifier{}
	engine := newTestEngine(t, st, notifier, nil, Options{})
	ctx := context.Background()

	require.NoError(t, st.ReplaceListings(ctx, "X", []models.AuctionListing{
		testListing("tie-1", 100),
		testListing("tie-2", 100),
		testListing("tie-3", 100),
	}))

	require.NoError(t, engine.EvaluateCondition(ctx, "X", testNow))

	assert.Len(t, notifier.lowest, 1, "ties at the minimum fire exactly one event")
}

func TestEvaluateStoredZeroIsNotAbsent(t *testing.T) {
	st := newTestStore(t)
	notifier := &fakeNotifier{}
	engine := newTestEngine(t, st, notifier, nil, Options{})
	ctx := context.Background()

	_, err := st.SetLowestPriceIfLower(ctx, "X", 0)
	require.NoError(t, err)

	require.NoError(t, st.ReplaceListings(ctx, "X", []models.AuctionListing{testListing("a", 100)}))
	require.NoError(t, engine.EvaluateCondition(ctx, "X", testNow))

	assert.Empty(t, notifier.lowest, "a stored zero is a prior record, not absence")
}

func TestNewListingDedupAcrossRuns(t *testing.T) {
	st := newTestStore(t)
	notifier := &fakeNotifier{}
	engine := newTestEngine(t, st, notifier, nil, Options{NotifyNewListings: true})
	ctx := context.Background()

	batch := []models.AuctionListing{testListing("a", 100), testListing("b", 105)}
	require.NoError(t, st.ReplaceListings(ctx, "X", batch))
	require.NoError(t, engine.EvaluateCondition(ctx, "X", testNow))
	assert.Len(t, notifier.newListings, 2)

	// same listings reappear in a later run: no duplicate notices
	require.NoError(t, st.ReplaceListings(ctx, "X", batch))
	require.NoError(t, engine.EvaluateCondition(ctx, "X", testNow))
	assert.Len(t, notifier.newListings, 2)

	// a changed price is a new identity
	changed := batch
	changed[1].BuyPrice = 104
	require.NoError(t, st.ReplaceListings(ctx, "X", changed))
	require.NoError(t, engine.EvaluateCondition(ctx, "X", testNow))
	assert.Len(t, notifier.newListings, 3)
}

func TestNotificationFailureDoesNotRollBackState(t *testing.T) {
	st := newTestStore(t)
	notifier := &fakeNotifier{err: fmt.Errorf("webhook 500")}
	engine := newTestEngine(t, st, notifier, nil, Options{NotifyNewListings: true})
	ctx := context.Background()

	require.NoError(t, st.ReplaceListings(ctx, "X", []models.AuctionListing{testListing("a", 100)}))
	require.NoError(t, engine.EvaluateCondition(ctx, "X", testNow))

	price, found, err := st.LowestPrice(ctx, "X")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 100.0, price)

	seen, err := st.IsNotified(ctx, Fingerprint(&models.AuctionListing{
		ItemName:   "a",
		OptionInfo: "깨달음 - 5",
		BuyPrice:   100,
		EndDate:    testNow.Add(time.Hour),
	}))
	require.NoError(t, err)
	assert.True(t, seen, "delivery failure must not unmark the listing")
}

func searchPage(totalCount, pageSize int, items ...lostark.SearchItem) *lostark.SearchResponse {
	return &lostark.SearchResponse{
		TotalCount: totalCount,
		PageSize:   pageSize,
		Items:      items,
	}
}

func apiItem(name string, price float64) lostark.SearchItem {
	p := price
	return lostark.SearchItem{
		Name: name,
		AuctionInfo: lostark.AuctionInfo{
			BuyPrice: &p,
			EndDate:  "2026-01-02T13:00:00",
		},
	}
}

func TestIngestPaginatesUntilTotal(t *testing.T) {
	st := newTestStore(t)
	client := &fakeSearchClient{pages: []*lostark.SearchResponse{
		searchPage(5, 3, apiItem("a", 100), apiItem("b", 110), apiItem("c", 120)),
		searchPage(5, 3, apiItem("d", 130), apiItem("e", 140)),
	}}
	engine := NewEngine(st, client, nil, &fakeNotifier{}, nil, Options{})
	ctx := context.Background()

	cond := config.Condition{Name: "X", Request: &lostark.SearchRequest{CategoryCode: 200010}}
	require.NoError(t, engine.ingestCondition(ctx, cond))

	assert.Equal(t, []int{1, 2}, client.seen)

	active, err := st.ActiveListings(ctx, "X", testNow)
	require.NoError(t, err)
	assert.Len(t, active, 5)
}

func TestIngestSkipsMalformedRecords(t *testing.T) {
	st := newTestStore(t)

	broken := lostark.SearchItem{Name: "no-buy-price", AuctionInfo: lostark.AuctionInfo{EndDate: "2026-01-02T13:00:00"}}
	client := &fakeSearchClient{pages: []*lostark.SearchResponse{
		searchPage(3, 3, apiItem("a", 100), broken, apiItem("b", 110)),
	}}
	engine := NewEngine(st, client, nil, &fakeNotifier{}, nil, Options{})
	ctx := context.Background()

	cond := config.Condition{Name: "X", Request: &lostark.SearchRequest{CategoryCode: 200010}}
	require.NoError(t, engine.ingestCondition(ctx, cond))

	active, err := st.ActiveListings(ctx, "X", testNow)
	require.NoError(t, err)
	assert.Len(t, active, 2)
}

func TestIngestRespectsPageCap(t *testing.T) {
	st := newTestStore(t)

	// total claims 100 across many pages; the cap stops the loop
	pages := make([]*lostark.SearchResponse, 5)
	for i := range pages {
		pages[i] = searchPage(100, 1, apiItem(fmt.Sprintf("item-%d", i), float64(100+i)))
	}
	client := &fakeSearchClient{pages: pages}
	engine := NewEngine(st, client, nil, &fakeNotifier{}, nil, Options{MaxPages: 3})
	ctx := context.Background()

	cond := config.Condition{Name: "X", Request: &lostark.SearchRequest{CategoryCode: 200010}}
	require.NoError(t, engine.ingestCondition(ctx, cond))

	assert.Equal(t, []int{1, 2, 3}, client.seen)
}

func TestIngestNetworkErrorAbortsCondition(t *testing.T) {
	st := newTestStore(t)

	// second page fails: the condition keeps its previous transient rows
	client := &fakeSearchClient{pages: []*lostark.SearchResponse{
		searchPage(10, 3, apiItem("a", 100), apiItem("b", 110), apiItem("c", 120)),
	}}
	engine := NewEngine(st, client, nil, &fakeNotifier{}, nil, Options{})
	ctx := context.Background()

	require.NoError(t, st.ReplaceListings(ctx, "X", []models.AuctionListing{testListing("old", 90)}))

	cond := config.Condition{Name: "X", Request: &lostark.SearchRequest{CategoryCode: 200010}}
	err := engine.ingestCondition(ctx, cond)
	require.Error(t, err)

	active, err := st.ActiveListings(ctx, "X", testNow)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "old", active[0].ItemName)
}
