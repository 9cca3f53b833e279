package lostark

// SearchOption is one option filter entry of an auction search request.
// FirstOption/SecondOption are the marketplace's option identifier pair.
type SearchOption struct {
	FirstOption  int `json:"FirstOption"`
	SecondOption int `json:"SecondOption,omitempty"`
	MinValue     int `json:"MinValue,omitempty"`
	MaxValue     int `json:"MaxValue,omitempty"`
}

// SearchRequest mirrors the developer API auction search payload. A condition
// file entry is exactly this shape minus Sort/SortCondition/PageNo, which the
// ingestion loop owns.
type SearchRequest struct {
	CategoryCode     int            `json:"CategoryCode"`
	ItemTier         int            `json:"ItemTier,omitempty"`
	ItemGrade        string         `json:"ItemGrade,omitempty"`
	ItemLevelMin     int            `json:"ItemLevelMin,omitempty"`
	ItemLevelMax     int            `json:"ItemLevelMax,omitempty"`
	ItemGradeQuality int            `json:"ItemGradeQuality,omitempty"`
	ItemName         string         `json:"ItemName,omitempty"`
	EtcOptions       []SearchOption `json:"EtcOptions,omitempty"`
	SkillOptions     []SearchOption `json:"SkillOptions,omitempty"`
	Sort             string         `json:"Sort,omitempty"`
	SortCondition    string         `json:"SortCondition,omitempty"`
	PageNo           int            `json:"PageNo"`
}

// SearchResponse is one page of auction search results.
type SearchResponse struct {
	PageNo     int          `json:"PageNo"`
	PageSize   int          `json:"PageSize"`
	TotalCount int          `json:"TotalCount"`
	Items      []SearchItem `json:"Items"`
}

// SearchItem is one raw auction entry as returned by the developer API.
type SearchItem struct {
	Name         string       `json:"Name"`
	Grade        string       `json:"Grade"`
	Tier         int          `json:"Tier"`
	Icon         string       `json:"Icon"`
	GradeQuality int          `json:"GradeQuality"`
	AuctionInfo  AuctionInfo  `json:"AuctionInfo"`
	Options      []ItemOption `json:"Options"`
}

// AuctionInfo carries the price and lifetime fields of an auction entry.
// BuyPrice is nullable: bid-only auctions have no instant-buy price.
type AuctionInfo struct {
	StartPrice      float64  `json:"StartPrice"`
	BuyPrice        *float64 `json:"BuyPrice"`
	BidPrice        float64  `json:"BidPrice"`
	BidStartPrice   float64  `json:"BidStartPrice"`
	BidCount        int      `json:"BidCount"`
	EndDate         string   `json:"EndDate"`
	TradeAllowCount int      `json:"TradeAllowCount"`
	IsCompetitive   bool     `json:"IsCompetitive"`
	UpgradeLevel    int      `json:"UpgradeLevel"`
}

// ItemOption is one option line of an auction entry.
type ItemOption struct {
	Type              string  `json:"Type"`
	OptionName        string  `json:"OptionName"`
	OptionNameTripod  string  `json:"OptionNameTripod"`
	Value             float64 `json:"Value"`
	IsPenalty         bool    `json:"IsPenalty"`
	ClassName         string  `json:"ClassName"`
	IsValuePercentage bool    `json:"IsValuePercentage"`
}

// SourceParams is the retained blob stored on every listing, sufficient to
// rebuild a single-item-scoped front-site query for re-verification.
type SourceParams struct {
	ItemName         string         `json:"ItemName"`
	CategoryCode     int            `json:"CategoryCode"`
	ItemTier         int            `json:"ItemTier,omitempty"`
	ItemGrade        string         `json:"ItemGrade,omitempty"`
	ItemGradeQuality int            `json:"ItemGradeQuality,omitempty"`
	EtcOptions       []SearchOption `json:"EtcOptions,omitempty"`
	SkillOptions     []SearchOption `json:"SkillOptions,omitempty"`
}
