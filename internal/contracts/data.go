package contracts

import "time"

// RequiredCacheKeys is the exact key set a Cache must carry after C5
// completes (I1). Enumerated here so C5 and its tests share one list.
var RequiredCacheKeys = []string{
	"collected_at",
	"dart_data",
	"market_data",
	"news_naver",
	"news_newsapi",
	"news_global_rss",
	"price_data",
	"sector_etf_data",
	"short_data",
	"event_calendar",
	"closing_strength_result",
	"volume_surge_result",
	"fund_concentration_result",
	"geopolitics_data",
	"success_flags",
}

// FilingRecord is one DART disclosure row inside Cache.DartData.
type FilingRecord struct {
	StockCode   string
	StockName   string
	Title       string
	BodySummary string
	FiledAt     time.Time
}

// MarketData is the fixed three-sub-key nested mapping from spec.md §3.
type MarketData struct {
	USMarket    USMarketData
	Commodities []NamedChange
	Forex       []NamedChange
}

// USMarketData carries the pre-filter C6 stage 1 applies (|delta| >= 2%).
type USMarketData struct {
	Sectors []NamedChange
}

// NamedChange is a generic (name, change-rate) pair used across several
// Cache sub-maps (US sectors, commodities, forex).
type NamedChange struct {
	Name       string
	ChangeRate float64
}

// PriceSnapshot is the by_code/by_name priced-view of one ticker as
// collected at 06:00.
type PriceSnapshot struct {
	StockCode    string
	StockName    string
	Sector       string
	MarketCapKRW int64
	Close        float64
	ChangeRate   float64
	Volume       int64
}

// PriceData is Cache.PriceData's shape. A nil *PriceData (not an empty
// struct) signals hard-unavailable per spec.md §3 — callers must check for
// nil before reading any field.
type PriceData struct {
	ByCode        map[string]PriceSnapshot
	ByName        map[string]PriceSnapshot
	BySector      map[string][]PriceSnapshot
	UpperLimit    []PriceSnapshot
	TopGainers    []PriceSnapshot
	TopLosers     []PriceSnapshot
	Institutional []InvestorFlowRow
	Kospi         IndexSnapshot
	Kosdaq        IndexSnapshot
}

// InvestorFlowRow is one row of net institutional/foreign buying.
type InvestorFlowRow struct {
	StockCode       string
	InstitutionNet  int64
	ForeignNet      int64
	IndividualNet   int64
}

// IndexSnapshot is a KOSPI/KOSDAQ index reading.
type IndexSnapshot struct {
	Value      float64
	ChangeRate float64
}

// GeopoliticsEvent is one row of Cache.GeopoliticsData (supplemented
// feature; see SPEC_FULL.md §Supplemented Features item 2).
type GeopoliticsEvent struct {
	Country     string
	Headline    string
	ImpactScore float64 // signed, -1..1
}

// Cache is C5's single shared, process-wide, write-once-per-morning value
// (spec.md §3). NewsNaver/NewsNewsAPI are represented as a flat list here;
// a mapping-by-category form is a collector-internal detail the contract
// does not constrain (spec.md explicitly says "may be flat list or
// category -> list").
// ⭐ SSOT: 캐시의 정확한 키 집합은 RequiredCacheKeys와 이 구조체로만 정의
type Cache struct {
	CollectedAt time.Time

	DartData []FilingRecord
	MarketData MarketData

	NewsNaver     []NewsItem
	NewsNewsAPI   []NewsItem
	NewsGlobalRSS []NewsItem

	// PriceData is nil when the underlying price fetch failed — the one
	// contractual null in an otherwise empty-value-on-failure cache.
	PriceData *PriceData

	SectorETFData           []SectorETFRow
	ShortData               []ShortInterestRow
	EventCalendar           []CalendarEvent
	ClosingStrengthResult   []ClosingStrengthRow
	VolumeSurgeResult       []VolumeSurgeRow
	FundConcentrationResult []FundConcentrationRow
	GeopoliticsData         []GeopoliticsEvent

	SuccessFlags map[string]bool
}

// NewsItem is a collector-agnostic news/RSS record.
type NewsItem struct {
	Title     string
	Summary   string
	Source    string
	URL       string
	StockCode string // empty when not stock-specific
}

type SectorETFRow struct {
	Sector     string
	ChangeRate float64
	NetFlow    int64
}

type ShortInterestRow struct {
	StockCode      string
	ShortRatio     float64
	ShortBalanceQty int64
}

type CalendarEvent struct {
	Date        time.Time
	Description string
	StockCode   string
}

type ClosingStrengthRow struct {
	StockCode string
	Score     float64
}

type VolumeSurgeRow struct {
	StockCode  string
	VolumeRatio float64
}

type FundConcentrationRow struct {
	StockCode string
	Rank      int
	Score     float64
}

// IsFresh implements spec.md §4.5: true iff CollectedAt is set and now -
// CollectedAt <= maxAge.
func (c *Cache) IsFresh(now time.Time, maxAge time.Duration) bool {
	if c == nil || c.CollectedAt.IsZero() {
		return false
	}
	return now.Sub(c.CollectedAt) <= maxAge
}

// Candidate is C6 stage 2's output element, pre-final-pick.
type Candidate struct {
	StockName        string
	StockCode        string
	Reason           string
	MaterialStrength string // 상/중/하
	Category         Category
	CapTier          CapTier
}

// Pick is C6 stage 3's output element (spec.md §3 "Pick").
type Pick struct {
	Rank         int
	StockCode    string
	StockName    string
	Reason       string // <= 60 chars
	Category     Category
	TargetReturn string // "+5%" or the literal "상한가"
	StopLoss     string // "-3%" or a price with "원"
	IsTheme      bool
	EntryWindow  string
	CapTier      CapTier
}

// PickType derives the day_trade/swing classification (I5).
func (p Pick) PickType() PickType {
	return DerivePickType(p.Category)
}

// WatchlistEntry is C7's per-ticker metadata (spec.md §3, §4.7).
type WatchlistEntry struct {
	StockCode     string
	StockName     string
	PrevDayVolume int64 // clamped >= 1
	Priority      int
	Category      Category
}

// Position is an open position row (spec.md §3).
type Position struct {
	ID            string
	TradingID     string
	Ticker        string
	Name          string
	BuyTime       time.Time
	BuyPrice      int64 // won
	Qty           int64
	TriggerSource TriggerSource
	Mode          TradingMode
	PickType      PickType
	PeakPrice     int64
	StopLoss      int64 // won, absolute
	MarketEnv     MarketRegime
	Sector        string
}

// TradingHistoryEntry is Position plus its realized close (spec.md §3).
type TradingHistoryEntry struct {
	Position
	SellTime     *time.Time
	SellPrice    int64
	ProfitRate   float64 // percent, 2dp
	ProfitAmount int64   // won
	CloseReason  CloseReason
}

// IsOpen reports whether the row represents an open position (SellTime nil).
func (t TradingHistoryEntry) IsOpen() bool {
	return t.SellTime == nil
}

// AlertRecord is one emitted intraday alert (spec.md §3).
type AlertRecord struct {
	ID           string
	Ticker       string
	Name         string
	AlertTime    time.Time
	AlertDate    string // YYYYMMDD
	ChangeRate   float64
	DeltaRate    float64
	Source       TriggerSource
	PriceAtAlert int64
}

// PerformanceRow is the performance-tracker companion row created alongside
// every alert, keyed by alert ID (spec.md §3).
type PerformanceRow struct {
	AlertID string

	Done1d, Done3d, Done7d       bool
	TrackedDate1d, TrackedDate3d, TrackedDate7d string
	Price1d, Price3d, Price7d   float64
	Return1d, Return3d, Return7d float64 // nil semantics: zero value + Done flag
}

// RAGPattern is one write-only historical-outcome row (spec.md §3, §4.11).
type RAGPattern struct {
	Date        string // YYYYMMDD
	SignalType  SignalType
	StockName   string
	StockCode   string
	CapTier     CapTier
	WasPicked   bool
	PickRank    *int // nullable
	MaxReturn   float64
	Hit20Pct    bool
	HitUpper    bool
	PatternMemo string
}
