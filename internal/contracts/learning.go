package contracts

import "time"

// TradingPrinciple is the weekly principles-extractor's upserted row
// (spec.md §4.12), keyed by (TriggerSource, Action).
type TradingPrinciple struct {
	TriggerSource TriggerSource
	Action        string // always "buy" per spec.md §4.12
	TotalTrades   int
	Wins          int
	WinRate       float64
	Confidence    Confidence
	SupportTags   []string // merged in from trading_journal pattern tags
	UpdatedAt     time.Time
}

// ThemeAccuracyRow tracks, per theme tag, how often a theme-tagged pick
// actually moved materially within its entry window (supplemented feature,
// SPEC_FULL.md item 4).
type ThemeAccuracyRow struct {
	ThemeTag    string
	TotalPicks  int
	HitCount    int
	HitRate     float64
	UpdatedAt   time.Time
}

// SignalWeightRow is a write-once-per-period aggregate, keyed by its
// natural period, following the pattern described in spec.md §3 "Other
// tables".
type SignalWeightRow struct {
	Period     string // YYYYMMDD or YYYY-Www
	SignalType SignalType
	Weight     float64
	SampleSize int
}

// CompressionLayer is trading_journal's three-tier age-based compression
// state (spec.md §4.12).
type CompressionLayer int

const (
	LayerRaw        CompressionLayer = 1 // 0-7d
	LayerSummarized CompressionLayer = 2 // 8-30d
	LayerCompact    CompressionLayer = 3 // 31d+
)

// TradingJournalEntry is one synchronous retrospection row, written by C9
// on every position close (spec.md §4.12).
type TradingJournalEntry struct {
	TradingID         string
	ClosedAt          time.Time
	BuyMarketContext  string // stores KOSPI level at entry, consumed by index-stats aggregation
	SituationAnalysis string
	JudgmentEvaluation string
	Lessons           string
	PatternTags       []string
	OneLineSummary    string // the Layer-3 surviving field, <= 50 chars
	SummaryText       string // the Layer-2 summary, <= 80 chars
	CompressionLayer  CompressionLayer
}

// KospiIndexStatsRow is one 200-point KOSPI band's aggregate win rate
// (spec.md §4.12).
type KospiIndexStatsRow struct {
	BandLow   int // inclusive band floor, e.g. 2600
	BandHigh  int // exclusive band ceiling, e.g. 2800
	TradeCount int
	WinRate   float64
	AvgProfit float64
}

// ThemeEventHistoryRow aggregates RAG rows by theme tag and event type
// (supplemented feature, SPEC_FULL.md item 3).
type ThemeEventHistoryRow struct {
	Theme           string
	EventType       string
	Week            string // ISO week, e.g. "2026-W31"
	OccurrenceCount int
	AvgReturn       float64
	HitRate         float64
}
