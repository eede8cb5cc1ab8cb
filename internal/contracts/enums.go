// Package contracts holds the cross-component data model shared by C5
// through C12: cache shape, pick/position/alert records, and the two
// closed enums (cap tier, signal type) that regression-guard the RAG store.
package contracts

// CapTier is the market-cap bucket enum. Exactly one of these five values
// may ever be persisted (I2) — legacy labels like 소형_극소/소형/중형이상 are
// forbidden and must never be produced by MarketCapTier.
// ⭐ SSOT: 시가총액 구간 분류는 MarketCapTier 함수만 사용
type CapTier string

const (
	CapTierMicro    CapTier = "소형_300억미만"
	CapTierSmall    CapTier = "소형_1000억미만"
	CapTierMid      CapTier = "소형_3000억미만"
	CapTierLarge    CapTier = "중형"
	CapTierUnranked CapTier = "미분류"
)

// IsValid reports whether t is one of the five closed enum values (I2).
func (t CapTier) IsValid() bool {
	switch t {
	case CapTierMicro, CapTierSmall, CapTierMid, CapTierLarge, CapTierUnranked:
		return true
	}
	return false
}

// MarketCapTier classifies a market cap in KRW into its CapTier bucket per
// spec.md §3: <3e10 -> micro, <1e11 -> small, <3e11 -> mid, >=3e11 -> large,
// else unranked (non-positive or unknown cap).
func MarketCapTier(marketCapKRW int64) CapTier {
	switch {
	case marketCapKRW <= 0:
		return CapTierUnranked
	case marketCapKRW < 30_000_000_000:
		return CapTierMicro
	case marketCapKRW < 100_000_000_000:
		return CapTierSmall
	case marketCapKRW < 300_000_000_000:
		return CapTierMid
	default:
		return CapTierLarge
	}
}

// SignalType is the RAG-facing signal enum. The pipeline-internal category
// label 공시 MUST be normalized to DART_공시 before any RAG write (I3) —
// NormalizeSignalType is the only function permitted to do that mapping.
// ⭐ SSOT: RAG 저장 전 signal_type 정규화는 NormalizeSignalType만 사용
type SignalType string

const (
	SignalTypeFiling       SignalType = "DART_공시"
	SignalTypeTheme        SignalType = "테마"
	SignalTypeRotation     SignalType = "순환매"
	SignalTypeShortSqueeze SignalType = "숏스퀴즈"
	SignalTypeUnranked     SignalType = "미분류"
)

// IsValid reports whether s is one of the five closed enum values (I3).
func (s SignalType) IsValid() bool {
	switch s {
	case SignalTypeFiling, SignalTypeTheme, SignalTypeRotation, SignalTypeShortSqueeze, SignalTypeUnranked:
		return true
	}
	return false
}

// Category is the pipeline-internal label a stage-2/stage-3 candidate or
// pick carries. 공시 is the raw label that NormalizeSignalType maps away
// from before any RAG write — it must never appear in a SignalType value.
type Category string

const (
	CategoryFiling       Category = "공시"
	CategoryTheme        Category = "테마"
	CategoryRotation     Category = "순환매"
	CategoryShortSqueeze Category = "숏스퀴즈"
)

// NormalizeSignalType maps a pipeline Category to its RAG SignalType,
// applying the one mandatory substitution: 공시 -> DART_공시 (I3).
func NormalizeSignalType(c Category) SignalType {
	switch c {
	case CategoryFiling:
		return SignalTypeFiling
	case CategoryTheme:
		return SignalTypeTheme
	case CategoryRotation:
		return SignalTypeRotation
	case CategoryShortSqueeze:
		return SignalTypeShortSqueeze
	default:
		return SignalTypeUnranked
	}
}

// PickType distinguishes same-session exits from overnight holds (glossary).
type PickType string

const (
	PickTypeDayTrade PickType = "day_trade"
	PickTypeSwing    PickType = "swing"
)

// DerivePickType implements the hard invariant from spec.md §3: category in
// {filing, theme} -> day_trade, else swing (I5).
func DerivePickType(c Category) PickType {
	switch c {
	case CategoryFiling, CategoryTheme:
		return PickTypeDayTrade
	default:
		return PickTypeSwing
	}
}

// TriggerSource identifies what fired an alert or opened a position.
type TriggerSource string

const (
	TriggerVolume    TriggerSource = "volume"
	TriggerRate      TriggerSource = "rate"
	TriggerWebsocket TriggerSource = "websocket"
	TriggerGapUp     TriggerSource = "gap_up"
	TriggerWatchlist TriggerSource = "watchlist"
)

// TradingMode is the broker mode a position was opened under.
type TradingMode string

const (
	ModeVTS  TradingMode = "VTS"
	ModeREAL TradingMode = "REAL"
)

// CloseReason enumerates why a position left the open-positions table.
type CloseReason string

const (
	CloseTakeProfit1  CloseReason = "take_profit_1"
	CloseTakeProfit2  CloseReason = "take_profit_2"
	CloseStopLoss     CloseReason = "stop_loss"
	CloseTrailingStop CloseReason = "trailing_stop"
	CloseForceClose   CloseReason = "force_close"
	CloseFinalClose   CloseReason = "final_close"
	CloseManual       CloseReason = "manual"
)

// MarketRegime is C6 stage-1's and C7's classification of the day's tape.
type MarketRegime string

const (
	RegimeRiskOn  MarketRegime = "리스크온"
	RegimeRiskOff MarketRegime = "리스크오프"
	RegimeNeutral MarketRegime = "중립"

	RegimeBull     MarketRegime = "강세장"
	RegimeBearFlat MarketRegime = "약세장/횡보"
	RegimeSideways MarketRegime = "횡보"
)

// AlertType enumerates C8's four alert conditions.
type AlertType string

const (
	AlertPriceTarget   AlertType = "가격도달_목표"
	AlertPriceStop     AlertType = "가격도달_손절"
	AlertBidWall       AlertType = "매수벽"
	AlertSurgeMomentum AlertType = "급등모멘텀"
)

// OrderbookStrength is C8.1's three-way order-book classification.
type OrderbookStrength string

const (
	OrderbookStrong  OrderbookStrength = "강세"
	OrderbookNeutral OrderbookStrength = "중립"
	OrderbookWeak    OrderbookStrength = "약세"
)

// Confidence is C12's principle-extraction confidence tier.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)
