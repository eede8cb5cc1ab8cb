// Package broker defines C4: the abstract broker gateway the core consumes.
// Concrete wire protocols (KIS REST/WebSocket) are collaborators behind this
// interface — see internal/broker/kis for the reference implementation.
package broker

import (
	"context"
	"time"
)

// PriceQuote is broker.get_price's contract (spec.md §4.4).
type PriceQuote struct {
	Name       string
	Last       int64
	Open       int64
	ChangePct  float64
	CumVolume  int64
}

// OrderbookLevel is one bid/ask rung.
type OrderbookLevel struct {
	Price int64
	Qty   int64
}

// Orderbook is broker.get_orderbook's contract (spec.md §4.4).
type Orderbook struct {
	Bids     [10]OrderbookLevel
	Asks     [10]OrderbookLevel
	TotalBid int64
	TotalAsk int64
}

// RankEntry is one row of a volume-rank or change-rate-rank result.
type RankEntry struct {
	Ticker     string
	Name       string
	Value      float64
}

// BuyResult is broker.buy's contract.
type BuyResult struct {
	Success  bool
	Qty      int64
	BuyPrice int64
	OrderNo  string
	Msg      string
}

// SellResult is broker.sell's contract.
type SellResult struct {
	Success   bool
	SellPrice int64
	OrderNo   string
	Msg       string
}

// Holding is one row of broker.get_balance's holdings list.
type Holding struct {
	Ticker        string
	Name          string
	Qty           int64
	AvgBuyPrice   int64
	CurrentPrice  int64
	ProfitPct     float64
}

// Balance is broker.get_balance's contract (spec.md §4.4).
type Balance struct {
	Holdings       []Holding
	AvailableCash  int64
	TotalEval      int64
	TotalProfitPct float64
}

// Gateway is the abstract broker interface the core consumes. An
// Unauthorized condition (token refresh failure) is surfaced by returning
// an error from every method below — callers treat it as
// PartialDataUnavailable and never convert a failed call into an order.
type Gateway interface {
	GetPrice(ctx context.Context, ticker string) (PriceQuote, error)
	GetOrderbook(ctx context.Context, ticker string) (Orderbook, error)
	GetVolumeRank(ctx context.Context, market string) ([]RankEntry, error)
	GetChangeRank(ctx context.Context, market string) ([]RankEntry, error)
	Buy(ctx context.Context, ticker string, amountKRW int64) (BuyResult, error)
	Sell(ctx context.Context, ticker string, qty int64) (SellResult, error)
	GetBalance(ctx context.Context) (Balance, error)
	// GetDailyClose returns the closing price for ticker on the given
	// calendar date, backing C10's T+1/T+3/T+7 settlement batch.
	GetDailyClose(ctx context.Context, ticker string, date time.Time) (float64, error)
}

// TokenCache holds one trading mode's broker token, per spec.md §4.4: "Two
// independent token caches (paper, live), each holding {token, expires_at}."
type TokenCache interface {
	// IsValid is true when a token is present and expires_at - now > 5 minutes.
	IsValid() bool
	// Token returns the cached token, refreshing it first if stale.
	Token(ctx context.Context) (string, error)
}
