package kis

import (
	"context"
	"fmt"

	"github.com/hanbat-quant/sentinel/internal/broker"
)

// Buy implements broker.Gateway: a market order sized to spend up to
// amountKRW at the current price, floor-divided to a whole share count
// (spec.md §4.9 "position sizing divides the allocation by last price").
func (c *Client) Buy(ctx context.Context, ticker string, amountKRW int64) (broker.BuyResult, error) {
	quote, err := c.GetPrice(ctx, ticker)
	if err != nil {
		return broker.BuyResult{}, fmt.Errorf("price lookup before buy: %w", err)
	}
	if quote.Last <= 0 {
		return broker.BuyResult{}, fmt.Errorf("invalid last price for %s", ticker)
	}

	qty := amountKRW / quote.Last
	if qty <= 0 {
		return broker.BuyResult{Success: false, Msg: "allocation too small for one share"}, nil
	}

	result, err := c.PlaceOrder(ctx, PlaceOrderRequest{
		StockCode: ticker,
		Side:      OrderSideBuy,
		Type:      OrderTypeMarket,
		Quantity:  qty,
	})
	if err != nil {
		return broker.BuyResult{}, err
	}

	return broker.BuyResult{
		Success:  result.Success,
		Qty:      qty,
		BuyPrice: quote.Last,
		OrderNo:  result.OrderNo,
		Msg:      result.Message,
	}, nil
}

// Sell implements broker.Gateway: a market order for the full qty held.
func (c *Client) Sell(ctx context.Context, ticker string, qty int64) (broker.SellResult, error) {
	quote, err := c.GetPrice(ctx, ticker)
	if err != nil {
		return broker.SellResult{}, fmt.Errorf("price lookup before sell: %w", err)
	}

	result, err := c.PlaceOrder(ctx, PlaceOrderRequest{
		StockCode: ticker,
		Side:      OrderSideSell,
		Type:      OrderTypeMarket,
		Quantity:  qty,
	})
	if err != nil {
		return broker.SellResult{}, err
	}

	return broker.SellResult{
		Success:   result.Success,
		SellPrice: quote.Last,
		OrderNo:   result.OrderNo,
		Msg:       result.Message,
	}, nil
}

// GetBalance implements broker.Gateway, translating the raw KIS
// balance/positions shape into the core's contract.
func (c *Client) GetBalance(ctx context.Context) (broker.Balance, error) {
	bal, positions, err := c.FetchAccountBalance(ctx)
	if err != nil {
		return broker.Balance{}, err
	}

	holdings := make([]broker.Holding, 0, len(positions))
	for _, p := range positions {
		holdings = append(holdings, broker.Holding{
			Ticker:       p.StockCode,
			Name:         p.StockName,
			Qty:          p.Quantity,
			AvgBuyPrice:  p.AvgBuyPrice,
			CurrentPrice: p.CurrentPrice,
			ProfitPct:    p.ProfitLossRate,
		})
	}

	return broker.Balance{
		Holdings:       holdings,
		AvailableCash:  bal.AvailableCash,
		TotalEval:      bal.TotalEvaluation,
		TotalProfitPct: bal.ProfitLossRate,
	}, nil
}
