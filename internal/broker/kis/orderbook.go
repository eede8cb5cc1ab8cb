package kis

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/hanbat-quant/sentinel/internal/broker"
)

// GetOrderbook implements broker.Gateway. KIS's inquire-asking-price
// response names each of the 10 rungs explicitly (askp1..askp10), so the
// raw JSON is decoded into a flat map first and reassembled into the
// fixed-size Orderbook shape the core expects.
func (c *Client) GetOrderbook(ctx context.Context, ticker string) (broker.Orderbook, error) {
	path := "/uapi/domestic-stock/v1/quotations/inquire-asking-price-exp-ccn"
	trID := "FHKST01010200" // 국내주식 호가/예상체결

	params := fmt.Sprintf("?fid_cond_mrkt_div_code=J&fid_input_iscd=%s", ticker)

	resp, err := c.request(ctx, http.MethodGet, path+params, trID, nil)
	if err != nil {
		return broker.Orderbook{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return broker.Orderbook{}, fmt.Errorf("orderbook API error status %d: %s", resp.StatusCode, string(body))
	}

	var result struct {
		Output1 map[string]string `json:"output1"`
		RtCd    string             `json:"rt_cd"`
		MsgCd   string             `json:"msg_cd"`
		Msg1    string             `json:"msg1"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return broker.Orderbook{}, fmt.Errorf("decode orderbook response: %w", err)
	}
	if result.RtCd != "0" {
		return broker.Orderbook{}, fmt.Errorf("orderbook API error: %s - %s", result.MsgCd, result.Msg1)
	}

	var ob broker.Orderbook
	for i := 0; i < 10; i++ {
		rung := i + 1
		ob.Asks[i] = broker.OrderbookLevel{
			Price: parseIntSafe(result.Output1[fmt.Sprintf("askp%d", rung)]),
			Qty:   parseIntSafe(result.Output1[fmt.Sprintf("askp_rsqn%d", rung)]),
		}
		ob.Bids[i] = broker.OrderbookLevel{
			Price: parseIntSafe(result.Output1[fmt.Sprintf("bidp%d", rung)]),
			Qty:   parseIntSafe(result.Output1[fmt.Sprintf("bidp_rsqn%d", rung)]),
		}
	}
	ob.TotalAsk = parseIntSafe(result.Output1["total_askp_rsqn"])
	ob.TotalBid = parseIntSafe(result.Output1["total_bidp_rsqn"])

	return ob, nil
}
