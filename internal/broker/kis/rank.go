package kis

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/hanbat-quant/sentinel/internal/broker"
)

// GetVolumeRank implements broker.Gateway: today's trading-volume rank,
// KIS's volume-rank screen (거래량순위).
func (c *Client) GetVolumeRank(ctx context.Context, market string) ([]broker.RankEntry, error) {
	return c.fetchRank(ctx, "/uapi/domestic-stock/v1/quotations/volume-rank", "FHPST01710000", market, "vol_tnrt")
}

// GetChangeRank implements broker.Gateway: today's fluctuation-rate rank
// (등락률순위).
func (c *Client) GetChangeRank(ctx context.Context, market string) ([]broker.RankEntry, error) {
	return c.fetchRank(ctx, "/uapi/domestic-stock/v1/ranking/fluctuation", "FHPST01700000", market, "prdy_ctrt")
}

func (c *Client) fetchRank(ctx context.Context, path, trID, market, valueField string) ([]broker.RankEntry, error) {
	marketCode := "0000" // 0000: 전체
	if market != "" {
		marketCode = market
	}
	params := fmt.Sprintf(
		"?fid_cond_mrkt_div_code=J&fid_cond_scr_div_code=20171&fid_input_iscd=%s&fid_div_cls_code=0&fid_blng_cls_code=0&fid_trgt_cls_code=111111111&fid_trgt_exls_cls_code=000000&fid_input_price_1=&fid_input_price_2=&fid_vol_cnt=&fid_input_date_1=",
		marketCode)

	resp, err := c.request(ctx, http.MethodGet, path+params, trID, nil)
	if err != nil {
		return nil, fmt.Errorf("rank request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("rank API error status %d: %s", resp.StatusCode, string(body))
	}

	var result struct {
		Output []map[string]string `json:"output"`
		RtCd   string              `json:"rt_cd"`
		MsgCd  string              `json:"msg_cd"`
		Msg1   string              `json:"msg1"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode rank response: %w", err)
	}
	if result.RtCd != "0" {
		return nil, fmt.Errorf("rank API error: %s - %s", result.MsgCd, result.Msg1)
	}

	entries := make([]broker.RankEntry, 0, len(result.Output))
	for _, row := range result.Output {
		entries = append(entries, broker.RankEntry{
			Ticker: row["mksc_shrn_iscd"],
			Name:   row["hts_kor_isnm"],
			Value:  parseFloatSafe(row[valueField]),
		})
	}
	return entries, nil
}
