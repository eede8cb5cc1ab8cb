package collectors

import (
	"context"
	"fmt"
	"sort"

	"github.com/hanbat-quant/sentinel/internal/contracts"
	"github.com/hanbat-quant/sentinel/pkg/httputil"
	"github.com/hanbat-quant/sentinel/pkg/logger"
)

const (
	upperLimitChangeRate = 29.5
	gainerThreshold      = 15.0
	topInvestorFlowCount = 30
)

// PriceSource implements PriceDataCollector: the single most consumed
// collector, feeding by_code/by_name/by_sector, upper-limit, top
// gainers/losers, institutional flow, and the two index snapshots.
type PriceSource struct {
	naver  *naverClient
	logger *logger.Logger
}

func NewPriceSource(http *httputil.Client, log *logger.Logger) *PriceSource {
	return &PriceSource{naver: newNaverClient(http, log), logger: log}
}

func (s *PriceSource) Collect(ctx context.Context) (*contracts.PriceData, error) {
	kospi, err := s.naver.fetchMarketStocks(ctx, "KOSPI")
	if err != nil {
		return nil, fmt.Errorf("fetch KOSPI stocks: %w", err)
	}
	kosdaq, err := s.naver.fetchMarketStocks(ctx, "KOSDAQ")
	if err != nil {
		return nil, fmt.Errorf("fetch KOSDAQ stocks: %w", err)
	}

	all := make([]marketStockItem, 0, len(kospi)+len(kosdaq))
	all = append(all, kospi...)
	all = append(all, kosdaq...)

	data := &contracts.PriceData{
		ByCode:   make(map[string]contracts.PriceSnapshot, len(all)),
		ByName:   make(map[string]contracts.PriceSnapshot, len(all)),
		BySector: make(map[string][]contracts.PriceSnapshot),
	}

	for _, item := range all {
		snap := toSnapshot(item, "")
		data.ByCode[snap.StockCode] = snap
		data.ByName[snap.StockName] = snap

		if snap.ChangeRate >= upperLimitChangeRate {
			data.UpperLimit = append(data.UpperLimit, snap)
		}
	}

	data.TopGainers, data.TopLosers = rankByChange(data.ByCode, gainerThreshold)

	flows, err := s.fetchTopInvestorFlows(ctx, data.TopGainers)
	if err != nil {
		s.logger.WithFields(map[string]interface{}{"error": err.Error()}).Warn("investor flow fetch partially failed")
	}
	data.Institutional = flows

	kospiIdx, err := s.naver.fetchIndex(ctx, "KOSPI")
	if err != nil {
		s.logger.WithFields(map[string]interface{}{"error": err.Error()}).Warn("KOSPI index fetch failed")
	}
	data.Kospi = kospiIdx

	kosdaqIdx, err := s.naver.fetchIndex(ctx, "KOSDAQ")
	if err != nil {
		s.logger.WithFields(map[string]interface{}{"error": err.Error()}).Warn("KOSDAQ index fetch failed")
	}
	data.Kosdaq = kosdaqIdx

	if err := s.applySectorMap(ctx, data); err != nil {
		s.logger.WithFields(map[string]interface{}{"error": err.Error()}).Warn("sector tagging partially failed")
	}

	return data, nil
}

// rankByChange splits the by_code snapshot into top-20 gainers (>=
// gainerThreshold) and top-20 losers, both sorted by magnitude.
func rankByChange(byCode map[string]contracts.PriceSnapshot, gainerMin float64) (gainers, losers []contracts.PriceSnapshot) {
	all := make([]contracts.PriceSnapshot, 0, len(byCode))
	for _, snap := range byCode {
		all = append(all, snap)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ChangeRate > all[j].ChangeRate })

	for _, snap := range all {
		if snap.ChangeRate >= gainerMin && len(gainers) < 20 {
			gainers = append(gainers, snap)
		}
	}
	for i := len(all) - 1; i >= 0 && len(losers) < 20; i-- {
		losers = append(losers, all[i])
	}
	return gainers, losers
}

func (s *PriceSource) fetchTopInvestorFlows(ctx context.Context, gainers []contracts.PriceSnapshot) ([]contracts.InvestorFlowRow, error) {
	n := len(gainers)
	if n > topInvestorFlowCount {
		n = topInvestorFlowCount
	}
	var out []contracts.InvestorFlowRow
	var lastErr error
	for i := 0; i < n; i++ {
		flow, err := s.naver.fetchInvestorFlow(ctx, gainers[i].StockCode)
		if err != nil {
			lastErr = err
			continue
		}
		out = append(out, flow)
	}
	return out, lastErr
}

// applySectorMap adds one BySector key per sector name from the
// sector-group listing. It does not set any snapshot's Sector field and
// puts no tickers into the BySector slices.
func (s *PriceSource) applySectorMap(ctx context.Context, data *contracts.PriceData) error {
	groups, err := s.naver.fetchSectorGroups(ctx)
	if err != nil {
		return fmt.Errorf("fetch sector groups: %w", err)
	}
	// The group listing only carries sector-level aggregates, not a
	// per-ticker membership list on this endpoint; BySector is keyed by
	// sector name with an empty membership slice until a per-ticker
	// membership source is wired in a later collector iteration.
	for _, g := range groups {
		if _, ok := data.BySector[g.Name]; !ok {
			data.BySector[g.Name] = nil
		}
	}
	return nil
}
