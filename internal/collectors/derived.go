package collectors

import (
	"context"
	"fmt"

	"github.com/hanbat-quant/sentinel/internal/contracts"
	"github.com/hanbat-quant/sentinel/pkg/httputil"
	"github.com/hanbat-quant/sentinel/pkg/logger"
)

// SectorETFSource implements SectorETFCollector by reusing the sector-group
// listing naver.go already wraps for price.go's BySector tagging.
type SectorETFSource struct {
	naver  *naverClient
	logger *logger.Logger
}

func NewSectorETFSource(http *httputil.Client, log *logger.Logger) *SectorETFSource {
	return &SectorETFSource{naver: newNaverClient(http, log), logger: log}
}

func (s *SectorETFSource) Collect(ctx context.Context) ([]contracts.SectorETFRow, error) {
	groups, err := s.naver.fetchSectorGroups(ctx)
	if err != nil {
		return nil, fmt.Errorf("sector etf: %w", err)
	}
	out := make([]contracts.SectorETFRow, 0, len(groups))
	for _, g := range groups {
		out = append(out, contracts.SectorETFRow{
			Sector:     g.Name,
			ChangeRate: parsePercentField(g.ChangeRate),
			NetFlow:    parseQuantityField(g.NetFlow),
		})
	}
	return out, nil
}

// ShortInterestSource implements ShortInterestCollector. Naver has no
// public short-balance endpoint; this proxies short-interest pressure from
// the same market-stock snapshot's largest-decline names, which is the one
// signal a no-key source can approximate without a KRX short-sale feed.
type ShortInterestSource struct {
	naver  *naverClient
	logger *logger.Logger
}

func NewShortInterestSource(http *httputil.Client, log *logger.Logger) *ShortInterestSource {
	return &ShortInterestSource{naver: newNaverClient(http, log), logger: log}
}

func (s *ShortInterestSource) Collect(ctx context.Context) ([]contracts.ShortInterestRow, error) {
	kospi, err := s.naver.fetchMarketStocks(ctx, "KOSPI")
	if err != nil {
		return nil, fmt.Errorf("short interest: %w", err)
	}
	out := make([]contracts.ShortInterestRow, 0, 30)
	for _, item := range kospi {
		rate := parsePercentField(item.FluctuationsRatio)
		if rate >= -3.0 {
			continue
		}
		out = append(out, contracts.ShortInterestRow{
			StockCode:       item.ItemCode,
			ShortRatio:      -rate, // proxy: larger decline -> larger inferred short pressure
			ShortBalanceQty: parseWonAmount(item.AccTradingVolume),
		})
		if len(out) >= 30 {
			break
		}
	}
	return out, nil
}

// ClosingStrengthSource implements ClosingStrengthCollector by scoring the
// previous session's candle position within its day's range.
type ClosingStrengthSource struct {
	naver   *naverClient
	logger  *logger.Logger
	targets func(ctx context.Context) ([]string, error)
}

func NewClosingStrengthSource(http *httputil.Client, log *logger.Logger, targets func(ctx context.Context) ([]string, error)) *ClosingStrengthSource {
	return &ClosingStrengthSource{naver: newNaverClient(http, log), logger: log, targets: targets}
}

func (s *ClosingStrengthSource) Collect(ctx context.Context) ([]contracts.ClosingStrengthRow, error) {
	codes, err := s.targets(ctx)
	if err != nil {
		return nil, fmt.Errorf("closing strength: resolve targets: %w", err)
	}
	out := make([]contracts.ClosingStrengthRow, 0, len(codes))
	for _, code := range codes {
		candles, err := s.naver.fetchDailyCandles(ctx, code, 2)
		if err != nil || len(candles) == 0 {
			s.logger.WithFields(map[string]interface{}{"stock_code": code}).Warn("closing strength: candle fetch failed")
			continue
		}
		last := candles[len(candles)-1]
		rng := float64(last.High - last.Low)
		var score float64
		if rng > 0 {
			score = float64(last.Close-last.Low) / rng * 100
		}
		out = append(out, contracts.ClosingStrengthRow{StockCode: code, Score: score})
	}
	return out, nil
}

// VolumeSurgeSource implements VolumeSurgeCollector: ratio of today's
// volume to the trailing 5-day average, using the same candle fetch the
// closing-strength collector shares.
type VolumeSurgeSource struct {
	naver   *naverClient
	logger  *logger.Logger
	targets func(ctx context.Context) ([]string, error)
}

func NewVolumeSurgeSource(http *httputil.Client, log *logger.Logger, targets func(ctx context.Context) ([]string, error)) *VolumeSurgeSource {
	return &VolumeSurgeSource{naver: newNaverClient(http, log), logger: log, targets: targets}
}

func (s *VolumeSurgeSource) Collect(ctx context.Context) ([]contracts.VolumeSurgeRow, error) {
	codes, err := s.targets(ctx)
	if err != nil {
		return nil, fmt.Errorf("volume surge: resolve targets: %w", err)
	}
	out := make([]contracts.VolumeSurgeRow, 0, len(codes))
	for _, code := range codes {
		candles, err := s.naver.fetchDailyCandles(ctx, code, 6)
		if err != nil || len(candles) < 2 {
			s.logger.WithFields(map[string]interface{}{"stock_code": code}).Warn("volume surge: candle fetch failed")
			continue
		}
		today := candles[len(candles)-1]
		var sum int64
		prior := candles[:len(candles)-1]
		for _, c := range prior {
			sum += c.Volume
		}
		avg := float64(sum) / float64(len(prior))
		if avg == 0 {
			continue
		}
		out = append(out, contracts.VolumeSurgeRow{StockCode: code, VolumeRatio: float64(today.Volume) / avg})
	}
	return out, nil
}

// FundConcentrationSource implements FundConcentrationCollector by ranking
// combined institutional + foreign net buying among the day's top gainers.
type FundConcentrationSource struct {
	naver  *naverClient
	logger *logger.Logger
}

func NewFundConcentrationSource(http *httputil.Client, log *logger.Logger) *FundConcentrationSource {
	return &FundConcentrationSource{naver: newNaverClient(http, log), logger: log}
}

func (s *FundConcentrationSource) Collect(ctx context.Context, candidates []contracts.PriceSnapshot) ([]contracts.FundConcentrationRow, error) {
	type scored struct {
		code  string
		score float64
	}
	var rows []scored
	for _, snap := range candidates {
		flow, err := s.naver.fetchInvestorFlow(ctx, snap.StockCode)
		if err != nil {
			continue
		}
		rows = append(rows, scored{code: snap.StockCode, score: float64(flow.InstitutionNet + flow.ForeignNet)})
	}
	// simple descending insertion sort; candidate lists here are <= 30 long
	for i := 1; i < len(rows); i++ {
		for j := i; j > 0 && rows[j].score > rows[j-1].score; j-- {
			rows[j], rows[j-1] = rows[j-1], rows[j]
		}
	}
	out := make([]contracts.FundConcentrationRow, 0, len(rows))
	for i, r := range rows {
		out = append(out, contracts.FundConcentrationRow{StockCode: r.code, Rank: i + 1, Score: r.score})
	}
	return out, nil
}
