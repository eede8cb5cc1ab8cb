package morning

import (
	"context"
	"testing"

	"github.com/hanbat-quant/sentinel/internal/contracts"
	"github.com/hanbat-quant/sentinel/internal/llm"
	"github.com/hanbat-quant/sentinel/pkg/config"
	"github.com/hanbat-quant/sentinel/pkg/logger"
)

func noopLLMClient() *llm.Client {
	return llm.New("", nil, nil)
}

func testLogger() *logger.Logger {
	return logger.New(&config.Config{Env: "test", LogLevel: "error", LogFormat: "console"})
}

func TestFilterSectorsByDelta(t *testing.T) {
	sectors := []contracts.NamedChange{
		{Name: "Tech", ChangeRate: 2.5},
		{Name: "Energy", ChangeRate: -1.0},
		{Name: "Financials", ChangeRate: -3.2},
	}
	filtered := filterSectorsByDelta(sectors, 2.0)
	if len(filtered) != 2 {
		t.Fatalf("expected 2 sectors to pass the 2%% threshold, got %d", len(filtered))
	}
}

func TestLookupCapTier_FallsBackToName(t *testing.T) {
	pd := &contracts.PriceData{
		ByCode: map[string]contracts.PriceSnapshot{},
		ByName: map[string]contracts.PriceSnapshot{
			"삼성전자": {MarketCapKRW: 400_000_000_000},
		},
	}
	tier := lookupCapTier(pd, "005930", "삼성전자")
	if tier != contracts.CapTierLarge {
		t.Errorf("expected large cap tier, got %s", tier)
	}
}

func TestLookupCapTier_NilPriceData(t *testing.T) {
	if tier := lookupCapTier(nil, "005930", "삼성전자"); tier != contracts.CapTierUnranked {
		t.Errorf("expected unranked for nil price data, got %s", tier)
	}
}

func TestFilterGainers_IncludesUpperLimitAndThreshold(t *testing.T) {
	pd := &contracts.PriceData{
		UpperLimit: []contracts.PriceSnapshot{{StockCode: "000001", ChangeRate: 29.9}},
		TopGainers: []contracts.PriceSnapshot{
			{StockCode: "000002", ChangeRate: 16.0},
			{StockCode: "000003", ChangeRate: 10.0},
		},
	}
	gainers := filterGainers(pd, 15.0)
	if len(gainers) != 2 {
		t.Fatalf("expected upper-limit row plus one >=15%% gainer, got %d", len(gainers))
	}
}

func TestRunStage1_WithoutLLMReturnsNeutralDefault(t *testing.T) {
	p := &Pipeline{llm: noopLLMClient(), logger: testLogger()}
	env, err := p.runStage1(context.Background(), contracts.Cache{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env.Regime != contracts.RegimeNeutral {
		t.Errorf("expected neutral default regime, got %s", env.Regime)
	}
}
