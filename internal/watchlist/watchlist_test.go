package watchlist

import (
	"testing"

	"github.com/hanbat-quant/sentinel/internal/contracts"
)

func TestIsReady_EmptyUntilSet(t *testing.T) {
	s := New()
	if s.IsReady() {
		t.Fatal("expected fresh state to not be ready")
	}
	s.SetWatchlist(map[string]contracts.WatchlistEntry{"005930": {StockCode: "005930"}})
	if !s.IsReady() {
		t.Fatal("expected state to be ready after SetWatchlist")
	}
}

func TestClear_ResetsAllThreeSlots(t *testing.T) {
	s := New()
	s.SetWatchlist(map[string]contracts.WatchlistEntry{"005930": {StockCode: "005930"}})
	s.SetMarketEnv(contracts.RegimeRiskOn)
	s.SetSectorMap(map[string]string{"005930": "전기전자"})

	s.Clear()

	if s.IsReady() {
		t.Error("expected picks_watchlist empty after clear")
	}
	if s.MarketEnv() != "" {
		t.Error("expected market_env empty after clear")
	}
	if _, ok := s.Sector("005930"); ok {
		t.Error("expected sector_map empty after clear")
	}
}

func TestGetWatchlist_ReturnsShallowCopy(t *testing.T) {
	s := New()
	s.SetWatchlist(map[string]contracts.WatchlistEntry{"005930": {StockCode: "005930", Priority: 1}})

	copy := s.GetWatchlist()
	copy["005930"] = contracts.WatchlistEntry{StockCode: "005930", Priority: 99}

	original := s.GetWatchlist()
	if original["005930"].Priority != 1 {
		t.Error("external mutation of returned map corrupted internal state")
	}
}

func TestDeriveMarketEnvFromKospi(t *testing.T) {
	cases := []struct {
		rate     float64
		expected contracts.MarketRegime
	}{
		{1.5, contracts.RegimeBull},
		{1.0, contracts.RegimeBull},
		{-1.0, contracts.RegimeBearFlat},
		{-2.0, contracts.RegimeBearFlat},
		{0.3, contracts.RegimeSideways},
	}
	for _, c := range cases {
		if got := DeriveMarketEnvFromKospi(c.rate); got != c.expected {
			t.Errorf("rate=%.1f: expected %s, got %s", c.rate, c.expected, got)
		}
	}
}

func TestBuildFromPicks_ClampsVolumeToOne(t *testing.T) {
	picks := []contracts.Pick{{Rank: 1, StockCode: "005930", StockName: "삼성전자", Category: contracts.CategoryTheme}}
	entries := BuildFromPicks(picks, map[string]int64{"005930": 0})
	if entries["005930"].PrevDayVolume != 1 {
		t.Errorf("expected volume clamped to 1, got %d", entries["005930"].PrevDayVolume)
	}
}
