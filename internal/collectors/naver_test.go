package collectors

import (
	"testing"

	"github.com/hanbat-quant/sentinel/internal/contracts"
)

func TestParseWonAmount(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"1,234,567", 1234567},
		{"0", 0},
		{"", 0},
		{"not-a-number", 0},
	}
	for _, tt := range tests {
		if got := parseWonAmount(tt.in); got != tt.want {
			t.Errorf("parseWonAmount(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestParsePercentField(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"+3.25", 3.25},
		{"-1.50", -1.50},
		{"0.00", 0},
		{"", 0},
	}
	for _, tt := range tests {
		if got := parsePercentField(tt.in); got != tt.want {
			t.Errorf("parsePercentField(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestToSnapshot(t *testing.T) {
	item := marketStockItem{
		ItemCode: "005930", ItemName: "삼성전자",
		NowVal: "70,000", MarketSum: "420,000,000",
		FluctuationsRatio: "+2.50", AccTradingVolume: "12,345,678",
	}
	snap := toSnapshot(item, "반도체")
	want := contracts.PriceSnapshot{
		StockCode: "005930", StockName: "삼성전자", Sector: "반도체",
		MarketCapKRW: 420000000, Close: 70000, ChangeRate: 2.5, Volume: 12345678,
	}
	if snap != want {
		t.Errorf("toSnapshot() = %+v, want %+v", snap, want)
	}
}

func TestRankByChange(t *testing.T) {
	byCode := map[string]contracts.PriceSnapshot{
		"A": {StockCode: "A", ChangeRate: 20},
		"B": {StockCode: "B", ChangeRate: -10},
		"C": {StockCode: "C", ChangeRate: 16},
		"D": {StockCode: "D", ChangeRate: 5},
	}
	gainers, losers := rankByChange(byCode, 15.0)
	if len(gainers) != 2 {
		t.Fatalf("expected 2 gainers, got %d", len(gainers))
	}
	if gainers[0].StockCode != "A" {
		t.Errorf("expected A to rank first, got %s", gainers[0].StockCode)
	}
	if len(losers) != 4 {
		t.Fatalf("expected all 4 rows eligible as losers, got %d", len(losers))
	}
	if losers[0].StockCode != "B" {
		t.Errorf("expected B (lowest change) first among losers, got %s", losers[0].StockCode)
	}
}
