package learning

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hanbat-quant/sentinel/internal/contracts"
	"github.com/hanbat-quant/sentinel/internal/store"
)

func TestConfidenceFor(t *testing.T) {
	cases := []struct {
		winRate float64
		want    contracts.Confidence
	}{
		{70, contracts.ConfidenceHigh},
		{65, contracts.ConfidenceHigh},
		{55, contracts.ConfidenceMedium},
		{50, contracts.ConfidenceMedium},
		{30, contracts.ConfidenceLow},
	}
	for _, c := range cases {
		if got := confidenceFor(c.winRate); got != c.want {
			t.Errorf("confidenceFor(%.0f) = %s, want %s", c.winRate, got, c.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("hello", 10); got != "hello" {
		t.Errorf("expected unchanged short string, got %q", got)
	}
	if got := truncate("한글테스트입니다문자열", 5); len([]rune(got)) != 5 {
		t.Errorf("expected 5 runes, got %q (%d runes)", got, len([]rune(got)))
	}
}

func TestRuleBasedPatternTags(t *testing.T) {
	trade := contracts.TradingHistoryEntry{
		Position:   contracts.Position{MarketEnv: contracts.RegimeBull},
		CloseReason: contracts.CloseTrailingStop,
	}
	tags := ruleBasedPatternTags(trade)
	if !contains(tags, "강세장진입") || !contains(tags, "트레일링스탑작동") {
		t.Errorf("expected both bull-entry and trailing-stop tags, got %v", tags)
	}
}

func contains(s []string, v string) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

func TestParseKospiLevel(t *testing.T) {
	if _, ok := parseKospiLevel(0); ok {
		t.Error("expected non-positive level to be rejected")
	}
	if level, ok := parseKospiLevel(2650.5); !ok || level != 2650 {
		t.Errorf("expected 2650, got %d ok=%v", level, ok)
	}
}

func TestRecentRegimeContext_EmptyWhenNoDays(t *testing.T) {
	if got := RecentRegimeContext(nil); got != "" {
		t.Errorf("expected empty string for no days, got %q", got)
	}
}

func TestRecentRegimeContext_RendersEachDay(t *testing.T) {
	days := []RecentDayStat{
		{Date: "2026-07-28", Regime: contracts.RegimeRiskOn, WinRate: 60.0},
		{Date: "2026-07-29", Regime: contracts.RegimeNeutral, WinRate: 50.0},
	}
	got := RecentRegimeContext(days)
	if got == "" {
		t.Fatal("expected non-empty context block")
	}
	for _, d := range days {
		if !strings.Contains(got, d.Date) {
			t.Errorf("expected a line for %s, got %q", d.Date, got)
		}
	}
}

func TestRunThemeAccuracy_AggregatesByTag(t *testing.T) {
	s, err := store.New(filepath.Join(t.TempDir(), "sentinel.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer s.Close()
	b := &Batch{repo: store.NewLearningRepository(s)}
	inputs := []ThemeAccuracyInput{
		{ThemeTag: "2차전지", Hit: true},
		{ThemeTag: "2차전지", Hit: false},
		{ThemeTag: "반도체", Hit: true},
	}
	if err := b.RunThemeAccuracy(context.Background(), time.Now(), inputs); err != nil {
		t.Fatalf("RunThemeAccuracy: %v", err)
	}

	var total, hits int
	var rate float64
	err = s.DB().QueryRow(`SELECT total_picks, hit_count, hit_rate FROM theme_accuracy WHERE theme_tag = ?`, "2차전지").
		Scan(&total, &hits, &rate)
	if err != nil {
		t.Fatalf("read back 2차전지: %v", err)
	}
	if total != 2 || hits != 1 || rate != 50 {
		t.Errorf("2차전지: got total=%d hits=%d rate=%.1f, want 2/1/50.0", total, hits, rate)
	}
}
