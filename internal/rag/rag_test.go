package rag

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hanbat-quant/sentinel/internal/contracts"
	"github.com/hanbat-quant/sentinel/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "sentinel.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return New(store.NewRAGRepository(s))
}

func TestGetSimilarPatterns_IncludesAggregateSummary(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.repo.InsertBatch(ctx, []contracts.RAGPattern{
		{Date: "20260710", SignalType: contracts.SignalTypeTheme, StockCode: "005930", StockName: "삼성전자", CapTier: contracts.CapTierLarge, WasPicked: true, MaxReturn: 29.8, Hit20Pct: true, HitUpper: true, PatternMemo: "상한가 마감"},
		{Date: "20260712", SignalType: contracts.SignalTypeTheme, StockCode: "000660", StockName: "SK하이닉스", CapTier: contracts.CapTierLarge, WasPicked: true, MaxReturn: 8.0, PatternMemo: "보합권"},
	}))

	out, err := s.GetSimilarPatterns(ctx, contracts.SignalTypeTheme, contracts.CapTierLarge, 5)
	require.NoError(t, err)
	assert.Contains(t, out, "총 2건", "spec.md §4.11 aggregate summary line must be present")
	assert.Contains(t, out, "20%+ 1건(50%)")
	assert.Contains(t, out, "상한가 1건(50%)")
	assert.Contains(t, out, "평균최고등락 18.9%")
}

func TestGetSimilarPatterns_EmptyWhenNoMatch(t *testing.T) {
	s := newTestStore(t)
	out, err := s.GetSimilarPatterns(context.Background(), contracts.SignalTypeRotation, contracts.CapTierMid, 5)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestTruncateMemo(t *testing.T) {
	short := "짧은 메모"
	assert.Equal(t, short, truncateMemo(short, 60))

	long := strings.Repeat("가", 100)
	got := truncateMemo(long, 60)
	assert.Equal(t, 61, len([]rune(got)), "60 runes plus the ellipsis marker")
}
