package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/hanbat-quant/sentinel/internal/contracts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sentinel.db")
	s, err := New(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestNew_MigrationIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sentinel.db")

	s1, err := New(path)
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := New(path)
	require.NoError(t, err)
	require.NoError(t, s2.Close())
}

func TestPickRepository_SecondRunReplacesFirst(t *testing.T) {
	s := newTestStore(t)
	repo := NewPickRepository(s)
	ctx := context.Background()

	first := []contracts.Pick{{Rank: 1, StockCode: "005930", StockName: "삼성전자", Category: contracts.CategoryFiling}}
	require.NoError(t, repo.SavePicks(ctx, "20260730", first))

	second := []contracts.Pick{
		{Rank: 1, StockCode: "000660", StockName: "SK하이닉스", Category: contracts.CategoryTheme},
		{Rank: 2, StockCode: "035420", StockName: "NAVER", Category: contracts.CategoryRotation},
	}
	require.NoError(t, repo.SavePicks(ctx, "20260730", second))

	got, err := repo.GetPicks(ctx, "20260730")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "000660", got[0].StockCode)
	assert.Equal(t, "035420", got[1].StockCode)
}

func TestPositionRepository_OpenThenClose(t *testing.T) {
	s := newTestStore(t)
	repo := NewPositionRepository(s)
	ctx := context.Background()

	pos := contracts.Position{
		ID:            "pos-1",
		TradingID:     "trade-1",
		Ticker:        "005930",
		Name:          "삼성전자",
		BuyTime:       time.Now(),
		BuyPrice:      70000,
		Qty:           10,
		TriggerSource: contracts.TriggerVolume,
		Mode:          contracts.ModeVTS,
		PickType:      contracts.PickTypeDayTrade,
	}
	require.NoError(t, repo.OpenPosition(ctx, pos))

	held, err := repo.IsHeld(ctx, "005930", contracts.ModeVTS)
	require.NoError(t, err)
	assert.True(t, held)

	count, err := repo.CountOpen(ctx, contracts.ModeVTS)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, repo.ClosePosition(ctx, "trade-1", time.Now(), 73500, 5.0, 35000, contracts.CloseTakeProfit1))

	count, err = repo.CountOpen(ctx, contracts.ModeVTS)
	require.NoError(t, err)
	assert.Equal(t, 0, count, "I7 precondition: close removes the open-positions row")
}

func TestAlertRepository_RecordThenSettle(t *testing.T) {
	s := newTestStore(t)
	repo := NewAlertRepository(s)
	ctx := context.Background()

	alert := contracts.AlertRecord{
		ID: "alert-1", Ticker: "005930", Name: "삼성전자",
		AlertTime: time.Now(), AlertDate: "20260723", ChangeRate: 4.7, DeltaRate: 1.2,
		Source: contracts.TriggerRate, PriceAtAlert: 71000,
	}
	require.NoError(t, repo.RecordAlert(ctx, alert))

	pending, err := repo.PendingForDate(ctx, 7, "20260723")
	require.NoError(t, err)
	require.Len(t, pending, 1)

	require.NoError(t, repo.SettleHorizon(ctx, 7, []Settlement{
		{AlertID: "alert-1", TrackedDate: "20260730", Price: 75000, Return: 5.63},
	}))

	pendingAfter, err := repo.PendingForDate(ctx, 7, "20260723")
	require.NoError(t, err)
	assert.Empty(t, pendingAfter, "I9: once done_h=1 the row is never re-selected")
}

func TestRAGRepository_FallsBackToSignalTypeAlone(t *testing.T) {
	s := newTestStore(t)
	repo := NewRAGRepository(s)
	ctx := context.Background()

	require.NoError(t, repo.InsertBatch(ctx, []contracts.RAGPattern{
		{Date: "20260720", SignalType: contracts.SignalTypeTheme, StockCode: "005930", StockName: "삼성전자", CapTier: contracts.CapTierLarge, MaxReturn: 12.0},
	}))

	fallback, err := repo.SimilarPatterns(ctx, contracts.SignalTypeTheme, contracts.CapTierMicro, 5)
	require.NoError(t, err)
	require.Len(t, fallback, 1, "no exact match for this cap tier, so the signal_type-only tier answers")
	assert.Equal(t, contracts.CapTierLarge, fallback[0].CapTier)

	none, err := repo.SimilarPatterns(ctx, contracts.SignalTypeRotation, contracts.CapTierMicro, 5)
	require.NoError(t, err)
	assert.Empty(t, none, "no row of this signal type in either tier")

	exact, err := repo.SimilarPatterns(ctx, contracts.SignalTypeTheme, contracts.CapTierLarge, 5)
	require.NoError(t, err)
	require.Len(t, exact, 1)
}

func TestAlertRepository_ReturnsForDate_OnlyFullySettled(t *testing.T) {
	s := newTestStore(t)
	repo := NewAlertRepository(s)
	ctx := context.Background()

	require.NoError(t, repo.RecordAlert(ctx, contracts.AlertRecord{
		ID: "alert-1", Ticker: "005930", Name: "삼성전자",
		AlertTime: time.Now(), AlertDate: "20260723", Source: contracts.TriggerRate, PriceAtAlert: 71000,
	}))
	require.NoError(t, repo.RecordAlert(ctx, contracts.AlertRecord{
		ID: "alert-2", Ticker: "000660", Name: "SK하이닉스",
		AlertTime: time.Now(), AlertDate: "20260723", Source: contracts.TriggerVolume, PriceAtAlert: 150000,
	}))

	none, err := repo.ReturnsForDate(ctx, "20260723")
	require.NoError(t, err)
	assert.Empty(t, none, "7d horizon not yet settled for either alert")

	require.NoError(t, repo.SettleHorizon(ctx, 7, []Settlement{
		{AlertID: "alert-1", TrackedDate: "20260730", Price: 75000, Return: 5.63},
	}))

	got, err := repo.ReturnsForDate(ctx, "20260723")
	require.NoError(t, err)
	require.Len(t, got, 1, "alert-2 has no settled 7d horizon yet")
	assert.Equal(t, "005930", got[0].Ticker)
	assert.InDelta(t, 5.63, got[0].Return7d, 0.001)
}

func TestRAGRepository_PatternsSince(t *testing.T) {
	s := newTestStore(t)
	repo := NewRAGRepository(s)
	ctx := context.Background()

	require.NoError(t, repo.InsertBatch(ctx, []contracts.RAGPattern{
		{Date: "20260710", SignalType: contracts.SignalTypeTheme, StockCode: "005930", StockName: "삼성전자", CapTier: contracts.CapTierLarge, MaxReturn: 8.0},
		{Date: "20260725", SignalType: contracts.SignalTypeTheme, StockCode: "000660", StockName: "SK하이닉스", CapTier: contracts.CapTierLarge, MaxReturn: 21.0, Hit20Pct: true},
	}))

	got, err := repo.PatternsSince(ctx, "20260720")
	require.NoError(t, err)
	require.Len(t, got, 1, "row before the cutoff date must not be returned")
	assert.Equal(t, "000660", got[0].StockCode)
}

func TestRAGRepository_RejectsInvalidEnumValues(t *testing.T) {
	s := newTestStore(t)
	repo := NewRAGRepository(s)
	ctx := context.Background()

	err := repo.InsertBatch(ctx, []contracts.RAGPattern{
		{Date: "20260720", SignalType: contracts.SignalType("공시"), CapTier: contracts.CapTierLarge},
	})
	assert.Error(t, err, "I3: raw 공시 label must never be persisted")
}
