package clock

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsTradingDay_WeekendsAreFalseWithoutProbing(t *testing.T) {
	probeCalls := 0
	c := New(func(time.Time) (bool, error) {
		probeCalls++
		return true, nil
	})

	saturday := time.Date(2026, 8, 1, 0, 0, 0, 0, KST)
	ok, err := c.IsTradingDay(saturday)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, probeCalls)
}

func TestIsTradingDay_CachesPerDateRegardlessOfCallCount(t *testing.T) {
	probeCalls := 0
	c := New(func(time.Time) (bool, error) {
		probeCalls++
		return true, nil
	})

	monday := time.Date(2026, 8, 3, 0, 0, 0, 0, KST)
	for i := 0; i < 5; i++ {
		_, err := c.IsTradingDay(monday)
		require.NoError(t, err)
	}

	assert.Equal(t, 1, probeCalls, "I8: at most one probe per YYYYMMDD key")
}

func TestIsTradingDay_FailsOpenOnProbeError(t *testing.T) {
	c := New(func(time.Time) (bool, error) {
		return false, errors.New("network down")
	})

	monday := time.Date(2026, 8, 3, 0, 0, 0, 0, KST)
	ok, err := c.IsTradingDay(monday)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPreviousTradingDay_MondayReturnsFriday(t *testing.T) {
	c := New(nil)
	monday := time.Date(2026, 8, 3, 0, 0, 0, 0, KST)

	prev, ok := c.PreviousTradingDay(monday)
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 7, 31, 0, 0, 0, 0, KST), prev)
}

func TestPreviousTradingDay_WeekendReturnsNotOK(t *testing.T) {
	c := New(nil)
	sunday := time.Date(2026, 8, 2, 0, 0, 0, 0, KST)

	_, ok := c.PreviousTradingDay(sunday)
	assert.False(t, ok)
}

func TestPreviousTradingDay_MidweekStepsBackOneDay(t *testing.T) {
	c := New(nil)
	thursday := time.Date(2026, 8, 6, 0, 0, 0, 0, KST)

	prev, ok := c.PreviousTradingDay(thursday)
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 8, 5, 0, 0, 0, 0, KST), prev)
}
