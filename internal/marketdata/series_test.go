package marketdata

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uswizard/backend/internal/contracts"
)

func bar(symbol string, y int, m time.Month, d int, adjClose float64) contracts.DailyBar {
	return contracts.DailyBar{
		Symbol:   symbol,
		Date:     time.Date(y, m, d, 0, 0, 0, 0, time.UTC),
		Open:     adjClose,
		High:     adjClose,
		Low:      adjClose,
		Close:    adjClose,
		AdjClose: adjClose,
		Volume:   1000,
	}
}

func TestNewSeries_Valid(t *testing.T) {
	s, err := NewSeries("AAPL", []contracts.DailyBar{
		bar("AAPL", 2024, 7, 1, 100),
		bar("AAPL", 2024, 7, 2, 101),
		bar("AAPL", 2024, 7, 3, 102),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, []float64{100, 101, 102}, s.AdjCloses())

	last, ok := s.LastDate()
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 7, 3, 0, 0, 0, 0, time.UTC), last)
}

func TestNewSeries_RejectsDisorder(t *testing.T) {
	tests := []struct {
		name string
		bars []contracts.DailyBar
	}{
		{
			name: "duplicate date",
			bars: []contracts.DailyBar{
				bar("X", 2024, 7, 1, 100),
				bar("X", 2024, 7, 1, 100),
			},
		},
		{
			name: "out of order",
			bars: []contracts.DailyBar{
				bar("X", 2024, 7, 2, 100),
				bar("X", 2024, 7, 1, 99),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSeries("X", tt.bars)
			require.Error(t, err)
			assert.ErrorIs(t, err, contracts.ErrDataInconsistency)
		})
	}
}

func TestSeries_TruncateBefore(t *testing.T) {
	s, err := NewSeries("X", []contracts.DailyBar{
		bar("X", 2024, 7, 1, 100),
		bar("X", 2024, 7, 2, 101),
		bar("X", 2024, 7, 3, 102),
	})
	require.NoError(t, err)

	kept := s.TruncateBefore(time.Date(2024, 7, 2, 0, 0, 0, 0, time.UTC))
	require.Len(t, kept, 1)
	assert.Equal(t, 100.0, kept[0].AdjClose)

	assert.Len(t, s.TruncateBefore(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)), 0)
	assert.Len(t, s.TruncateBefore(time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)), 3)
}

func TestNeedsFullReload(t *testing.T) {
	lastStored := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)

	split := contracts.CorporateAction{
		Symbol: "X",
		Date:   time.Date(2024, 7, 10, 0, 0, 0, 0, time.UTC),
		Kind:   contracts.ActionSplit,
		Value:  2,
	}
	oldDividend := contracts.CorporateAction{
		Symbol: "X",
		Date:   time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		Kind:   contracts.ActionDividend,
		Value:  0.24,
	}

	assert.False(t, NeedsFullReload(nil, lastStored))
	assert.False(t, NeedsFullReload([]contracts.CorporateAction{oldDividend}, lastStored),
		"actions already reflected in stored history")
	assert.True(t, NeedsFullReload([]contracts.CorporateAction{oldDividend, split}, lastStored))
}
