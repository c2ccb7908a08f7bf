package stockanalysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uswizard/backend/internal/contracts"
)

const splitsFixture = `<!DOCTYPE html>
<html><body>
<main>
<table>
  <thead>
    <tr><th>Date</th><th>Symbol</th><th>Company Name</th><th>Split</th></tr>
  </thead>
  <tbody>
    <tr><td>Jul 3, 2024</td><td>NVDA</td><td>NVIDIA Corporation</td><td>10:1</td></tr>
    <tr><td>Jul 2, 2024</td><td>SIRI</td><td>Sirius XM Holdings</td><td>1:10</td></tr>
    <tr><td>Jun 20, 2024</td><td>OLD</td><td>Old Split Corp</td><td>2:1</td></tr>
    <tr><td>Jul 1, 2024</td><td>BAD</td><td>Broken Ratio Inc</td><td>n/a</td></tr>
  </tbody>
</table>
</main>
</body></html>`

func TestParseSplitsHTML(t *testing.T) {
	since := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	actions, err := parseSplitsHTML(splitsFixture, since)
	require.NoError(t, err)
	require.Len(t, actions, 2, "stale rows and unparsable ratios are dropped")

	assert.Equal(t, contracts.CorporateAction{
		Symbol: "NVDA",
		Date:   time.Date(2024, 7, 3, 0, 0, 0, 0, time.UTC),
		Kind:   contracts.ActionSplit,
		Value:  10,
	}, actions[0])

	assert.Equal(t, "SIRI", actions[1].Symbol)
	assert.InDelta(t, 0.1, actions[1].Value, 1e-12, "reverse split factor below one")
}

func TestParseSplitsHTML_NoTable(t *testing.T) {
	_, err := parseSplitsHTML("<html><body><p>maintenance</p></body></html>", time.Now())
	assert.Error(t, err)
}

func TestParseRatio(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"4:1", 4, true},
		{"1:10", 0.1, true},
		{"3:2", 1.5, true},
		{"", 0, false},
		{"4", 0, false},
		{"4:0", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseRatio(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		if tt.ok {
			assert.InDelta(t, tt.want, got, 1e-12, tt.in)
		}
	}
}
