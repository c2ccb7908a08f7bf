package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/uswizard/backend/internal/contracts"
	"github.com/uswizard/backend/pkg/httputil"
	"github.com/uswizard/backend/pkg/logger"
)

// Client fetches daily bars and corporate actions from the Yahoo Finance
// chart API. All price calls go through here.
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
}

func NewClient(httpClient *httputil.Client, log *logger.Logger, baseURL string) *Client {
	if baseURL == "" {
		baseURL = "https://query1.finance.yahoo.com"
	}
	return &Client{
		httpClient: httpClient,
		logger:     log,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
	}
}

// providerSymbol maps internal reserved symbols to Yahoo's notation.
func providerSymbol(symbol string) string {
	if symbol == contracts.BenchmarkSymbol {
		return "%5EGSPC" // ^GSPC, the S&P 500 index
	}
	return url.PathEscape(symbol)
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []float64 `json:"open"`
					High   []float64 `json:"high"`
					Low    []float64 `json:"low"`
					Close  []float64 `json:"close"`
					Volume []int64   `json:"volume"`
				} `json:"quote"`
				AdjClose []struct {
					AdjClose []float64 `json:"adjclose"`
				} `json:"adjclose"`
			} `json:"indicators"`
			Events struct {
				Dividends map[string]struct {
					Amount float64 `json:"amount"`
					Date   int64   `json:"date"`
				} `json:"dividends"`
				Splits map[string]struct {
					Numerator   float64 `json:"numerator"`
					Denominator float64 `json:"denominator"`
					Date        int64   `json:"date"`
				} `json:"splits"`
			} `json:"events"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (c *Client) fetchChart(ctx context.Context, symbol string, from, to time.Time, events string) (*chartResponse, error) {
	fullURL := fmt.Sprintf(
		"%s/v8/finance/chart/%s?period1=%d&period2=%d&interval=1d&events=%s",
		c.baseURL, providerSymbol(symbol),
		contracts.Day(from).Unix(), contracts.Day(to).AddDate(0, 0, 1).Unix(),
		events)

	resp, err := c.httpClient.GetWithHeaders(ctx, fullURL, map[string]string{
		"User-Agent": "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36",
	})
	if err != nil {
		return nil, fmt.Errorf("yahoo chart request %s: %w: %v", symbol, contracts.ErrProviderFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("yahoo chart %s: %w", symbol, contracts.ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo chart %s status %d: %w", symbol, resp.StatusCode, contracts.ErrProviderFailure)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read chart body: %w", err)
	}

	var payload chartResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("parse chart response %s: %w", symbol, err)
	}
	if payload.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo chart %s: %s: %w",
			symbol, payload.Chart.Error.Description, contracts.ErrProviderFailure)
	}
	if len(payload.Chart.Result) == 0 {
		return nil, fmt.Errorf("yahoo chart %s: empty result: %w", symbol, contracts.ErrProviderFailure)
	}
	return &payload, nil
}

// GetDailyBars fetches the adjusted daily series for [from, to].
func (c *Client) GetDailyBars(ctx context.Context, symbol string, from, to time.Time) ([]contracts.DailyBar, error) {
	payload, err := c.fetchChart(ctx, symbol, from, to, "div%7Csplit")
	if err != nil {
		return nil, err
	}

	bars := parseBars(symbol, payload)
	c.logger.WithFields(map[string]interface{}{
		"symbol": symbol,
		"count":  len(bars),
	}).Debug("Fetched daily bars")
	return bars, nil
}

func parseBars(symbol string, payload *chartResponse) []contracts.DailyBar {
	result := payload.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil
	}
	quote := result.Indicators.Quote[0]
	var adj []float64
	if len(result.Indicators.AdjClose) > 0 {
		adj = result.Indicators.AdjClose[0].AdjClose
	}

	// Ragged payloads ship columns shorter than the timestamp axis; rows
	// past the shortest column are dropped rather than indexed.
	n := len(quote.Close)
	for _, col := range [][]float64{quote.Open, quote.High, quote.Low} {
		if len(col) < n {
			n = len(col)
		}
	}
	if len(quote.Volume) < n {
		n = len(quote.Volume)
	}

	bars := make([]contracts.DailyBar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= n || quote.Close[i] == 0 {
			continue // half-day stubs and gaps come back as zeros
		}
		b := contracts.DailyBar{
			Symbol:   symbol,
			Date:     contracts.Day(time.Unix(ts, 0).UTC()),
			Open:     quote.Open[i],
			High:     quote.High[i],
			Low:      quote.Low[i],
			Close:    quote.Close[i],
			AdjClose: quote.Close[i],
			Volume:   quote.Volume[i],
		}
		if i < len(adj) && adj[i] != 0 {
			b.AdjClose = adj[i]
		}
		bars = append(bars, b)
	}
	return bars
}

// GetCorporateActions fetches splits and dividends recorded at or after
// since. Discovering any of these retroactively invalidates the stored
// adjusted series.
func (c *Client) GetCorporateActions(ctx context.Context, symbol string, since time.Time) ([]contracts.CorporateAction, error) {
	payload, err := c.fetchChart(ctx, symbol, since, time.Now().UTC(), "div%7Csplit")
	if err != nil {
		return nil, err
	}

	day := contracts.Day(since)
	result := payload.Chart.Result[0]
	var actions []contracts.CorporateAction
	for _, d := range result.Events.Dividends {
		date := contracts.Day(time.Unix(d.Date, 0).UTC())
		if date.Before(day) {
			continue
		}
		actions = append(actions, contracts.CorporateAction{
			Symbol: symbol,
			Date:   date,
			Kind:   contracts.ActionDividend,
			Value:  d.Amount,
		})
	}
	for _, s := range result.Events.Splits {
		date := contracts.Day(time.Unix(s.Date, 0).UTC())
		if date.Before(day) || s.Denominator == 0 {
			continue
		}
		actions = append(actions, contracts.CorporateAction{
			Symbol: symbol,
			Date:   date,
			Kind:   contracts.ActionSplit,
			Value:  s.Numerator / s.Denominator,
		})
	}

	sort.Slice(actions, func(i, j int) bool { return actions[i].Date.Before(actions[j].Date) })
	return actions, nil
}
