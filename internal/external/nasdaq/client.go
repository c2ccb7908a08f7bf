package nasdaq

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/uswizard/backend/internal/contracts"
	"github.com/uswizard/backend/pkg/httputil"
	"github.com/uswizard/backend/pkg/logger"
)

// Client fetches the exchange ticker list from the Nasdaq screener API.
// All universe discovery calls go through here.
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
}

func NewClient(httpClient *httputil.Client, log *logger.Logger, baseURL string) *Client {
	if baseURL == "" {
		baseURL = "https://api.nasdaq.com"
	}
	return &Client{
		httpClient: httpClient,
		logger:     log,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
	}
}

// screenerResponse mirrors the /api/screener/stocks payload. Numeric
// fields arrive as display strings; only the ones the universe needs are
// mapped.
type screenerResponse struct {
	Data struct {
		Rows []screenerRow `json:"rows"`
	} `json:"data"`
	Status struct {
		RCode int `json:"rCode"`
	} `json:"status"`
}

type screenerRow struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	IPOYear  string `json:"ipoyear"`
	Sector   string `json:"sector"`
	Industry string `json:"industry"`
}

// ListUniverse downloads every listed symbol for one exchange. The
// screener requires browser-looking headers; without them it returns an
// empty body.
func (c *Client) ListUniverse(ctx context.Context, market contracts.Market) ([]contracts.Ticker, error) {
	url := fmt.Sprintf("%s/api/screener/stocks?tableonly=true&download=true&exchange=%s",
		c.baseURL, strings.ToLower(string(market)))

	resp, err := c.httpClient.GetWithHeaders(ctx, url, map[string]string{
		"User-Agent": "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36",
		"Accept":     "application/json",
	})
	if err != nil {
		return nil, fmt.Errorf("nasdaq screener request: %w: %v", contracts.ErrProviderFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("nasdaq screener status %d: %w", resp.StatusCode, contracts.ErrProviderFailure)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read screener body: %w", err)
	}

	tickers, err := parseScreener(body, market)
	if err != nil {
		return nil, fmt.Errorf("parse screener response: %w", err)
	}

	c.logger.WithFields(map[string]interface{}{
		"market": string(market),
		"count":  len(tickers),
	}).Debug("Fetched universe")
	return tickers, nil
}

func parseScreener(body []byte, market contracts.Market) ([]contracts.Ticker, error) {
	var payload screenerResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}

	tickers := make([]contracts.Ticker, 0, len(payload.Data.Rows))
	for _, row := range payload.Data.Rows {
		symbol := strings.TrimSpace(row.Symbol)
		if symbol == "" {
			continue
		}
		ipoYear := 0
		if y, err := strconv.Atoi(strings.TrimSpace(row.IPOYear)); err == nil {
			ipoYear = y
		}
		tickers = append(tickers, contracts.Ticker{
			Symbol:   symbol,
			Market:   market,
			Name:     strings.TrimSpace(row.Name),
			Sector:   strings.TrimSpace(row.Sector),
			Industry: strings.TrimSpace(row.Industry),
			IPOYear:  ipoYear,
		})
	}
	return tickers, nil
}
