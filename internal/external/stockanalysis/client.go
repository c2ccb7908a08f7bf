package stockanalysis

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/uswizard/backend/internal/contracts"
	"github.com/uswizard/backend/pkg/httputil"
	"github.com/uswizard/backend/pkg/logger"
)

// Client scrapes the stockanalysis.com corporate-actions pages. It is a
// secondary action source: the pipeline cross-checks recent splits here
// when the chart API reports none, since chart events occasionally lag a
// day behind the effective date.
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
}

func NewClient(httpClient *httputil.Client, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log,
		baseURL:    "https://stockanalysis.com",
	}
}

// FetchRecentSplits scrapes the splits calendar and returns actions
// effective at or after since, newest first as listed.
func (c *Client) FetchRecentSplits(ctx context.Context, since time.Time) ([]contracts.CorporateAction, error) {
	fullURL := c.baseURL + "/actions/splits/"

	resp, err := c.httpClient.GetWithHeaders(ctx, fullURL, map[string]string{
		"User-Agent": "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36",
	})
	if err != nil {
		return nil, fmt.Errorf("splits page request: %w: %v", contracts.ErrProviderFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("splits page status %d: %w", resp.StatusCode, contracts.ErrProviderFailure)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read splits page: %w", err)
	}

	actions, err := parseSplitsHTML(string(body), since)
	if err != nil {
		return nil, fmt.Errorf("parse splits page: %w", err)
	}

	c.logger.WithField("count", len(actions)).Debug("Fetched recent splits")
	return actions, nil
}

// parseSplitsHTML walks the first data table on the page. Expected
// columns: date | symbol | company | ratio ("4:1" or "1:10").
func parseSplitsHTML(html string, since time.Time) ([]contracts.CorporateAction, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	table := doc.Find("table").First()
	if table.Length() == 0 {
		return nil, fmt.Errorf("no table in splits page")
	}

	day := contracts.Day(since)
	var actions []contracts.CorporateAction
	table.Find("tbody tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 4 {
			return
		}

		date, err := parseSplitDate(strings.TrimSpace(cells.Eq(0).Text()))
		if err != nil || date.Before(day) {
			return
		}
		symbol := strings.TrimSpace(cells.Eq(1).Text())
		ratio, ok := parseRatio(strings.TrimSpace(cells.Eq(3).Text()))
		if symbol == "" || !ok {
			return
		}

		actions = append(actions, contracts.CorporateAction{
			Symbol: symbol,
			Date:   date,
			Kind:   contracts.ActionSplit,
			Value:  ratio,
		})
	})
	return actions, nil
}

func parseSplitDate(s string) (time.Time, error) {
	for _, layout := range []string{"Jan 2, 2006", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return contracts.Day(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// parseRatio converts "4:1" style text to the split factor (4.0). A
// reverse split like "1:10" yields 0.1.
func parseRatio(s string) (float64, bool) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, false
	}
	num, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	den, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err1 != nil || err2 != nil || den == 0 {
		return 0, false
	}
	return num / den, true
}
