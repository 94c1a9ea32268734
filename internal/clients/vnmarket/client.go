package vnmarket

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/vnfinlab/vnquant/internal/domain"
)

// Client fetches symbol lists, OHLCV history and financial statements
// from the Vietnamese market data provider.
type Client struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// NewClient creates a new market data client.
func NewClient(baseURL string, log zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log.With().Str("client", "vnmarket").Logger(),
	}
}

// GetHistory fetches OHLCV bars for a symbol between two dates.
func (c *Client) GetHistory(symbol string, start, end time.Time, interval domain.Interval) (domain.PriceSeries, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("from", fmt.Sprintf("%d", start.Unix()))
	params.Set("to", fmt.Sprintf("%d", end.Unix()))
	params.Set("resolution", string(interval))

	var resp quoteHistoryResponse
	if err := c.getJSON("/stock/history?"+params.Encode(), &resp); err != nil {
		return domain.PriceSeries{}, fmt.Errorf("failed to fetch history for %s: %w", symbol, err)
	}

	n := len(resp.Time)
	if len(resp.Open) != n || len(resp.High) != n || len(resp.Low) != n || len(resp.Close) != n || len(resp.Volume) != n {
		return domain.PriceSeries{}, fmt.Errorf("provider returned ragged history columns for %s", symbol)
	}

	series := domain.PriceSeries{Symbol: symbol, Bars: make([]domain.PriceBar, n)}
	for i := 0; i < n; i++ {
		series.Bars[i] = domain.PriceBar{
			Date:   time.Unix(resp.Time[i], 0).UTC(),
			Open:   resp.Open[i],
			High:   resp.High[i],
			Low:    resp.Low[i],
			Close:  resp.Close[i],
			Volume: resp.Volume[i],
		}
	}

	if err := series.Validate(); err != nil {
		return domain.PriceSeries{}, fmt.Errorf("provider returned invalid series: %w", err)
	}
	return series, nil
}

// GetStatement fetches one financial statement table for a ticker.
// Column names keep the provider's spellings; the fundamentals
// normalizer resolves them downstream.
func (c *Client) GetStatement(ticker string, st domain.StatementType, period domain.Period) (domain.StatementTable, error) {
	params := url.Values{}
	params.Set("ticker", ticker)
	params.Set("type", string(st))
	params.Set("period", string(period))

	var resp statementResponse
	if err := c.getJSON("/stock/financials?"+params.Encode(), &resp); err != nil {
		return domain.StatementTable{}, fmt.Errorf("failed to fetch %s for %s: %w", st, ticker, err)
	}

	table := domain.StatementTable{Ticker: ticker, Type: st, Period: period}
	for _, item := range resp.Items {
		table.Rows = append(table.Rows, domain.StatementRow{
			Ticker:  ticker,
			Year:    item.Year,
			Quarter: item.Quarter,
			Values:  item.Values,
		})
	}
	return table, nil
}

// GetSymbols fetches the listed symbol universe.
func (c *Client) GetSymbols() ([]ListedSymbol, error) {
	var resp listingResponse
	if err := c.getJSON("/stock/listing", &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch symbol list: %w", err)
	}
	return resp.Symbols, nil
}

func (c *Client) getJSON(path string, out interface{}) error {
	resp, err := c.client.Get(c.baseURL + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("provider returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
