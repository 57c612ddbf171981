// Package quotes fetches market price data used as the fallback price source
// for unrealized gain/loss calculations when no snapshot carries a price.
package quotes

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client is the narrow price-lookup surface consumed by services. The full
// FinanceClient satisfies it; tests substitute a mock.
type Client interface {
	LatestClose(symbol string) (float64, error)
}

// FinanceClient provides methods for fetching financial data from the Yahoo
// Finance API. It wraps an HTTP client and provides convenient methods for
// querying stock prices and related financial data.
type FinanceClient struct {
	httpClient *http.Client
}

// NewFinanceClient creates a new finance client with default HTTP settings.
func NewFinanceClient() *FinanceClient {
	return &FinanceClient{
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// LatestClose returns the most recent available closing price for a symbol.
// It queries the last five trading days and walks the series backwards past
// null entries for non-trading days.
func (c *FinanceClient) LatestClose(symbol string) (float64, error) {
	response, err := c.QueryFiveDaySymbol(symbol)
	if err != nil {
		return 0, err
	}

	chart, err := c.ParseChart(response)
	if err != nil {
		return 0, err
	}

	for i := len(chart.Indicators) - 1; i >= 0; i-- {
		if chart.Indicators[i].PriceClose > 0 {
			return chart.Indicators[i].PriceClose, nil
		}
	}

	return 0, fmt.Errorf("no usable close price for symbol %s", symbol)
}

// ParseChart converts a raw API response into a structured price chart.
// This method extracts price data (open, close, high, low, volume) and
// metadata (symbol, currency, exchange) from the response format.
//
// The method performs validation to ensure:
//   - Timestamp data is present
//   - Close price data is present
//   - Data arrays have matching lengths
//
// Null entries for non-trading days are carried through as zero values.
func (c *FinanceClient) ParseChart(response Response) (PriceChart, error) {
	if len(response.Chart.Result) == 0 {
		return PriceChart{}, fmt.Errorf("no results in response")
	}

	result := response.Chart.Result[0]

	if len(result.Timestamp) == 0 {
		return PriceChart{}, fmt.Errorf("no price data returned")
	}
	if len(result.Indicators.Quote) == 0 || len(result.Indicators.Quote[0].Close) == 0 {
		return PriceChart{}, fmt.Errorf("no close prices returned")
	}
	if len(result.Indicators.Quote[0].Close) != len(result.Timestamp) {
		return PriceChart{}, fmt.Errorf("mismatched data lengths")
	}

	quote := result.Indicators.Quote[0]
	indicators := make([]Indicators, len(result.Timestamp))
	for i, v := range result.Timestamp {
		indicators[i].Date = time.Unix(v, 0).UTC()
		indicators[i].PriceOpen = deref(quote.Open, i)
		indicators[i].PriceClose = deref(quote.Close, i)
		indicators[i].PriceHigh = deref(quote.High, i)
		indicators[i].PriceLow = deref(quote.Low, i)
		indicators[i].Volume = derefInt(quote.Volume, i)
	}

	return PriceChart{
		Symbol:           result.Meta.Symbol,
		Currency:         result.Meta.Currency,
		ExchangeName:     result.Meta.ExchangeName,
		FullExchangeName: result.Meta.FullExchangeName,
		LongName:         result.Meta.LongName,
		Shortname:        result.Meta.Shortname,
		Indicators:       indicators,
	}, nil
}

// GetIndicatorForDate searches for price data matching a specific date.
// The method performs date-only comparison by truncating both the target and
// indicator dates to midnight UTC, ignoring time components.
func (c PriceChart) GetIndicatorForDate(target time.Time) (Indicators, bool) {
	targetDay := target.UTC().Truncate(24 * time.Hour)
	for _, ind := range c.Indicators {
		if ind.Date.UTC().Truncate(24 * time.Hour).Equal(targetDay) {
			return ind, true
		}
	}
	return Indicators{}, false
}

// QueryFiveDaySymbol fetches the last 5 days of daily price data for a
// symbol. The range-based query format (range=5d) automatically selects the
// most recent 5 trading days.
func (c *FinanceClient) QueryFiveDaySymbol(symbol string) (Response, error) {
	url := fmt.Sprintf("https://query1.finance.yahoo.com/v8/finance/chart/%s?interval=1d&range=5d", symbol)
	result, err := c.query(url)
	if err != nil {
		return Response{}, err
	}
	if len(result.Chart.Result) == 0 {
		return Response{}, fmt.Errorf("no results returned for symbol %s", symbol)
	}

	return result, nil
}

// QuerySymbolByDateRange fetches daily price data for a symbol within a
// specific date range, using the period-based query format with Unix
// timestamps.
func (c *FinanceClient) QuerySymbolByDateRange(symbol string, startDate, endDate time.Time) (Response, error) {
	url := fmt.Sprintf(
		"https://query1.finance.yahoo.com/v8/finance/chart/%s?interval=1d&period1=%d&period2=%d",
		symbol,
		startDate.Unix(),
		endDate.Unix(),
	)
	result, err := c.query(url)
	if err != nil {
		return Response{}, err
	}
	if len(result.Chart.Result) == 0 {
		return Response{}, fmt.Errorf("no results returned for symbol %s", symbol)
	}

	return result, nil
}

// query executes an HTTP request against the quote API, reads the response,
// parses the JSON, and checks for API-level errors. The User-Agent header
// mimics a browser to avoid API blocking.
func (c *FinanceClient) query(url string) (Response, error) {
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return Response{}, err
	}

	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Response{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, err
	}

	var response Response
	if err := json.Unmarshal(data, &response); err != nil {
		return Response{}, err
	}

	if response.Chart.Error != nil {
		return response, fmt.Errorf("quote API error: %s", *response.Chart.Error)
	}

	return response, nil
}

// deref safely extracts a nullable float entry, zero when null or absent.
func deref(values []*float64, i int) float64 {
	if i >= len(values) || values[i] == nil {
		return 0
	}
	return *values[i]
}

// derefInt safely extracts a nullable integer entry, zero when null or absent.
func derefInt(values []*int64, i int) int64 {
	if i >= len(values) || values[i] == nil {
		return 0
	}
	return *values[i]
}
