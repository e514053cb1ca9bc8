// Package mexc is a thin client for the MEXC spot REST API: request signing,
// rate limiting and the handful of endpoints the bot needs. No algorithmic
// logic lives here.
package mexc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/accumbot/internal/domain"
)

const (
	// DefaultBaseURL is the public MEXC spot API endpoint.
	DefaultBaseURL = "https://api.mexc.com"

	defaultRecvWindow  = 5000
	defaultMinInterval = 50 * time.Millisecond
	requestTimeout     = 60 * time.Second
)

// Client talks to the MEXC spot REST API. All outbound calls share one
// minimum-interval rate limiter.
type Client struct {
	apiKey     string
	apiSecret  string
	baseURL    string
	recvWindow int64
	httpc      *http.Client
	limiter    *RateLimiter
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL overrides the API endpoint.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) { c.baseURL = u }
}

// WithRecvWindow sets the signed-request receive window in milliseconds.
func WithRecvWindow(ms int64) ClientOption {
	return func(c *Client) { c.recvWindow = ms }
}

// WithHTTPClient replaces the underlying HTTP client (used in tests).
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) { c.httpc = h }
}

// NewClient creates a MEXC spot client. Empty credentials are allowed for
// public endpoints (klines, book ticker).
func NewClient(apiKey, apiSecret string, opts ...ClientOption) *Client {
	c := &Client{
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		baseURL:    DefaultBaseURL,
		recvWindow: defaultRecvWindow,
		httpc:      &http.Client{Timeout: requestTimeout},
		limiter:    NewRateLimiter(defaultMinInterval),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AssetBalance free and locked amounts for one asset.
type AssetBalance struct {
	Asset  string
	Free   decimal.Decimal
	Locked decimal.Decimal
}

// OrderRequest describes an order to place. Exactly one of Quantity (base)
// or QuoteOrderQty (quote) must be set for market orders.
type OrderRequest struct {
	Symbol        string
	Side          domain.Side
	Type          string
	Quantity      decimal.Decimal
	QuoteOrderQty decimal.Decimal
}

// OrderResult is the exchange confirmation with executed amounts when available.
type OrderResult struct {
	OrderID     string
	Symbol      string
	Status      string
	Price       decimal.Decimal
	ExecutedQty decimal.Decimal
	// CumQuoteQty is the quote currency actually transacted.
	CumQuoteQty decimal.Decimal
}

// Ping checks connectivity to the exchange.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/api/v3/ping", nil, false, nil)
}

// Klines fetches up to limit candles for the symbol, ascending by open time.
func (c *Client) Klines(ctx context.Context, symbol, interval string, limit int) ([]domain.Candle, error) {
	return c.KlinesBefore(ctx, symbol, interval, limit, time.Time{})
}

// KlinesBefore fetches up to limit candles ending strictly before endTime.
// A zero endTime means "up to now"; used by the history fetcher to paginate backward.
func (c *Client) KlinesBefore(ctx context.Context, symbol, interval string, limit int, endTime time.Time) ([]domain.Candle, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("interval", interval)
	params.Set("limit", strconv.Itoa(limit))
	if !endTime.IsZero() {
		params.Set("endTime", strconv.FormatInt(endTime.UnixMilli(), 10))
	}

	var rows [][]any
	if err := c.do(ctx, http.MethodGet, "/api/v3/klines", params, false, &rows); err != nil {
		return nil, errors.Wrapf(err, "failed to fetch klines for %s", symbol)
	}

	candles := make([]domain.Candle, 0, len(rows))
	for i, row := range rows {
		candle, err := parseKlineRow(row)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse kline at index %d", i)
		}
		candles = append(candles, candle)
	}
	return candles, nil
}

// BookTickerBid returns the current best bid price for the symbol.
func (c *Client) BookTickerBid(ctx context.Context, symbol string) (decimal.Decimal, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	var resp struct {
		BidPrice string `json:"bidPrice"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v3/ticker/bookTicker", params, false, &resp); err != nil {
		return decimal.Zero, errors.Wrapf(err, "failed to fetch book ticker for %s", symbol)
	}

	bid, err := decimal.NewFromString(resp.BidPrice)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "failed to parse bid price")
	}
	return bid, nil
}

// Account returns per-asset balances of the spot account.
func (c *Client) Account(ctx context.Context) ([]AssetBalance, error) {
	var resp struct {
		Balances []struct {
			Asset  string `json:"asset"`
			Free   string `json:"free"`
			Locked string `json:"locked"`
		} `json:"balances"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v3/account", nil, true, &resp); err != nil {
		return nil, errors.Wrap(err, "failed to fetch account")
	}

	balances := make([]AssetBalance, 0, len(resp.Balances))
	for _, b := range resp.Balances {
		free, err := decimal.NewFromString(b.Free)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse free balance of %s", b.Asset)
		}
		locked, err := decimal.NewFromString(b.Locked)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse locked balance of %s", b.Asset)
		}
		balances = append(balances, AssetBalance{Asset: b.Asset, Free: free, Locked: locked})
	}
	return balances, nil
}

// PlaceOrder submits an order and returns the exchange confirmation.
func (c *Client) PlaceOrder(ctx context.Context, req OrderRequest) (*OrderResult, error) {
	params := url.Values{}
	params.Set("symbol", req.Symbol)
	params.Set("side", string(req.Side))
	params.Set("type", req.Type)
	if req.Quantity.IsPositive() {
		params.Set("quantity", req.Quantity.String())
	}
	if req.QuoteOrderQty.IsPositive() {
		params.Set("quoteOrderQty", req.QuoteOrderQty.String())
	}

	var resp struct {
		OrderID     json.Number `json:"orderId"`
		Symbol      string      `json:"symbol"`
		Status      string      `json:"status"`
		Price       string      `json:"price"`
		ExecutedQty string      `json:"executedQty"`
		CumQuoteQty string      `json:"cummulativeQuoteQty"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v3/order", params, true, &resp); err != nil {
		return nil, errors.Wrapf(err, "failed to place %s order for %s", req.Side, req.Symbol)
	}

	result := &OrderResult{
		OrderID: resp.OrderID.String(),
		Symbol:  resp.Symbol,
		Status:  resp.Status,
	}

	var err error
	if result.Price, err = parseOptionalDecimal(resp.Price); err != nil {
		return nil, errors.Wrap(err, "failed to parse order price")
	}
	if result.ExecutedQty, err = parseOptionalDecimal(resp.ExecutedQty); err != nil {
		return nil, errors.Wrap(err, "failed to parse executed quantity")
	}
	if result.CumQuoteQty, err = parseOptionalDecimal(resp.CumQuoteQty); err != nil {
		return nil, errors.Wrap(err, "failed to parse executed quote amount")
	}
	return result, nil
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, signed bool, out any) error {
	c.limiter.Wait()

	if params == nil {
		params = url.Values{}
	}

	if signed {
		params.Set("recvWindow", strconv.FormatInt(c.recvWindow, 10))
		params.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
		params.Set("signature", SignParams(c.apiSecret, params))
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return errors.Wrap(err, "failed to build request")
	}
	req.URL.RawQuery = params.Encode()
	req.Header.Set("Content-Type", "application/json")
	if signed {
		req.Header.Set("X-MEXC-APIKEY", c.apiKey)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return errors.Wrapf(err, "request %s %s failed", method, path)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "failed to read response body")
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return &APIError{StatusCode: resp.StatusCode, Path: path, Body: string(body)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return errors.Wrapf(err, "failed to decode response of %s", path)
	}
	return nil
}

// parseKlineRow converts one raw kline array
// [openTime, open, high, low, close, volume, closeTime, ...] into a Candle.
func parseKlineRow(row []any) (domain.Candle, error) {
	if len(row) < 7 {
		return domain.Candle{}, fmt.Errorf("kline row too short: %d fields", len(row))
	}

	openTime, err := parseMillis(row[0])
	if err != nil {
		return domain.Candle{}, errors.Wrap(err, "open time")
	}
	closeTime, err := parseMillis(row[6])
	if err != nil {
		return domain.Candle{}, errors.Wrap(err, "close time")
	}

	prices := make([]decimal.Decimal, 5)
	for i, field := range []string{"open", "high", "low", "close", "volume"} {
		prices[i], err = parsePriceField(row[i+1])
		if err != nil {
			return domain.Candle{}, errors.Wrap(err, field)
		}
	}

	return domain.Candle{
		OpenTime:  openTime,
		Open:      prices[0],
		High:      prices[1],
		Low:       prices[2],
		Close:     prices[3],
		Volume:    prices[4],
		CloseTime: closeTime,
	}, nil
}

func parseMillis(v any) (time.Time, error) {
	ms, ok := v.(float64)
	if !ok {
		return time.Time{}, fmt.Errorf("expected numeric timestamp, got %T", v)
	}
	return time.UnixMilli(int64(ms)), nil
}

func parsePriceField(v any) (decimal.Decimal, error) {
	switch val := v.(type) {
	case string:
		return decimal.NewFromString(val)
	case float64:
		return decimal.NewFromFloat(val), nil
	default:
		return decimal.Zero, fmt.Errorf("unexpected price type %T", v)
	}
}

func parseOptionalDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}
