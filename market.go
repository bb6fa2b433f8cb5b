package lighter

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/lighter-xyz/lighter-go/pkg/transport"
)

// MarketService reads public market data. None of its calls require a
// signer.
type MarketService struct {
	tport *transport.Transport
}

// MarketStats is the rolling 24h summary for a symbol.
type MarketStats struct {
	Symbol             string          `json:"symbol"`
	PriceChange        decimal.Decimal `json:"price_change"`
	PriceChangePercent decimal.Decimal `json:"price_change_percent"`
	LastPrice          decimal.Decimal `json:"last_price"`
	BidPrice           decimal.Decimal `json:"bid_price"`
	AskPrice           decimal.Decimal `json:"ask_price"`
	Volume             decimal.Decimal `json:"volume"`
	QuoteVolume        decimal.Decimal `json:"quote_volume"`
	HighPrice          decimal.Decimal `json:"high_price"`
	LowPrice           decimal.Decimal `json:"low_price"`
	OpenPrice          decimal.Decimal `json:"open_price"`
	Timestamp          time.Time       `json:"timestamp"`
}

// CandlestickQuery selects a candlestick range. Symbol and Interval are
// required; the rest narrow the window.
type CandlestickQuery struct {
	Symbol    string   `validate:"required"`
	Interval  Interval `validate:"required"`
	StartTime *time.Time
	EndTime   *time.Time
	Limit     uint32
}

// Candlesticks fetches OHLCV bars for a symbol.
func (s *MarketService) Candlesticks(ctx context.Context, q CandlestickQuery) ([]Candlestick, error) {
	if err := validate.Struct(q); err != nil {
		return nil, errors.Wrap(err, "validating candlestick query")
	}

	query := url.Values{}
	query.Set("symbol", q.Symbol)
	query.Set("interval", string(q.Interval))
	if q.StartTime != nil {
		query.Set("start_time", strconv.FormatInt(q.StartTime.UnixMilli(), 10))
	}
	if q.EndTime != nil {
		query.Set("end_time", strconv.FormatInt(q.EndTime.UnixMilli(), 10))
	}
	if q.Limit > 0 {
		query.Set("limit", strconv.FormatUint(uint64(q.Limit), 10))
	}

	var resp apiResponse[[]Candlestick]
	if err := s.tport.Get(ctx, "/candlesticks?"+query.Encode(), &resp); err != nil {
		return nil, errors.Wrap(err, "fetching candlesticks")
	}
	return resp.unwrap()
}

// Stats fetches the 24h summary for one symbol.
func (s *MarketService) Stats(ctx context.Context, symbol string) (MarketStats, error) {
	var resp apiResponse[MarketStats]
	if err := s.tport.Get(ctx, "/market/stats/"+url.PathEscape(symbol), &resp); err != nil {
		return MarketStats{}, errors.Wrap(err, "fetching market stats")
	}
	return resp.unwrap()
}

// AllStats fetches the 24h summary for every listed symbol.
func (s *MarketService) AllStats(ctx context.Context) ([]MarketStats, error) {
	var resp apiResponse[[]MarketStats]
	if err := s.tport.Get(ctx, "/market/stats", &resp); err != nil {
		return nil, errors.Wrap(err, "fetching market stats")
	}
	return resp.unwrap()
}

// Ticker fetches the latest traded price for one symbol.
func (s *MarketService) Ticker(ctx context.Context, symbol string) (Ticker, error) {
	var resp apiResponse[Ticker]
	if err := s.tport.Get(ctx, "/ticker/"+url.PathEscape(symbol), &resp); err != nil {
		return Ticker{}, errors.Wrap(err, "fetching ticker")
	}
	return resp.unwrap()
}

// AllTickers fetches the latest traded price for every listed symbol.
func (s *MarketService) AllTickers(ctx context.Context) ([]Ticker, error) {
	var resp apiResponse[[]Ticker]
	if err := s.tport.Get(ctx, "/ticker", &resp); err != nil {
		return nil, errors.Wrap(err, "fetching tickers")
	}
	return resp.unwrap()
}

// OrderBook fetches a depth snapshot. A zero depth returns the venue's
// default depth.
func (s *MarketService) OrderBook(ctx context.Context, symbol string, depth uint32) (OrderBook, error) {
	path := "/orderbook/" + url.PathEscape(symbol)
	if depth > 0 {
		path += "?depth=" + strconv.FormatUint(uint64(depth), 10)
	}

	var resp apiResponse[OrderBook]
	if err := s.tport.Get(ctx, path, &resp); err != nil {
		return OrderBook{}, errors.Wrap(err, "fetching order book")
	}
	return resp.unwrap()
}
