package lighter

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lighter-xyz/lighter-go/pkg/transport"
)

// Side is the direction of an order or position.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// OrderType identifies the venue order type.
type OrderType string

const (
	OrderTypeLimit           OrderType = "LIMIT"
	OrderTypeMarket          OrderType = "MARKET"
	OrderTypeStopLoss        OrderType = "STOP_LOSS"
	OrderTypeStopLossLimit   OrderType = "STOP_LOSS_LIMIT"
	OrderTypeTakeProfit      OrderType = "TAKE_PROFIT"
	OrderTypeTakeProfitLimit OrderType = "TAKE_PROFIT_LIMIT"
	OrderTypeTwap            OrderType = "TWAP"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPending         OrderStatus = "PENDING"
	OrderStatusOpen            OrderStatus = "OPEN"
	OrderStatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	OrderStatusFilled          OrderStatus = "FILLED"
	OrderStatusCancelled       OrderStatus = "CANCELLED"
	OrderStatusRejected        OrderStatus = "REJECTED"
)

// TimeInForce controls how long an order stays working.
type TimeInForce string

const (
	TimeInForceGTC TimeInForce = "GTC"
	TimeInForceIOC TimeInForce = "IOC"
	TimeInForceFOK TimeInForce = "FOK"
	TimeInForceDay TimeInForce = "DAY"
)

// AccountTier is the venue account tier.
type AccountTier string

const (
	AccountTierStandard AccountTier = "STANDARD"
	AccountTierPremium  AccountTier = "PREMIUM"
)

// MarginType is the margining mode of a position.
type MarginType string

const (
	MarginTypeCross    MarginType = "CROSS"
	MarginTypeIsolated MarginType = "ISOLATED"
)

// Interval is a candlestick resolution.
type Interval string

const (
	Interval1m  Interval = "1m"
	Interval5m  Interval = "5m"
	Interval15m Interval = "15m"
	Interval30m Interval = "30m"
	Interval1h  Interval = "1h"
	Interval4h  Interval = "4h"
	Interval1d  Interval = "1d"
	Interval1w  Interval = "1w"
)

// Account is the venue's account record for a wallet.
type Account struct {
	ID                  string      `json:"id"`
	Address             string      `json:"address"`
	Tier                AccountTier `json:"tier"`
	CreatedAt           time.Time   `json:"created_at"`
	UpdatedAt           time.Time   `json:"updated_at"`
	Balances            []Balance   `json:"balances"`
	Positions           []Position  `json:"positions"`
	TierSwitchAllowedAt *time.Time  `json:"tier_switch_allowed_at,omitempty"`
}

// Balance is a per-asset balance breakdown.
type Balance struct {
	Asset     string          `json:"asset"`
	Total     decimal.Decimal `json:"total"`
	Available decimal.Decimal `json:"available"`
	Locked    decimal.Decimal `json:"locked"`
}

// Position is an open derivative position.
type Position struct {
	Symbol        string          `json:"symbol"`
	Side          Side            `json:"side"`
	Size          decimal.Decimal `json:"size"`
	EntryPrice    decimal.Decimal `json:"entry_price"`
	MarkPrice     decimal.Decimal `json:"mark_price"`
	UnrealizedPnl decimal.Decimal `json:"unrealized_pnl"`
	MarginType    MarginType      `json:"margin_type"`
	Leverage      decimal.Decimal `json:"leverage"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// AccountStats are lifetime trading statistics for an account.
type AccountStats struct {
	TotalVolume   decimal.Decimal `json:"total_volume"`
	MakerVolume   decimal.Decimal `json:"maker_volume"`
	TakerVolume   decimal.Decimal `json:"taker_volume"`
	TotalFeesPaid decimal.Decimal `json:"total_fees_paid"`
	TotalTrades   uint64          `json:"total_trades"`
	WinRate       decimal.Decimal `json:"win_rate"`
	Pnl           decimal.Decimal `json:"pnl"`
}

// Order is a venue order.
type Order struct {
	ID                string           `json:"id"`
	ClientOrderID     string           `json:"clientOrderId,omitempty"`
	Symbol            string           `json:"symbol"`
	Side              Side             `json:"side"`
	Type              OrderType        `json:"orderType"`
	Status            OrderStatus      `json:"status"`
	Quantity          decimal.Decimal  `json:"quantity"`
	Price             *decimal.Decimal `json:"price,omitempty"`
	StopPrice         *decimal.Decimal `json:"stopPrice,omitempty"`
	FilledQuantity    decimal.Decimal  `json:"filledQuantity"`
	RemainingQuantity decimal.Decimal  `json:"remainingQuantity"`
	AverageFillPrice  *decimal.Decimal `json:"averageFillPrice,omitempty"`
	Fee               *decimal.Decimal `json:"fee,omitempty"`
	TimeInForce       TimeInForce      `json:"timeInForce"`
	CreatedAt         time.Time        `json:"createdAt"`
	UpdatedAt         time.Time        `json:"updatedAt"`
	ExpiresAt         *time.Time       `json:"expiresAt,omitempty"`
}

// Trade is a single fill.
type Trade struct {
	ID        string          `json:"id"`
	OrderID   string          `json:"orderId"`
	Symbol    string          `json:"symbol"`
	Side      Side            `json:"side"`
	Quantity  decimal.Decimal `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Fee       decimal.Decimal `json:"fee"`
	FeeAsset  string          `json:"feeAsset"`
	IsMaker   bool            `json:"isMaker"`
	Timestamp time.Time       `json:"timestamp"`
}

// Candlestick is one OHLCV bar.
type Candlestick struct {
	Symbol      string          `json:"symbol"`
	Interval    Interval        `json:"interval"`
	OpenTime    time.Time       `json:"open_time"`
	CloseTime   time.Time       `json:"close_time"`
	Open        decimal.Decimal `json:"open"`
	High        decimal.Decimal `json:"high"`
	Low         decimal.Decimal `json:"low"`
	Close       decimal.Decimal `json:"close"`
	Volume      decimal.Decimal `json:"volume"`
	QuoteVolume decimal.Decimal `json:"quote_volume"`
	TradeCount  uint32          `json:"trade_count"`
}

// Ticker is the latest traded price for a symbol.
type Ticker struct {
	Symbol    string          `json:"symbol"`
	Price     decimal.Decimal `json:"price"`
	Timestamp time.Time       `json:"timestamp"`
}

// PriceLevel is one level of an order book side.
type PriceLevel struct {
	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"quantity"`
}

// OrderBook is a depth snapshot.
type OrderBook struct {
	Bids      []PriceLevel `json:"bids"`
	Asks      []PriceLevel `json:"asks"`
	Timestamp time.Time    `json:"timestamp"`
}

// Pagination describes the page window of a list response.
type Pagination struct {
	Page    uint32 `json:"page"`
	Limit   uint32 `json:"limit"`
	Total   uint64 `json:"total"`
	HasNext bool   `json:"has_next"`
}

// apiResponse is the venue's standard response envelope.
type apiResponse[T any] struct {
	Success    bool        `json:"success"`
	Data       *T          `json:"data,omitempty"`
	Error      string      `json:"error,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// unwrap returns the envelope's data or the venue's error. A successful
// envelope without data maps to a not-found rejection, mirroring the
// venue's REST semantics.
func (r apiResponse[T]) unwrap() (T, error) {
	if r.Data != nil && (r.Success || r.Error == "") {
		return *r.Data, nil
	}

	var zero T
	message := r.Error
	if message == "" {
		message = "not found"
	}
	return zero, &transport.APIError{Status: http.StatusNotFound, Message: message}
}
