package lighter

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/lighter-xyz/lighter-go/pkg/log"
	"github.com/lighter-xyz/lighter-go/pkg/transport"
)

// OrderService submits, cancels, and queries orders. Mutating calls are
// body-signed: the request carries the wallet signature and nonce over
// the canonical payload, and the venue verifies both.
type OrderService struct {
	tport *transport.Transport
	auth  *transport.AuthTransport
	lg    log.Logger
}

// CreateOrderParams describes an order submission.
type CreateOrderParams struct {
	Symbol        string    `validate:"required"`
	Side          Side      `validate:"required,oneof=BUY SELL"`
	Type          OrderType `validate:"required"`
	Quantity      decimal.Decimal
	Price         *decimal.Decimal
	StopPrice     *decimal.Decimal
	ClientOrderID string
	TimeInForce   TimeInForce `validate:"omitempty,oneof=GTC IOC FOK DAY"`
	PostOnly      *bool
	ReduceOnly    *bool
	ExpiresAt     *time.Time
}

func (p CreateOrderParams) timeInForce() TimeInForce {
	if p.TimeInForce == "" {
		return TimeInForceGTC
	}
	return p.TimeInForce
}

// CancelOrderParams identifies an order to cancel. At least one of
// OrderID or ClientOrderID must be set; ClientOrderID lookups also
// require Symbol.
type CancelOrderParams struct {
	OrderID       string
	ClientOrderID string
	Symbol        string
}

// OrderFilter narrows List results. Zero fields are left out of the
// query.
type OrderFilter struct {
	Symbol    string
	Status    OrderStatus
	Side      Side
	StartTime *time.Time
	EndTime   *time.Time
	Page      uint32
	Limit     uint32
}

type createOrderRequest struct {
	Symbol        string      `json:"symbol"`
	Side          Side        `json:"side"`
	OrderType     OrderType   `json:"orderType"`
	Quantity      string      `json:"quantity"`
	Price         string      `json:"price,omitempty"`
	StopPrice     string      `json:"stopPrice,omitempty"`
	ClientOrderID string      `json:"clientOrderId,omitempty"`
	TimeInForce   TimeInForce `json:"timeInForce"`
	PostOnly      *bool       `json:"postOnly,omitempty"`
	ReduceOnly    *bool       `json:"reduceOnly,omitempty"`
	ExpiresAt     *time.Time  `json:"expiresAt,omitempty"`
	Signature     string      `json:"signature"`
	Nonce         uint64      `json:"nonce"`
}

type cancelOrderRequest struct {
	OrderID       string `json:"orderId,omitempty"`
	ClientOrderID string `json:"clientOrderId,omitempty"`
	Symbol        string `json:"symbol,omitempty"`
	Signature     string `json:"signature"`
	Nonce         uint64 `json:"nonce"`
}

type cancelAllOrdersRequest struct {
	Symbol    string `json:"symbol,omitempty"`
	Signature string `json:"signature"`
	Nonce     uint64 `json:"nonce"`
}

type cancelAllOrdersResult struct {
	CancelledCount int `json:"cancelled_count"`
}

// Create validates, signs, and submits a new order.
func (s *OrderService) Create(ctx context.Context, params CreateOrderParams) (Order, error) {
	if s.auth == nil {
		return Order{}, ErrReadOnly
	}
	if err := validate.Struct(params); err != nil {
		return Order{}, errors.Wrap(err, "validating order")
	}
	if !params.Quantity.IsPositive() {
		return Order{}, errors.New("order quantity must be positive")
	}
	if params.Type == OrderTypeLimit && params.Price == nil {
		return Order{}, errors.New("limit orders require a price")
	}
	if params.ClientOrderID == "" {
		// A client-side id makes resubmission after an ambiguous failure
		// idempotent on the venue side.
		params.ClientOrderID = uuid.NewString()
	}

	nonce, err := s.auth.NextNonce()
	if err != nil {
		return Order{}, err
	}
	signature, err := s.signPayload(OrderSignatureMessage(params, nonce))
	if err != nil {
		return Order{}, err
	}

	req := createOrderRequest{
		Symbol:        params.Symbol,
		Side:          params.Side,
		OrderType:     params.Type,
		Quantity:      params.Quantity.String(),
		ClientOrderID: params.ClientOrderID,
		TimeInForce:   params.timeInForce(),
		PostOnly:      params.PostOnly,
		ReduceOnly:    params.ReduceOnly,
		ExpiresAt:     params.ExpiresAt,
		Signature:     signature,
		Nonce:         nonce,
	}
	if params.Price != nil {
		req.Price = params.Price.String()
	}
	if params.StopPrice != nil {
		req.StopPrice = params.StopPrice.String()
	}

	var resp apiResponse[Order]
	if err := s.tport.Post(ctx, "/orders", req, &resp); err != nil {
		return Order{}, errors.Wrap(err, "creating order")
	}
	order, err := resp.unwrap()
	if err != nil {
		return Order{}, err
	}
	s.lg.Info("order created", "id", order.ID, "symbol", order.Symbol, "side", order.Side)
	return order, nil
}

// Cancel signs and submits a cancellation for a single order.
func (s *OrderService) Cancel(ctx context.Context, params CancelOrderParams) (Order, error) {
	if s.auth == nil {
		return Order{}, ErrReadOnly
	}
	if params.OrderID == "" && params.ClientOrderID == "" {
		return Order{}, errors.New("cancel requires an order id or client order id")
	}
	if params.OrderID == "" && params.Symbol == "" {
		return Order{}, errors.New("client order id cancels require a symbol")
	}

	nonce, err := s.auth.NextNonce()
	if err != nil {
		return Order{}, err
	}
	signature, err := s.signPayload(CancelSignatureMessage(params, nonce))
	if err != nil {
		return Order{}, err
	}

	req := cancelOrderRequest{
		OrderID:       params.OrderID,
		ClientOrderID: params.ClientOrderID,
		Symbol:        params.Symbol,
		Signature:     signature,
		Nonce:         nonce,
	}
	var resp apiResponse[Order]
	if err := s.tport.Execute(ctx, http.MethodDelete, "/orders", req, nil, &resp); err != nil {
		return Order{}, errors.Wrap(err, "cancelling order")
	}
	return resp.unwrap()
}

// CancelAll signs and submits a cancel-all. An empty symbol cancels
// every open order on the account. It returns the number of orders the
// venue cancelled.
func (s *OrderService) CancelAll(ctx context.Context, symbol string) (int, error) {
	if s.auth == nil {
		return 0, ErrReadOnly
	}

	nonce, err := s.auth.NextNonce()
	if err != nil {
		return 0, err
	}
	signature, err := s.signPayload(CancelAllSignatureMessage(symbol, nonce))
	if err != nil {
		return 0, err
	}

	req := cancelAllOrdersRequest{Symbol: symbol, Signature: signature, Nonce: nonce}
	var resp apiResponse[cancelAllOrdersResult]
	if err := s.tport.Execute(ctx, http.MethodDelete, "/orders/all", req, nil, &resp); err != nil {
		return 0, errors.Wrap(err, "cancelling orders")
	}
	result, err := resp.unwrap()
	if err != nil {
		return 0, err
	}
	return result.CancelledCount, nil
}

// Get fetches a single order by venue id.
func (s *OrderService) Get(ctx context.Context, orderID string) (Order, error) {
	if s.auth == nil {
		return Order{}, ErrReadOnly
	}
	var resp apiResponse[Order]
	if err := s.auth.Get(ctx, "/orders/"+url.PathEscape(orderID), &resp); err != nil {
		return Order{}, errors.Wrap(err, "fetching order")
	}
	return resp.unwrap()
}

// List fetches the account's orders matching the filter.
func (s *OrderService) List(ctx context.Context, filter OrderFilter) ([]Order, *Pagination, error) {
	if s.auth == nil {
		return nil, nil, ErrReadOnly
	}
	var resp apiResponse[[]Order]
	if err := s.auth.Get(ctx, "/orders"+filter.query(), &resp); err != nil {
		return nil, nil, errors.Wrap(err, "listing orders")
	}
	orders, err := resp.unwrap()
	if err != nil {
		return nil, nil, err
	}
	return orders, resp.Pagination, nil
}

// Trades fetches the account's fills for a symbol. An empty symbol
// returns fills across all symbols.
func (s *OrderService) Trades(ctx context.Context, symbol string, page, limit uint32) ([]Trade, *Pagination, error) {
	if s.auth == nil {
		return nil, nil, ErrReadOnly
	}
	query := url.Values{}
	if symbol != "" {
		query.Set("symbol", symbol)
	}
	if page > 0 {
		query.Set("page", strconv.FormatUint(uint64(page), 10))
	}
	if limit > 0 {
		query.Set("limit", strconv.FormatUint(uint64(limit), 10))
	}
	path := "/trades"
	if encoded := query.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var resp apiResponse[[]Trade]
	if err := s.auth.Get(ctx, path, &resp); err != nil {
		return nil, nil, errors.Wrap(err, "listing trades")
	}
	trades, err := resp.unwrap()
	if err != nil {
		return nil, nil, err
	}
	return trades, resp.Pagination, nil
}

func (s *OrderService) signPayload(message []byte, err error) (string, error) {
	if err != nil {
		return "", err
	}
	signature, err := s.auth.SignMessage(message)
	if err != nil {
		return "", err
	}
	return signature.String(), nil
}

func (f OrderFilter) query() string {
	query := url.Values{}
	if f.Symbol != "" {
		query.Set("symbol", f.Symbol)
	}
	if f.Status != "" {
		query.Set("status", string(f.Status))
	}
	if f.Side != "" {
		query.Set("side", string(f.Side))
	}
	if f.StartTime != nil {
		query.Set("start_time", strconv.FormatInt(f.StartTime.UnixMilli(), 10))
	}
	if f.EndTime != nil {
		query.Set("end_time", strconv.FormatInt(f.EndTime.UnixMilli(), 10))
	}
	if f.Page > 0 {
		query.Set("page", strconv.FormatUint(uint64(f.Page), 10))
	}
	if f.Limit > 0 {
		query.Set("limit", strconv.FormatUint(uint64(f.Limit), 10))
	}
	encoded := query.Encode()
	if encoded == "" {
		return ""
	}
	return "?" + encoded
}
