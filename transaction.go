package lighter

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/lighter-xyz/lighter-go/pkg/log"
	"github.com/lighter-xyz/lighter-go/pkg/transport"
)

// TransactionService reads settlement-layer state and submits
// pre-signed raw transactions.
type TransactionService struct {
	tport *transport.Transport
	auth  *transport.AuthTransport
	lg    log.Logger
}

// TransactionStatus is the settlement state of a transaction.
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "PENDING"
	TransactionStatusConfirmed TransactionStatus = "CONFIRMED"
	TransactionStatusFailed    TransactionStatus = "FAILED"
	TransactionStatusReverted  TransactionStatus = "REVERTED"
)

// Transaction is a settlement-layer transaction record.
type Transaction struct {
	ID               string            `json:"id"`
	Hash             string            `json:"hash"`
	BlockNumber      uint64            `json:"block_number"`
	BlockHash        string            `json:"block_hash"`
	TransactionIndex uint32            `json:"transaction_index"`
	FromAddress      string            `json:"from_address"`
	ToAddress        string            `json:"to_address,omitempty"`
	Value            decimal.Decimal   `json:"value"`
	GasUsed          decimal.Decimal   `json:"gas_used"`
	GasPrice         decimal.Decimal   `json:"gas_price"`
	Status           TransactionStatus `json:"status"`
	Timestamp        time.Time         `json:"timestamp"`
	Confirmations    uint32            `json:"confirmations"`
}

// Block is a settlement-layer block header.
type Block struct {
	Number           uint64          `json:"number"`
	Hash             string          `json:"hash"`
	ParentHash       string          `json:"parent_hash"`
	Timestamp        time.Time       `json:"timestamp"`
	TransactionCount uint32          `json:"transaction_count"`
	GasUsed          decimal.Decimal `json:"gas_used"`
	GasLimit         decimal.Decimal `json:"gas_limit"`
	Miner            string          `json:"miner"`
}

// TxResponse is the venue's acknowledgement of a raw transaction
// submission.
type TxResponse struct {
	Code    int    `json:"code"`
	TxHash  string `json:"tx_hash,omitempty"`
	Message string `json:"message,omitempty"`
}

type sendTxRequest struct {
	TxType int    `json:"tx_type"`
	TxInfo string `json:"tx_info"`
}

type nextNonceResponse struct {
	Nonce uint64 `json:"nonce"`
}

// NextNonce asks the venue for the next expected nonce for the signing
// wallet and seeds the local nonce source so subsequent signed requests
// start above it. Use it to resynchronize after the venue rejects a
// nonce.
func (s *TransactionService) NextNonce(ctx context.Context) (uint64, error) {
	if s.auth == nil {
		return 0, ErrReadOnly
	}

	path := "/nextNonce?address=" + url.QueryEscape(s.auth.Address().Hex())
	var resp nextNonceResponse
	if err := s.tport.Get(ctx, path, &resp); err != nil {
		return 0, errors.Wrap(err, "fetching next nonce")
	}
	s.auth.SeedNonce(resp.Nonce)
	s.lg.Debug("nonce source reseeded", "next", resp.Nonce)
	return resp.Nonce, nil
}

// SendRaw submits a pre-signed transaction envelope. txInfo is the
// signed payload produced out of band; txType identifies the venue
// transaction kind.
func (s *TransactionService) SendRaw(ctx context.Context, txType int, txInfo string) (TxResponse, error) {
	var resp TxResponse
	if err := s.tport.Post(ctx, "/send_tx", sendTxRequest{TxType: txType, TxInfo: txInfo}, &resp); err != nil {
		return TxResponse{}, errors.Wrap(err, "sending transaction")
	}
	if resp.Code != 200 {
		message := resp.Message
		if message == "" {
			message = "transaction rejected"
		}
		return TxResponse{}, &transport.APIError{Status: resp.Code, Message: message}
	}
	return resp, nil
}

// Get fetches a transaction by hash.
func (s *TransactionService) Get(ctx context.Context, txHash string) (Transaction, error) {
	var resp apiResponse[Transaction]
	if err := s.tport.Get(ctx, "/transactions/"+url.PathEscape(txHash), &resp); err != nil {
		return Transaction{}, errors.Wrap(err, "fetching transaction")
	}
	return resp.unwrap()
}

// List fetches transactions involving an address, newest first.
func (s *TransactionService) List(ctx context.Context, address string, page, limit uint32) ([]Transaction, *Pagination, error) {
	query := url.Values{}
	query.Set("address", address)
	if page > 0 {
		query.Set("page", strconv.FormatUint(uint64(page), 10))
	}
	if limit > 0 {
		query.Set("limit", strconv.FormatUint(uint64(limit), 10))
	}

	var resp apiResponse[[]Transaction]
	if err := s.tport.Get(ctx, "/transactions?"+query.Encode(), &resp); err != nil {
		return nil, nil, errors.Wrap(err, "listing transactions")
	}
	txs, err := resp.unwrap()
	if err != nil {
		return nil, nil, err
	}
	return txs, resp.Pagination, nil
}

// Block fetches a block header by number.
func (s *TransactionService) Block(ctx context.Context, number uint64) (Block, error) {
	var resp apiResponse[Block]
	if err := s.tport.Get(ctx, "/blocks/"+strconv.FormatUint(number, 10), &resp); err != nil {
		return Block{}, errors.Wrap(err, "fetching block")
	}
	return resp.unwrap()
}

// LatestBlock fetches the most recent block header.
func (s *TransactionService) LatestBlock(ctx context.Context) (Block, error) {
	var resp apiResponse[Block]
	if err := s.tport.Get(ctx, "/blocks/latest", &resp); err != nil {
		return Block{}, errors.Wrap(err, "fetching latest block")
	}
	return resp.unwrap()
}
