package lighter

import (
	"encoding/json"

	"github.com/lighter-xyz/lighter-go/pkg/sign"
)

// Signature payload shaping. The venue verifies body-signed requests by
// recomputing the payload below from the request fields, so field names
// and ordering here are part of the wire contract.

type orderSignaturePayload struct {
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
	Nonce         uint64      `json:"nonce"`
}

type cancelSignaturePayload struct {
	OrderID       string `json:"orderId,omitempty"`
	ClientOrderID string `json:"clientOrderId,omitempty"`
	Symbol        string `json:"symbol,omitempty"`
	Nonce         uint64 `json:"nonce"`
}

type cancelAllSignaturePayload struct {
	Symbol string `json:"symbol,omitempty"`
	Nonce  uint64 `json:"nonce"`
}

// Tier switches predate the camelCase payloads and keep snake_case names.
type tierSignaturePayload struct {
	TargetTier AccountTier `json:"target_tier"`
	Nonce      uint64      `json:"nonce"`
}

// OrderSignatureMessage builds the canonical message covering an order
// submission.
func OrderSignatureMessage(p CreateOrderParams, nonce uint64) ([]byte, error) {
	payload := orderSignaturePayload{
		Symbol:        p.Symbol,
		Side:          p.Side,
		OrderType:     p.Type,
		Quantity:      p.Quantity.String(),
		ClientOrderID: p.ClientOrderID,
		TimeInForce:   p.timeInForce(),
		PostOnly:      p.PostOnly,
		ReduceOnly:    p.ReduceOnly,
		Nonce:         nonce,
	}
	if p.Price != nil {
		payload.Price = p.Price.String()
	}
	if p.StopPrice != nil {
		payload.StopPrice = p.StopPrice.String()
	}
	return marshalSignaturePayload(payload)
}

// SignOrderPayload signs the canonical order message.
func SignOrderPayload(signer sign.Signer, p CreateOrderParams, nonce uint64) (sign.Signature, error) {
	message, err := OrderSignatureMessage(p, nonce)
	if err != nil {
		return nil, err
	}
	return signer.Sign(message)
}

// CancelSignatureMessage builds the canonical message covering an order
// cancellation. At least one of the order identifiers must be set.
func CancelSignatureMessage(p CancelOrderParams, nonce uint64) ([]byte, error) {
	return marshalSignaturePayload(cancelSignaturePayload{
		OrderID:       p.OrderID,
		ClientOrderID: p.ClientOrderID,
		Symbol:        p.Symbol,
		Nonce:         nonce,
	})
}

// SignCancelPayload signs the canonical cancellation message.
func SignCancelPayload(signer sign.Signer, p CancelOrderParams, nonce uint64) (sign.Signature, error) {
	message, err := CancelSignatureMessage(p, nonce)
	if err != nil {
		return nil, err
	}
	return signer.Sign(message)
}

// CancelAllSignatureMessage builds the canonical message covering a
// cancel-all request. An empty symbol covers every symbol.
func CancelAllSignatureMessage(symbol string, nonce uint64) ([]byte, error) {
	return marshalSignaturePayload(cancelAllSignaturePayload{Symbol: symbol, Nonce: nonce})
}

// SignCancelAllPayload signs the canonical cancel-all message.
func SignCancelAllPayload(signer sign.Signer, symbol string, nonce uint64) (sign.Signature, error) {
	message, err := CancelAllSignatureMessage(symbol, nonce)
	if err != nil {
		return nil, err
	}
	return signer.Sign(message)
}

// TierSignatureMessage builds the canonical message covering an account
// tier switch.
func TierSignatureMessage(target AccountTier, nonce uint64) ([]byte, error) {
	return marshalSignaturePayload(tierSignaturePayload{TargetTier: target, Nonce: nonce})
}

// SignTierPayload signs the canonical tier switch message.
func SignTierPayload(signer sign.Signer, target AccountTier, nonce uint64) (sign.Signature, error) {
	message, err := TierSignatureMessage(target, nonce)
	if err != nil {
		return nil, err
	}
	return signer.Sign(message)
}

func marshalSignaturePayload(payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, &sign.SigningError{Reason: "encoding signature payload", Err: err}
	}
	return raw, nil
}
