package lighter

import (
	"testing"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lighter-xyz/lighter-go/pkg/sign"
)

func decimalPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestOrderSignatureMessage_Shape(t *testing.T) {
	postOnly := true
	message, err := OrderSignatureMessage(CreateOrderParams{
		Symbol:        "BTC-USDC",
		Side:          SideBuy,
		Type:          OrderTypeLimit,
		Quantity:      decimal.RequireFromString("1.5"),
		Price:         decimalPtr("64000.25"),
		ClientOrderID: "client-1",
		TimeInForce:   TimeInForceIOC,
		PostOnly:      &postOnly,
	}, 42)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"symbol": "BTC-USDC",
		"side": "BUY",
		"orderType": "LIMIT",
		"quantity": "1.5",
		"price": "64000.25",
		"clientOrderId": "client-1",
		"timeInForce": "IOC",
		"postOnly": true,
		"nonce": 42
	}`, string(message))
}

func TestOrderSignatureMessage_DefaultsTimeInForce(t *testing.T) {
	message, err := OrderSignatureMessage(CreateOrderParams{
		Symbol:   "ETH-USDC",
		Side:     SideSell,
		Type:     OrderTypeMarket,
		Quantity: decimal.RequireFromString("2"),
	}, 7)
	require.NoError(t, err)
	assert.Contains(t, string(message), `"timeInForce":"GTC"`)
	assert.NotContains(t, string(message), "price")
}

func TestCancelSignatureMessage_OmitsEmptyFields(t *testing.T) {
	message, err := CancelSignatureMessage(CancelOrderParams{
		OrderID: "order123",
		Symbol:  "BTC-USDC",
	}, 42)
	require.NoError(t, err)
	assert.JSONEq(t, `{"orderId":"order123","symbol":"BTC-USDC","nonce":42}`, string(message))
}

func TestCancelAllSignatureMessage_OmitsSymbolWhenEmpty(t *testing.T) {
	message, err := CancelAllSignatureMessage("", 7)
	require.NoError(t, err)
	assert.JSONEq(t, `{"nonce":7}`, string(message))

	message, err = CancelAllSignatureMessage("BTC-USDC", 8)
	require.NoError(t, err)
	assert.JSONEq(t, `{"symbol":"BTC-USDC","nonce":8}`, string(message))
}

func TestTierSignatureMessage_SnakeCase(t *testing.T) {
	message, err := TierSignatureMessage(AccountTierPremium, 3)
	require.NoError(t, err)
	assert.JSONEq(t, `{"target_tier":"PREMIUM","nonce":3}`, string(message))
}

func TestSignPayloads_Verify(t *testing.T) {
	key, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	signer := sign.NewPrivateKeySignerFromECDSA(key)

	params := CreateOrderParams{
		Symbol:   "BTC-USDC",
		Side:     SideBuy,
		Type:     OrderTypeMarket,
		Quantity: decimal.RequireFromString("0.1"),
	}
	sig, err := SignOrderPayload(signer, params, 99)
	require.NoError(t, err)

	message, err := OrderSignatureMessage(params, 99)
	require.NoError(t, err)
	recovered, err := sign.RecoverAddress(message, sig)
	require.NoError(t, err)
	assert.Equal(t, signer.Address(), recovered)
}
