package sign

import (
	"encoding/json"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Well-known test vector: the all-"abandon" mnemonic's first account.
const (
	testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
	testAddress  = "0x9858EfFD232B4033E47d90003D41EC34EcaEda94"
)

func TestPrivateKeySigner_SignAndRecover(t *testing.T) {
	key, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	signer := NewPrivateKeySignerFromECDSA(key)

	message := []byte("GET /account\n42\n1700000000000\n")
	sig, err := signer.Sign(message)
	require.NoError(t, err)
	require.Len(t, []byte(sig), 65)
	assert.Contains(t, []byte{27, 28}, sig[64], "V must be in 27/28 form")

	recovered, err := RecoverAddress(message, sig)
	require.NoError(t, err)
	assert.Equal(t, signer.Address(), recovered)
	assert.Equal(t, signer.Address(), ethcrypto.PubkeyToAddress(*signer.PublicKey()))
}

func TestPrivateKeySigner_Deterministic(t *testing.T) {
	signer, err := NewPrivateKeySigner("0x59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d")
	require.NoError(t, err)

	message := []byte("hello")
	first, err := signer.Sign(message)
	require.NoError(t, err)
	second, err := signer.Sign(message)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestPrivateKeySigner_AcceptsUnprefixedHex(t *testing.T) {
	prefixed, err := NewPrivateKeySigner("0x59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d")
	require.NoError(t, err)
	bare, err := NewPrivateKeySigner("59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d")
	require.NoError(t, err)
	assert.Equal(t, prefixed.Address(), bare.Address())
}

func TestPrivateKeySigner_RejectsGarbage(t *testing.T) {
	_, err := NewPrivateKeySigner("not-a-key")
	require.Error(t, err)

	var sigErr *SigningError
	require.ErrorAs(t, err, &sigErr)
}

func TestPrivateKeySigner_Zero(t *testing.T) {
	key, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	signer := NewPrivateKeySignerFromECDSA(key)
	addr := signer.Address()

	signer.Zero()

	_, err = signer.Sign([]byte("payload"))
	var sigErr *SigningError
	require.ErrorAs(t, err, &sigErr)
	assert.Equal(t, addr, signer.Address(), "address survives zeroing")
}

func TestMnemonicSigner_KnownVector(t *testing.T) {
	signer, err := NewMnemonicSigner(testMnemonic, 0)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(testAddress), signer.Address())
	assert.Equal(t, uint32(0), signer.AccountIndex())
}

func TestMnemonicSigner_DistinctAccounts(t *testing.T) {
	first, err := NewMnemonicSigner(testMnemonic, 0)
	require.NoError(t, err)
	second, err := NewMnemonicSigner(testMnemonic, 1)
	require.NoError(t, err)
	assert.NotEqual(t, first.Address(), second.Address())
}

func TestMnemonicSigner_RejectsInvalidMnemonic(t *testing.T) {
	_, err := NewMnemonicSigner("definitely not twelve valid words", 0)
	var sigErr *SigningError
	require.ErrorAs(t, err, &sigErr)
}

func TestMnemonicSigner_SignaturesVerify(t *testing.T) {
	signer, err := NewMnemonicSigner(testMnemonic, 0)
	require.NoError(t, err)

	message := []byte(`{"symbol":"BTC-USDC","nonce":7}`)
	sig, err := signer.Sign(message)
	require.NoError(t, err)

	recovered, err := RecoverAddress(message, sig)
	require.NoError(t, err)
	assert.Equal(t, signer.Address(), recovered)
}

func TestHashMessage_PersonalPrefix(t *testing.T) {
	message := []byte("abc")
	want := ethcrypto.Keccak256([]byte("\x19Ethereum Signed Message:\n3abc"))
	assert.Equal(t, want, HashMessage(message))
}

func TestRecoverAddress_RejectsBadLength(t *testing.T) {
	_, err := RecoverAddress([]byte("abc"), make(Signature, 64))
	require.Error(t, err)
}

func TestRecoverAddress_WrongMessage(t *testing.T) {
	key, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	signer := NewPrivateKeySignerFromECDSA(key)

	sig, err := signer.Sign([]byte("original"))
	require.NoError(t, err)

	recovered, err := RecoverAddress([]byte("tampered"), sig)
	require.NoError(t, err)
	assert.NotEqual(t, signer.Address(), recovered)
}

func TestSignature_JSONRoundTrip(t *testing.T) {
	sig := Signature{0x01, 0x02, 0xff}
	raw, err := json.Marshal(sig)
	require.NoError(t, err)
	assert.Equal(t, `"0x0102ff"`, string(raw))

	var decoded Signature
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, sig, decoded)
}

func TestDerivationPath(t *testing.T) {
	assert.Equal(t, "m/44'/60'/0'/0/0", DerivationPath(0))
	assert.Equal(t, "m/44'/60'/0'/0/7", DerivationPath(7))
}
