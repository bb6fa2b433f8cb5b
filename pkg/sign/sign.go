// Package sign provides the wallet signing capability used by the
// authenticated transport and order submission paths.
//
// A Signer owns a secp256k1 identity and produces personal-message
// signatures over canonical request payloads. Two implementations are
// provided: PrivateKeySigner (raw hex key) and MnemonicSigner (BIP39
// mnemonic with a BIP44 account index). Private key material is never
// exposed through the interface, logged, or serialized.
package sign

import (
	"crypto/ecdsa"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// Signer signs canonical venue messages with a wallet identity.
type Signer interface {
	// Address returns the wallet address derived from the signing key.
	Address() common.Address
	// PublicKey returns the public half of the signing key.
	PublicKey() *ecdsa.PublicKey
	// Sign hashes the message with the personal-message domain separator
	// and returns a 65-byte ECDSA signature (V in 27/28 form).
	Sign(message []byte) (Signature, error)
}

// Signature is a 65-byte secp256k1 signature (r || s || v).
type Signature []byte

// String returns the 0x-prefixed hex encoding of the signature.
func (s Signature) String() string {
	return hexutil.Encode(s)
}

// MarshalJSON encodes the signature as a hex string.
func (s Signature) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes the signature from a hex string.
func (s *Signature) UnmarshalJSON(data []byte) error {
	var hexStr string
	if err := json.Unmarshal(data, &hexStr); err != nil {
		return err
	}
	decoded, err := hexutil.Decode(hexStr)
	if err != nil {
		return err
	}
	*s = decoded
	return nil
}

// SigningError reports a local key or signing-backend failure.
// It is never retried by the transport layer: a broken signer will not be
// fixed by reissuing the same request.
type SigningError struct {
	Reason string
	Err    error
}

func (e *SigningError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("signing: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("signing: %s", e.Reason)
}

func (e *SigningError) Unwrap() error { return e.Err }

func signingErrorf(err error, format string, args ...any) *SigningError {
	return &SigningError{Reason: fmt.Sprintf(format, args...), Err: err}
}

// HashMessage computes the personal-message hash of a payload:
// keccak256("\x19Ethereum Signed Message:\n" + len(message) + message).
// The prefix binds signatures to this scheme so they cannot be replayed
// as raw transactions.
func HashMessage(message []byte) []byte {
	prefix := fmt.Sprintf("\x19Ethereum Signed Message:\n%d", len(message))
	return ethcrypto.Keccak256([]byte(prefix), message)
}

// RecoverAddress returns the address that produced the signature over the
// given message. Used by tests and callers that verify venue responses.
func RecoverAddress(message []byte, sig Signature) (common.Address, error) {
	if len(sig) != 65 {
		return common.Address{}, fmt.Errorf("invalid signature length: got %d, want 65", len(sig))
	}

	localSig := make([]byte, 65)
	copy(localSig, sig)
	if localSig[64] >= 27 {
		localSig[64] -= 27
	}

	pubKey, err := ethcrypto.SigToPub(HashMessage(message), localSig)
	if err != nil {
		return common.Address{}, fmt.Errorf("signature recovery failed: %w", err)
	}
	return ethcrypto.PubkeyToAddress(*pubKey), nil
}
