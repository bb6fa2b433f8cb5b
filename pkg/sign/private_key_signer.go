package sign

import (
	"crypto/ecdsa"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

var _ Signer = (*PrivateKeySigner)(nil)

// PrivateKeySigner signs with a raw secp256k1 private key held in memory.
type PrivateKeySigner struct {
	privateKey *ecdsa.PrivateKey
	publicKey  *ecdsa.PublicKey
	address    common.Address
}

// NewPrivateKeySigner creates a signer from a hex-encoded private key.
// A leading "0x" prefix is accepted.
func NewPrivateKeySigner(privateKeyHex string) (*PrivateKeySigner, error) {
	privateKeyHex = strings.TrimPrefix(privateKeyHex, "0x")
	key, err := ethcrypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, signingErrorf(err, "could not parse private key")
	}
	return NewPrivateKeySignerFromECDSA(key), nil
}

// NewPrivateKeySignerFromECDSA creates a signer from an in-memory ECDSA key.
// The signer takes ownership of the key; callers must not reuse it.
func NewPrivateKeySignerFromECDSA(key *ecdsa.PrivateKey) *PrivateKeySigner {
	publicKey := key.PublicKey
	return &PrivateKeySigner{
		privateKey: key,
		publicKey:  &publicKey,
		address:    ethcrypto.PubkeyToAddress(key.PublicKey),
	}
}

// Address returns the wallet address derived from the signing key.
func (s *PrivateKeySigner) Address() common.Address {
	return s.address
}

// PublicKey returns the public half of the signing key. It remains
// available after Zero.
func (s *PrivateKeySigner) PublicKey() *ecdsa.PublicKey {
	return s.publicKey
}

// Sign hashes the message with the personal-message prefix and signs it.
// V is adjusted from 0/1 to 27/28 for venue compatibility.
func (s *PrivateKeySigner) Sign(message []byte) (Signature, error) {
	if s.privateKey == nil {
		return nil, signingErrorf(nil, "signer has been zeroed")
	}

	sig, err := ethcrypto.Sign(HashMessage(message), s.privateKey)
	if err != nil {
		return nil, signingErrorf(err, "ecdsa signing failed")
	}
	if sig[64] < 27 {
		sig[64] += 27
	}
	return Signature(sig), nil
}

// Zero scrubs the private scalar from memory and disables the signer.
// Subsequent Sign calls return a SigningError; Address remains available.
func (s *PrivateKeySigner) Zero() {
	if s.privateKey == nil {
		return
	}
	s.privateKey.D.SetInt64(0)
	s.privateKey = nil
}
