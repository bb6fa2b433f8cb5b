package sign

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/ethereum/go-ethereum/common"
	"github.com/tyler-smith/go-bip39"
)

var _ Signer = (*MnemonicSigner)(nil)

// derivationPath is the fixed BIP44 path used to derive signing keys:
// m/44'/60'/0'/0/{accountIndex}. Only the final index is parameterized,
// so the same mnemonic and index always yield the same address.
var derivationPath = [...]uint32{
	hdkeychain.HardenedKeyStart + 44,
	hdkeychain.HardenedKeyStart + 60,
	hdkeychain.HardenedKeyStart + 0,
	0,
}

// MnemonicSigner signs with a key derived from a BIP39 mnemonic at a
// hierarchical path parameterized by an account index. It delegates all
// signing to an internally derived PrivateKeySigner.
type MnemonicSigner struct {
	inner        *PrivateKeySigner
	accountIndex uint32
}

// NewMnemonicSigner derives a signing key from the mnemonic at
// m/44'/60'/0'/0/{accountIndex}.
func NewMnemonicSigner(mnemonic string, accountIndex uint32) (*MnemonicSigner, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, signingErrorf(nil, "invalid mnemonic phrase")
	}

	seed := bip39.NewSeed(mnemonic, "")
	key, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, signingErrorf(err, "could not build master key")
	}

	for _, step := range derivationPath {
		if key, err = key.Derive(step); err != nil {
			return nil, signingErrorf(err, "key derivation failed at step %d", step)
		}
	}
	if key, err = key.Derive(accountIndex); err != nil {
		return nil, signingErrorf(err, "key derivation failed at index %d", accountIndex)
	}

	privKey, err := key.ECPrivKey()
	if err != nil {
		return nil, signingErrorf(err, "could not extract private key")
	}
	key.Zero()

	return &MnemonicSigner{
		inner:        NewPrivateKeySignerFromECDSA(privKey.ToECDSA()),
		accountIndex: accountIndex,
	}, nil
}

// Address returns the wallet address derived at the account index.
func (s *MnemonicSigner) Address() common.Address {
	return s.inner.Address()
}

// PublicKey returns the public half of the derived key.
func (s *MnemonicSigner) PublicKey() *ecdsa.PublicKey {
	return s.inner.PublicKey()
}

// Sign signs the message with the derived key.
func (s *MnemonicSigner) Sign(message []byte) (Signature, error) {
	return s.inner.Sign(message)
}

// AccountIndex returns the BIP44 index this signer was derived at.
func (s *MnemonicSigner) AccountIndex() uint32 {
	return s.accountIndex
}

// Zero scrubs the derived key material from memory.
func (s *MnemonicSigner) Zero() {
	s.inner.Zero()
}

// DerivationPath returns the textual derivation path for the given index,
// e.g. "m/44'/60'/0'/0/3". Exposed for diagnostics only.
func DerivationPath(accountIndex uint32) string {
	return fmt.Sprintf("m/44'/60'/0'/0/%d", accountIndex)
}
