package lighter

import (
	"context"

	"github.com/pkg/errors"

	"github.com/lighter-xyz/lighter-go/pkg/log"
	"github.com/lighter-xyz/lighter-go/pkg/transport"
)

// AccountService reads account state and requests tier switches.
// Queries are header-signed; tier switches are body-signed.
type AccountService struct {
	tport *transport.Transport
	auth  *transport.AuthTransport
	lg    log.Logger
}

type tierSwitchRequest struct {
	TargetTier AccountTier `json:"target_tier"`
	Signature  string      `json:"signature"`
	Nonce      uint64      `json:"nonce"`
}

// Get fetches the full account record, including balances and
// positions.
func (s *AccountService) Get(ctx context.Context) (Account, error) {
	if s.auth == nil {
		return Account{}, ErrReadOnly
	}
	var resp apiResponse[Account]
	if err := s.auth.Get(ctx, "/account", &resp); err != nil {
		return Account{}, errors.Wrap(err, "fetching account")
	}
	return resp.unwrap()
}

// Stats fetches lifetime trading statistics for the account.
func (s *AccountService) Stats(ctx context.Context) (AccountStats, error) {
	if s.auth == nil {
		return AccountStats{}, ErrReadOnly
	}
	var resp apiResponse[AccountStats]
	if err := s.auth.Get(ctx, "/account/stats", &resp); err != nil {
		return AccountStats{}, errors.Wrap(err, "fetching account stats")
	}
	return resp.unwrap()
}

// Balances fetches the account's per-asset balances.
func (s *AccountService) Balances(ctx context.Context) ([]Balance, error) {
	account, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	return account.Balances, nil
}

// Positions fetches the account's open positions.
func (s *AccountService) Positions(ctx context.Context) ([]Position, error) {
	account, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	return account.Positions, nil
}

// ChangeTier signs and submits an account tier switch. The venue may
// reject switches inside the cooldown window advertised on the account
// record.
func (s *AccountService) ChangeTier(ctx context.Context, target AccountTier) (Account, error) {
	if s.auth == nil {
		return Account{}, ErrReadOnly
	}

	nonce, err := s.auth.NextNonce()
	if err != nil {
		return Account{}, err
	}
	message, err := TierSignatureMessage(target, nonce)
	if err != nil {
		return Account{}, err
	}
	signature, err := s.auth.SignMessage(message)
	if err != nil {
		return Account{}, err
	}

	req := tierSwitchRequest{TargetTier: target, Signature: signature.String(), Nonce: nonce}
	var resp apiResponse[Account]
	if err := s.tport.Post(ctx, "/account/change-tier", req, &resp); err != nil {
		return Account{}, errors.Wrap(err, "switching account tier")
	}
	account, err := resp.unwrap()
	if err != nil {
		return Account{}, err
	}
	s.lg.Info("account tier switched", "tier", account.Tier)
	return account, nil
}
