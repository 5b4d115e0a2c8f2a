// Package session bootstraps the wallet session: it authorizes access,
// selects the active account and binds the configured contract.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"

	"github.com/pendergraft/skillcert/internal/config"
	"github.com/pendergraft/skillcert/internal/contract"
	"github.com/pendergraft/skillcert/internal/wallet"
)

// ErrInitFailed wraps any error raised while bootstrapping.
var ErrInitFailed = errors.New("wallet or contract initialization failed")

// Session is the result of bootstrapping. It is not modified afterwards.
type Session struct {
	// ActiveAccount is the first authorized account, or the zero address.
	ActiveAccount common.Address
	// Contract is nil until the handle has been built.
	Contract *contract.Handle
	// ContractAddress is the configured address, kept for display.
	ContractAddress string
}

// HasAccount reports whether an account is active.
func (s *Session) HasAccount() bool {
	return s != nil && s.ActiveAccount != (common.Address{})
}

// Ready reports whether the session can submit transactions.
func (s *Session) Ready() bool {
	return s.HasAccount() && s.Contract != nil
}

// Bootstrap requests wallet access, fetches the active account and binds the
// contract at cfg.ContractAddress. On failure the partially filled session
// is returned together with an error wrapping ErrInitFailed. There is no retry.
func Bootstrap(ctx context.Context, cfg config.ChainConfig, provider wallet.Provider, artifact *contract.Artifact, logger *slog.Logger) (*Session, error) {
	sess := &Session{ContractAddress: cfg.ContractAddress}

	fail := func(err error) (*Session, error) {
		logger.Error("wallet/contract init failed", "error", err)
		return sess, fmt.Errorf("%w: %w", ErrInitFailed, err)
	}

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid chain config", "error", err, "env", "CONTRACT_ADDRESS")
	}
	if provider == nil {
		return fail(wallet.ErrNoProvider)
	}

	if err := provider.RequestAccess(ctx); err != nil {
		return fail(err)
	}

	accounts, err := provider.Accounts(ctx)
	if err != nil {
		return fail(err)
	}
	if len(accounts) > 0 {
		sess.ActiveAccount = accounts[0]
	}

	handle, err := contract.NewHandle(cfg.ContractAddress, artifact, provider)
	if err != nil {
		return fail(err)
	}
	sess.Contract = handle

	logger.Info("session ready",
		"account", sess.ActiveAccount.Hex(),
		"contract", handle.Address().Hex(),
	)
	return sess, nil
}
