// Package wallet abstracts the account provider that authorizes access,
// lists accounts, reads contract state and sends transactions.
package wallet

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Provider errors.
var (
	ErrNoProvider   = errors.New("no wallet provider configured")
	ErrAccessDenied = errors.New("wallet access denied")
	ErrReverted     = errors.New("transaction reverted")
)

// CallMsg describes a contract call or transaction.
type CallMsg = ethereum.CallMsg

// Receipt is the confirmation of a mined transaction.
type Receipt = types.Receipt

// Address is an account address.
type Address = common.Address

// Provider is the capability set the flows need from a wallet.
type Provider interface {
	// RequestAccess asks the wallet to authorize this application.
	RequestAccess(ctx context.Context) error
	// Accounts returns the authorized accounts, active account first.
	Accounts(ctx context.Context) ([]Address, error)
	// NetworkID returns the identifier of the connected network.
	NetworkID(ctx context.Context) (*big.Int, error)
	// Call performs a read-only contract call against the latest block.
	Call(ctx context.Context, msg CallMsg) ([]byte, error)
	// EstimateGas returns the gas a state-mutating call would use.
	EstimateGas(ctx context.Context, msg CallMsg) (uint64, error)
	// SendTransaction sends msg and waits for one confirmation.
	SendTransaction(ctx context.Context, msg CallMsg) (*Receipt, error)
}
