// Package wallettest provides a scripted wallet.Provider for tests.
package wallettest

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/core/types"

	"github.com/pendergraft/skillcert/internal/wallet"
)

// Counts records how many times each provider operation was invoked.
type Counts struct {
	RequestAccess int
	Accounts      int
	NetworkID     int
	Call          int
	EstimateGas   int
	Send          int
}

// Total returns the number of operations invoked.
func (c Counts) Total() int {
	return c.RequestAccess + c.Accounts + c.NetworkID + c.Call + c.EstimateGas + c.Send
}

// Fake implements wallet.Provider with canned answers.
// A nil hook returns a zero value and no error.
type Fake struct {
	AccountList []wallet.Address
	Network     *big.Int

	AccessErr   error
	AccountsErr error
	NetworkErr  error

	CallFunc     func(ctx context.Context, msg wallet.CallMsg) ([]byte, error)
	EstimateFunc func(ctx context.Context, msg wallet.CallMsg) (uint64, error)
	SendFunc     func(ctx context.Context, msg wallet.CallMsg) (*wallet.Receipt, error)

	mu     sync.Mutex
	counts Counts
	sent   []wallet.CallMsg
}

var _ wallet.Provider = (*Fake)(nil)

// Counts returns a snapshot of the invocation counters.
func (f *Fake) Counts() Counts {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts
}

// Sent returns the messages passed to SendTransaction.
func (f *Fake) Sent() []wallet.CallMsg {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]wallet.CallMsg(nil), f.sent...)
}

func (f *Fake) RequestAccess(ctx context.Context) error {
	f.mu.Lock()
	f.counts.RequestAccess++
	f.mu.Unlock()
	return f.AccessErr
}

func (f *Fake) Accounts(ctx context.Context) ([]wallet.Address, error) {
	f.mu.Lock()
	f.counts.Accounts++
	f.mu.Unlock()
	if f.AccountsErr != nil {
		return nil, f.AccountsErr
	}
	return f.AccountList, nil
}

func (f *Fake) NetworkID(ctx context.Context) (*big.Int, error) {
	f.mu.Lock()
	f.counts.NetworkID++
	f.mu.Unlock()
	if f.NetworkErr != nil {
		return nil, f.NetworkErr
	}
	if f.Network == nil {
		return big.NewInt(5777), nil
	}
	return new(big.Int).Set(f.Network), nil
}

func (f *Fake) Call(ctx context.Context, msg wallet.CallMsg) ([]byte, error) {
	f.mu.Lock()
	f.counts.Call++
	f.mu.Unlock()
	if f.CallFunc == nil {
		return nil, nil
	}
	return f.CallFunc(ctx, msg)
}

func (f *Fake) EstimateGas(ctx context.Context, msg wallet.CallMsg) (uint64, error) {
	f.mu.Lock()
	f.counts.EstimateGas++
	f.mu.Unlock()
	if f.EstimateFunc == nil {
		return 21000, nil
	}
	return f.EstimateFunc(ctx, msg)
}

func (f *Fake) SendTransaction(ctx context.Context, msg wallet.CallMsg) (*wallet.Receipt, error) {
	f.mu.Lock()
	f.counts.Send++
	f.sent = append(f.sent, msg)
	f.mu.Unlock()
	if f.SendFunc == nil {
		return &types.Receipt{
			Status:      types.ReceiptStatusSuccessful,
			GasUsed:     msg.Gas,
			BlockNumber: big.NewInt(1),
		}, nil
	}
	return f.SendFunc(ctx, msg)
}
