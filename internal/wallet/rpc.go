package wallet

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// JSON-RPC code for an unknown method.
const methodNotFoundCode = -32601

const defaultPollInterval = time.Second

// RPCProvider is a Provider backed by a JSON-RPC node or wallet gateway.
// Accounts are managed by the node unless a private key is configured,
// in which case transactions are signed locally.
type RPCProvider struct {
	rpc          *rpc.Client
	eth          *ethclient.Client
	key          *ecdsa.PrivateKey
	pollInterval time.Duration
	logger       *slog.Logger
}

// Option configures an RPCProvider.
type Option func(*RPCProvider)

// WithSigner signs transactions locally with key.
func WithSigner(key *ecdsa.PrivateKey) Option {
	return func(p *RPCProvider) {
		p.key = key
	}
}

// WithPollInterval sets how often the receipt is polled while awaiting confirmation.
func WithPollInterval(d time.Duration) Option {
	return func(p *RPCProvider) {
		if d > 0 {
			p.pollInterval = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *RPCProvider) {
		p.logger = logger
	}
}

// Dial connects to the provider at url.
func Dial(ctx context.Context, url string, opts ...Option) (*RPCProvider, error) {
	if url == "" {
		return nil, ErrNoProvider
	}
	client, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("dialing wallet provider: %w", err)
	}
	return NewRPCProvider(client, opts...), nil
}

// NewRPCProvider wraps an existing RPC client.
func NewRPCProvider(client *rpc.Client, opts ...Option) *RPCProvider {
	p := &RPCProvider{
		rpc:          client,
		eth:          ethclient.NewClient(client),
		pollInterval: defaultPollInterval,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ParsePrivateKey parses a hex encoded secp256k1 key, with or without 0x.
func ParsePrivateKey(hexKey string) (*ecdsa.PrivateKey, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("parsing private key: %w", err)
	}
	return key, nil
}

// Close closes the underlying connection.
func (p *RPCProvider) Close() {
	p.rpc.Close()
}

// RequestAccess issues eth_requestAccounts. Nodes that manage their own
// accounts do not implement it; that is treated as already authorized.
func (p *RPCProvider) RequestAccess(ctx context.Context) error {
	if p.key != nil {
		return nil
	}
	var accounts []common.Address
	err := p.rpc.CallContext(ctx, &accounts, "eth_requestAccounts")
	if err == nil {
		return nil
	}
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		switch rpcErr.ErrorCode() {
		case methodNotFoundCode:
			return nil
		case 4001: // EIP-1193 user rejected request
			return fmt.Errorf("%w: %v", ErrAccessDenied, err)
		}
	}
	return fmt.Errorf("requesting wallet access: %w", err)
}

// Accounts returns the local signer address, or the node's accounts.
func (p *RPCProvider) Accounts(ctx context.Context) ([]Address, error) {
	if p.key != nil {
		return []Address{crypto.PubkeyToAddress(p.key.PublicKey)}, nil
	}
	var accounts []common.Address
	if err := p.rpc.CallContext(ctx, &accounts, "eth_accounts"); err != nil {
		return nil, fmt.Errorf("fetching accounts: %w", err)
	}
	return accounts, nil
}

// NetworkID returns the net_version of the connected network.
func (p *RPCProvider) NetworkID(ctx context.Context) (*big.Int, error) {
	id, err := p.eth.NetworkID(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching network id: %w", err)
	}
	return id, nil
}

// Call performs eth_call against the latest block.
func (p *RPCProvider) Call(ctx context.Context, msg CallMsg) ([]byte, error) {
	return p.eth.CallContract(ctx, msg, nil)
}

// EstimateGas performs eth_estimateGas.
func (p *RPCProvider) EstimateGas(ctx context.Context, msg CallMsg) (uint64, error) {
	return p.eth.EstimateGas(ctx, msg)
}

// SendTransaction sends msg and polls for its receipt. A receipt with a
// failed status is returned together with ErrReverted.
func (p *RPCProvider) SendTransaction(ctx context.Context, msg CallMsg) (*Receipt, error) {
	var (
		hash common.Hash
		err  error
	)
	if p.key != nil {
		hash, err = p.sendSigned(ctx, msg)
	} else {
		hash, err = p.sendUnsigned(ctx, msg)
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}

	p.logger.Debug("transaction sent", "tx", hash.Hex(), "from", msg.From.Hex(), "gas", msg.Gas)
	return p.waitMined(ctx, hash)
}

func (p *RPCProvider) sendUnsigned(ctx context.Context, msg CallMsg) (common.Hash, error) {
	args := map[string]any{
		"from": msg.From,
		"data": hexutil.Bytes(msg.Data),
	}
	if msg.To != nil {
		args["to"] = msg.To
	}
	if msg.Gas != 0 {
		args["gas"] = hexutil.Uint64(msg.Gas)
	}
	if msg.Value != nil {
		args["value"] = (*hexutil.Big)(msg.Value)
	}

	var hash common.Hash
	if err := p.rpc.CallContext(ctx, &hash, "eth_sendTransaction", args); err != nil {
		return common.Hash{}, fmt.Errorf("sending transaction: %w", err)
	}
	return hash, nil
}

func (p *RPCProvider) sendSigned(ctx context.Context, msg CallMsg) (common.Hash, error) {
	from := crypto.PubkeyToAddress(p.key.PublicKey)

	chainID, err := p.eth.ChainID(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("fetching chain id: %w", err)
	}
	nonce, err := p.eth.PendingNonceAt(ctx, from)
	if err != nil {
		return common.Hash{}, fmt.Errorf("fetching nonce: %w", err)
	}
	gasPrice := msg.GasPrice
	if gasPrice == nil {
		if gasPrice, err = p.eth.SuggestGasPrice(ctx); err != nil {
			return common.Hash{}, fmt.Errorf("fetching gas price: %w", err)
		}
	}
	value := msg.Value
	if value == nil {
		value = new(big.Int)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       msg.To,
		Value:    value,
		Gas:      msg.Gas,
		GasPrice: gasPrice,
		Data:     msg.Data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), p.key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("signing transaction: %w", err)
	}
	if err := p.eth.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, fmt.Errorf("sending transaction: %w", err)
	}
	return signed.Hash(), nil
}

func (p *RPCProvider) waitMined(ctx context.Context, hash common.Hash) (*Receipt, error) {
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := p.eth.TransactionReceipt(ctx, hash)
		if err == nil {
			if receipt.Status == types.ReceiptStatusFailed {
				return receipt, fmt.Errorf("%w: %s", ErrReverted, hash.Hex())
			}
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			// The transport reports an expired deadline as its own i/o error.
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("fetching receipt: %w", err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
