package wallet

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testNode is the in-process state behind the fake eth and net namespaces.
type testNode struct {
	mu sync.Mutex

	accounts     []common.Address
	chainID      *big.Int
	callResult   []byte
	gasEstimate  uint64
	pendingPolls int // receipt lookups answered with null before mining
	receiptDelay time.Duration
	status       uint64
	accessErr    error

	calls       []callArgs
	sentArgs    []callArgs
	sentRaw     []*types.Transaction
	accessCalls int
	polls       int
}

type callArgs struct {
	From  *common.Address `json:"from"`
	To    *common.Address `json:"to"`
	Gas   *hexutil.Uint64 `json:"gas"`
	Value *hexutil.Big    `json:"value"`
	Data  *hexutil.Bytes  `json:"data"`
	Input *hexutil.Bytes  `json:"input"`
}

func (a callArgs) payload() []byte {
	if a.Input != nil {
		return *a.Input
	}
	if a.Data != nil {
		return *a.Data
	}
	return nil
}

type rpcError struct {
	code int
	msg  string
}

func (e *rpcError) Error() string  { return e.msg }
func (e *rpcError) ErrorCode() int { return e.code }

type ethAPI struct{ node *testNode }

func (api *ethAPI) Accounts() []common.Address {
	return api.node.accounts
}

func (api *ethAPI) ChainId() *hexutil.Big {
	return (*hexutil.Big)(api.node.chainID)
}

func (api *ethAPI) GasPrice() *hexutil.Big {
	return (*hexutil.Big)(big.NewInt(20_000_000_000))
}

func (api *ethAPI) GetTransactionCount(addr common.Address, block string) hexutil.Uint64 {
	return 3
}

func (api *ethAPI) Call(args callArgs, block *string) hexutil.Bytes {
	api.node.mu.Lock()
	defer api.node.mu.Unlock()
	api.node.calls = append(api.node.calls, args)
	return api.node.callResult
}

func (api *ethAPI) EstimateGas(args callArgs, block *string) hexutil.Uint64 {
	return hexutil.Uint64(api.node.gasEstimate)
}

func (api *ethAPI) SendTransaction(args callArgs) common.Hash {
	api.node.mu.Lock()
	defer api.node.mu.Unlock()
	api.node.sentArgs = append(api.node.sentArgs, args)
	return crypto.Keccak256Hash(args.payload())
}

func (api *ethAPI) SendRawTransaction(raw hexutil.Bytes) (common.Hash, error) {
	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(raw); err != nil {
		return common.Hash{}, err
	}
	api.node.mu.Lock()
	defer api.node.mu.Unlock()
	api.node.sentRaw = append(api.node.sentRaw, tx)
	return tx.Hash(), nil
}

func (api *ethAPI) GetTransactionReceipt(hash common.Hash) *types.Receipt {
	time.Sleep(api.node.receiptDelay)
	api.node.mu.Lock()
	defer api.node.mu.Unlock()
	api.node.polls++
	if api.node.polls <= api.node.pendingPolls {
		return nil
	}
	return &types.Receipt{
		Status:            api.node.status,
		CumulativeGasUsed: api.node.gasEstimate,
		GasUsed:           api.node.gasEstimate,
		TxHash:            hash,
		BlockNumber:       big.NewInt(7),
		Logs:              []*types.Log{},
	}
}

// accessAPI adds eth_requestAccounts, as wallet gateways do.
type accessAPI struct{ *ethAPI }

func (api *accessAPI) RequestAccounts() ([]common.Address, error) {
	api.node.mu.Lock()
	api.node.accessCalls++
	api.node.mu.Unlock()
	if api.node.accessErr != nil {
		return nil, api.node.accessErr
	}
	return api.node.accounts, nil
}

type netAPI struct{ node *testNode }

func (api *netAPI) Version() string {
	return api.node.chainID.String()
}

func newTestNode() *testNode {
	return &testNode{
		accounts: []common.Address{
			common.HexToAddress("0x00000000000000000000000000000000000000a1"),
			common.HexToAddress("0x00000000000000000000000000000000000000a2"),
		},
		chainID:     big.NewInt(5777),
		gasEstimate: 90_000,
		status:      types.ReceiptStatusSuccessful,
	}
}

func newTestProvider(t *testing.T, node *testNode, withAccess bool, opts ...Option) *RPCProvider {
	t.Helper()

	server := rpc.NewServer()
	eth := &ethAPI{node: node}
	var svc any = eth
	if withAccess {
		svc = &accessAPI{eth}
	}
	require.NoError(t, server.RegisterName("eth", svc))
	require.NoError(t, server.RegisterName("net", &netAPI{node: node}))

	client := rpc.DialInProc(server)
	t.Cleanup(func() {
		client.Close()
		server.Stop()
	})

	opts = append([]Option{WithPollInterval(time.Millisecond)}, opts...)
	return NewRPCProvider(client, opts...)
}

func TestDial_NoURL(t *testing.T) {
	_, err := Dial(context.Background(), "")
	assert.ErrorIs(t, err, ErrNoProvider)
}

func TestRPCProvider_RequestAccess(t *testing.T) {
	t.Run("node without eth_requestAccounts", func(t *testing.T) {
		p := newTestProvider(t, newTestNode(), false)
		assert.NoError(t, p.RequestAccess(context.Background()))
	})

	t.Run("wallet grants access", func(t *testing.T) {
		node := newTestNode()
		p := newTestProvider(t, node, true)
		require.NoError(t, p.RequestAccess(context.Background()))
		assert.Equal(t, 1, node.accessCalls)
	})

	t.Run("user rejects request", func(t *testing.T) {
		node := newTestNode()
		node.accessErr = &rpcError{code: 4001, msg: "User rejected the request."}
		p := newTestProvider(t, node, true)

		err := p.RequestAccess(context.Background())
		assert.ErrorIs(t, err, ErrAccessDenied)
	})

	t.Run("other errors are returned", func(t *testing.T) {
		node := newTestNode()
		node.accessErr = &rpcError{code: -32000, msg: "wallet locked"}
		p := newTestProvider(t, node, true)

		err := p.RequestAccess(context.Background())
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrAccessDenied)
	})
}

func TestRPCProvider_AccountsAndNetwork(t *testing.T) {
	node := newTestNode()
	p := newTestProvider(t, node, false)
	ctx := context.Background()

	accounts, err := p.Accounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, node.accounts, accounts)

	id, err := p.NetworkID(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5777), id.Int64())
}

func TestRPCProvider_CallAndEstimate(t *testing.T) {
	node := newTestNode()
	node.callResult = []byte{0x01, 0x02}
	p := newTestProvider(t, node, false)
	ctx := context.Background()

	to := common.HexToAddress("0x00000000000000000000000000000000000000c0")
	msg := CallMsg{From: node.accounts[0], To: &to, Data: []byte{0xde, 0xad}}

	out, err := p.Call(ctx, msg)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02}, out)
	require.Len(t, node.calls, 1)
	assert.Equal(t, []byte{0xde, 0xad}, node.calls[0].payload())
	assert.Equal(t, to, *node.calls[0].To)

	gas, err := p.EstimateGas(ctx, msg)
	require.NoError(t, err)
	assert.Equal(t, uint64(90_000), gas)
}

func TestRPCProvider_SendTransaction_NodeAccounts(t *testing.T) {
	node := newTestNode()
	node.pendingPolls = 2
	p := newTestProvider(t, node, false)

	to := common.HexToAddress("0x00000000000000000000000000000000000000c0")
	receipt, err := p.SendTransaction(context.Background(), CallMsg{
		From: node.accounts[0],
		To:   &to,
		Gas:  90_000,
		Data: []byte{0xca, 0xfe},
	})
	require.NoError(t, err)

	assert.Equal(t, types.ReceiptStatusSuccessful, receipt.Status)
	assert.Equal(t, uint64(90_000), receipt.GasUsed)
	assert.Equal(t, int64(7), receipt.BlockNumber.Int64())
	assert.Equal(t, crypto.Keccak256Hash([]byte{0xca, 0xfe}), receipt.TxHash)
	assert.Equal(t, 3, node.polls)

	require.Len(t, node.sentArgs, 1)
	assert.Equal(t, node.accounts[0], *node.sentArgs[0].From)
	assert.Equal(t, hexutil.Uint64(90_000), *node.sentArgs[0].Gas)
}

func TestRPCProvider_SendTransaction_Reverted(t *testing.T) {
	node := newTestNode()
	node.status = types.ReceiptStatusFailed
	p := newTestProvider(t, node, false)

	to := common.HexToAddress("0x00000000000000000000000000000000000000c0")
	receipt, err := p.SendTransaction(context.Background(), CallMsg{From: node.accounts[0], To: &to, Gas: 1})
	assert.ErrorIs(t, err, ErrReverted)
	require.NotNil(t, receipt)
	assert.Equal(t, types.ReceiptStatusFailed, receipt.Status)
}

func TestRPCProvider_SendTransaction_ContextCanceled(t *testing.T) {
	node := newTestNode()
	node.pendingPolls = 1 << 30
	p := newTestProvider(t, node, false)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	to := common.HexToAddress("0x00000000000000000000000000000000000000c0")
	_, err := p.SendTransaction(ctx, CallMsg{From: node.accounts[0], To: &to, Gas: 1})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRPCProvider_SendTransaction_DeadlineDuringReceipt(t *testing.T) {
	node := newTestNode()
	node.receiptDelay = 200 * time.Millisecond
	p := newTestProvider(t, node, false)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	to := common.HexToAddress("0x00000000000000000000000000000000000000c0")
	_, err := p.SendTransaction(ctx, CallMsg{From: node.accounts[0], To: &to, Gas: 1})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRPCProvider_LocalSigner(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	signer := crypto.PubkeyToAddress(key.PublicKey)

	node := newTestNode()
	p := newTestProvider(t, node, true, WithSigner(key))
	ctx := context.Background()

	// Local keys need no authorization from the node.
	require.NoError(t, p.RequestAccess(ctx))
	assert.Equal(t, 0, node.accessCalls)

	accounts, err := p.Accounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Address{signer}, accounts)

	to := common.HexToAddress("0x00000000000000000000000000000000000000c0")
	receipt, err := p.SendTransaction(ctx, CallMsg{From: signer, To: &to, Gas: 50_000, Data: []byte{0x01}})
	require.NoError(t, err)

	require.Len(t, node.sentRaw, 1)
	tx := node.sentRaw[0]
	assert.Equal(t, tx.Hash(), receipt.TxHash)
	assert.Equal(t, uint64(3), tx.Nonce())
	assert.Equal(t, uint64(50_000), tx.Gas())
	assert.Equal(t, to, *tx.To())

	from, err := types.Sender(types.LatestSignerForChainID(big.NewInt(5777)), tx)
	require.NoError(t, err)
	assert.Equal(t, signer, from)
}

func TestParsePrivateKey(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	hexKey := hexutil.Encode(crypto.FromECDSA(key))

	parsed, err := ParsePrivateKey(hexKey)
	require.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToAddress(key.PublicKey), crypto.PubkeyToAddress(parsed.PublicKey))

	_, err = ParsePrivateKey("not-a-key")
	assert.Error(t, err)
}
