// Package contracttest provides an in-memory SkillCertification contract
// that answers calls made through a wallettest.Fake.
package contracttest

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/pendergraft/skillcert/internal/contract"
	"github.com/pendergraft/skillcert/internal/wallet"
	"github.com/pendergraft/skillcert/internal/wallet/wallettest"
)

// AddSkillCall is a decoded addSkill invocation.
type AddSkillCall struct {
	From        common.Address
	Gas         uint64
	Name        string
	Description string
	ContentHash string
}

// Registry emulates the contract's storage.
type Registry struct {
	// EstimateErr, when set, fails every gas estimate.
	EstimateErr error
	// Gas is the estimate returned for addSkill.
	Gas uint64

	abi abi.ABI

	mu      sync.Mutex
	records map[string]contract.Record
	added   []AddSkillCall
	block   int64
}

// NewRegistry returns an empty registry using the embedded ABI.
func NewRegistry() *Registry {
	return &Registry{
		Gas:     120_000,
		abi:     contract.DefaultArtifact().Interface(),
		records: make(map[string]contract.Record),
	}
}

// Install routes the fake provider's calls to r.
func (r *Registry) Install(f *wallettest.Fake) {
	f.CallFunc = r.call
	f.EstimateFunc = r.estimate
	f.SendFunc = r.send
}

// Put stores a record directly.
func (r *Registry) Put(contentHash string, rec contract.Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec.Exists = true
	r.records[contentHash] = rec
}

// Added returns the addSkill transactions that were mined.
func (r *Registry) Added() []AddSkillCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]AddSkillCall(nil), r.added...)
}

// EncodeRecord ABI-encodes rec as isGenuine return data.
func EncodeRecord(rec contract.Record) []byte {
	a := contract.DefaultArtifact().Interface()
	out, err := a.Methods[contract.MethodIsGenuine].Outputs.Pack(rec.Exists, rec.Name, rec.Description, rec.Owner)
	if err != nil {
		panic(err)
	}
	return out
}

// DecodeAddSkill decodes addSkill calldata.
func DecodeAddSkill(data []byte) (name, description, contentHash string, err error) {
	a := contract.DefaultArtifact().Interface()
	args, err := unpack(a, contract.MethodAddSkill, data)
	if err != nil {
		return "", "", "", err
	}
	return args[0].(string), args[1].(string), args[2].(string), nil
}

func unpack(a abi.ABI, name string, data []byte) ([]any, error) {
	if len(data) < 4 {
		return nil, errors.New("calldata too short")
	}
	method, err := a.MethodById(data[:4])
	if err != nil {
		return nil, err
	}
	if method.Name != name {
		return nil, fmt.Errorf("unexpected method %s", method.Name)
	}
	return method.Inputs.Unpack(data[4:])
}

func (r *Registry) call(ctx context.Context, msg wallet.CallMsg) ([]byte, error) {
	args, err := unpack(r.abi, contract.MethodIsGenuine, msg.Data)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	rec := r.records[args[0].(string)]
	r.mu.Unlock()
	return EncodeRecord(rec), nil
}

func (r *Registry) estimate(ctx context.Context, msg wallet.CallMsg) (uint64, error) {
	if r.EstimateErr != nil {
		return 0, r.EstimateErr
	}
	if _, err := unpack(r.abi, contract.MethodAddSkill, msg.Data); err != nil {
		return 0, err
	}
	return r.Gas, nil
}

func (r *Registry) send(ctx context.Context, msg wallet.CallMsg) (*wallet.Receipt, error) {
	name, description, hash, err := DecodeAddSkill(msg.Data)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[hash] = contract.Record{Exists: true, Name: name, Description: description, Owner: msg.From}
	r.added = append(r.added, AddSkillCall{
		From:        msg.From,
		Gas:         msg.Gas,
		Name:        name,
		Description: description,
		ContentHash: hash,
	})
	r.block++

	return &types.Receipt{
		Status:      types.ReceiptStatusSuccessful,
		TxHash:      crypto.Keccak256Hash(msg.Data),
		GasUsed:     msg.Gas,
		BlockNumber: big.NewInt(r.block),
	}, nil
}
