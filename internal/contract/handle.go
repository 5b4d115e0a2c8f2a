package contract

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/pendergraft/skillcert/internal/wallet"
)

// ErrMissingAddress is returned when a handle is built without an address.
var ErrMissingAddress = errors.New("missing contract address")

// Record is the registration stored for a content hash.
type Record struct {
	Exists      bool           `abi:"exists"`
	Name        string         `abi:"name"`
	Description string         `abi:"description"`
	Owner       common.Address `abi:"owner"`
}

// Handle is a SkillCertification contract bound to an address and provider.
type Handle struct {
	address  common.Address
	abi      abi.ABI
	provider wallet.Provider
}

// NewHandle binds the artifact's ABI to address.
func NewHandle(address string, artifact *Artifact, provider wallet.Provider) (*Handle, error) {
	if address == "" {
		return nil, ErrMissingAddress
	}
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("invalid contract address %q", address)
	}
	return Bind(common.HexToAddress(address), artifact, provider), nil
}

// Bind binds the artifact's ABI to an already parsed address.
func Bind(address common.Address, artifact *Artifact, provider wallet.Provider) *Handle {
	return &Handle{
		address:  address,
		abi:      artifact.Interface(),
		provider: provider,
	}
}

// Address returns the contract address.
func (h *Handle) Address() common.Address {
	return h.address
}

// EstimateAddSkill estimates the gas for addSkill sent from from.
func (h *Handle) EstimateAddSkill(ctx context.Context, from common.Address, name, description, contentHash string) (uint64, error) {
	msg, err := h.addSkillMsg(from, 0, name, description, contentHash)
	if err != nil {
		return 0, err
	}
	gas, err := h.provider.EstimateGas(ctx, msg)
	if err != nil {
		return 0, fmt.Errorf("estimating gas: %w", err)
	}
	return gas, nil
}

// AddSkill registers contentHash and waits for the transaction to be mined.
func (h *Handle) AddSkill(ctx context.Context, from common.Address, gas uint64, name, description, contentHash string) (*wallet.Receipt, error) {
	msg, err := h.addSkillMsg(from, gas, name, description, contentHash)
	if err != nil {
		return nil, err
	}
	receipt, err := h.provider.SendTransaction(ctx, msg)
	if err != nil {
		return receipt, fmt.Errorf("sending addSkill: %w", err)
	}
	return receipt, nil
}

// IsGenuine looks up contentHash. Return data that does not decode is an error.
func (h *Handle) IsGenuine(ctx context.Context, contentHash string) (Record, error) {
	data, err := h.abi.Pack(MethodIsGenuine, contentHash)
	if err != nil {
		return Record{}, fmt.Errorf("encoding isGenuine: %w", err)
	}
	out, err := h.provider.Call(ctx, wallet.CallMsg{To: &h.address, Data: data})
	if err != nil {
		return Record{}, fmt.Errorf("calling isGenuine: %w", err)
	}

	var rec Record
	if err := h.abi.UnpackIntoInterface(&rec, MethodIsGenuine, out); err != nil {
		return Record{}, fmt.Errorf("decoding isGenuine: %w", err)
	}
	return rec, nil
}

func (h *Handle) addSkillMsg(from common.Address, gas uint64, name, description, contentHash string) (wallet.CallMsg, error) {
	data, err := h.abi.Pack(MethodAddSkill, name, description, contentHash)
	if err != nil {
		return wallet.CallMsg{}, fmt.Errorf("encoding addSkill: %w", err)
	}
	return wallet.CallMsg{
		From: from,
		To:   &h.address,
		Gas:  gas,
		Data: data,
	}, nil
}
