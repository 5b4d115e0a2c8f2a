package contract

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ErrNotDeployed is returned when the contract has no address on a network.
var ErrNotDeployed = errors.New("contract not deployed on this network")

// Deployments maps a network ID, in decimal, to the contract address there.
type Deployments map[string]common.Address

// Lookup returns the address deployed on networkID.
func (d Deployments) Lookup(networkID *big.Int) (common.Address, error) {
	if networkID == nil {
		return common.Address{}, ErrNotDeployed
	}
	addr, ok := d[networkID.String()]
	if !ok {
		return common.Address{}, ErrNotDeployed
	}
	return addr, nil
}
