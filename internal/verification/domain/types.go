// Package domain contains the business logic for verifying certificates.
package domain

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
)

// ErrMissingHash is returned for an empty content hash.
var ErrMissingHash = errors.New("content hash is required")

// Result is the outcome of a verification: exactly one of Found, NotFound
// or Failed. Use Match to handle every variant.
type Result interface {
	isResult()
}

// Found is a registered certificate.
type Found struct {
	Name        string
	Description string
	Owner       common.Address
}

// NotFound means the contract has no record of the hash. It is a result,
// not an error.
type NotFound struct{}

// Failed means the lookup could not be completed.
type Failed struct {
	Kind Kind
	Err  error
}

func (Found) isResult()    {}
func (NotFound) isResult() {}
func (Failed) isResult()   {}

// Kind classifies a failed verification.
type Kind int

const (
	// NoWallet means no wallet provider is configured.
	NoWallet Kind = iota + 1
	// NotDeployed means the contract has no deployment on the connected network.
	NotDeployed
	// Upstream covers wallet, node and decoding failures.
	Upstream
	// InFlight means a previous verification has not finished.
	InFlight
	// InvalidInput means the content hash was empty.
	InvalidInput
)

func (k Kind) String() string {
	switch k {
	case NoWallet:
		return "no_wallet"
	case NotDeployed:
		return "not_deployed"
	case Upstream:
		return "upstream"
	case InFlight:
		return "in_flight"
	case InvalidInput:
		return "invalid_input"
	default:
		return "unknown"
	}
}

// Match calls the function matching r's variant. It panics on a nil result.
func Match[T any](r Result, found func(Found) T, notFound func(NotFound) T, failed func(Failed) T) T {
	switch v := r.(type) {
	case Found:
		return found(v)
	case NotFound:
		return notFound(v)
	case Failed:
		return failed(v)
	default:
		panic("verification: unknown result variant")
	}
}

// Label returns a short name of r's variant, used in logs and metrics.
func Label(r Result) string {
	if r == nil {
		return "none"
	}
	return Match(r,
		func(Found) string { return "found" },
		func(NotFound) string { return "not_found" },
		func(f Failed) string { return f.Kind.String() },
	)
}
