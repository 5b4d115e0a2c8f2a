package domain

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/pendergraft/skillcert/internal/contract"
	"github.com/pendergraft/skillcert/internal/flow"
	"github.com/pendergraft/skillcert/internal/wallet"
)

type service struct {
	provider    wallet.Provider
	artifact    *contract.Artifact
	deployments contract.Deployments
	tracker     flow.Tracker

	mu   sync.Mutex
	last Result
}

// NewService creates a new verification service. provider may be nil when
// no wallet is configured; every verification then fails with NoWallet.
func NewService(provider wallet.Provider, artifact *contract.Artifact, deployments contract.Deployments) *service {
	return &service{
		provider:    provider,
		artifact:    artifact,
		deployments: deployments,
	}
}

// Verify looks contentHash up on the deployment for the network the wallet
// is connected to. The previous result is discarded when a lookup starts.
func (s *service) Verify(ctx context.Context, contentHash string) Result {
	if s.provider == nil {
		return s.settle(Failed{Kind: NoWallet, Err: wallet.ErrNoProvider})
	}
	if strings.TrimSpace(contentHash) == "" {
		return s.settle(Failed{Kind: InvalidInput, Err: ErrMissingHash})
	}

	if err := s.tracker.Begin(); err != nil {
		return Failed{Kind: InFlight, Err: err}
	}
	s.settle(nil)

	result := s.verify(ctx, contentHash)

	var err error
	if f, ok := result.(Failed); ok {
		err = f.Err
	}
	s.tracker.Finish(err)
	return s.settle(result)
}

// Last returns the most recent result, or nil before the first
// verification and while one is in flight.
func (s *service) Last() Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// State returns the lifecycle state of the verification flow.
func (s *service) State() flow.State {
	return s.tracker.State()
}

func (s *service) settle(r Result) Result {
	s.mu.Lock()
	s.last = r
	s.mu.Unlock()
	return r
}

func (s *service) verify(ctx context.Context, contentHash string) Result {
	if err := s.provider.RequestAccess(ctx); err != nil {
		return Failed{Kind: Upstream, Err: err}
	}

	networkID, err := s.provider.NetworkID(ctx)
	if err != nil {
		return Failed{Kind: Upstream, Err: err}
	}

	address, err := s.deployments.Lookup(networkID)
	if err != nil {
		if errors.Is(err, contract.ErrNotDeployed) {
			return Failed{Kind: NotDeployed, Err: err}
		}
		return Failed{Kind: Upstream, Err: err}
	}

	handle := contract.Bind(address, s.artifact, s.provider)
	rec, err := handle.IsGenuine(ctx, contentHash)
	if err != nil {
		return Failed{Kind: Upstream, Err: err}
	}
	if !rec.Exists {
		return NotFound{}
	}
	return Found{
		Name:        rec.Name,
		Description: rec.Description,
		Owner:       rec.Owner,
	}
}
