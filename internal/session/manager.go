package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/pendergraft/skillcert/internal/config"
	"github.com/pendergraft/skillcert/internal/contract"
	"github.com/pendergraft/skillcert/internal/wallet"
)

// Manager owns the process-wide session and re-runs Bootstrap on Connect.
type Manager struct {
	cfg      config.ChainConfig
	provider wallet.Provider
	artifact *contract.Artifact
	logger   *slog.Logger

	mu      sync.RWMutex
	current *Session
	lastErr error
}

// NewManager creates a manager. provider may be nil when no wallet is configured.
func NewManager(cfg config.ChainConfig, provider wallet.Provider, artifact *contract.Artifact, logger *slog.Logger) *Manager {
	return &Manager{
		cfg:      cfg,
		provider: provider,
		artifact: artifact,
		logger:   logger,
		current:  &Session{ContractAddress: cfg.ContractAddress},
	}
}

// Connect bootstraps a new session and makes it current, even when
// bootstrapping fails part way.
func (m *Manager) Connect(ctx context.Context) (*Session, error) {
	sess, err := Bootstrap(ctx, m.cfg, m.provider, m.artifact, m.logger)

	m.mu.Lock()
	m.current = sess
	m.lastErr = err
	m.mu.Unlock()

	return sess, err
}

// Current returns the current session. It is never nil.
func (m *Manager) Current() *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// LastError returns the error of the last Connect, if any.
func (m *Manager) LastError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastErr
}

// Provider returns the wallet provider, or nil when none is configured.
func (m *Manager) Provider() wallet.Provider {
	return m.provider
}
