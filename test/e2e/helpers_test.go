//go:build e2e

package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/pendergraft/skillcert/internal/auth"
	"github.com/pendergraft/skillcert/internal/config"
	"github.com/pendergraft/skillcert/internal/contract"
	"github.com/pendergraft/skillcert/internal/pinning"
	"github.com/pendergraft/skillcert/internal/pinning/pinningtest"
	"github.com/pendergraft/skillcert/internal/server"
	"github.com/pendergraft/skillcert/internal/session"
	"github.com/pendergraft/skillcert/internal/wallet"
	"github.com/pendergraft/skillcert/pkg/client"
)

const foundryImage = "ghcr.io/foundry-rs/foundry:latest"

// TestContext holds shared test infrastructure
type TestContext struct {
	Anvil      testcontainers.Container
	RPCURL     string
	Provider   *wallet.RPCProvider
	Account    common.Address
	Contract   common.Address
	NetworkID  string
	Pinning    *pinningtest.Server
	Sessions   *session.Manager
	TestServer *httptest.Server
	APIKey     string
}

// startAnvilE starts a local dev chain and returns its RPC endpoint
func startAnvilE(ctx context.Context) (testcontainers.Container, string, error) {
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        foundryImage,
			Entrypoint:   []string{"anvil"},
			Cmd:          []string{"--host", "0.0.0.0", "--block-time", "1"},
			ExposedPorts: []string{"8545/tcp"},
			WaitingFor: wait.ForLog("Listening on").
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to start anvil container: %w", err)
	}

	endpoint, err := container.PortEndpoint(ctx, "8545/tcp", "http")
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, "", fmt.Errorf("failed to get anvil endpoint: %w", err)
	}
	return container, endpoint, nil
}

// buildContractE runs forge build in a Foundry container and returns the
// creation bytecode of SkillCertification
func buildContractE(projectDir string) ([]byte, error) {
	// World-writable so the container user can write regardless of uid
	builtDir := filepath.Join(os.TempDir(), fmt.Sprintf("skill-registry-out-%s", uuid.New().String()))
	if err := os.MkdirAll(builtDir, 0777); err != nil {
		return nil, fmt.Errorf("failed to create build directory: %w", err)
	}
	defer os.RemoveAll(builtDir)

	absProjectDir, err := filepath.Abs(projectDir)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute project path: %w", err)
	}

	// #nosec G204 -- controlled command
	cmd := exec.Command("docker", "run", "--rm",
		"-v", absProjectDir+":/project:ro",
		"-v", builtDir+":/output",
		"-w", "/project",
		"--entrypoint", "/bin/sh",
		foundryImage,
		"-c", "forge build --out /output --cache-path /tmp/forge-cache")

	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("failed to build contract: %w\nOutput: %s", err, string(output))
	}

	data, err := os.ReadFile(filepath.Join(builtDir, "SkillCertification.sol", "SkillCertification.json"))
	if err != nil {
		return nil, fmt.Errorf("reading build output: %w", err)
	}

	var artifact struct {
		Bytecode struct {
			Object string `json:"object"`
		} `json:"bytecode"`
	}
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, fmt.Errorf("parsing build output: %w", err)
	}
	return hexutil.Decode(artifact.Bytecode.Object)
}

// deployE deploys bytecode from the first unlocked dev account
func deployE(ctx context.Context, provider *wallet.RPCProvider, bytecode []byte) (common.Address, common.Address, error) {
	accounts, err := provider.Accounts(ctx)
	if err != nil {
		return common.Address{}, common.Address{}, fmt.Errorf("listing accounts: %w", err)
	}
	if len(accounts) == 0 {
		return common.Address{}, common.Address{}, fmt.Errorf("dev chain has no unlocked accounts")
	}
	from := accounts[0]

	msg := wallet.CallMsg{From: from, Data: bytecode}
	gas, err := provider.EstimateGas(ctx, msg)
	if err != nil {
		return common.Address{}, common.Address{}, fmt.Errorf("estimating deploy gas: %w", err)
	}
	msg.Gas = gas

	receipt, err := provider.SendTransaction(ctx, msg)
	if err != nil {
		return common.Address{}, common.Address{}, fmt.Errorf("deploying: %w", err)
	}
	return from, receipt.ContractAddress, nil
}

// startServerE starts the skillcert server in-process against the dev chain
func startServerE(ctx context.Context, tc *TestContext) error {
	key, err := auth.GenerateAPIKey()
	if err != nil {
		return err
	}
	tc.APIKey = key

	networkID, err := tc.Provider.NetworkID(ctx)
	if err != nil {
		return fmt.Errorf("fetching network id: %w", err)
	}
	tc.NetworkID = strconv.FormatInt(networkID.Int64(), 10)

	cfg := &config.Config{
		Server: config.ServerConfig{Port: 8080, Host: "0.0.0.0", Console: true},
		Chain: config.ChainConfig{
			RPCURL:            tc.RPCURL,
			ContractAddress:   tc.Contract.Hex(),
			Deployments:       map[string]string{tc.NetworkID: tc.Contract.Hex()},
			ReceiptPollMillis: 100,
		},
		Auth:      config.AuthConfig{Type: "api-key", KeyHashes: []string{auth.HashAPIKey(key)}},
		Logging:   config.LoggingConfig{Level: "debug", Format: "text"},
		RateLimit: config.RateLimitConfig{Enabled: false},
		Security:  config.SecurityConfig{FilterEnabled: true, MaxBodySizeMB: 1, MaxUploadSizeMB: 5},
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	artifact := contract.DefaultArtifact()

	tc.Sessions = session.NewManager(cfg.Chain, tc.Provider, artifact, logger)
	if _, err := tc.Sessions.Connect(ctx); err != nil {
		return fmt.Errorf("bootstrapping session: %w", err)
	}

	tc.Pinning = pinningtest.NewServer()
	srv, err := server.New(cfg, tc.Sessions, pinning.New(tc.Pinning.Config(), pinning.WithLogger(logger)), artifact, logger)
	if err != nil {
		tc.Pinning.Close()
		return fmt.Errorf("creating server: %w", err)
	}

	tc.TestServer = httptest.NewServer(srv.Handler())
	return nil
}

// newClient creates a new API client for the test server
func newClient(apiKey string) *client.Client {
	return client.New(testCtx.TestServer.URL, apiKey)
}
