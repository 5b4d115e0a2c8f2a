package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pendergraft/skillcert/internal/auth"
	"github.com/pendergraft/skillcert/internal/config"
	"github.com/pendergraft/skillcert/internal/contract"
	"github.com/pendergraft/skillcert/internal/observability/metrics"
	"github.com/pendergraft/skillcert/internal/pinning"
	"github.com/pendergraft/skillcert/internal/pinning/pinningtest"
	"github.com/pendergraft/skillcert/internal/server"
	"github.com/pendergraft/skillcert/internal/session"
	"github.com/pendergraft/skillcert/internal/wallet"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "skillcert-server",
		Short:   "SkillCert server - register and verify skill certificates on-chain",
		Version: version,
	}

	// Default behavior (no subcommand) is to serve
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return runServe()
	}

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newSessionCmd())
	rootCmd.AddCommand(newKeysCmd())
	rootCmd.AddCommand(newDevPinningCmd())

	return rootCmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func newSessionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "session",
		Short: "Bootstrap the wallet session once and print it",
		Long: `Connect to the configured wallet provider, request access, pick the
active account and bind the contract, then print the result.

Useful for checking WALLET_RPC_URL and CONTRACT_ADDRESS before serving.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(cmd.Context(), cmd.OutOrStdout())
		},
	}
}

func newKeysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage API keys",
	}
	cmd.AddCommand(newKeysGenerateCmd())
	return cmd
}

func newKeysGenerateCmd() *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a new API key and its hash",
		Long: `Generate a new API key for submitting certificates.

The server only stores hashes: add the printed hash to API_KEY_HASHES
(comma separated) and hand the key to the client.

EXAMPLES:
  skillcert-server keys generate
  skillcert-server keys generate --quiet | gh secret set SKILLCERT_API_KEY
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeysGenerate(cmd.OutOrStdout(), quiet)
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "print only the key (for piping)")
	return cmd
}

func newDevPinningCmd() *cobra.Command {
	var addr, apiKey, secret string

	cmd := &cobra.Command{
		Use:   "dev-pinning",
		Short: "Run a local pinning service for development",
		Long: `Serve a local stand-in for the pinning API. Uploaded files get a CIDv1
content hash and are kept in memory.

EXAMPLES:
  skillcert-server dev-pinning --addr 127.0.0.1:9090
  PINATA_ENDPOINT=http://127.0.0.1:9090/pinning/pinFileToIPFS skillcert-server
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDevPinning(addr, apiKey, secret)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:9090", "listen address")
	cmd.Flags().StringVar(&apiKey, "api-key", pinningtest.APIKey, "accepted API key")
	cmd.Flags().StringVar(&secret, "secret-api-key", pinningtest.SecretAPIKey, "accepted secret API key")
	return cmd
}

// Server command

func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg)
	logger.Info("starting skillcert-server", "version", version)

	metrics.Init(cfg.Metrics.Enabled, "skillcert-server")

	artifact, err := contract.LoadArtifact(cfg.Chain.ArtifactPath)
	if err != nil {
		return fmt.Errorf("loading contract artifact: %w", err)
	}

	ctx := context.Background()
	provider, closeProvider, err := connectWallet(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("connecting wallet: %w", err)
	}
	defer closeProvider()

	if err := cfg.Pinning.Validate(); err != nil {
		logger.Warn("pinning disabled until keys are set", "error", err)
	}

	// Bootstrap once at startup; failures leave a partial session that the
	// console and POST /api/v1/session can retry.
	sessions := session.NewManager(cfg.Chain, provider, artifact, logger)
	_, _ = sessions.Connect(ctx)

	pinner := pinning.New(cfg.Pinning, pinning.WithLogger(logger))

	server.Version = version
	srv, err := server.New(cfg, sessions, pinner, artifact, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      srv.Handler(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	return serveUntilSignal(httpServer, logger)
}

func serveUntilSignal(httpServer *http.Server, logger *slog.Logger) error {
	errChan := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		logger.Info("shutting down", "signal", sig)
	}

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

// connectWallet dials the configured provider. With no WALLET_RPC_URL it
// returns a nil provider; every wallet flow then reports that no wallet is
// available.
func connectWallet(ctx context.Context, cfg *config.Config, logger *slog.Logger) (wallet.Provider, func(), error) {
	if !cfg.Chain.HasProvider() {
		logger.Warn("no wallet provider configured", "env", "WALLET_RPC_URL")
		return nil, func() {}, nil
	}

	opts := []wallet.Option{
		wallet.WithLogger(logger),
		wallet.WithPollInterval(time.Duration(cfg.Chain.ReceiptPollMillis) * time.Millisecond),
	}
	if cfg.Chain.PrivateKey != "" {
		key, err := wallet.ParsePrivateKey(cfg.Chain.PrivateKey)
		if err != nil {
			return nil, nil, fmt.Errorf("WALLET_PRIVATE_KEY: %w", err)
		}
		opts = append(opts, wallet.WithSigner(key))
	}

	provider, err := wallet.Dial(ctx, cfg.Chain.RPCURL, opts...)
	if err != nil {
		return nil, nil, err
	}
	return provider, provider.Close, nil
}

// Session command

func runSession(ctx context.Context, out io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	artifact, err := contract.LoadArtifact(cfg.Chain.ArtifactPath)
	if err != nil {
		return fmt.Errorf("loading contract artifact: %w", err)
	}

	provider, closeProvider, err := connectWallet(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("connecting wallet: %w", err)
	}
	defer closeProvider()

	sess, err := session.Bootstrap(ctx, cfg.Chain, provider, artifact, logger)
	printSession(out, sess)
	if err != nil {
		return err
	}

	network, err := provider.NetworkID(ctx)
	if err != nil {
		return fmt.Errorf("reading network id: %w", err)
	}
	fmt.Fprintf(out, "Network:   %s\n", network)

	deployments, err := artifact.Deployments(cfg.Chain.Deployments)
	if err != nil {
		return err
	}
	if addr, err := deployments.Lookup(network); err == nil {
		fmt.Fprintf(out, "Verifier:  %s\n", addr.Hex())
	} else {
		fmt.Fprintf(out, "Verifier:  not deployed to this network\n")
	}
	return nil
}

func printSession(out io.Writer, sess *session.Session) {
	account := "No wallet connected"
	if sess.HasAccount() {
		account = sess.ActiveAccount.Hex()
	}
	contractAddr := "-"
	if sess != nil && sess.ContractAddress != "" {
		contractAddr = sess.ContractAddress
	}
	fmt.Fprintf(out, "Account:   %s\n", account)
	fmt.Fprintf(out, "Contract:  %s\n", contractAddr)
	fmt.Fprintf(out, "Ready:     %t\n", sess.Ready())
}

// Key management

func runKeysGenerate(out io.Writer, quiet bool) error {
	key, err := auth.GenerateAPIKey()
	if err != nil {
		return fmt.Errorf("generating API key: %w", err)
	}

	if quiet {
		fmt.Fprintln(out, key)
		return nil
	}

	fmt.Fprintln(out, "API key (save this - it cannot be recovered from the hash):")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "   ", key)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Add the hash to the server configuration:")
	fmt.Fprintln(out)
	fmt.Fprintf(out, "    API_KEY_HASHES=%s\n", auth.HashAPIKey(key))
	return nil
}

// Development pinning service

func runDevPinning(addr, apiKey, secret string) error {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	svc := pinningtest.NewService(apiKey, secret)

	mux := http.NewServeMux()
	mux.Handle("/pinning/pinFileToIPFS", svc)

	return serveUntilSignal(&http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}, logger)
}

func setupLogger(cfg *config.Config) *slog.Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Logging.Level),
	}

	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
