// Package config loads the server configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// DefaultPinningEndpoint is Pinata's file pinning endpoint.
const DefaultPinningEndpoint = "https://api.pinata.cloud/pinning/pinFileToIPFS"

// Configuration errors. They are reported before any network call is made.
var (
	ErrMissingContractAddress = errors.New("missing contract address")
	ErrMissingPinningKeys     = errors.New("missing pinning service API keys")
)

// Config holds all configuration for the server
type Config struct {
	Server    ServerConfig
	Chain     ChainConfig
	Pinning   PinningConfig
	Auth      AuthConfig
	Logging   LoggingConfig
	Metrics   MetricsConfig
	RateLimit RateLimitConfig
	Security  SecurityConfig
	Proxy     ProxyConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         int
	Host         string
	ReadTimeout  int // seconds
	WriteTimeout int // seconds
	IdleTimeout  int // seconds
	// Console serves the HTML console. Its forms are not key-protected.
	Console bool
}

// ChainConfig holds wallet provider and contract settings
type ChainConfig struct {
	// RPCURL is the wallet provider endpoint. Empty means no provider.
	RPCURL string
	// PrivateKey is an optional hex key; when set transactions are signed locally.
	PrivateKey string
	// ContractAddress is the SkillCertification address used for submissions.
	ContractAddress string
	// ArtifactPath points at a Truffle artifact; empty uses the embedded one.
	ArtifactPath string
	// Deployments maps network IDs to addresses, overriding the artifact's networks.
	Deployments       map[string]string
	ReceiptPollMillis int
}

// PinningConfig holds pinning service settings
type PinningConfig struct {
	Endpoint     string
	APIKey       string
	SecretAPIKey string
}

// AuthConfig holds authentication settings for write operations
type AuthConfig struct {
	Type      string   // "none" or "api-key"
	KeyHashes []string // sha256 hex of accepted API keys
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string
	Format string // "text" or "json"
}

// MetricsConfig holds Prometheus settings
type MetricsConfig struct {
	Enabled bool
}

// RateLimitConfig holds rate limiting settings
type RateLimitConfig struct {
	Enabled             bool
	RequestsPerMin      int
	WriteRequestsPerMin int // submissions pin a file and send a transaction
	BurstSize           int
	CleanupMinutes      int
}

// SecurityConfig holds security filter settings
type SecurityConfig struct {
	FilterEnabled   bool
	MaxBodySizeMB   int // JSON and form bodies
	MaxUploadSizeMB int // multipart certificate uploads
}

// ProxyConfig holds trusted proxy settings for X-Forwarded-For handling
type ProxyConfig struct {
	TrustProxy     bool
	TrustedProxies []string // CIDR notation
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	deployments, err := parseDeployments(os.Getenv("CONTRACT_DEPLOYMENTS"))
	if err != nil {
		return nil, fmt.Errorf("CONTRACT_DEPLOYMENTS: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnvInt("PORT", 8080),
			Host:         getEnv("HOST", "0.0.0.0"),
			ReadTimeout:  getEnvInt("SERVER_READ_TIMEOUT", 30),
			WriteTimeout: getEnvInt("SERVER_WRITE_TIMEOUT", 300),
			IdleTimeout:  getEnvInt("SERVER_IDLE_TIMEOUT", 120),
			Console:      getEnvBool("CONSOLE_ENABLED", true),
		},
		Chain: ChainConfig{
			RPCURL:            getEnv("WALLET_RPC_URL", ""),
			PrivateKey:        getEnv("WALLET_PRIVATE_KEY", ""),
			ContractAddress:   strings.TrimSpace(getEnv("CONTRACT_ADDRESS", "")),
			ArtifactPath:      getEnv("CONTRACT_ARTIFACT", ""),
			Deployments:       deployments,
			ReceiptPollMillis: getEnvInt("RECEIPT_POLL_INTERVAL_MS", 1000),
		},
		Pinning: PinningConfig{
			Endpoint:     getEnv("PINATA_ENDPOINT", DefaultPinningEndpoint),
			APIKey:       getEnv("PINATA_API_KEY", ""),
			SecretAPIKey: getEnv("PINATA_SECRET_API_KEY", ""),
		},
		Auth: AuthConfig{
			Type:      getEnv("AUTH_TYPE", "none"),
			KeyHashes: getEnvStringSlice("API_KEY_HASHES", nil),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
		},
		RateLimit: RateLimitConfig{
			Enabled:             getEnvBool("RATE_LIMIT_ENABLED", true),
			RequestsPerMin:      getEnvInt("RATE_LIMIT_RPM", 120),
			WriteRequestsPerMin: getEnvInt("RATE_LIMIT_WRITE_RPM", 10),
			BurstSize:           getEnvInt("RATE_LIMIT_BURST", 20),
			CleanupMinutes:      getEnvInt("RATE_LIMIT_CLEANUP_MINUTES", 10),
		},
		Security: SecurityConfig{
			FilterEnabled:   getEnvBool("SECURITY_FILTER_ENABLED", true),
			MaxBodySizeMB:   getEnvInt("SECURITY_MAX_BODY_SIZE_MB", 1),
			MaxUploadSizeMB: getEnvInt("SECURITY_MAX_UPLOAD_SIZE_MB", 50),
		},
		Proxy: ProxyConfig{
			TrustProxy:     getEnvBool("TRUST_PROXY", false),
			TrustedProxies: getEnvStringSlice("TRUSTED_PROXIES", []string{"10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"}),
		},
	}

	// API key hashes only make sense with api-key auth
	if len(cfg.Auth.KeyHashes) > 0 && cfg.Auth.Type == "none" {
		cfg.Auth.Type = "api-key"
	}

	return cfg, nil
}

// HasProvider reports whether a wallet provider endpoint is configured.
func (c ChainConfig) HasProvider() bool {
	return c.RPCURL != ""
}

// Validate checks the settings the submission flow cannot run without.
func (c ChainConfig) Validate() error {
	if c.ContractAddress == "" {
		return ErrMissingContractAddress
	}
	return nil
}

// Validate checks that both pinning credentials are present.
func (p PinningConfig) Validate() error {
	if p.APIKey == "" || p.SecretAPIKey == "" {
		return ErrMissingPinningKeys
	}
	return nil
}

// parseDeployments parses "5777=0xabc...,1337=0xdef..." pairs.
func parseDeployments(value string) (map[string]string, error) {
	result := make(map[string]string)
	for _, pair := range strings.Split(value, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		networkID, address, ok := strings.Cut(pair, "=")
		networkID = strings.TrimSpace(networkID)
		address = strings.TrimSpace(address)
		if !ok || networkID == "" || address == "" {
			return nil, fmt.Errorf("invalid entry %q, want networkID=address", pair)
		}
		if _, err := strconv.ParseUint(networkID, 10, 64); err != nil {
			return nil, fmt.Errorf("invalid network ID %q", networkID)
		}
		result[networkID] = address
	}
	return result, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}
