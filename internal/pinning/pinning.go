// Package pinning uploads certificate files to a Pinata compatible
// pinning service and returns their content hash.
package pinning

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pendergraft/skillcert/internal/config"
	"github.com/pendergraft/skillcert/internal/observability/metrics"
)

// Header names carrying the two API credentials.
const (
	HeaderAPIKey       = "pinata_api_key"
	HeaderSecretAPIKey = "pinata_secret_api_key"
)

// Pinning errors.
var (
	ErrMissingCredentials = errors.New("missing pinning service credentials")
	ErrMissingFile        = errors.New("missing file")
	ErrUpstream           = errors.New("pinning service error")
)

// File is a certificate to upload.
type File struct {
	Name string
	Data []byte
	// SubmissionID correlates the pin with a submission; generated when empty.
	SubmissionID string
}

// Empty reports whether there is nothing to upload.
func (f File) Empty() bool {
	return len(f.Data) == 0
}

// Client talks to the pinning service.
type Client struct {
	endpoint     string
	apiKey       string
	secretAPIKey string
	httpClient   *http.Client
	logger       *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		client.httpClient = c
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(client *Client) {
		client.logger = logger
	}
}

// New creates a pinning client from cfg.
func New(cfg config.PinningConfig, opts ...Option) *Client {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = config.DefaultPinningEndpoint
	}
	c := &Client{
		endpoint:     endpoint,
		apiKey:       cfg.APIKey,
		secretAPIKey: cfg.SecretAPIKey,
		httpClient:   &http.Client{},
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type pinMetadata struct {
	Name      string            `json:"name"`
	KeyValues map[string]string `json:"keyvalues,omitempty"`
}

type pinResponse struct {
	IpfsHash  string `json:"IpfsHash"`
	PinSize   int64  `json:"PinSize"`
	Timestamp string `json:"Timestamp"`
}

// PinFile uploads f and returns the content hash exactly as the service
// reports it. Nothing is sent when credentials or the file are missing.
func (c *Client) PinFile(ctx context.Context, f File) (string, error) {
	if c.apiKey == "" || c.secretAPIKey == "" {
		return "", ErrMissingCredentials
	}
	if f.Empty() {
		return "", ErrMissingFile
	}
	if f.SubmissionID == "" {
		f.SubmissionID = uuid.NewString()
	}

	body, contentType, err := encodeUpload(f)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set(HeaderAPIKey, c.apiKey)
	req.Header.Set(HeaderSecretAPIKey, c.secretAPIKey)

	start := time.Now()
	hash, err := c.do(req)
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.PinUpload(status, time.Since(start))

	if err != nil {
		return "", err
	}
	c.logger.Debug("file pinned",
		"file", f.Name,
		"size", len(f.Data),
		"hash", hash,
		"submission_id", f.SubmissionID,
		"duration", time.Since(start),
	)
	return hash, nil
}

func (c *Client) do(req *http.Request) (string, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("%w: status %d: %s", ErrUpstream, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out pinResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decoding response: %v", ErrUpstream, err)
	}
	if out.IpfsHash == "" {
		return "", fmt.Errorf("%w: response has no IpfsHash", ErrUpstream)
	}
	return out.IpfsHash, nil
}

func encodeUpload(f File) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	name := f.Name
	if name == "" {
		name = "certificate"
	}
	part, err := w.CreateFormFile("file", name)
	if err != nil {
		return nil, "", fmt.Errorf("creating file part: %w", err)
	}
	if _, err := part.Write(f.Data); err != nil {
		return nil, "", fmt.Errorf("writing file part: %w", err)
	}

	meta, err := json.Marshal(pinMetadata{
		Name:      name,
		KeyValues: map[string]string{"submissionId": f.SubmissionID},
	})
	if err != nil {
		return nil, "", fmt.Errorf("encoding metadata: %w", err)
	}
	if err := w.WriteField("pinataMetadata", string(meta)); err != nil {
		return nil, "", fmt.Errorf("writing metadata: %w", err)
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("closing multipart body: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}
