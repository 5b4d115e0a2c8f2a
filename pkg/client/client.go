// Package client provides a Go client for the SkillCert API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"
)

// Client is a SkillCert API client
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		client.httpClient = c
	}
}

// New creates a new SkillCert client. Submissions wait for the pinning
// upload and an on-chain confirmation, so the default timeout is generous.
func New(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Result values of a Verification.
const (
	ResultFound    = "found"
	ResultNotFound = "not_found"
)

// Submission is a certificate to register.
type Submission struct {
	Name        string
	Description string
	FileName    string
	File        io.Reader
}

// SubmitResult describes a registered certificate.
type SubmitResult struct {
	SubmissionID string `json:"submissionId"`
	ContentHash  string `json:"contentHash"`
	TxHash       string `json:"txHash"`
	GasLimit     uint64 `json:"gasLimit"`
	GasUsed      uint64 `json:"gasUsed"`
	BlockNumber  uint64 `json:"blockNumber"`
}

// Verification is the outcome of a lookup. A certificate that is not
// registered is a successful lookup with Result "not_found".
type Verification struct {
	ContentHash string `json:"contentHash"`
	Result      string `json:"result"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	Owner       string `json:"owner,omitempty"`
}

// Genuine reports whether the certificate is registered.
func (v *Verification) Genuine() bool {
	return v.Result == ResultFound
}

// Session describes the server's wallet session.
type Session struct {
	Account         string `json:"account,omitempty"`
	ContractAddress string `json:"contractAddress,omitempty"`
	Ready           bool   `json:"ready"`
	Error           string `json:"error,omitempty"`
}

// APIError represents an API error response
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Submit uploads a certificate file and registers it on-chain.
func (c *Client) Submit(ctx context.Context, s Submission) (*SubmitResult, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("name", s.Name); err != nil {
		return nil, err
	}
	if err := w.WriteField("description", s.Description); err != nil {
		return nil, err
	}
	if s.File != nil {
		part, err := w.CreateFormFile("file", s.FileName)
		if err != nil {
			return nil, err
		}
		if _, err := io.Copy(part, s.File); err != nil {
			return nil, fmt.Errorf("reading file: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/skills", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	var resp SubmitResult
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Verify looks up a content hash.
func (c *Client) Verify(ctx context.Context, contentHash string) (*Verification, error) {
	var resp Verification
	if err := c.get(ctx, "/api/v1/skills/"+url.PathEscape(contentHash), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Session returns the server's current wallet session.
func (c *Client) Session(ctx context.Context) (*Session, error) {
	var resp Session
	if err := c.get(ctx, "/api/v1/session", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Reconnect asks the server to bootstrap its wallet session again.
func (c *Client) Reconnect(ctx context.Context) (*Session, error) {
	var resp Session
	if err := c.post(ctx, "/api/v1/session", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Health checks that the server is up.
func (c *Client) Health(ctx context.Context) error {
	return c.get(ctx, "/health", nil)
}

func (c *Client) get(ctx context.Context, path string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}

	return c.do(req, result)
}

func (c *Client) post(ctx context.Context, path string, body, result any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, result)
}

func (c *Client) do(req *http.Request, result any) error {
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.parseError(resp)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	req.Header.Set("Accept", "application/json")
}

func (c *Client) parseError(resp *http.Response) error {
	var errResp struct {
		Error APIError `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil || errResp.Error.Code == "" {
		return &APIError{Status: resp.StatusCode, Code: "HTTP_ERROR", Message: resp.Status}
	}
	errResp.Error.Status = resp.StatusCode
	return &errResp.Error
}
