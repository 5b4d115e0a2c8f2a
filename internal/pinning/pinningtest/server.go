// Package pinningtest provides an in-process pinning service for tests and
// local development.
package pinningtest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"

	"github.com/pendergraft/skillcert/internal/config"
	"github.com/pendergraft/skillcert/internal/pinning"
)

// Default credentials accepted by NewServer.
const (
	APIKey       = "test-pinata-key"
	SecretAPIKey = "test-pinata-secret"
)

// Upload is a file received by the service.
type Upload struct {
	FileName string
	Data     []byte
	Metadata string
	Hash     string
}

// Service pins uploads in memory. The content hash is a CIDv1 (raw codec,
// sha2-256) of the file unless Hash is set.
type Service struct {
	APIKey       string
	SecretAPIKey string

	mu         sync.Mutex
	hash       string
	failStatus int
	requests   int
	uploads    []Upload
}

// NewService returns a service accepting the given credentials.
func NewService(apiKey, secretAPIKey string) *Service {
	return &Service{APIKey: apiKey, SecretAPIKey: secretAPIKey}
}

// SetHash makes every upload return hash.
func (s *Service) SetHash(hash string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hash = hash
}

// FailWith makes every upload fail with status. Zero restores normal behavior.
func (s *Service) FailWith(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failStatus = status
}

// Requests returns the number of requests received, including rejected ones.
func (s *Service) Requests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests
}

// Uploads returns the files pinned so far.
func (s *Service) Uploads() []Upload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Upload(nil), s.uploads...)
}

// ContentID returns the CIDv1 the service assigns to data.
func ContentID(data []byte) (string, error) {
	mh, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return "", err
	}
	return cid.NewCidV1(cid.Raw, mh).String(), nil
}

func (s *Service) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.requests++
	failStatus, fixedHash := s.failStatus, s.hash
	s.mu.Unlock()

	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if r.Header.Get(pinning.HeaderAPIKey) != s.APIKey || r.Header.Get(pinning.HeaderSecretAPIKey) != s.SecretAPIKey {
		writeError(w, http.StatusUnauthorized, "INVALID_API_KEYS")
		return
	}
	if failStatus != 0 {
		writeError(w, failStatus, "pinning failed")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file")
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "reading file")
		return
	}

	hash := fixedHash
	if hash == "" {
		if hash, err = ContentID(data); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	s.mu.Lock()
	s.uploads = append(s.uploads, Upload{
		FileName: header.Filename,
		Data:     data,
		Metadata: r.FormValue("pinataMetadata"),
		Hash:     hash,
	})
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"IpfsHash":  hash,
		"PinSize":   len(data),
		"Timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func writeError(w http.ResponseWriter, status int, reason string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{"reason": reason},
	})
}

// Server is a Service listening on a local httptest server.
type Server struct {
	*Service
	HTTP *httptest.Server
}

// NewServer starts a Service that accepts APIKey and SecretAPIKey.
// Callers must Close it.
func NewServer() *Server {
	svc := NewService(APIKey, SecretAPIKey)
	return &Server{Service: svc, HTTP: httptest.NewServer(svc)}
}

// Config returns pinning settings pointing at the server.
func (s *Server) Config() config.PinningConfig {
	return config.PinningConfig{
		Endpoint:     s.HTTP.URL + "/pinning/pinFileToIPFS",
		APIKey:       s.APIKey,
		SecretAPIKey: s.SecretAPIKey,
	}
}

// Close shuts the server down.
func (s *Server) Close() {
	s.HTTP.Close()
}
