package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestClient_Submit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/skills" {
			t.Errorf("Expected path /api/v1/skills, got %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST method, got %s", r.Method)
		}
		if r.Header.Get("X-API-Key") != "test-key" {
			t.Errorf("Expected API key header")
		}
		if r.FormValue("name") != "React" || r.FormValue("description") != "Frontend" {
			t.Errorf("Unexpected form fields: %v", r.Form)
		}
		f, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("FormFile() error = %v", err)
		}
		data, _ := io.ReadAll(f)
		if header.Filename != "react.pdf" || string(data) != "pdf bytes" {
			t.Errorf("Unexpected file %s: %q", header.Filename, data)
		}

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{
			"contentHash": "Qm123",
			"txHash":      "0xabc",
			"blockNumber": 7,
		})
	}))
	defer server.Close()

	client := New(server.URL, "test-key")
	result, err := client.Submit(context.Background(), Submission{
		Name:        "React",
		Description: "Frontend",
		FileName:    "react.pdf",
		File:        strings.NewReader("pdf bytes"),
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if result.ContentHash != "Qm123" || result.TxHash != "0xabc" || result.BlockNumber != 7 {
		t.Errorf("Submit() = %+v", result)
	}
}

func TestClient_Verify(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/skills/Qm123" {
			t.Errorf("Expected path /api/v1/skills/Qm123, got %s", r.URL.Path)
		}
		if r.Header.Get("X-API-Key") != "" {
			t.Errorf("Did not expect an API key")
		}
		json.NewEncoder(w).Encode(map[string]any{
			"contentHash": "Qm123",
			"result":      "found",
			"name":        "React",
			"owner":       "0xabc",
		})
	}))
	defer server.Close()

	client := New(server.URL, "")
	v, err := client.Verify(context.Background(), "Qm123")
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if !v.Genuine() {
		t.Errorf("Verify().Genuine() = false, want true")
	}
	if v.Name != "React" || v.Owner != "0xabc" {
		t.Errorf("Verify() = %+v", v)
	}
}

func TestClient_VerifyNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"contentHash": "QmX", "result": "not_found"})
	}))
	defer server.Close()

	v, err := New(server.URL, "").Verify(context.Background(), "QmX")
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if v.Genuine() {
		t.Errorf("Verify().Genuine() = true, want false")
	}
}

func TestClient_SessionAndReconnect(t *testing.T) {
	var methods []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/session" {
			t.Errorf("Expected path /api/v1/session, got %s", r.URL.Path)
		}
		methods = append(methods, r.Method)
		json.NewEncoder(w).Encode(map[string]any{
			"account":         "0xa1",
			"contractAddress": "0xc0",
			"ready":           true,
		})
	}))
	defer server.Close()

	client := New(server.URL, "k")
	s, err := client.Session(context.Background())
	if err != nil {
		t.Fatalf("Session() error = %v", err)
	}
	if !s.Ready || s.Account != "0xa1" || s.ContractAddress != "0xc0" {
		t.Errorf("Session() = %+v", s)
	}
	if _, err := client.Reconnect(context.Background()); err != nil {
		t.Fatalf("Reconnect() error = %v", err)
	}
	if strings.Join(methods, ",") != "GET,POST" {
		t.Errorf("methods = %v", methods)
	}
}

func TestClient_Health(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}))
	defer server.Close()

	if err := New(server.URL, "").Health(context.Background()); err != nil {
		t.Fatalf("Health() error = %v", err)
	}
}

func TestClient_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{"code": "NO_WALLET", "message": "Please install a wallet provider"},
		})
	}))
	defer server.Close()

	_, err := New(server.URL, "").Verify(context.Background(), "Qm123")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Verify() error = %v, want *APIError", err)
	}
	if apiErr.Code != "NO_WALLET" || apiErr.Status != http.StatusServiceUnavailable {
		t.Errorf("APIError = %+v", apiErr)
	}
}

func TestClient_NonJSONError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer server.Close()

	err := New(server.URL, "").Health(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Health() error = %v, want *APIError", err)
	}
	if apiErr.Status != http.StatusBadGateway || apiErr.Code != "HTTP_ERROR" {
		t.Errorf("APIError = %+v", apiErr)
	}
}

func TestClient_Whoami(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-Key") != "good" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]string{"code": "UNAUTHORIZED", "message": "Invalid API key"},
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"keyId": "abc123"})
	}))
	defer server.Close()

	id, err := New(server.URL, "good").Whoami(context.Background())
	if err != nil {
		t.Fatalf("Whoami() error = %v", err)
	}
	if id != "abc123" {
		t.Errorf("Whoami() = %q, want abc123", id)
	}

	_, err = New(server.URL, "bad").Whoami(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Code != "UNAUTHORIZED" {
		t.Errorf("Whoami() error = %v, want UNAUTHORIZED", err)
	}
}

func TestClient_ServerVersion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "ok", "version": "v1.2.0"})
	}))
	defer server.Close()

	v, err := New(server.URL, "").ServerVersion(context.Background())
	if err != nil {
		t.Fatalf("ServerVersion() error = %v", err)
	}
	if v != "v1.2.0" {
		t.Errorf("ServerVersion() = %q", v)
	}
}
