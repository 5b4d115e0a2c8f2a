// Package transport provides HTTP handlers for the verification domain.
package transport

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pendergraft/skillcert/internal/verification/domain"
)

// Service defines the verification service interface for HTTP transport.
type Service interface {
	Verify(ctx context.Context, contentHash string) domain.Result
}

// Handler handles HTTP requests for verification.
type Handler struct {
	svc Service
}

// NewHandler creates a new verification HTTP handler.
func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterSkillRoutes registers the lookup route under /skills.
func (h *Handler) RegisterSkillRoutes(r chi.Router) {
	r.Get("/{hash}", h.handleGetSkill)
}

// RegisterRoutes registers the verification routes on a chi router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/verify", h.handleVerify)
}

func (h *Handler) handleGetSkill(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, chi.URLParam(r, "hash"))
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Failed to read request body")
		return
	}

	var req VerifyRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON")
		return
	}

	h.respond(w, r, req.ContentHash)
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, hash string) {
	result := h.svc.Verify(r.Context(), hash)

	domain.Match(result,
		func(f domain.Found) struct{} {
			writeJSON(w, http.StatusOK, VerifyResponse{
				ContentHash: hash,
				Result:      ResultFound,
				Name:        f.Name,
				Description: f.Description,
				Owner:       f.Owner.Hex(),
			})
			return struct{}{}
		},
		func(domain.NotFound) struct{} {
			writeJSON(w, http.StatusOK, VerifyResponse{
				ContentHash: hash,
				Result:      ResultNotFound,
			})
			return struct{}{}
		},
		func(f domain.Failed) struct{} {
			status, code, message := classify(f)
			writeError(w, status, code, message)
			return struct{}{}
		},
	)
}

// classify maps a failed verification to an HTTP status, code and notice.
func classify(f domain.Failed) (int, string, string) {
	switch f.Kind {
	case domain.NoWallet:
		return http.StatusServiceUnavailable, "NO_WALLET", "Please install a wallet provider"
	case domain.NotDeployed:
		return http.StatusConflict, "NOT_DEPLOYED", "Contract not deployed to this network"
	case domain.InFlight:
		return http.StatusConflict, "IN_FLIGHT", "A verification is already in progress"
	case domain.InvalidInput:
		return http.StatusBadRequest, "INVALID_REQUEST", "Content hash is required"
	default:
		return http.StatusBadGateway, "UPSTREAM_ERROR", "Verification failed"
	}
}

// Helper functions

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: ErrorDetail{Code: code, Message: message}})
}
