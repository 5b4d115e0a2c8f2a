// Package transport provides HTTP handlers for the submission domain.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pendergraft/skillcert/internal/flow"
	"github.com/pendergraft/skillcert/internal/pinning"
	"github.com/pendergraft/skillcert/internal/session"
	"github.com/pendergraft/skillcert/internal/submission/domain"
)

// maxMemory is how much of a multipart form is held in memory before
// spilling to temporary files.
const maxMemory = 32 << 20

// Service defines the submission service interface for HTTP transport.
type Service interface {
	Submit(ctx context.Context, draft *domain.Draft, sess *session.Session) (*domain.Result, error)
}

// SessionSource returns the current wallet session.
type SessionSource interface {
	Current() *session.Session
}

// Handler handles HTTP requests for submissions.
type Handler struct {
	svc      Service
	sessions SessionSource
}

// NewHandler creates a new submission HTTP handler.
func NewHandler(svc Service, sessions SessionSource) *Handler {
	return &Handler{svc: svc, sessions: sessions}
}

// RegisterRoutes registers the submission routes on a chi router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.handleSubmit)
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	draft, err := readDraft(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	result, err := h.svc.Submit(r.Context(), draft, h.sessions.Current())
	if err != nil {
		status, code := classify(err)
		writeError(w, status, code, domain.Notice(err))
		return
	}

	writeJSON(w, http.StatusCreated, SubmitResponse{
		SubmissionID: result.SubmissionID,
		ContentHash:  result.ContentHash,
		TxHash:       result.TxHash,
		GasLimit:     result.GasLimit,
		GasUsed:      result.GasUsed,
		BlockNumber:  result.BlockNumber,
	})
}

// readDraft reads the name, description and file fields. A missing file is
// not a decoding error; the domain reports it.
func readDraft(r *http.Request) (*domain.Draft, error) {
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, err
		}
		return nil, errors.New("expected a multipart/form-data body")
	}

	draft := &domain.Draft{
		Name:        r.FormValue("name"),
		Description: r.FormValue("description"),
	}

	file, header, err := r.FormFile("file")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		return draft, nil
	case err != nil:
		return nil, errors.New("failed to read file")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, errors.New("failed to read file")
	}
	draft.File = &pinning.File{Name: header.Filename, Data: data}
	return draft, nil
}

// classify maps a submission error to an HTTP status and error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrMissingFile),
		errors.Is(err, domain.ErrMissingName),
		errors.Is(err, domain.ErrMissingDescription):
		return http.StatusBadRequest, "VALIDATION_ERROR"
	case errors.Is(err, domain.ErrNoAccount), errors.Is(err, domain.ErrContractNotReady):
		return http.StatusServiceUnavailable, "WALLET_NOT_READY"
	case errors.Is(err, flow.ErrInFlight):
		return http.StatusConflict, "IN_FLIGHT"
	case errors.Is(err, pinning.ErrMissingCredentials):
		return http.StatusInternalServerError, "CONFIG_ERROR"
	default:
		return http.StatusBadGateway, "UPSTREAM_ERROR"
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
