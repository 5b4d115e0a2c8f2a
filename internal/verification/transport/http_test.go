package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pendergraft/skillcert/internal/verification/domain"
)

// mockService implements Service for testing
type mockService struct {
	results map[string]domain.Result
	hashes  []string
}

func newMockService() *mockService {
	return &mockService{
		results: make(map[string]domain.Result),
	}
}

func (m *mockService) Verify(ctx context.Context, contentHash string) domain.Result {
	m.hashes = append(m.hashes, contentHash)
	if result, ok := m.results[contentHash]; ok {
		return result
	}
	return domain.NotFound{}
}

func setupRouter(svc Service) *chi.Mux {
	r := chi.NewRouter()
	h := NewHandler(svc)
	h.RegisterRoutes(r)
	r.Route("/skills", h.RegisterSkillRoutes)
	return r
}

func TestHandler_GetSkill(t *testing.T) {
	owner := common.HexToAddress("0x0000000000000000000000000000000000000abc")
	svc := newMockService()
	svc.results["Qm123"] = domain.Found{Name: "React", Description: "Frontend", Owner: owner}
	router := setupRouter(svc)

	t.Run("found", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/skills/Qm123", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp VerifyResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, VerifyResponse{
			ContentHash: "Qm123",
			Result:      ResultFound,
			Name:        "React",
			Description: "Frontend",
			Owner:       owner.Hex(),
		}, resp)
	})

	t.Run("not found is not an error", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/skills/QmDoesNotExist", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp VerifyResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, ResultNotFound, resp.Result)
		assert.Empty(t, resp.Name)
	})
}

func TestHandler_Verify(t *testing.T) {
	svc := newMockService()
	router := setupRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/verify", bytes.NewBufferString(`{"contentHash":"QmAbc"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"QmAbc"}, svc.hashes)
}

func TestHandler_Verify_InvalidJSON(t *testing.T) {
	svc := newMockService()
	router := setupRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/verify", bytes.NewBufferString("not json"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, svc.hashes)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp, "error")
}

func TestHandler_Verify_Failures(t *testing.T) {
	tests := []struct {
		kind       domain.Kind
		wantStatus int
		wantCode   string
	}{
		{domain.NoWallet, http.StatusServiceUnavailable, "NO_WALLET"},
		{domain.NotDeployed, http.StatusConflict, "NOT_DEPLOYED"},
		{domain.InFlight, http.StatusConflict, "IN_FLIGHT"},
		{domain.InvalidInput, http.StatusBadRequest, "INVALID_REQUEST"},
		{domain.Upstream, http.StatusBadGateway, "UPSTREAM_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			svc := newMockService()
			svc.results["Qm123"] = domain.Failed{Kind: tt.kind, Err: errors.New("rpc: secret detail")}
			router := setupRouter(svc)

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/skills/Qm123", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantCode, resp.Error.Code)
			assert.NotContains(t, resp.Error.Message, "secret detail")
		})
	}
}
