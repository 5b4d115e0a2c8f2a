package server

import (
	"net/http"

	"github.com/pendergraft/skillcert/internal/session"
)

// SessionResponse describes the current wallet session.
type SessionResponse struct {
	Account         string `json:"account,omitempty"`
	ContractAddress string `json:"contractAddress,omitempty"`
	Ready           bool   `json:"ready"`
	Error           string `json:"error,omitempty"`
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.describe(s.sessions.Current(), s.sessions.LastError()))
}

// handleConnect re-runs the bootstrap. A failed bootstrap still replaces
// the session, so the response carries the partial state.
func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Connect(r.Context())
	status := http.StatusOK
	if err != nil {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, s.describe(sess, err))
}

func (s *Server) describe(sess *session.Session, err error) SessionResponse {
	resp := SessionResponse{Ready: sess.Ready()}
	if sess.HasAccount() {
		resp.Account = sess.ActiveAccount.Hex()
	}
	if sess != nil {
		resp.ContractAddress = sess.ContractAddress
	}
	if err != nil {
		resp.Error = "Wallet/contract init failed. Check server logs."
	}
	return resp
}
