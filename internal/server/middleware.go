package server

import (
	"net/http"
	"strings"

	"github.com/pendergraft/skillcert/internal/middleware/ratelimit"
)

// writePaths are the POST routes that pin files, send transactions or
// re-run the wallet bootstrap.
var writePaths = map[string]bool{
	"/api/v1/skills":   true,
	"/api/v1/skills/":  true,
	"/api/v1/session":  true,
	"/api/v1/session/": true,
	"/submit":          true,
	"/connect":         true,
}

// classify puts costly POSTs on the write budget. Verification POSTs are
// lookups and stay on the read budget.
func classify(r *http.Request) ratelimit.Class {
	if r.Method == http.MethodPost && writePaths[strings.ToLower(r.URL.Path)] {
		return ratelimit.Write
	}
	return ratelimit.Read
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-API-Key")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
