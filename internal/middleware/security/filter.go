// Package security provides request filtering and body size limits.
package security

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
)

// blockedPrefixes are scanner probes; nothing under them is ever served.
var blockedPrefixes = []string{
	"/.env",
	"/.git/",
	"/.htaccess",
	"/.htpasswd",
	"/admin/",
	"/cgi-bin/",
	"/config.",
	"/phpinfo",
	"/phpmyadmin",
	"/server-status",
	"/shell",
	"/web-inf/",
	"/wp-",
	"/xmlrpc.php",
}

// blockedFragments indicate traversal or injection anywhere in a path.
var blockedFragments = []string{
	"../",
	"..\\",
	"%2e%2e",
	"..%2f",
	"..%5c",
	"%00",
}

// Filter returns middleware that rejects scanner and traversal requests.
// Exempt paths are never inspected.
func Filter(enabled bool, exempt ...string) func(http.Handler) http.Handler {
	skip := make(map[string]bool, len(exempt))
	for _, p := range exempt {
		skip[p] = true
	}

	return func(next http.Handler) http.Handler {
		if !enabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !skip[r.URL.Path] && Blocked(r.URL) {
				writeBlocked(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Blocked reports whether the URL matches a scanner or traversal pattern,
// checking both the decoded path and the raw escaped form.
func Blocked(u *url.URL) bool {
	path := strings.ToLower(u.Path)
	for _, prefix := range blockedPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}

	candidates := []string{path, strings.ToLower(u.EscapedPath())}
	if decoded, err := url.PathUnescape(u.EscapedPath()); err == nil {
		candidates = append(candidates, strings.ToLower(decoded))
	}
	for _, c := range candidates {
		for _, frag := range blockedFragments {
			if strings.Contains(c, frag) {
				return true
			}
		}
	}
	return false
}

// writeBlocked answers without revealing which rule matched.
func writeBlocked(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"code":    "BAD_REQUEST",
			"message": "Invalid request",
		},
	})
}
