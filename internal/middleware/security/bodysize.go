package security

import (
	"net/http"
	"strings"
)

const megabyte = 1 << 20

// BodyLimit caps request bodies. Multipart requests get the upload limit,
// everything else the smaller body limit.
func BodyLimit(bodyMB, uploadMB int) func(http.Handler) http.Handler {
	bodyBytes := int64(bodyMB) * megabyte
	uploadBytes := int64(uploadMB) * megabyte

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			limit := bodyBytes
			if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
				limit = uploadBytes
			}
			if r.ContentLength > limit {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusRequestEntityTooLarge)
				w.Write([]byte(`{"error":{"code":"PAYLOAD_TOO_LARGE","message":"Request body too large"}}`))
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}
