// Package transport provides HTTP request/response types for the verification domain.
package transport

// Result values of a VerifyResponse.
const (
	ResultFound    = "found"
	ResultNotFound = "not_found"
)

// VerifyRequest is the HTTP request body for verifying a content hash.
type VerifyRequest struct {
	ContentHash string `json:"contentHash"`
}

// VerifyResponse is the response for a completed lookup. Name, Description
// and Owner are only set when Result is "found".
type VerifyResponse struct {
	ContentHash string `json:"contentHash"`
	Result      string `json:"result"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	Owner       string `json:"owner,omitempty"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
