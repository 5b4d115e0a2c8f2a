// Package transport provides HTTP request/response types for the submission domain.
package transport

// SubmitResponse is the response for a successful submission.
type SubmitResponse struct {
	SubmissionID string `json:"submissionId"`
	ContentHash  string `json:"contentHash"`
	TxHash       string `json:"txHash"`
	GasLimit     uint64 `json:"gasLimit"`
	GasUsed      uint64 `json:"gasUsed"`
	BlockNumber  uint64 `json:"blockNumber"`
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
