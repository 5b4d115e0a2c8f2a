// Package domain contains the business logic for submitting certificates.
package domain

import (
	"errors"
	"strings"

	"github.com/pendergraft/skillcert/internal/pinning"
)

// Precondition errors, checked in this order before any network call.
var (
	ErrNoAccount          = errors.New("connect wallet first")
	ErrContractNotReady   = errors.New("contract not ready")
	ErrMissingFile        = errors.New("select a file")
	ErrMissingName        = errors.New("skill name is required")
	ErrMissingDescription = errors.New("description is required")
)

// Step errors. Each wraps the upstream cause.
var (
	ErrUpload      = errors.New("upload failed")
	ErrEstimateGas = errors.New("gas estimation failed")
	ErrTransaction = errors.New("transaction failed")
)

// Draft is the user's pending submission.
type Draft struct {
	Name        string
	Description string
	File        *pinning.File
	// LastContentHash is the hash of the last successful submission.
	LastContentHash string
}

// HasFile reports whether a non-empty file is attached.
func (d *Draft) HasFile() bool {
	return d.File != nil && !d.File.Empty()
}

// Clear empties the user input, keeping LastContentHash.
func (d *Draft) Clear() {
	d.Name = ""
	d.Description = ""
	d.File = nil
}

func (d *Draft) validate() error {
	if !d.HasFile() {
		return ErrMissingFile
	}
	if strings.TrimSpace(d.Name) == "" {
		return ErrMissingName
	}
	if strings.TrimSpace(d.Description) == "" {
		return ErrMissingDescription
	}
	return nil
}

// Result describes a registered certificate.
type Result struct {
	SubmissionID string `json:"submissionId"`
	ContentHash  string `json:"contentHash"`
	TxHash       string `json:"txHash"`
	GasLimit     uint64 `json:"gasLimit"`
	GasUsed      uint64 `json:"gasUsed"`
	BlockNumber  uint64 `json:"blockNumber"`
}
