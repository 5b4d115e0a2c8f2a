package domain

import (
	"errors"

	"github.com/pendergraft/skillcert/internal/flow"
	"github.com/pendergraft/skillcert/internal/pinning"
)

// Notice converts a submission error into the one-line message shown to
// the user. Upstream failures all map to the same generic notice; the
// details are only logged.
func Notice(err error) string {
	switch {
	case err == nil:
		return "Uploaded & stored on-chain!"
	case errors.Is(err, ErrNoAccount):
		return "Connect wallet first"
	case errors.Is(err, ErrContractNotReady):
		return "Contract not ready"
	case errors.Is(err, ErrMissingFile):
		return "Select a file"
	case errors.Is(err, ErrMissingName):
		return "Enter a skill name"
	case errors.Is(err, ErrMissingDescription):
		return "Enter a short description"
	case errors.Is(err, flow.ErrInFlight):
		return "A submission is already in progress"
	case errors.Is(err, pinning.ErrMissingCredentials):
		return "Missing Pinata keys"
	default:
		return "Upload/transaction failed. Check server logs."
	}
}
