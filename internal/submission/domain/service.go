package domain

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/pendergraft/skillcert/internal/flow"
	"github.com/pendergraft/skillcert/internal/pinning"
	"github.com/pendergraft/skillcert/internal/session"
)

// Pinner uploads a file and returns its content hash.
type Pinner interface {
	PinFile(ctx context.Context, f pinning.File) (string, error)
}

type service struct {
	pinner  Pinner
	tracker flow.Tracker
}

// NewService creates a new submission service.
func NewService(pinner Pinner) *service {
	return &service{pinner: pinner}
}

// Submit uploads the draft's file, estimates gas for addSkill and sends it
// from the active account, waiting for one confirmation. The steps run
// strictly in order. On success the draft is cleared and LastContentHash
// set; on failure the draft is left untouched.
func (s *service) Submit(ctx context.Context, draft *Draft, sess *session.Session) (*Result, error) {
	if !sess.HasAccount() {
		return nil, ErrNoAccount
	}
	if sess.Contract == nil {
		return nil, ErrContractNotReady
	}
	if err := draft.validate(); err != nil {
		return nil, err
	}

	if err := s.tracker.Begin(); err != nil {
		return nil, err
	}
	result, err := s.submit(ctx, draft, sess)
	s.tracker.Finish(err)
	if err != nil {
		return nil, err
	}

	draft.LastContentHash = result.ContentHash
	draft.Clear()
	return result, nil
}

// State returns the lifecycle state of the submission flow.
func (s *service) State() flow.State {
	return s.tracker.State()
}

func (s *service) submit(ctx context.Context, draft *Draft, sess *session.Session) (*Result, error) {
	file := *draft.File
	if file.SubmissionID == "" {
		file.SubmissionID = uuid.NewString()
	}

	hash, err := s.pinner.PinFile(ctx, file)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpload, err)
	}

	from := sess.ActiveAccount
	gas, err := sess.Contract.EstimateAddSkill(ctx, from, draft.Name, draft.Description, hash)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEstimateGas, err)
	}

	receipt, err := sess.Contract.AddSkill(ctx, from, gas, draft.Name, draft.Description, hash)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransaction, err)
	}

	result := &Result{
		SubmissionID: file.SubmissionID,
		ContentHash:  hash,
		TxHash:       receipt.TxHash.Hex(),
		GasLimit:     gas,
		GasUsed:      receipt.GasUsed,
	}
	if receipt.BlockNumber != nil {
		result.BlockNumber = receipt.BlockNumber.Uint64()
	}
	return result, nil
}
