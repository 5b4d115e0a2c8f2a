package domain

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/pendergraft/skillcert/internal/flow"
	"github.com/pendergraft/skillcert/internal/observability/metrics"
	"github.com/pendergraft/skillcert/internal/session"
)

// Submitter is the interface wrapped by the service middlewares.
type Submitter interface {
	Submit(ctx context.Context, draft *Draft, sess *session.Session) (*Result, error)
	State() flow.State
}

// LoggingMiddleware returns a service middleware that logs all operations.
func LoggingMiddleware(logger *slog.Logger) func(Submitter) Submitter {
	return func(next Submitter) Submitter {
		return &loggingMiddleware{
			next:   next,
			logger: logger,
		}
	}
}

type loggingMiddleware struct {
	next   Submitter
	logger *slog.Logger
}

func (m *loggingMiddleware) Submit(ctx context.Context, draft *Draft, sess *session.Session) (*Result, error) {
	start := time.Now()
	name, fileName := draft.Name, ""
	if draft.File != nil {
		fileName = draft.File.Name
	}

	result, err := m.next.Submit(ctx, draft, sess)

	attrs := []any{
		"name", name,
		"file", fileName,
		"duration", time.Since(start),
	}
	if result != nil {
		attrs = append(attrs,
			"submission_id", result.SubmissionID,
			"hash", result.ContentHash,
			"tx", result.TxHash,
			"gas_used", result.GasUsed,
		)
	}
	if err != nil {
		m.logger.Error("Submit", append(attrs, "error", err)...)
	} else {
		m.logger.Info("Submit", attrs...)
	}
	return result, err
}

func (m *loggingMiddleware) State() flow.State {
	return m.next.State()
}

// InstrumentingMiddleware records submission outcomes and gas estimates.
func InstrumentingMiddleware() func(Submitter) Submitter {
	return func(next Submitter) Submitter {
		return &instrumentingMiddleware{next: next}
	}
}

type instrumentingMiddleware struct {
	next Submitter
}

func (m *instrumentingMiddleware) Submit(ctx context.Context, draft *Draft, sess *session.Session) (*Result, error) {
	result, err := m.next.Submit(ctx, draft, sess)
	metrics.Submission(outcome(err))
	if result != nil {
		metrics.GasEstimate(result.GasLimit)
	}
	return result, err
}

func (m *instrumentingMiddleware) State() flow.State {
	return m.next.State()
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, flow.ErrInFlight):
		return "in_flight"
	case errors.Is(err, ErrNoAccount), errors.Is(err, ErrContractNotReady):
		return "not_ready"
	case errors.Is(err, ErrMissingFile), errors.Is(err, ErrMissingName), errors.Is(err, ErrMissingDescription):
		return "invalid"
	case errors.Is(err, ErrUpload):
		return "upload_failed"
	case errors.Is(err, ErrEstimateGas):
		return "estimate_failed"
	default:
		return "transaction_failed"
	}
}
