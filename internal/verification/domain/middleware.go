package domain

import (
	"context"
	"log/slog"
	"time"

	"github.com/pendergraft/skillcert/internal/flow"
	"github.com/pendergraft/skillcert/internal/observability/metrics"
)

// Verifier is the interface wrapped by the service middlewares.
type Verifier interface {
	Verify(ctx context.Context, contentHash string) Result
	Last() Result
	State() flow.State
}

// LoggingMiddleware returns a service middleware that logs all operations.
func LoggingMiddleware(logger *slog.Logger) func(Verifier) Verifier {
	return func(next Verifier) Verifier {
		return &loggingMiddleware{
			next:   next,
			logger: logger,
		}
	}
}

type loggingMiddleware struct {
	next   Verifier
	logger *slog.Logger
}

func (m *loggingMiddleware) Verify(ctx context.Context, contentHash string) Result {
	start := time.Now()
	result := m.next.Verify(ctx, contentHash)

	attrs := []any{
		"hash", contentHash,
		"result", Label(result),
		"duration", time.Since(start),
	}
	if f, ok := result.(Failed); ok && f.Kind == Upstream {
		m.logger.Error("Verify", append(attrs, "error", f.Err)...)
		return result
	}
	m.logger.Info("Verify", attrs...)
	return result
}

func (m *loggingMiddleware) Last() Result {
	return m.next.Last()
}

func (m *loggingMiddleware) State() flow.State {
	return m.next.State()
}

// InstrumentingMiddleware counts verification results by variant.
func InstrumentingMiddleware() func(Verifier) Verifier {
	return func(next Verifier) Verifier {
		return &instrumentingMiddleware{next: next}
	}
}

type instrumentingMiddleware struct {
	next Verifier
}

func (m *instrumentingMiddleware) Verify(ctx context.Context, contentHash string) Result {
	result := m.next.Verify(ctx, contentHash)
	metrics.Verification(Label(result))
	return result
}

func (m *instrumentingMiddleware) Last() Result {
	return m.next.Last()
}

func (m *instrumentingMiddleware) State() flow.State {
	return m.next.State()
}
