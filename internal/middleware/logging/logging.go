// Package logging provides structured HTTP request logging middleware.
package logging

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/pendergraft/skillcert/internal/middleware/realip"
)

// Config controls which requests are logged and at what level.
type Config struct {
	// Quiet paths (probes, scrapes) are logged at debug level.
	Quiet []string
}

// Middleware returns an HTTP middleware that logs each request once it
// completes. Server errors log at error level and client errors at warn.
func Middleware(logger *slog.Logger, cfg Config) func(http.Handler) http.Handler {
	quiet := make(map[string]bool, len(cfg.Quiet))
	for _, p := range cfg.Quiet {
		quiet[p] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}

				level := levelFor(status)
				if quiet[r.URL.Path] && level < slog.LevelWarn {
					level = slog.LevelDebug
				}

				logger.LogAttrs(context.Background(), level, "request",
					slog.String("request_id", middleware.GetReqID(r.Context())),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("route", routePattern(r)),
					slog.Int("status", status),
					slog.Int("bytes", ww.BytesWritten()),
					slog.String("duration", time.Since(start).String()),
					slog.String("client_ip", realip.GetClientIP(r)),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

func levelFor(status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		return rctx.RoutePattern()
	}
	return ""
}
