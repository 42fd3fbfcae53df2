package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/trustmesh/core/pkg/identity"
)

type contextKey string

const callerKey contextKey = "trustmesh.caller"

// callerFrom returns the authenticated caller address, empty if the
// request carried no valid token.
func callerFrom(ctx context.Context) identity.Address {
	addr, _ := ctx.Value(callerKey).(identity.Address)
	return addr
}

// authenticate resolves a bearer token into a caller address and stores
// it on the request context. Requests without a token pass through
// unauthenticated; handlers that mutate state require a caller.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			WriteUnauthorized(w, r, "malformed Authorization header")
			return
		}
		addr, err := s.tokens.Validate(token)
		if err != nil {
			WriteUnauthorized(w, r, "invalid token")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), callerKey, addr)))
	})
}

// requireCaller extracts the authenticated caller or writes 401.
func requireCaller(w http.ResponseWriter, r *http.Request) (identity.Address, bool) {
	caller := callerFrom(r.Context())
	if caller == "" {
		WriteUnauthorized(w, r, "endpoint requires a bearer token")
		return "", false
	}
	return caller, true
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(status int) {
	rec.status = status
	rec.ResponseWriter.WriteHeader(status)
}

// logRequests emits one structured line per request and feeds the
// operation metrics.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		elapsed := time.Since(start)

		s.logger.Info("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.Duration("duration", elapsed),
		)
		if s.metrics != nil {
			var opErr error
			if rec.status >= 400 {
				opErr = &ProblemDetail{Status: rec.status}
			}
			s.metrics.RecordOperation(r.Context(), "http", r.Method+" "+r.URL.Path, elapsed, opErr)
		}
	})
}
