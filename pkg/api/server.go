package api

import (
	"log/slog"
	"net/http"

	"github.com/trustmesh/core/pkg/events"
	"github.com/trustmesh/core/pkg/identity"
	"github.com/trustmesh/core/pkg/observability"
	"github.com/trustmesh/core/pkg/reputation"
	"github.com/trustmesh/core/pkg/validation"
)

// Server exposes the three registries over HTTP. Reads are anonymous;
// writes derive the caller address from a bearer token, since the ledger
// keys records by the submitting caller.
type Server struct {
	identities  *identity.Registry
	reputations *reputation.Registry
	validations *validation.Registry
	tokens      *identity.TokenManager
	eventLog    *events.Log
	logger      *slog.Logger
	metrics     *observability.Provider
	limiter     *RateLimiter
	handler     http.Handler
}

// Options wires a Server.
type Options struct {
	Identities  *identity.Registry
	Reputations *reputation.Registry
	Validations *validation.Registry
	Tokens      *identity.TokenManager
	EventLog    *events.Log // optional; enables /v1/events
	Logger      *slog.Logger
	Metrics     *observability.Provider // optional
	Limiter     *RateLimiter            // optional
}

// NewServer builds the route table and middleware chain.
func NewServer(opts Options) *Server {
	s := &Server{
		identities:  opts.Identities,
		reputations: opts.Reputations,
		validations: opts.Validations,
		tokens:      opts.Tokens,
		eventLog:    opts.EventLog,
		logger:      opts.Logger,
		metrics:     opts.Metrics,
		limiter:     opts.Limiter,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/healthz", s.handleHealth)

	// Identity registry.
	mux.HandleFunc("POST /v1/agents", s.handleRegisterAgent)
	mux.HandleFunc("GET /v1/agents/count", s.handleAgentCount)
	mux.HandleFunc("GET /v1/agents/resolve", s.handleResolveAgent)
	mux.HandleFunc("GET /v1/agents/{id}", s.handleGetAgent)
	mux.HandleFunc("PUT /v1/agents/{id}", s.handleUpdateAgent)

	// Reputation registry: write side.
	mux.HandleFunc("POST /v1/agents/{id}/feedback", s.handleGiveFeedback)
	mux.HandleFunc("POST /v1/agents/{id}/feedback/{client}/{index}/revoke", s.handleRevokeFeedback)
	mux.HandleFunc("POST /v1/agents/{id}/feedback/{client}/{index}/responses", s.handleAppendResponse)

	// Reputation registry: query engine.
	mux.HandleFunc("GET /v1/agents/{id}/feedback", s.handleReadAllFeedback)
	mux.HandleFunc("GET /v1/agents/{id}/summary", s.handleGetSummary)
	mux.HandleFunc("GET /v1/agents/{id}/clients", s.handleGetClients)
	mux.HandleFunc("GET /v1/agents/{id}/feedback/{client}/last", s.handleGetLastIndex)
	mux.HandleFunc("GET /v1/agents/{id}/feedback/{client}/{index}", s.handleReadFeedback)
	mux.HandleFunc("GET /v1/agents/{id}/feedback/{client}/{index}/responses/count", s.handleResponseCount)
	mux.HandleFunc("GET /v1/agents/{id}/feedback/{client}/{index}/responses", s.handleGetResponses)

	// Validation registry.
	mux.HandleFunc("POST /v1/validations", s.handleRequestValidation)
	mux.HandleFunc("POST /v1/validations/{hash}/response", s.handleValidationResponse)
	mux.HandleFunc("GET /v1/validations/{hash}", s.handleGetValidation)

	// Event stream.
	mux.HandleFunc("GET /v1/events", s.handleEvents)

	var handler http.Handler = mux
	if s.limiter != nil {
		handler = s.limiter.Middleware(handler)
	}
	handler = s.authenticate(handler)
	handler = s.logRequests(handler)
	s.handler = handler
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.eventLog == nil {
		WriteError(w, r, http.StatusNotFound, "Not Found", "event log not enabled")
		return
	}
	if typ := r.URL.Query().Get("type"); typ != "" {
		writeJSON(w, http.StatusOK, s.eventLog.ByType(events.Type(typ)))
		return
	}
	writeJSON(w, http.StatusOK, s.eventLog.All())
}
