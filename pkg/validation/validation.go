// Package validation — independent work-verification requests and
// responses, cross-referencing agent IDs from the identity registry.
//
// A request names a validator and a data hash identifying the work to
// verify; only that validator may respond, with a score in [0, 100].
// The registry tracks pending requests and emits a notification for
// every request and response.
package validation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/trustmesh/core/pkg/events"
	"github.com/trustmesh/core/pkg/identity"
)

var (
	ErrAgentNotFound    = errors.New("agent not found")
	ErrRequestNotFound  = errors.New("validation request not found")
	ErrDuplicateRequest = errors.New("validation request already pending for data hash")
	ErrAlreadyResponded = errors.New("validation request already responded")
	ErrUnauthorized     = errors.New("caller is not the named validator")
	ErrInvalidScore     = errors.New("validation score above 100")
)

// Request is one validation request, keyed by its data hash.
type Request struct {
	ID        string           `json:"request_id"`
	Validator identity.Address `json:"validator_address"`
	AgentID   identity.AgentID `json:"agent_id"`
	DataHash  identity.Hash    `json:"data_hash"`
	URI       string           `json:"data_uri,omitempty"`
	CreatedAt time.Time        `json:"created_at"`

	// Responded and Score hold the validator's verdict once submitted.
	Responded   bool      `json:"responded"`
	Score       uint8     `json:"response"`
	RespondedAt time.Time `json:"responded_at,omitempty"`
}

// Registry tracks validation requests and responses.
type Registry struct {
	mu       sync.RWMutex
	requests map[identity.Hash]*Request
	oracle   identity.Oracle
	sink     events.Sink
	clock    func() time.Time
}

// Option configures a Registry.
type Option func(*Registry)

// WithSink routes registry notifications to the given sink.
func WithSink(sink events.Sink) Option {
	return func(r *Registry) { r.sink = sink }
}

// WithClock overrides clock for testing.
func WithClock(clock func() time.Time) Option {
	return func(r *Registry) { r.clock = clock }
}

// New creates a validation registry over an identity oracle.
func New(oracle identity.Oracle, opts ...Option) *Registry {
	r := &Registry{
		requests: make(map[identity.Hash]*Request),
		oracle:   oracle,
		sink:     events.NopSink{},
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RequestValidation records a request for the named validator to verify
// agent work identified by dataHash. The agent must exist; a data hash
// can carry at most one request.
func (r *Registry) RequestValidation(ctx context.Context, validator identity.Address, agentID identity.AgentID, dataHash identity.Hash, uri string) (*Request, error) {
	if validator == "" {
		return nil, errors.New("empty validator address")
	}
	if dataHash.IsZero() {
		return nil, errors.New("zero data hash")
	}

	exists, err := r.oracle.AgentExists(ctx, agentID)
	if err != nil {
		return nil, fmt.Errorf("identity oracle: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %d", ErrAgentNotFound, agentID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.requests[dataHash]; ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateRequest, dataHash)
	}

	req := &Request{
		ID:        uuid.New().String(),
		Validator: validator,
		AgentID:   agentID,
		DataHash:  dataHash,
		URI:       uri,
		CreatedAt: r.clock(),
	}
	r.requests[dataHash] = req

	if err := r.sink.Emit(ctx, events.TypeValidationRequested, events.ValidationRequested{
		Validator: string(validator),
		AgentID:   uint64(agentID),
		DataHash:  dataHash.Hex(),
		URI:       uri,
	}); err != nil {
		return req, fmt.Errorf("emit validation requested: %w", err)
	}
	out := *req
	return &out, nil
}

// SubmitResponse records the validator's verdict for a pending request.
// Only the validator named in the request may respond, exactly once.
func (r *Registry) SubmitResponse(ctx context.Context, caller identity.Address, dataHash identity.Hash, score uint8) error {
	if score > 100 {
		return fmt.Errorf("%w: %d", ErrInvalidScore, score)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	req, ok := r.requests[dataHash]
	if !ok {
		return fmt.Errorf("%w: %s", ErrRequestNotFound, dataHash)
	}
	if caller != req.Validator {
		return fmt.Errorf("%w: %s", ErrUnauthorized, caller)
	}
	if req.Responded {
		return fmt.Errorf("%w: %s", ErrAlreadyResponded, dataHash)
	}

	req.Responded = true
	req.Score = score
	req.RespondedAt = r.clock()

	if err := r.sink.Emit(ctx, events.TypeValidationResponded, events.ValidationResponded{
		Validator: string(req.Validator),
		AgentID:   uint64(req.AgentID),
		DataHash:  dataHash.Hex(),
		Score:     score,
	}); err != nil {
		return fmt.Errorf("emit validation responded: %w", err)
	}
	return nil
}

// GetRequest returns the request for a data hash.
func (r *Registry) GetRequest(ctx context.Context, dataHash identity.Hash) (*Request, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	req, ok := r.requests[dataHash]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRequestNotFound, dataHash)
	}
	out := *req
	return &out, nil
}

// PendingCount returns the number of requests awaiting a response.
func (r *Registry) PendingCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, req := range r.requests {
		if !req.Responded {
			n++
		}
	}
	return n
}

// Count returns the total number of requests ever made.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.requests)
}
