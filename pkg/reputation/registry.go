package reputation

import (
	"context"
	"errors"
	"fmt"

	"github.com/trustmesh/core/pkg/events"
	"github.com/trustmesh/core/pkg/fixedpoint"
	"github.com/trustmesh/core/pkg/identity"
)

// Registry is the reputation service: the write side of the feedback
// ledger plus the query engine in query.go. It owns no policy beyond the
// ledger invariants — anyone may submit feedback about any existing
// agent; abuse mitigation is left to off-ledger consumers of the event
// stream.
//
// Every operation either fully commits and emits its notification or
// fails with no state change.
type Registry struct {
	store  Store
	oracle identity.Oracle
	sink   events.Sink
}

// Option configures a Registry.
type Option func(*Registry)

// WithSink routes ledger notifications to the given sink.
func WithSink(sink events.Sink) Option {
	return func(r *Registry) { r.sink = sink }
}

// New creates a reputation registry over a store and an identity oracle.
func New(store Store, oracle identity.Oracle, opts ...Option) *Registry {
	r := &Registry{
		store:  store,
		oracle: oracle,
		sink:   events.NopSink{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Oracle returns the identity oracle this registry consults.
func (r *Registry) Oracle() identity.Oracle {
	return r.oracle
}

// GiveFeedback appends a feedback record for an agent on behalf of the
// client and returns the assigned index. The agent must exist per the
// oracle; decimals must be within [0, 18]; the magnitude must fit the
// signed 128-bit range. No authorization is required.
func (r *Registry) GiveFeedback(ctx context.Context, client identity.Address, agentID identity.AgentID, in FeedbackInput) (uint64, error) {
	if client == "" {
		return 0, errors.New("empty client address")
	}
	if in.Decimals > fixedpoint.MaxDecimals {
		return 0, fmt.Errorf("%w: %d", ErrInvalidDecimals, in.Decimals)
	}
	if in.Value == nil {
		return 0, errors.New("nil feedback value")
	}
	if !fixedpoint.InRange(in.Value) {
		return 0, fmt.Errorf("feedback value: %w", fixedpoint.ErrOverflow)
	}

	exists, err := r.oracle.AgentExists(ctx, agentID)
	if err != nil {
		return 0, fmt.Errorf("identity oracle: %w", err)
	}
	if !exists {
		return 0, fmt.Errorf("%w: %d", ErrAgentNotFound, agentID)
	}

	index, err := r.store.AppendFeedback(ctx, agentID, client, FeedbackRecord{
		Value:        in.Value,
		Decimals:     in.Decimals,
		Tag1:         in.Tag1,
		Tag2:         in.Tag2,
		Endpoint:     in.Endpoint,
		FeedbackURI:  in.FeedbackURI,
		FeedbackHash: in.FeedbackHash,
	})
	if err != nil {
		return 0, fmt.Errorf("append feedback: %w", err)
	}

	if err := r.sink.Emit(ctx, events.TypeNewFeedback, events.NewFeedback{
		AgentID:      uint64(agentID),
		Client:       string(client),
		Index:        index,
		Value:        in.Value.String(),
		Decimals:     in.Decimals,
		Tag1Digest:   events.TagDigest(in.Tag1),
		Tag1:         in.Tag1,
		Tag2:         in.Tag2,
		Endpoint:     in.Endpoint,
		FeedbackURI:  in.FeedbackURI,
		FeedbackHash: hashField(in.FeedbackHash),
	}); err != nil {
		return index, fmt.Errorf("emit new feedback: %w", err)
	}
	return index, nil
}

// RevokeFeedback marks the record at (agentID, client, index) as revoked.
// Only the original client may revoke; revocation is one-way and
// re-revoking a valid index is a no-op, never an error.
func (r *Registry) RevokeFeedback(ctx context.Context, caller identity.Address, agentID identity.AgentID, client identity.Address, index uint64) error {
	if client == "" {
		client = caller
	}
	if caller != client {
		return fmt.Errorf("%w: %s", ErrUnauthorized, caller)
	}

	if err := r.store.MarkRevoked(ctx, agentID, client, index); err != nil {
		return err
	}

	if err := r.sink.Emit(ctx, events.TypeFeedbackRevoked, events.FeedbackRevoked{
		AgentID: uint64(agentID),
		Client:  string(client),
		Index:   index,
	}); err != nil {
		return fmt.Errorf("emit feedback revoked: %w", err)
	}
	return nil
}

// AppendResponse threads a response under the record at (agentID, client,
// index). Any caller may respond — the agent itself, the client, or a
// third party — and revoked records still accept responses.
func (r *Registry) AppendResponse(ctx context.Context, responder identity.Address, agentID identity.AgentID, client identity.Address, index uint64, responseURI string, responseHash identity.Hash) error {
	if responder == "" {
		return errors.New("empty responder address")
	}

	err := r.store.AppendResponse(ctx, agentID, client, index, ResponseEntry{
		Responder:    responder,
		ResponseURI:  responseURI,
		ResponseHash: responseHash,
	})
	if err != nil {
		return err
	}

	if err := r.sink.Emit(ctx, events.TypeResponseAppended, events.ResponseAppended{
		AgentID:      uint64(agentID),
		Client:       string(client),
		Index:        index,
		Responder:    string(responder),
		ResponseURI:  responseURI,
		ResponseHash: hashField(responseHash),
	}); err != nil {
		return fmt.Errorf("emit response appended: %w", err)
	}
	return nil
}

func hashField(h identity.Hash) string {
	if h.IsZero() {
		return ""
	}
	return h.Hex()
}
