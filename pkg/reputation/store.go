package reputation

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/trustmesh/core/pkg/identity"
)

// Store is the durable interface for the feedback ledger. Every method is
// keyed narrowly — per (agent, client) or per (agent, client, index,
// responder) — so a backend never has to scan beyond what the caller
// already bounded.
//
// Responses are stored keyed by responder. This is deliberate: counting
// "all responses regardless of responder" would require an unbounded
// secondary index, so the read side requires a responder list instead.
type Store interface {
	// AppendFeedback assigns the next index for (agentID, client),
	// stores the record, and adds the client to the agent's client set
	// on first appearance. Returns the assigned 1-based index.
	AppendFeedback(ctx context.Context, agentID identity.AgentID, client identity.Address, rec FeedbackRecord) (uint64, error)

	// Feedback returns the record at an index; ErrInvalidIndex if the
	// index is zero or beyond the last assigned one.
	Feedback(ctx context.Context, agentID identity.AgentID, client identity.Address, index uint64) (FeedbackRecord, error)

	// ListFeedback returns every record for (agentID, client) in index
	// order, revoked ones included.
	ListFeedback(ctx context.Context, agentID identity.AgentID, client identity.Address) ([]FeedbackRecord, error)

	// LastIndex returns the last assigned index, zero if the client
	// never gave feedback for the agent.
	LastIndex(ctx context.Context, agentID identity.AgentID, client identity.Address) (uint64, error)

	// Clients returns the agent's client set in insertion order.
	Clients(ctx context.Context, agentID identity.AgentID) ([]identity.Address, error)

	// MarkRevoked sets the revoked flag at an index. Re-revoking an
	// already revoked record is a no-op, never an error.
	MarkRevoked(ctx context.Context, agentID identity.AgentID, client identity.Address, index uint64) error

	// AppendResponse threads a response under an existing record.
	AppendResponse(ctx context.Context, agentID identity.AgentID, client identity.Address, index uint64, entry ResponseEntry) error

	// ResponseCount returns how many responses the given responder has
	// appended to the record.
	ResponseCount(ctx context.Context, agentID identity.AgentID, client identity.Address, index uint64, responder identity.Address) (uint64, error)

	// Responses returns the given responder's entries in append order.
	Responses(ctx context.Context, agentID identity.AgentID, client identity.Address, index uint64, responder identity.Address) ([]ResponseEntry, error)
}

type feedbackKey struct {
	agent  identity.AgentID
	client identity.Address
}

type responseKey struct {
	agent     identity.AgentID
	client    identity.Address
	index     uint64
	responder identity.Address
}

// MemoryStore is a thread-safe in-memory Store.
type MemoryStore struct {
	mu         sync.RWMutex
	feedback   map[feedbackKey][]FeedbackRecord
	clients    map[identity.AgentID][]identity.Address
	clientSeen map[feedbackKey]struct{}
	responses  map[responseKey][]ResponseEntry
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		feedback:   make(map[feedbackKey][]FeedbackRecord),
		clients:    make(map[identity.AgentID][]identity.Address),
		clientSeen: make(map[feedbackKey]struct{}),
		responses:  make(map[responseKey][]ResponseEntry),
	}
}

func (s *MemoryStore) AppendFeedback(ctx context.Context, agentID identity.AgentID, client identity.Address, rec FeedbackRecord) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := feedbackKey{agentID, client}
	rec.Value = copyInt(rec.Value)
	s.feedback[key] = append(s.feedback[key], rec)

	if _, seen := s.clientSeen[key]; !seen {
		s.clientSeen[key] = struct{}{}
		s.clients[agentID] = append(s.clients[agentID], client)
	}
	return uint64(len(s.feedback[key])), nil
}

func (s *MemoryStore) Feedback(ctx context.Context, agentID identity.AgentID, client identity.Address, index uint64) (FeedbackRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := s.feedback[feedbackKey{agentID, client}]
	if index == 0 || index > uint64(len(records)) {
		return FeedbackRecord{}, fmt.Errorf("%w: %d", ErrInvalidIndex, index)
	}
	rec := records[index-1]
	rec.Value = copyInt(rec.Value)
	return rec, nil
}

func (s *MemoryStore) ListFeedback(ctx context.Context, agentID identity.AgentID, client identity.Address) ([]FeedbackRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := s.feedback[feedbackKey{agentID, client}]
	out := make([]FeedbackRecord, len(records))
	for i, rec := range records {
		rec.Value = copyInt(rec.Value)
		out[i] = rec
	}
	return out, nil
}

func (s *MemoryStore) LastIndex(ctx context.Context, agentID identity.AgentID, client identity.Address) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint64(len(s.feedback[feedbackKey{agentID, client}])), nil
}

func (s *MemoryStore) Clients(ctx context.Context, agentID identity.AgentID) ([]identity.Address, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	clients := s.clients[agentID]
	out := make([]identity.Address, len(clients))
	copy(out, clients)
	return out, nil
}

func (s *MemoryStore) MarkRevoked(ctx context.Context, agentID identity.AgentID, client identity.Address, index uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.feedback[feedbackKey{agentID, client}]
	if index == 0 || index > uint64(len(records)) {
		return fmt.Errorf("%w: %d", ErrInvalidIndex, index)
	}
	records[index-1].Revoked = true
	return nil
}

func (s *MemoryStore) AppendResponse(ctx context.Context, agentID identity.AgentID, client identity.Address, index uint64, entry ResponseEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.feedback[feedbackKey{agentID, client}]
	if index == 0 || index > uint64(len(records)) {
		return fmt.Errorf("%w: %d", ErrInvalidIndex, index)
	}
	key := responseKey{agentID, client, index, entry.Responder}
	s.responses[key] = append(s.responses[key], entry)
	return nil
}

func (s *MemoryStore) ResponseCount(ctx context.Context, agentID identity.AgentID, client identity.Address, index uint64, responder identity.Address) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint64(len(s.responses[responseKey{agentID, client, index, responder}])), nil
}

func (s *MemoryStore) Responses(ctx context.Context, agentID identity.AgentID, client identity.Address, index uint64, responder identity.Address) ([]ResponseEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.responses[responseKey{agentID, client, index, responder}]
	out := make([]ResponseEntry, len(entries))
	copy(out, entries)
	return out, nil
}

// copyInt keeps stored magnitudes isolated from caller mutation.
func copyInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
