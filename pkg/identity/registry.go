package identity

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/trustmesh/core/pkg/events"
)

var (
	ErrNotFound     = errors.New("agent not found")
	ErrDomainTaken  = errors.New("agent domain already registered")
	ErrAddressTaken = errors.New("agent address already registered")
	ErrUnauthorized = errors.New("caller is not the agent address")
)

// Registry issues agent IDs and resolves agents by ID, domain, or
// address. It is the in-process implementation of Oracle.
type Registry struct {
	mu       sync.RWMutex
	byID     map[AgentID]Agent
	byDomain map[string]AgentID
	byAddr   map[Address]AgentID
	nextID   AgentID
	sink     events.Sink
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithSink routes registry notifications to the given sink.
func WithSink(sink events.Sink) RegistryOption {
	return func(r *Registry) { r.sink = sink }
}

// NewRegistry creates an empty identity registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		byID:     make(map[AgentID]Agent),
		byDomain: make(map[string]AgentID),
		byAddr:   make(map[Address]AgentID),
		nextID:   1,
		sink:     events.NopSink{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register issues the next agent ID for a (domain, address) pair. Both
// must be non-empty and not already registered.
func (r *Registry) Register(ctx context.Context, domain string, addr Address) (AgentID, error) {
	if domain == "" {
		return 0, errors.New("empty agent domain")
	}
	if addr == "" {
		return 0, errors.New("empty agent address")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byDomain[domain]; ok {
		return 0, fmt.Errorf("%w: %s", ErrDomainTaken, domain)
	}
	if _, ok := r.byAddr[addr]; ok {
		return 0, fmt.Errorf("%w: %s", ErrAddressTaken, addr)
	}

	id := r.nextID
	r.nextID++
	agent := Agent{ID: id, Domain: domain, Addr: addr}
	r.byID[id] = agent
	r.byDomain[domain] = id
	r.byAddr[addr] = id

	if err := r.sink.Emit(ctx, events.TypeAgentRegistered, events.AgentRegistered{
		AgentID: uint64(id),
		Domain:  domain,
		Addr:    string(addr),
	}); err != nil {
		return id, fmt.Errorf("emit agent registered: %w", err)
	}
	return id, nil
}

// Update changes an agent's domain and/or address. Only the agent's
// current address may update it; empty arguments leave the field as is.
func (r *Registry) Update(ctx context.Context, caller Address, id AgentID, newDomain string, newAddr Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	agent, ok := r.byID[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	if caller != agent.Addr {
		return fmt.Errorf("%w: %s", ErrUnauthorized, caller)
	}

	if newDomain != "" && newDomain != agent.Domain {
		if _, taken := r.byDomain[newDomain]; taken {
			return fmt.Errorf("%w: %s", ErrDomainTaken, newDomain)
		}
		delete(r.byDomain, agent.Domain)
		agent.Domain = newDomain
		r.byDomain[newDomain] = id
	}
	if newAddr != "" && newAddr != agent.Addr {
		if _, taken := r.byAddr[newAddr]; taken {
			return fmt.Errorf("%w: %s", ErrAddressTaken, newAddr)
		}
		delete(r.byAddr, agent.Addr)
		agent.Addr = newAddr
		r.byAddr[newAddr] = id
	}
	r.byID[id] = agent

	if err := r.sink.Emit(ctx, events.TypeAgentUpdated, events.AgentUpdated{
		AgentID: uint64(id),
		Domain:  agent.Domain,
		Addr:    string(agent.Addr),
	}); err != nil {
		return fmt.Errorf("emit agent updated: %w", err)
	}
	return nil
}

// Get returns the agent record for an ID.
func (r *Registry) Get(ctx context.Context, id AgentID) (Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	agent, ok := r.byID[id]
	if !ok {
		return Agent{}, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return agent, nil
}

// ResolveByDomain returns the agent registered under a domain.
func (r *Registry) ResolveByDomain(ctx context.Context, domain string) (Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byDomain[domain]
	if !ok {
		return Agent{}, fmt.Errorf("%w: domain %s", ErrNotFound, domain)
	}
	return r.byID[id], nil
}

// ResolveByAddress returns the agent registered under an address.
func (r *Registry) ResolveByAddress(ctx context.Context, addr Address) (Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byAddr[addr]
	if !ok {
		return Agent{}, fmt.Errorf("%w: address %s", ErrNotFound, addr)
	}
	return r.byID[id], nil
}

// AgentExists implements Oracle.
func (r *Registry) AgentExists(ctx context.Context, id AgentID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.byID[id]
	return ok, nil
}

// Count returns the number of registered agents.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
