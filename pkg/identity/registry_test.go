package identity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trustmesh/core/pkg/events"
)

func TestRegisterIssuesSequentialIDs(t *testing.T) {
	r := NewRegistry()
	ctx := context.Background()

	first, err := r.Register(ctx, "alpha.example.com", "addr-alpha")
	require.NoError(t, err)
	second, err := r.Register(ctx, "beta.example.com", "addr-beta")
	require.NoError(t, err)

	assert.Equal(t, AgentID(1), first)
	assert.Equal(t, AgentID(2), second)
	assert.Equal(t, 2, r.Count())
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	ctx := context.Background()

	_, err := r.Register(ctx, "alpha.example.com", "addr-alpha")
	require.NoError(t, err)

	_, err = r.Register(ctx, "alpha.example.com", "addr-other")
	assert.ErrorIs(t, err, ErrDomainTaken)

	_, err = r.Register(ctx, "other.example.com", "addr-alpha")
	assert.ErrorIs(t, err, ErrAddressTaken)
}

func TestRegisterRejectsEmptyFields(t *testing.T) {
	r := NewRegistry()
	ctx := context.Background()

	_, err := r.Register(ctx, "", "addr")
	assert.Error(t, err)
	_, err = r.Register(ctx, "domain.example.com", "")
	assert.Error(t, err)
}

func TestResolveByDomainAndAddress(t *testing.T) {
	r := NewRegistry()
	ctx := context.Background()

	id, err := r.Register(ctx, "alpha.example.com", "addr-alpha")
	require.NoError(t, err)

	byDomain, err := r.ResolveByDomain(ctx, "alpha.example.com")
	require.NoError(t, err)
	assert.Equal(t, id, byDomain.ID)

	byAddr, err := r.ResolveByAddress(ctx, "addr-alpha")
	require.NoError(t, err)
	assert.Equal(t, id, byAddr.ID)

	_, err = r.ResolveByDomain(ctx, "missing.example.com")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = r.ResolveByAddress(ctx, "addr-missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateRequiresOwnerAddress(t *testing.T) {
	r := NewRegistry()
	ctx := context.Background()

	id, err := r.Register(ctx, "alpha.example.com", "addr-alpha")
	require.NoError(t, err)

	err = r.Update(ctx, "addr-intruder", id, "new.example.com", "")
	assert.ErrorIs(t, err, ErrUnauthorized)

	agent, err := r.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "alpha.example.com", agent.Domain)
}

func TestUpdateMovesIndexes(t *testing.T) {
	r := NewRegistry()
	ctx := context.Background()

	id, err := r.Register(ctx, "alpha.example.com", "addr-alpha")
	require.NoError(t, err)

	err = r.Update(ctx, "addr-alpha", id, "renamed.example.com", "addr-renamed")
	require.NoError(t, err)

	agent, err := r.ResolveByDomain(ctx, "renamed.example.com")
	require.NoError(t, err)
	assert.Equal(t, Address("addr-renamed"), agent.Addr)

	// Old keys are released for reuse.
	_, err = r.ResolveByDomain(ctx, "alpha.example.com")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = r.Register(ctx, "alpha.example.com", "addr-alpha")
	assert.NoError(t, err)
}

func TestUpdateRejectsTakenTargets(t *testing.T) {
	r := NewRegistry()
	ctx := context.Background()

	_, err := r.Register(ctx, "alpha.example.com", "addr-alpha")
	require.NoError(t, err)
	id, err := r.Register(ctx, "beta.example.com", "addr-beta")
	require.NoError(t, err)

	err = r.Update(ctx, "addr-beta", id, "alpha.example.com", "")
	assert.ErrorIs(t, err, ErrDomainTaken)
	err = r.Update(ctx, "addr-beta", id, "", "addr-alpha")
	assert.ErrorIs(t, err, ErrAddressTaken)
}

func TestAgentExists(t *testing.T) {
	r := NewRegistry()
	ctx := context.Background()

	id, err := r.Register(ctx, "alpha.example.com", "addr-alpha")
	require.NoError(t, err)

	ok, err := r.AgentExists(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.AgentExists(ctx, 99)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRegistryEmitsLifecycleEvents(t *testing.T) {
	log := events.NewLog()
	r := NewRegistry(WithSink(log))
	ctx := context.Background()

	id, err := r.Register(ctx, "alpha.example.com", "addr-alpha")
	require.NoError(t, err)
	require.NoError(t, r.Update(ctx, "addr-alpha", id, "renamed.example.com", ""))

	assert.Len(t, log.ByType(events.TypeAgentRegistered), 1)
	assert.Len(t, log.ByType(events.TypeAgentUpdated), 1)
}
