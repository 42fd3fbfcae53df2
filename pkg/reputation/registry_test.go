package reputation

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trustmesh/core/pkg/events"
	"github.com/trustmesh/core/pkg/fixedpoint"
	"github.com/trustmesh/core/pkg/identity"
)

func newTestRegistry(t *testing.T, opts ...Option) (*Registry, identity.AgentID) {
	t.Helper()
	ids := identity.NewRegistry()
	agentID, err := ids.Register(context.Background(), "agent.example.com", "addr-agent")
	require.NoError(t, err)
	return New(NewMemoryStore(), ids, opts...), agentID
}

func score(v int64) FeedbackInput {
	return FeedbackInput{Value: big.NewInt(v)}
}

func TestGiveFeedbackAssignsDenseIndexes(t *testing.T) {
	r, agentID := newTestRegistry(t)
	ctx := context.Background()

	const n = 5
	for i := 0; i < n; i++ {
		index, err := r.GiveFeedback(ctx, "client-1", agentID, score(int64(80+i)))
		require.NoError(t, err)
		assert.Equal(t, uint64(i)+1, index)
	}

	last, err := r.GetLastIndex(ctx, agentID, "client-1")
	require.NoError(t, err)
	assert.Equal(t, uint64(n), last)

	for i := uint64(1); i <= n; i++ {
		_, err := r.ReadFeedback(ctx, agentID, "client-1", i)
		assert.NoError(t, err)
	}
	_, err = r.ReadFeedback(ctx, agentID, "client-1", 0)
	assert.ErrorIs(t, err, ErrInvalidIndex)
	_, err = r.ReadFeedback(ctx, agentID, "client-1", n+1)
	assert.ErrorIs(t, err, ErrInvalidIndex)
}

func TestGiveFeedbackIndexesArePerClient(t *testing.T) {
	r, agentID := newTestRegistry(t)
	ctx := context.Background()

	index, err := r.GiveFeedback(ctx, "client-1", agentID, score(90))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), index)

	index, err = r.GiveFeedback(ctx, "client-2", agentID, score(70))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), index)

	index, err = r.GiveFeedback(ctx, "client-1", agentID, score(95))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), index)
}

func TestGiveFeedbackUnknownAgent(t *testing.T) {
	r, _ := newTestRegistry(t)

	_, err := r.GiveFeedback(context.Background(), "client-1", 42, score(90))
	assert.ErrorIs(t, err, ErrAgentNotFound)
}

func TestGiveFeedbackDecimalsBounds(t *testing.T) {
	r, agentID := newTestRegistry(t)
	ctx := context.Background()

	_, err := r.GiveFeedback(ctx, "client-1", agentID, FeedbackInput{Value: big.NewInt(1), Decimals: 18})
	assert.NoError(t, err)

	_, err = r.GiveFeedback(ctx, "client-1", agentID, FeedbackInput{Value: big.NewInt(1), Decimals: 19})
	assert.ErrorIs(t, err, ErrInvalidDecimals)
}

func TestGiveFeedbackRejectsOutOfRange(t *testing.T) {
	r, agentID := newTestRegistry(t)

	over := new(big.Int).Add(fixedpoint.MaxInt128, big.NewInt(1))
	_, err := r.GiveFeedback(context.Background(), "client-1", agentID, FeedbackInput{Value: over})
	assert.ErrorIs(t, err, fixedpoint.ErrOverflow)
}

func TestGiveFeedbackBoundaryValues(t *testing.T) {
	r, agentID := newTestRegistry(t)
	ctx := context.Background()

	for _, v := range []*big.Int{fixedpoint.MaxInt128, fixedpoint.MinInt128} {
		index, err := r.GiveFeedback(ctx, "client-1", agentID, FeedbackInput{Value: v})
		require.NoError(t, err)

		rec, err := r.ReadFeedback(ctx, agentID, "client-1", index)
		require.NoError(t, err)
		assert.Zero(t, rec.Value.Cmp(v))
	}
}

func TestGiveFeedbackNegativeRoundTrip(t *testing.T) {
	r, agentID := newTestRegistry(t)
	ctx := context.Background()

	index, err := r.GiveFeedback(ctx, "client-1", agentID, FeedbackInput{Value: big.NewInt(-32), Decimals: 1})
	require.NoError(t, err)

	rec, err := r.ReadFeedback(ctx, agentID, "client-1", index)
	require.NoError(t, err)
	assert.Zero(t, rec.Value.Cmp(big.NewInt(-32)))
	assert.Equal(t, uint8(1), rec.Decimals)
}

func TestRevokeIsMonotonicAndIdempotent(t *testing.T) {
	r, agentID := newTestRegistry(t)
	ctx := context.Background()

	index, err := r.GiveFeedback(ctx, "client-1", agentID, score(90))
	require.NoError(t, err)

	require.NoError(t, r.RevokeFeedback(ctx, "client-1", agentID, "client-1", index))
	require.NoError(t, r.RevokeFeedback(ctx, "client-1", agentID, "client-1", index))

	rec, err := r.ReadFeedback(ctx, agentID, "client-1", index)
	require.NoError(t, err)
	assert.True(t, rec.Revoked)

	// Revocation never disturbs index assignment.
	next, err := r.GiveFeedback(ctx, "client-1", agentID, score(95))
	require.NoError(t, err)
	assert.Equal(t, index+1, next)
}

func TestRevokeRequiresOriginalClient(t *testing.T) {
	r, agentID := newTestRegistry(t)
	ctx := context.Background()

	index, err := r.GiveFeedback(ctx, "client-1", agentID, score(90))
	require.NoError(t, err)

	err = r.RevokeFeedback(ctx, "client-2", agentID, "client-1", index)
	assert.ErrorIs(t, err, ErrUnauthorized)

	rec, err := r.ReadFeedback(ctx, agentID, "client-1", index)
	require.NoError(t, err)
	assert.False(t, rec.Revoked)
}

func TestRevokeDefaultsClientToCaller(t *testing.T) {
	r, agentID := newTestRegistry(t)
	ctx := context.Background()

	index, err := r.GiveFeedback(ctx, "client-1", agentID, score(90))
	require.NoError(t, err)

	require.NoError(t, r.RevokeFeedback(ctx, "client-1", agentID, "", index))

	rec, err := r.ReadFeedback(ctx, agentID, "client-1", index)
	require.NoError(t, err)
	assert.True(t, rec.Revoked)
}

func TestRevokeInvalidIndex(t *testing.T) {
	r, agentID := newTestRegistry(t)
	ctx := context.Background()

	err := r.RevokeFeedback(ctx, "client-1", agentID, "client-1", 1)
	assert.ErrorIs(t, err, ErrInvalidIndex)
	err = r.RevokeFeedback(ctx, "client-1", agentID, "client-1", 0)
	assert.ErrorIs(t, err, ErrInvalidIndex)
}

func TestAppendResponseThreadsUnderRecord(t *testing.T) {
	r, agentID := newTestRegistry(t)
	ctx := context.Background()

	index, err := r.GiveFeedback(ctx, "client-1", agentID, score(90))
	require.NoError(t, err)

	require.NoError(t, r.AppendResponse(ctx, "addr-agent", agentID, "client-1", index, "ipfs://reply-1", identity.Hash{}))
	require.NoError(t, r.AppendResponse(ctx, "addr-agent", agentID, "client-1", index, "ipfs://reply-2", identity.Hash{}))

	entries, err := r.GetResponses(ctx, agentID, "client-1", index, "addr-agent")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "ipfs://reply-1", entries[0].ResponseURI)
	assert.Equal(t, "ipfs://reply-2", entries[1].ResponseURI)
}

func TestAppendResponseOnRevokedRecord(t *testing.T) {
	r, agentID := newTestRegistry(t)
	ctx := context.Background()

	index, err := r.GiveFeedback(ctx, "client-1", agentID, score(90))
	require.NoError(t, err)
	require.NoError(t, r.RevokeFeedback(ctx, "client-1", agentID, "client-1", index))

	err = r.AppendResponse(ctx, "addr-agent", agentID, "client-1", index, "ipfs://reply", identity.Hash{})
	assert.NoError(t, err)
}

func TestAppendResponseInvalidIndex(t *testing.T) {
	r, agentID := newTestRegistry(t)

	err := r.AppendResponse(context.Background(), "addr-agent", agentID, "client-1", 7, "ipfs://reply", identity.Hash{})
	assert.ErrorIs(t, err, ErrInvalidIndex)
}

func TestLedgerEventsEmitted(t *testing.T) {
	log := events.NewLog()
	r, agentID := newTestRegistry(t, WithSink(log))
	ctx := context.Background()

	index, err := r.GiveFeedback(ctx, "client-1", agentID, FeedbackInput{
		Value:    big.NewInt(-32),
		Decimals: 1,
		Tag1:     "quality",
	})
	require.NoError(t, err)
	require.NoError(t, r.RevokeFeedback(ctx, "client-1", agentID, "client-1", index))
	require.NoError(t, r.AppendResponse(ctx, "addr-agent", agentID, "client-1", index, "ipfs://reply", identity.Hash{}))

	created := log.ByType(events.TypeNewFeedback)
	require.Len(t, created, 1)
	payload, ok := created[0].Event.Payload.(events.NewFeedback)
	require.True(t, ok)
	assert.Equal(t, "-32", payload.Value)
	assert.Equal(t, uint8(1), payload.Decimals)
	assert.Equal(t, events.TagDigest("quality"), payload.Tag1Digest)

	assert.Len(t, log.ByType(events.TypeFeedbackRevoked), 1)
	assert.Len(t, log.ByType(events.TypeResponseAppended), 1)
}
