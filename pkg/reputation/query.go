package reputation

import (
	"context"
	"fmt"

	"github.com/trustmesh/core/pkg/fixedpoint"
	"github.com/trustmesh/core/pkg/identity"
)

// Query cost is bounded by the caller, not the engine: a read scans
// exactly the clients the caller names, or the agent's whole client set
// when none are named. Agents with very large feedback volumes need
// narrow client filters or pagination; the engine enforces neither.

// ReadFeedback returns the record at (agentID, client, index).
func (r *Registry) ReadFeedback(ctx context.Context, agentID identity.AgentID, client identity.Address, index uint64) (FeedbackRecord, error) {
	return r.store.Feedback(ctx, agentID, client, index)
}

// GetSummary aggregates the non-revoked records matching the filters.
// An empty client list scans the agent's full client set; empty tag
// filters match everything. The summary value is the sum at the maximum
// decimals among matches — callers wanting an average divide by Count.
func (r *Registry) GetSummary(ctx context.Context, agentID identity.AgentID, clients []identity.Address, tag1, tag2 string) (Summary, error) {
	scan, err := r.scanClients(ctx, agentID, clients)
	if err != nil {
		return Summary{}, err
	}

	var values []fixedpoint.Value
	for _, client := range scan {
		records, err := r.store.ListFeedback(ctx, agentID, client)
		if err != nil {
			return Summary{}, err
		}
		for _, rec := range records {
			if rec.Revoked || !matchTags(rec, tag1, tag2) {
				continue
			}
			values = append(values, fixedpoint.Value{Int: rec.Value, Decimals: rec.Decimals})
		}
	}

	sum, decimals, err := fixedpoint.Aggregate(values)
	if err != nil {
		return Summary{}, fmt.Errorf("aggregate feedback: %w", err)
	}
	return Summary{Count: uint64(len(values)), Value: sum, Decimals: decimals}, nil
}

// ReadAllFeedback returns the matching records as parallel columns, in
// scan order. includeRevoked toggles whether revoked records appear; the
// revoked flag is reported truthfully either way. The zero Page returns
// everything; otherwise Offset rows are skipped and at most Limit rows
// returned.
func (r *Registry) ReadAllFeedback(ctx context.Context, agentID identity.AgentID, clients []identity.Address, tag1, tag2 string, includeRevoked bool, page Page) (FeedbackColumns, error) {
	scan, err := r.scanClients(ctx, agentID, clients)
	if err != nil {
		return FeedbackColumns{}, err
	}

	var cols FeedbackColumns
	skip := page.Offset
	for _, client := range scan {
		records, err := r.store.ListFeedback(ctx, agentID, client)
		if err != nil {
			return FeedbackColumns{}, err
		}
		for i, rec := range records {
			if !includeRevoked && rec.Revoked {
				continue
			}
			if !matchTags(rec, tag1, tag2) {
				continue
			}
			if skip > 0 {
				skip--
				continue
			}
			cols.Clients = append(cols.Clients, client)
			cols.Indexes = append(cols.Indexes, uint64(i)+1)
			cols.Values = append(cols.Values, rec.Value)
			cols.Decimals = append(cols.Decimals, rec.Decimals)
			cols.Tag1s = append(cols.Tag1s, rec.Tag1)
			cols.Tag2s = append(cols.Tag2s, rec.Tag2)
			cols.Revoked = append(cols.Revoked, rec.Revoked)
			if page.Limit > 0 && cols.Len() == page.Limit {
				return cols, nil
			}
		}
	}
	return cols, nil
}

// GetResponseCount sums the response counts of the named responders on a
// record. Responses are stored keyed by responder, so the responder list
// is required: an empty list yields zero even when responses exist. This
// is a deliberate space/cost trade-off inherited from the protocol, not
// an oversight — enumerate known responders from the event stream first.
func (r *Registry) GetResponseCount(ctx context.Context, agentID identity.AgentID, client identity.Address, index uint64, responders []identity.Address) (uint64, error) {
	// Existence check so a bad index is an error, not a zero count.
	if _, err := r.store.Feedback(ctx, agentID, client, index); err != nil {
		return 0, err
	}

	seen := make(map[identity.Address]struct{}, len(responders))
	var total uint64
	for _, responder := range responders {
		if _, dup := seen[responder]; dup {
			continue
		}
		seen[responder] = struct{}{}
		n, err := r.store.ResponseCount(ctx, agentID, client, index, responder)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

// GetResponses returns a responder's entries on a record in append order.
func (r *Registry) GetResponses(ctx context.Context, agentID identity.AgentID, client identity.Address, index uint64, responder identity.Address) ([]ResponseEntry, error) {
	if _, err := r.store.Feedback(ctx, agentID, client, index); err != nil {
		return nil, err
	}
	return r.store.Responses(ctx, agentID, client, index, responder)
}

// GetClients returns the agent's client set in insertion order.
func (r *Registry) GetClients(ctx context.Context, agentID identity.AgentID) ([]identity.Address, error) {
	return r.store.Clients(ctx, agentID)
}

// GetLastIndex returns the last feedback index assigned for (agentID,
// client), zero if the client never gave feedback for the agent.
func (r *Registry) GetLastIndex(ctx context.Context, agentID identity.AgentID, client identity.Address) (uint64, error) {
	return r.store.LastIndex(ctx, agentID, client)
}

func (r *Registry) scanClients(ctx context.Context, agentID identity.AgentID, clients []identity.Address) ([]identity.Address, error) {
	if len(clients) > 0 {
		return clients, nil
	}
	return r.store.Clients(ctx, agentID)
}

func matchTags(rec FeedbackRecord, tag1, tag2 string) bool {
	if tag1 != "" && rec.Tag1 != tag1 {
		return false
	}
	if tag2 != "" && rec.Tag2 != tag2 {
		return false
	}
	return true
}
