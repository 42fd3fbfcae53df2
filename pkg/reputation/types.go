// Package reputation — the per-agent, per-client feedback ledger and its
// query engine.
//
// A feedback record is addressed by the triple (agent ID, client address,
// feedback index). Indexes are 1-based, dense, and assigned per
// (agent, client) pair at append time; they are never reused. Records are
// never deleted — revocation is the terminal soft delete.
package reputation

import (
	"math/big"

	"github.com/trustmesh/core/pkg/identity"
)

// FeedbackRecord is one unit of feedback about an agent.
type FeedbackRecord struct {
	// Value is the signed magnitude, bounded to the signed 128-bit
	// range. Interpreted as Value / 10^Decimals.
	Value    *big.Int
	Decimals uint8

	// Tag1 and Tag2 categorize the feedback. Empty means unset; an
	// unset tag never participates in filtering.
	Tag1 string
	Tag2 string

	// Endpoint optionally names the agent endpoint the feedback is
	// about.
	Endpoint string

	// FeedbackURI points at off-ledger feedback content; FeedbackHash
	// is its content hash, zero when unset.
	FeedbackURI  string
	FeedbackHash identity.Hash

	// Revoked transitions false→true exactly once and never back.
	Revoked bool
}

// FeedbackInput carries the caller-supplied fields of a new record.
type FeedbackInput struct {
	Value        *big.Int
	Decimals     uint8
	Tag1         string
	Tag2         string
	Endpoint     string
	FeedbackURI  string
	FeedbackHash identity.Hash
}

// ResponseEntry is a reply threaded under a feedback record. Any actor
// may respond, including the agent itself; entries keep append order and
// nothing more.
type ResponseEntry struct {
	Responder    identity.Address
	ResponseURI  string
	ResponseHash identity.Hash
}

// Summary is an aggregated (count, sum, scale) triple over a filtered
// record set. Value is the sum at Decimals scale, not an average.
type Summary struct {
	Count    uint64
	Value    *big.Int
	Decimals uint8
}

// FeedbackColumns is the column-oriented result of a bulk read. All
// slices share the same length; element i across every column describes
// the same record, in scan order (client set order, then index order
// within a client).
type FeedbackColumns struct {
	Clients  []identity.Address
	Indexes  []uint64
	Values   []*big.Int
	Decimals []uint8
	Tag1s    []string
	Tag2s    []string
	Revoked  []bool
}

// Len returns the number of rows.
func (c FeedbackColumns) Len() int { return len(c.Indexes) }

// Page bounds a bulk read. The zero Page means no pagination: every
// matching record is returned, which keeps the caller responsible for
// narrowing the scan via client filters.
type Page struct {
	Offset int
	Limit  int
}
