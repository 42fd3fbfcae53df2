// Package events — the externally observable notification stream.
//
// Every successful mutation on the identity, reputation, and validation
// registries emits exactly one event after its state change commits. The
// stream is append-only; consumers index it off-process.
//
// Feedback tags are emitted twice: once as the plain string and once as a
// fixed-width SHA3-256 digest. The digest is the filterable encoding —
// exact-match indexes can be built over it without storing unbounded
// strings.
package events

import (
	"encoding/hex"
	"time"

	"golang.org/x/crypto/sha3"
)

// Type categorizes an event.
type Type string

const (
	TypeAgentRegistered     Type = "AGENT_REGISTERED"
	TypeAgentUpdated        Type = "AGENT_UPDATED"
	TypeNewFeedback         Type = "NEW_FEEDBACK"
	TypeFeedbackRevoked     Type = "FEEDBACK_REVOKED"
	TypeResponseAppended    Type = "RESPONSE_APPENDED"
	TypeValidationRequested Type = "VALIDATION_REQUESTED"
	TypeValidationResponded Type = "VALIDATION_RESPONDED"
)

// Event is one notification. Payload is one of the typed payload structs
// in this package.
type Event struct {
	ID        string    `json:"id"`
	Type      Type      `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// AgentRegistered is emitted when the identity registry issues a new ID.
type AgentRegistered struct {
	AgentID uint64 `json:"agent_id"`
	Domain  string `json:"agent_domain"`
	Addr    string `json:"agent_address"`
}

// AgentUpdated is emitted when an agent record changes.
type AgentUpdated struct {
	AgentID uint64 `json:"agent_id"`
	Domain  string `json:"agent_domain"`
	Addr    string `json:"agent_address"`
}

// NewFeedback carries every field of a freshly appended feedback record.
// Tag1Digest is the filterable encoding of Tag1; Tag1 is the plain form.
type NewFeedback struct {
	AgentID      uint64 `json:"agent_id"`
	Client       string `json:"client_address"`
	Index        uint64 `json:"feedback_index"`
	Value        string `json:"value"`
	Decimals     uint8  `json:"value_decimals"`
	Tag1Digest   string `json:"tag1_digest"`
	Tag1         string `json:"tag1"`
	Tag2         string `json:"tag2"`
	Endpoint     string `json:"endpoint,omitempty"`
	FeedbackURI  string `json:"feedback_uri,omitempty"`
	FeedbackHash string `json:"feedback_hash,omitempty"`
}

// FeedbackRevoked marks a one-way revocation.
type FeedbackRevoked struct {
	AgentID uint64 `json:"agent_id"`
	Client  string `json:"client_address"`
	Index   uint64 `json:"feedback_index"`
}

// ResponseAppended records a reply threaded under a feedback record.
type ResponseAppended struct {
	AgentID      uint64 `json:"agent_id"`
	Client       string `json:"client_address"`
	Index        uint64 `json:"feedback_index"`
	Responder    string `json:"responder"`
	ResponseURI  string `json:"response_uri,omitempty"`
	ResponseHash string `json:"response_hash,omitempty"`
}

// ValidationRequested asks a validator to verify agent work.
type ValidationRequested struct {
	Validator string `json:"validator_address"`
	AgentID   uint64 `json:"agent_id"`
	DataHash  string `json:"data_hash"`
	URI       string `json:"data_uri,omitempty"`
}

// ValidationResponded is the validator's verdict.
type ValidationResponded struct {
	Validator string `json:"validator_address"`
	AgentID   uint64 `json:"agent_id"`
	DataHash  string `json:"data_hash"`
	Score     uint8  `json:"response"`
}

// TagDigest returns the filterable encoding of a tag: the 0x-prefixed
// SHA3-256 digest of its UTF-8 bytes. Empty tags digest to the digest of
// the empty string, not to an empty value, so the encoding is total.
func TagDigest(tag string) string {
	sum := sha3.Sum256([]byte(tag))
	return "0x" + hex.EncodeToString(sum[:])
}
