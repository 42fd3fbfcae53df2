// Package identity — agent identity records and the existence oracle.
//
// The identity registry is the root of the trust protocol: every feedback
// and validation entry references an AgentID issued here. Other packages
// treat identity as an opaque oracle via the Oracle interface so a remote
// registry can stand in for the in-process one.
package identity

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// AgentID is a registry-issued agent identifier. IDs are sequential,
// starting at 1; zero is never a valid ID.
type AgentID uint64

// Address identifies a protocol participant (client, validator, agent
// owner). Addresses are opaque strings; the registry only compares them
// for equality.
type Address string

// Hash is a 32-byte content hash. The zero value means "unset".
type Hash [32]byte

// IsZero reports whether the hash is unset.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// Hex returns the 0x-prefixed hex encoding of the hash.
func (h Hash) Hex() string {
	return "0x" + hex.EncodeToString(h[:])
}

func (h Hash) String() string { return h.Hex() }

// MarshalJSON encodes the hash as a 0x-prefixed hex string.
func (h Hash) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.Hex())
}

// UnmarshalJSON decodes a 0x-prefixed (or bare) hex string.
func (h *Hash) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseHash(s)
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// ParseHash decodes a 32-byte hash from hex. An empty string parses to
// the zero hash.
func ParseHash(s string) (Hash, error) {
	var h Hash
	s = strings.TrimPrefix(s, "0x")
	if s == "" {
		return h, nil
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return h, fmt.Errorf("parse hash: %w", err)
	}
	if len(raw) != len(h) {
		return h, fmt.Errorf("parse hash: want %d bytes, got %d", len(h), len(raw))
	}
	copy(h[:], raw)
	return h, nil
}

// Agent is one identity registry record.
type Agent struct {
	ID     AgentID `json:"agent_id"`
	Domain string  `json:"agent_domain"`
	Addr   Address `json:"agent_address"`
}
