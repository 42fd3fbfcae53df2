package reputation

import "errors"

var (
	// ErrAgentNotFound — the referenced agent fails the identity
	// oracle's existence check.
	ErrAgentNotFound = errors.New("agent not found")

	// ErrInvalidDecimals — value decimals outside [0, 18].
	ErrInvalidDecimals = errors.New("value decimals above maximum")

	// ErrInvalidIndex — feedback index is zero or beyond the last
	// assigned index for the (agent, client) pair.
	ErrInvalidIndex = errors.New("feedback index out of range")

	// ErrUnauthorized — caller is not the client that submitted the
	// feedback being revoked.
	ErrUnauthorized = errors.New("caller is not the feedback client")
)
