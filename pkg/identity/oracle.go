package identity

import "context"

// Oracle answers agent existence checks. The reputation and validation
// registries depend on this interface only, never on the concrete
// registry, so a remote identity service can be substituted.
type Oracle interface {
	AgentExists(ctx context.Context, id AgentID) (bool, error)
}
