package interfaces

import (
	"context"

	"metamigrate/internal/models"
)

// RawRecord is one loosely-typed object record as an adapter produced it.
// Field names vary per protocol; the normalizer maps them to the canonical
// model.
type RawRecord map[string]interface{}

// RawDiscoveryPayload is the full output of one discovery run, one list per
// object kind. A kind whose read failed or returned nothing is an empty list.
type RawDiscoveryPayload struct {
	Workflows       []RawRecord `json:"workflows"`
	Mappings        []RawRecord `json:"mappings"`
	Sessions        []RawRecord `json:"sessions"`
	Transformations []RawRecord `json:"transformations"`
	Sources         []RawRecord `json:"sources"`
	Targets         []RawRecord `json:"targets"`
}

// Total returns the number of raw records across all kinds.
func (p *RawDiscoveryPayload) Total() int {
	return len(p.Workflows) + len(p.Mappings) + len(p.Sessions) +
		len(p.Transformations) + len(p.Sources) + len(p.Targets)
}

// RepositoryAdapter is the protocol-specific discovery capability. Both
// variants produce the same payload shape; selection happens once, by the
// connection's protocol kind.
type RepositoryAdapter interface {
	// Discover pulls all object metadata from the repository. Auth or
	// connectivity failure fails the whole run with a connection error;
	// a failed individual kind read degrades to an empty list.
	Discover(ctx context.Context, conn *models.RepositoryConnection) (*RawDiscoveryPayload, error)

	// TestConnection is a cheap liveness probe. It never mutates
	// repository state. A nil error means the repository is reachable.
	TestConnection(ctx context.Context, conn *models.RepositoryConnection) error
}
