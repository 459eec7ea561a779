package adapters

import (
	"fmt"

	"metamigrate/internal/common"
	"metamigrate/internal/interfaces"
	"metamigrate/internal/models"

	"github.com/ternarybob/arbor"
)

// ForConnection selects the adapter for a connection's protocol kind. This is
// the only place the protocol kind is inspected.
func ForConnection(conn *models.RepositoryConnection, config *common.RepositoryConfig, logger arbor.ILogger) (interfaces.RepositoryAdapter, error) {
	switch conn.Protocol {
	case models.ProtocolREST:
		return NewRESTAdapter(config, logger), nil
	case models.ProtocolCLI:
		return NewCLIAdapter(config, logger), nil
	default:
		return nil, common.NewValidationError("UNKNOWN_PROTOCOL",
			fmt.Sprintf("unknown repository protocol: %s", conn.Protocol))
	}
}
