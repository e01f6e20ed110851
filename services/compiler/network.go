package compiler

import (
	"context"
	"errors"
	"fmt"

	"github.com/ezenkico/deploy-commander/topology/interfaces"
	"github.com/ezenkico/deploy-commander/topology/models"
)

// ResolveNetwork asks the resolver for the default network. Lookup errors
// other than EnvironmentNotFound are wrapped with context.
func ResolveNetwork(ctx context.Context, resolver interfaces.NetworkResolver) (models.NetworkHandle, error) {
	if resolver == nil {
		return models.NetworkHandle{}, fmt.Errorf("resolve default network: no resolver configured")
	}

	network, err := resolver.ResolveDefaultNetwork(ctx)
	if err != nil {
		var nf *models.EnvironmentNotFoundError
		if errors.As(err, &nf) {
			return models.NetworkHandle{}, err
		}
		return models.NetworkHandle{}, fmt.Errorf("resolve default network: %w", err)
	}
	if network.ID == "" {
		return models.NetworkHandle{}, &models.EnvironmentNotFoundError{Criterion: "default", Matches: 0}
	}
	return network, nil
}
