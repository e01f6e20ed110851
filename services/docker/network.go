package docker

import (
	"context"
	"fmt"

	"github.com/moby/moby/client"

	"github.com/ezenkico/deploy-commander/topology/models"
)

// ResolveDefaultNetwork returns the single network labelled
// deploy-commander.default=true.
func (p *DockerPlatform) ResolveDefaultNetwork(ctx context.Context) (models.NetworkHandle, error) {
	criterion := LabelDefaultNetwork + "=true"
	f := make(client.Filters).
		Add("label", criterion)

	nets, err := p.client.NetworkList(ctx, client.NetworkListOptions{
		Filters: f,
	})
	if err != nil {
		return models.NetworkHandle{}, fmt.Errorf("list networks (%s): %w", criterion, err)
	}
	if len(nets.Items) != 1 {
		return models.NetworkHandle{}, &models.EnvironmentNotFoundError{
			Criterion: "label " + criterion,
			Matches:   len(nets.Items),
		}
	}

	n := nets.Items[0]
	p.log.WithField("network", n.Name).Debug("resolved default network")
	return models.NetworkHandle{ID: n.ID, Name: n.Name}, nil
}
