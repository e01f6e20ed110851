package docker

import (
	"context"

	"github.com/ezenkico/deploy-commander/topology/models"
)

// CreateCluster creates the bridge network the router and the service
// replicas share.
func (p *DockerPlatform) CreateCluster(ctx context.Context, _ models.NetworkHandle, cluster *models.Cluster) error {
	if err := p.ensureNetwork(ctx, cluster.Name, p.labels(map[string]string{labelKind: "cluster"})); err != nil {
		return err
	}
	cluster.ID = cluster.Name

	p.mu.Lock()
	p.clusterNetwork = cluster.Name
	p.mu.Unlock()

	p.log.WithField("cluster", cluster.Name).Info("created cluster network")
	return nil
}
