package interfaces

import (
	"context"

	"github.com/ezenkico/deploy-commander/topology/models"
)

// NetworkResolver locates the single pre-existing default network.
type NetworkResolver interface {
	ResolveDefaultNetwork(ctx context.Context) (models.NetworkHandle, error)
}

// Platform materializes a compiled topology. Create calls fill in the
// platform-assigned IDs on the values they are given.
type Platform interface {
	NetworkResolver

	CreateCluster(ctx context.Context, network models.NetworkHandle, cluster *models.Cluster) error
	CreateRouter(ctx context.Context, network models.NetworkHandle, router *models.Router) error
	CreateService(ctx context.Context, topology *models.Topology, service *models.ServiceTopology) error
}

// TearDowner is implemented by platforms that can remove a deployed stack.
type TearDowner interface {
	Teardown(ctx context.Context, stack string) error
}

// TopologyChecker is implemented by platforms with naming limits of their
// own. Compile runs it on the finished topology before anything is created.
type TopologyChecker interface {
	CheckTopology(topology *models.Topology) error
}
