package compiler

import "github.com/ezenkico/deploy-commander/topology/models"

// NewCluster derives the shared compute pool. It holds no per-service state.
func NewCluster(stack string, _ models.NetworkHandle) models.Cluster {
	return models.Cluster{Name: stack + "-cluster"}
}
