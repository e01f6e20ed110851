// Package docker materializes a topology on a single Docker engine: the
// cluster is a bridge network, the router is a traefik container and every
// service runs its minimum capacity of replicas.
package docker

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/moby/moby/client"
	"github.com/sirupsen/logrus"

	"github.com/ezenkico/deploy-commander/topology/interfaces"
	"github.com/ezenkico/deploy-commander/topology/models"
)

var (
	_ interfaces.Platform   = (*DockerPlatform)(nil)
	_ interfaces.TearDowner = (*DockerPlatform)(nil)
)

// engine is the part of the Engine API the platform drives.
type engine interface {
	NetworkInspect(ctx context.Context, networkID string, options client.NetworkInspectOptions) (client.NetworkInspectResult, error)
	NetworkCreate(ctx context.Context, name string, options client.NetworkCreateOptions) (client.NetworkCreateResult, error)
	NetworkList(ctx context.Context, options client.NetworkListOptions) (client.NetworkListResult, error)
	NetworkRemove(ctx context.Context, networkID string, options client.NetworkRemoveOptions) (client.NetworkRemoveResult, error)

	ContainerCreate(ctx context.Context, options client.ContainerCreateOptions) (client.ContainerCreateResult, error)
	ContainerInspect(ctx context.Context, containerID string, options client.ContainerInspectOptions) (client.ContainerInspectResult, error)
	ContainerList(ctx context.Context, options client.ContainerListOptions) (client.ContainerListResult, error)
	ContainerStart(ctx context.Context, containerID string, options client.ContainerStartOptions) (client.ContainerStartResult, error)
	ContainerStop(ctx context.Context, containerID string, options client.ContainerStopOptions) (client.ContainerStopResult, error)
	ContainerRemove(ctx context.Context, containerID string, options client.ContainerRemoveOptions) (client.ContainerRemoveResult, error)
}

var _ engine = (*client.Client)(nil)

// DockerPlatform implements interfaces.Platform for plain Docker (Engine API).
type DockerPlatform struct {
	client engine
	stack  string
	run    uuid.UUID
	log    *logrus.Entry

	// RouterImage is the traefik image the router runs.
	RouterImage string

	mu             sync.Mutex
	clusterNetwork string
}

// NewDockerPlatform initializes the Docker platform using environment variables
// (e.g. DOCKER_HOST) and API version negotiation.
func NewDockerPlatform(cfg *models.Configuration, log *logrus.Entry) (*DockerPlatform, error) {
	c, err := client.New(
		client.FromEnv,
	)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	return &DockerPlatform{
		client:      c,
		stack:       cfg.StackName,
		run:         cfg.Run,
		log:         log.WithField("platform", "docker"),
		RouterImage: defaultRouterImage,
	}, nil
}

// labels are the ownership labels every object of the stack carries.
func (p *DockerPlatform) labels(extra map[string]string) map[string]string {
	l := map[string]string{
		labelStack: p.stack,
		labelRun:   p.run.String(),
	}
	for k, v := range extra {
		l[k] = v
	}
	return l
}
