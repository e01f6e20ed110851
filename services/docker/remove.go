package docker

import (
	"context"
	"fmt"

	"github.com/containerd/errdefs"
	"github.com/moby/moby/client"
)

// removeContainer stops and removes a container by name or id. A missing
// container is not an error.
func (p *DockerPlatform) removeContainer(ctx context.Context, nameOrID string) error {
	if _, err := p.client.ContainerInspect(ctx, nameOrID, client.ContainerInspectOptions{}); err != nil {
		if errdefs.IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("inspect container %q: %w", nameOrID, err)
	}

	// Stop (best-effort) then remove
	_, _ = p.client.ContainerStop(ctx, nameOrID, client.ContainerStopOptions{})
	_, err := p.client.ContainerRemove(ctx, nameOrID, client.ContainerRemoveOptions{
		Force:         true,
		RemoveVolumes: false,
	})
	if err != nil && !errdefs.IsNotFound(err) {
		return fmt.Errorf("remove container %q: %w", nameOrID, err)
	}
	return nil
}
