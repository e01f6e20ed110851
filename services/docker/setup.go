package docker

import (
	"context"
	"fmt"

	"github.com/moby/moby/client"
)

// ensureNetwork creates the named network unless it already exists.
func (p *DockerPlatform) ensureNetwork(ctx context.Context, name string, labels map[string]string) error {
	if _, err := p.client.NetworkInspect(ctx, name, client.NetworkInspectOptions{}); err == nil {
		return nil
	}
	_, err := p.client.NetworkCreate(ctx, name, client.NetworkCreateOptions{
		Labels: labels,
	})
	if err != nil {
		// Race-safe: re-inspect
		if _, ie := p.client.NetworkInspect(ctx, name, client.NetworkInspectOptions{}); ie != nil {
			return fmt.Errorf("create network %q: %w", name, err)
		}
	}
	return nil
}

// runContainer replaces any container of the same name with a fresh one
// and starts it.
func (p *DockerPlatform) runContainer(ctx context.Context, opts client.ContainerCreateOptions) (string, error) {
	if err := p.removeContainer(ctx, opts.Name); err != nil {
		return "", err
	}

	containerID := ""
	created, err := p.client.ContainerCreate(ctx, opts)
	if err != nil {
		// Race-safe: if something else created it, inspect and proceed
		inspected, ie := p.client.ContainerInspect(ctx, opts.Name, client.ContainerInspectOptions{})
		if ie != nil {
			return "", fmt.Errorf("create container %q: %w", opts.Name, err)
		}
		containerID = inspected.Container.ID
	} else {
		containerID = created.ID
	}

	if _, err := p.client.ContainerStart(ctx, containerID, client.ContainerStartOptions{}); err != nil {
		return "", fmt.Errorf("start container %q: %w", opts.Name, err)
	}
	return containerID, nil
}
