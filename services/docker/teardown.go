package docker

import (
	"context"
	"errors"
	"fmt"

	"github.com/containerd/errdefs"
	"github.com/moby/moby/client"
)

// TearDownContainers removes the router and every service replica of stack.
func (p *DockerPlatform) TearDownContainers(ctx context.Context, stack string) error {
	f := make(client.Filters).
		Add("label", labelStack+"="+stack)

	containers, err := p.client.ContainerList(ctx, client.ContainerListOptions{
		All:     true,
		Filters: f,
	})
	if err != nil {
		return fmt.Errorf("list stack containers (stack=%s): %w", stack, err)
	}

	for _, c := range containers.Items {
		if err := p.removeContainer(ctx, c.ID); err != nil {
			return err
		}
	}
	p.log.WithField("containers", len(containers.Items)).Info("removed stack containers")
	return nil
}

// TearDownNetworks removes the networks the stack created. The default
// network is never labelled with a stack and is left alone.
func (p *DockerPlatform) TearDownNetworks(ctx context.Context, stack string) error {
	f := make(client.Filters).
		Add("label", labelStack+"="+stack)

	nets, err := p.client.NetworkList(ctx, client.NetworkListOptions{
		Filters: f,
	})
	if err != nil {
		return fmt.Errorf("list stack networks (stack=%s): %w", stack, err)
	}

	for _, n := range nets.Items {
		if n.Name == "" || n.ID == "" {
			continue
		}

		// Prefer removing by ID to avoid name collisions.
		if _, err := p.client.NetworkRemove(ctx, n.ID, client.NetworkRemoveOptions{}); err != nil {
			// Idempotent: if it vanished, ignore.
			if errdefs.IsNotFound(err) {
				continue
			}
			return fmt.Errorf("remove network %q (%s): %w", n.Name, n.ID, err)
		}
	}

	return nil
}

func (p *DockerPlatform) Teardown(ctx context.Context, stack string) error {
	if stack == "" {
		return errors.New("teardown: stack name is required")
	}

	err := p.TearDownContainers(ctx, stack)
	if err != nil {
		return err
	}
	return p.TearDownNetworks(ctx, stack)
}
