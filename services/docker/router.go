package docker

import (
	"context"
	"fmt"
	"net/netip"
	"strconv"

	"github.com/moby/moby/api/types/container"
	"github.com/moby/moby/api/types/mount"
	"github.com/moby/moby/api/types/network"
	"github.com/moby/moby/client"

	"github.com/ezenkico/deploy-commander/topology/models"
)

const dockerSocket = "/var/run/docker.sock"

// CreateRouter runs traefik with one entrypoint per listener, published on
// the host and attached to both the default and the cluster network.
func (p *DockerPlatform) CreateRouter(ctx context.Context, nw models.NetworkHandle, router *models.Router) error {
	p.mu.Lock()
	clusterNet := p.clusterNetwork
	p.mu.Unlock()
	if clusterNet == "" {
		return fmt.Errorf("router %q: cluster network not created", router.Name)
	}

	opts, err := p.routerContainer(router, nw.Name, clusterNet)
	if err != nil {
		return err
	}
	id, err := p.runContainer(ctx, opts)
	if err != nil {
		return err
	}

	router.ID = id
	router.Address = "localhost"
	for i := range router.Listeners {
		router.Listeners[i].ID = router.Listeners[i].Name
	}
	p.log.WithField("container", router.Name).Info("started router")
	return nil
}

// routerContainer builds the traefik container for router.
func (p *DockerPlatform) routerContainer(router *models.Router, defaultNet, clusterNet string) (client.ContainerCreateOptions, error) {
	cmd := []string{
		"--providers.docker=true",
		"--providers.docker.exposedbydefault=false",
		"--providers.docker.network=" + clusterNet,
		"--providers.docker.constraints=Label(`" + labelStack + "`,`" + p.stack + "`)",
	}

	exposed := network.PortSet{}
	portMap := network.PortMap{}
	for _, l := range router.Listeners {
		args, err := entrypointArgs(router, l)
		if err != nil {
			return client.ContainerCreateOptions{}, err
		}
		cmd = append(cmd, args...)

		port, _ := network.PortFrom(uint16(l.Port), "tcp")
		exposed[port] = struct{}{}
		portMap[port] = append(portMap[port], network.PortBinding{
			HostIP:   netip.IPv4Unspecified(),
			HostPort: strconv.Itoa(l.Port),
		})
	}

	labels := p.labels(map[string]string{labelKind: "router"})
	if secure := router.Listener(models.ListenerSecure); secure != nil {
		labels["deploy-commander.certificate"] = secure.CertificateArn
	}

	endpoints := map[string]*network.EndpointSettings{
		clusterNet: {},
	}
	if defaultNet != "" {
		endpoints[defaultNet] = &network.EndpointSettings{}
	}

	image := p.RouterImage
	if image == "" {
		image = defaultRouterImage
	}
	return client.ContainerCreateOptions{
		Config: &container.Config{
			Image:        image,
			Cmd:          cmd,
			Labels:       labels,
			ExposedPorts: exposed,
		},
		HostConfig: &container.HostConfig{
			PortBindings: portMap,
			Mounts: []mount.Mount{{
				Type:     mount.TypeBind,
				Source:   dockerSocket,
				Target:   dockerSocket,
				ReadOnly: true,
			}},
			RestartPolicy: container.RestartPolicy{
				Name: container.RestartPolicyAlways,
			},
		},
		NetworkingConfig: &network.NetworkingConfig{
			EndpointsConfig: endpoints,
		},
		Name:  router.Name,
		Image: image,
	}, nil
}

// entrypointArgs translates a listener into traefik entrypoint flags.
// Requests no rule matches get traefik's 404, so the only default it can
// express besides a redirect is a 404 fixed response.
func entrypointArgs(router *models.Router, l models.Listener) ([]string, error) {
	prefix := "--entrypoints." + l.Name
	args := []string{prefix + ".address=:" + strconv.Itoa(l.Port)}
	if l.Protocol == models.ProtocolHTTPS {
		args = append(args, prefix+".http.tls=true")
	}

	switch a := l.DefaultAction; a.Type {
	case models.ActionTypeRedirect:
		var target string
		for _, other := range router.Listeners {
			if other.Port == a.Redirect.Port {
				target = other.Name
			}
		}
		if target == "" {
			return nil, fmt.Errorf("listener %s redirects to port %d, which has no listener", l.Name, a.Redirect.Port)
		}
		args = append(args,
			prefix+".http.redirections.entrypoint.to="+target,
			prefix+".http.redirections.entrypoint.scheme="+schemeOf(a.Redirect.Protocol),
			prefix+".http.redirections.entrypoint.permanent="+strconv.FormatBool(a.Redirect.StatusCode == 301),
		)
	case models.ActionTypeFixedResponse:
		if a.FixedResponse.StatusCode != 404 {
			return nil, fmt.Errorf("listener %s: fixed response %d is not supported on docker", l.Name, a.FixedResponse.StatusCode)
		}
	default:
		return nil, fmt.Errorf("listener %s: default action %q is not supported on docker", l.Name, a.Type)
	}
	return args, nil
}

func schemeOf(p models.Protocol) string {
	if p == models.ProtocolHTTPS {
		return "https"
	}
	return "http"
}
