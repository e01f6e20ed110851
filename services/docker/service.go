package docker

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/moby/moby/api/types/container"
	"github.com/moby/moby/api/types/network"
	"github.com/moby/moby/client"
	"github.com/sirupsen/logrus"

	"github.com/ezenkico/deploy-commander/topology/models"
)

// CreateService starts the minimum capacity of replicas behind the router.
// Scaling policies are recorded as labels; nothing on a single engine acts
// on them.
func (p *DockerPlatform) CreateService(ctx context.Context, topology *models.Topology, svc *models.ServiceTopology) error {
	log := p.log.WithField("service", svc.Name)
	if topology.Router.ID == "" {
		return fmt.Errorf("service %q: router %q not created", svc.Name, topology.Router.Name)
	}

	key := routerKey(topology.Stack, svc.Name)
	var ids []string
	for replica := 0; replica < svc.Service.DesiredCount; replica++ {
		opts, err := p.serviceContainer(topology, svc, replica)
		if err != nil {
			return err
		}
		id, err := p.runContainer(ctx, opts)
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}

	svc.TaskShape.ID = svc.TaskShape.Family
	svc.Service.ID = strings.Join(ids, ",")
	svc.Rule.ID = key
	svc.Rule.TargetGroupID = key
	svc.Scaling.ID = key
	for i := range svc.Scaling.Policies {
		svc.Scaling.Policies[i].ID = svc.Scaling.Policies[i].Name
	}

	if len(svc.Scaling.Policies) > 0 {
		log.Warn("scaling policies are recorded as labels only; docker runs the minimum capacity")
	}
	log.WithFields(logrus.Fields{
		"replicas": len(ids),
		"priority": svc.Rule.Priority,
	}).Info("started service")
	return nil
}

// serviceContainer builds one replica of svc.
func (p *DockerPlatform) serviceContainer(topology *models.Topology, svc *models.ServiceTopology, replica int) (client.ContainerCreateOptions, error) {
	if len(svc.TaskShape.Containers) == 0 {
		return client.ContainerCreateOptions{}, fmt.Errorf("service %q has no container", svc.Name)
	}
	def := svc.TaskShape.Containers[0]
	clusterNet := topology.Cluster.Name

	labels, err := serviceLabels(topology.Stack, clusterNet, svc)
	if err != nil {
		return client.ContainerCreateOptions{}, err
	}
	labels = p.labels(labels)
	labels[labelReplica] = strconv.Itoa(replica)

	keys := make([]string, 0, len(def.Environment))
	for k := range def.Environment {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	env := make([]string, 0, len(keys))
	for _, k := range keys {
		env = append(env, fmt.Sprintf("%s=%s", k, def.Environment[k]))
	}

	exposed := network.PortSet{}
	for _, pm := range def.PortMappings {
		port, _ := network.PortFrom(uint16(pm.ContainerPort), network.IPProtocol(pm.Protocol))
		exposed[port] = struct{}{}
	}

	hCfg := &container.HostConfig{
		RestartPolicy: container.RestartPolicy{
			Name: container.RestartPolicyAlways,
		},
	}
	hCfg.NanoCPUs = nanoCPUs(def.CPU)
	hCfg.Memory = memoryBytes(def.MemoryMiB)

	return client.ContainerCreateOptions{
		Config: &container.Config{
			Image:        def.Image,
			Env:          env,
			Labels:       labels,
			ExposedPorts: exposed,
		},
		HostConfig: hCfg,
		NetworkingConfig: &network.NetworkingConfig{
			EndpointsConfig: map[string]*network.EndpointSettings{
				clusterNet: {Aliases: []string{svc.Name}},
			},
		},
		Name:  DockerServiceName(topology.Stack, svc.Name, replica),
		Image: def.Image,
	}, nil
}

// serviceLabels carries the routing rule and scaling bounds of svc as
// traefik and deploy-commander labels.
func serviceLabels(stack, clusterNet string, svc *models.ServiceTopology) (map[string]string, error) {
	rule, err := routerRule(svc.Rule.PathPattern)
	if err != nil {
		return nil, fmt.Errorf("service %q: %w", svc.Name, err)
	}
	key := routerKey(stack, svc.Name)
	r := "traefik.http.routers." + key
	s := "traefik.http.services." + key

	labels := map[string]string{
		labelService:             svc.Name,
		labelKind:                "service",
		"traefik.enable":         "true",
		"traefik.docker.network": clusterNet,
		r + ".rule":              rule,
		r + ".priority":          strconv.Itoa(traefikPriority(svc.Rule.Priority)),
		r + ".entrypoints":       svc.Rule.Listener,
		r + ".tls":               "true",
		r + ".service":           key,

		"deploy-commander.scaling.min": strconv.Itoa(svc.Scaling.MinCapacity),
		"deploy-commander.scaling.max": strconv.Itoa(svc.Scaling.MaxCapacity),
	}
	labels[s+".loadbalancer.server.port"] = strconv.Itoa(svc.Service.ContainerPort)

	policies := make([]string, 0, len(svc.Scaling.Policies))
	for _, policy := range svc.Scaling.Policies {
		policies = append(policies, fmt.Sprintf("%s=%d", policy.Metric, policy.TargetValue))
	}
	if len(policies) > 0 {
		labels["deploy-commander.scaling.policies"] = strings.Join(policies, ",")
	}
	return labels, nil
}
