package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ezenkico/deploy-commander/topology/models"
)

const (
	ResourceTypeRouter = "router"

	routerPublicPort uint16 = 443
)

// Reporter registers a deployed topology's router with the agent so other
// jobs can find it.
type Reporter struct {
	comm *AgentCommunication
	log  *logrus.Entry
}

func NewReporter(comm *AgentCommunication, log *logrus.Entry) *Reporter {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Reporter{comm: comm, log: log}
}

// RouterResource describes the router of a deployed topology. On docker
// the cluster network is attached as the platform connection.
func RouterResource(topology *models.Topology, platform string) (models.CreateResource, error) {
	routes := make(map[string]string, len(topology.Router.Rules))
	for _, rule := range topology.Router.Rules {
		routes[rule.PathPattern] = rule.Service
	}
	meta, err := json.Marshal(models.RouterResourceMetadata{
		Stack:    topology.Stack,
		Platform: platform,
		Routes:   routes,
	})
	if err != nil {
		return models.CreateResource{}, fmt.Errorf("marshal router metadata: %w", err)
	}

	address := topology.Router.Address
	port := routerPublicPort
	resource := models.CreateResource{
		ResourceType:     ResourceTypeRouter,
		Name:             topology.Router.Name,
		PublicConnection: &models.PublicConnection{Address: &address, Port: &port},
		Metadata:         meta,
	}

	if platform == "docker" {
		b, err := json.Marshal(models.DockerPlatformConnection{Network: topology.Cluster.Name})
		if err != nil {
			return models.CreateResource{}, fmt.Errorf("marshal platform connection: %w", err)
		}
		rm := json.RawMessage(b)
		resource.PlatformConnection = &rm
	}
	return resource, nil
}

// ReportRouter replaces any resource of the same name with the router of
// topology.
func (r *Reporter) ReportRouter(ctx context.Context, topology *models.Topology, platform string) (uuid.UUID, error) {
	resource, err := RouterResource(topology, platform)
	if err != nil {
		return uuid.Nil, err
	}
	if err := r.comm.DeleteResourceByName(ctx, resource.Name); err != nil {
		return uuid.Nil, fmt.Errorf("delete previous resource %q: %w", resource.Name, err)
	}
	id, err := r.comm.CreateResource(ctx, resource)
	if err != nil {
		return uuid.Nil, fmt.Errorf("send resource %q: %w", resource.Name, err)
	}
	r.log.WithFields(logrus.Fields{"resource": id, "name": resource.Name}).Info("reported router to agent")
	return id, nil
}

// RemoveRouter deletes the router resource called name.
func (r *Reporter) RemoveRouter(ctx context.Context, name string) error {
	if err := r.comm.DeleteResourceByName(ctx, name); err != nil {
		return fmt.Errorf("delete resource %q: %w", name, err)
	}
	return nil
}
