package compiler

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ezenkico/deploy-commander/topology/interfaces"
	"github.com/ezenkico/deploy-commander/topology/models"
)

// StepObserver is told about every platform step Deploy runs.
type StepObserver interface {
	ObserveDeployStep(step string, err error)
}

// Deploy applies a compiled topology: cluster, router, then each service
// in declaration order. It stops at the first platform error and records
// the router address in topology.Outputs.
func Deploy(ctx context.Context, p interfaces.Platform, topology *models.Topology, log *logrus.Entry, obs StepObserver) error {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	log = log.WithField("stack", topology.Stack)

	step := func(name string, fn func() error) error {
		err := fn()
		if obs != nil {
			obs.ObserveDeployStep(name, err)
		}
		return err
	}

	if err := step("cluster", func() error {
		return p.CreateCluster(ctx, topology.Network, &topology.Cluster)
	}); err != nil {
		return fmt.Errorf("create cluster %q: %w", topology.Cluster.Name, err)
	}
	log.WithField("cluster", topology.Cluster.ID).Info("cluster ready")

	if err := step("router", func() error {
		return p.CreateRouter(ctx, topology.Network, &topology.Router)
	}); err != nil {
		return fmt.Errorf("create router %q: %w", topology.Router.Name, err)
	}
	log.WithField("address", topology.Router.Address).Info("router ready")

	for i := range topology.Services {
		svc := &topology.Services[i]
		if err := step("service", func() error {
			return p.CreateService(ctx, topology, svc)
		}); err != nil {
			return fmt.Errorf("create service %q: %w", svc.Name, err)
		}
		log.WithFields(logrus.Fields{"service": svc.Name, "id": svc.Service.ID}).Info("service ready")
	}

	if topology.Outputs == nil {
		topology.Outputs = map[string]string{}
	}
	topology.Outputs[models.OutputRouterDNSName] = topology.Router.Address
	return nil
}
