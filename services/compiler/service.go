package compiler

import (
	"context"
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/ezenkico/deploy-commander/topology/models"
)

// Environment set on every service container.
var productionEnvironment = map[string]string{"NODE_ENV": "production"}

// Variables naming the service and its listening port inside the container.
const (
	EnvServiceName = "SERVICE_NAME"
	EnvPort        = "PORT"
)

func scalingPolicyName(service string, metric models.ScalingMetric) string {
	return fmt.Sprintf("%s-%s-scaling", service, metric)
}

// compileService runs the four derivations for one spec. On failure after
// the rule was attached, the rule is detached again.
func (c *Compiler) compileService(
	ctx context.Context,
	stack string,
	spec models.MicroserviceSpec,
	cluster models.Cluster,
	router *Router,
	artifacts ArtifactResolver,
) (*models.ServiceTopology, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	log := c.log.WithFields(logrus.Fields{"service": spec.Name, "priority": spec.Priority})

	artifact, err := artifacts.Resolve(spec.Name)
	if err != nil {
		return nil, &models.ServiceError{Service: spec.Name, Step: "task shape", Err: err}
	}
	shape := DeriveTaskShape(stack, spec, artifact)
	log.WithField("image", artifact.Image).Debug("derived task shape")

	instance := DeriveServiceInstance(spec, cluster, shape)

	rule := DeriveRoutingRule(spec, router.Name())
	if err := router.AttachRule(rule); err != nil {
		return nil, &models.ServiceError{Service: spec.Name, Step: "routing rule", Err: err}
	}
	log.WithField("pathPattern", rule.PathPattern).Debug("attached routing rule")

	scaling, err := DeriveScalingPolicies(spec)
	if err != nil {
		router.DetachRule(spec.Name)
		return nil, &models.ServiceError{Service: spec.Name, Step: "scaling policy", Err: err}
	}
	log.WithField("policies", len(scaling.Policies)).Debug("derived scaling policies")

	return &models.ServiceTopology{
		Name:      spec.Name,
		TaskShape: shape,
		Service:   instance,
		Rule:      rule,
		Scaling:   scaling,
	}, nil
}

// DeriveTaskShape sizes the task and its single container from spec.
func DeriveTaskShape(stack string, spec models.MicroserviceSpec, artifact Artifact) models.TaskShape {
	env := make(map[string]string, len(productionEnvironment)+2)
	for k, v := range productionEnvironment {
		env[k] = v
	}
	env[EnvServiceName] = spec.Name
	env[EnvPort] = strconv.Itoa(spec.ContainerPort)

	return models.TaskShape{
		Family:    stack + "-" + spec.Name,
		CPU:       spec.CPU,
		MemoryMiB: spec.MemoryLimitMiB,
		Containers: []models.ContainerDefinition{
			{
				Name:         spec.Name,
				Image:        artifact.Image,
				BuildContext: artifact.BuildContext,
				CPU:          spec.CPU,
				MemoryMiB:    spec.MemoryLimitMiB,
				PortMappings: []models.PortMapping{{ContainerPort: spec.ContainerPort, Protocol: "tcp"}},
				Environment:  env,
			},
		},
	}
}

// DeriveServiceInstance places the task on the cluster. Every instance
// gets a public IP.
func DeriveServiceInstance(spec models.MicroserviceSpec, cluster models.Cluster, shape models.TaskShape) models.ServiceInstance {
	return models.ServiceInstance{
		Name:           spec.Name,
		Cluster:        cluster.Name,
		TaskFamily:     shape.Family,
		ContainerName:  shape.Containers[0].Name,
		ContainerPort:  spec.ContainerPort,
		DesiredCount:   spec.AutoScaling.MinCapacity,
		AssignPublicIP: true,
	}
}

func DeriveRoutingRule(spec models.MicroserviceSpec, router string) *models.RoutingRule {
	return &models.RoutingRule{
		Service:     spec.Name,
		Router:      router,
		Listener:    models.ListenerSecure,
		PathPattern: spec.PathPattern,
		Priority:    spec.Priority,
		Action: models.Action{
			Type:    models.ActionTypeForward,
			Forward: &models.ForwardAction{Service: spec.Name, Port: spec.ContainerPort},
		},
	}
}

// DeriveScalingPolicies wraps the service in [min, max] and adds one
// target tracking policy per declared metric.
func DeriveScalingPolicies(spec models.MicroserviceSpec) (models.ScalingPolicySet, error) {
	as := spec.AutoScaling
	if err := checkBounds(spec.Name, as.MinCapacity, as.MaxCapacity); err != nil {
		return models.ScalingPolicySet{}, err
	}

	set := models.ScalingPolicySet{
		Service:     spec.Name,
		MinCapacity: as.MinCapacity,
		MaxCapacity: as.MaxCapacity,
		Policies:    []models.ScalingPolicy{},
	}
	for _, target := range as.Targets() {
		set.Policies = append(set.Policies, models.ScalingPolicy{
			Name:        scalingPolicyName(spec.Name, target.Metric),
			Metric:      target.Metric,
			TargetValue: target.Value,
		})
	}
	return set, nil
}
