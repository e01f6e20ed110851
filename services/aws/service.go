package aws

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/applicationautoscaling"
	"github.com/aws/aws-sdk-go/service/ecs"
	"github.com/aws/aws-sdk-go/service/elbv2"
	"github.com/sirupsen/logrus"

	"github.com/ezenkico/deploy-commander/topology/models"
)

const targetGroupPort = 80

// Predefined target tracking metrics per scaling metric.
var predefinedMetrics = map[models.ScalingMetric]string{
	models.ScalingMetricCPU:      "ECSServiceAverageCPUUtilization",
	models.ScalingMetricMemory:   "ECSServiceAverageMemoryUtilization",
	models.ScalingMetricRequests: "ALBRequestCountPerTarget",
}

// CreateService registers the task definition, the target group and its
// listener rule, the Fargate service, and its scaling policies.
func (p *AWSPlatform) CreateService(ctx context.Context, topology *models.Topology, service *models.ServiceTopology) error {
	log := p.log.WithField("service", service.Name)

	secure := topology.Router.Listener(models.ListenerSecure)
	if secure == nil || secure.ID == "" {
		return fmt.Errorf("service %q: secure listener of %q not created", service.Name, topology.Router.Name)
	}

	if err := p.registerTaskDefinition(ctx, &service.TaskShape); err != nil {
		return err
	}
	log.WithField("taskDefinition", service.TaskShape.ID).Debug("registered task definition")

	if err := p.createRule(ctx, topology, secure.ID, service); err != nil {
		return err
	}
	log.WithField("priority", service.Rule.Priority).Debug("created listener rule")

	if err := p.createECSService(ctx, topology, service); err != nil {
		return err
	}

	if err := p.createScaling(ctx, topology, service); err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"min":      service.Scaling.MinCapacity,
		"max":      service.Scaling.MaxCapacity,
		"policies": len(service.Scaling.Policies),
	}).Info("created service")
	return nil
}

func (p *AWSPlatform) registerTaskDefinition(ctx context.Context, shape *models.TaskShape) error {
	var containers []*ecs.ContainerDefinition
	for _, c := range shape.Containers {
		def := &ecs.ContainerDefinition{
			Name:      aws.String(c.Name),
			Image:     aws.String(c.Image),
			Cpu:       aws.Int64(int64(c.CPU)),
			Memory:    aws.Int64(int64(c.MemoryMiB)),
			Essential: aws.Bool(true),
		}
		for _, pm := range c.PortMappings {
			def.PortMappings = append(def.PortMappings, &ecs.PortMapping{
				ContainerPort: aws.Int64(int64(pm.ContainerPort)),
				Protocol:      aws.String(pm.Protocol),
			})
		}
		keys := make([]string, 0, len(c.Environment))
		for k := range c.Environment {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			def.Environment = append(def.Environment, &ecs.KeyValuePair{Name: aws.String(k), Value: aws.String(c.Environment[k])})
		}
		containers = append(containers, def)
	}

	input := &ecs.RegisterTaskDefinitionInput{
		Family:                  aws.String(shape.Family),
		Cpu:                     aws.String(strconv.Itoa(shape.CPU)),
		Memory:                  aws.String(strconv.Itoa(shape.MemoryMiB)),
		NetworkMode:             aws.String(ecs.NetworkModeAwsvpc),
		RequiresCompatibilities: aws.StringSlice([]string{ecs.CompatibilityFargate}),
		ContainerDefinitions:    containers,
		Tags:                    p.ecsTags(),
	}
	if p.executionRoleArn != "" {
		input.ExecutionRoleArn = aws.String(p.executionRoleArn)
	}

	out, err := p.clients.ECS.RegisterTaskDefinitionWithContext(ctx, input)
	if err != nil {
		return fmt.Errorf("register task definition %q: %w", shape.Family, err)
	}
	shape.ID = aws.StringValue(out.TaskDefinition.TaskDefinitionArn)
	return nil
}

func (p *AWSPlatform) createRule(ctx context.Context, topology *models.Topology, listenerArn string, service *models.ServiceTopology) error {
	rule := service.Rule
	tgName := targetGroupName(topology.Stack, service.Name)
	tg, err := p.clients.ELBV2.CreateTargetGroupWithContext(ctx, &elbv2.CreateTargetGroupInput{
		Name:       aws.String(tgName),
		// ECS registers each task on the container port; 80 is only the default.
		Port:       aws.Int64(targetGroupPort),
		Protocol:   aws.String(elbv2.ProtocolEnumHttp),
		TargetType: aws.String(elbv2.TargetTypeEnumIp),
		VpcId:      aws.String(topology.Network.ID),
		Tags:       p.elbTags(),
	})
	if err != nil {
		return fmt.Errorf("create target group %q: %w", tgName, err)
	}
	if len(tg.TargetGroups) == 0 {
		return fmt.Errorf("create target group %q: empty response", tgName)
	}
	rule.TargetGroupID = aws.StringValue(tg.TargetGroups[0].TargetGroupArn)

	out, err := p.clients.ELBV2.CreateRuleWithContext(ctx, &elbv2.CreateRuleInput{
		ListenerArn: aws.String(listenerArn),
		Priority:    aws.Int64(int64(rule.Priority)),
		Conditions: []*elbv2.RuleCondition{{
			Field:             aws.String("path-pattern"),
			PathPatternConfig: &elbv2.PathPatternConditionConfig{Values: aws.StringSlice([]string{rule.PathPattern})},
		}},
		Actions: []*elbv2.Action{toELBAction(rule.Action, rule.TargetGroupID)},
		Tags:    p.elbTags(),
	})
	if err != nil {
		return fmt.Errorf("create rule %d for %q: %w", rule.Priority, service.Name, err)
	}
	if len(out.Rules) == 0 {
		return fmt.Errorf("create rule %d for %q: empty response", rule.Priority, service.Name)
	}
	rule.ID = aws.StringValue(out.Rules[0].RuleArn)
	return nil
}

func (p *AWSPlatform) createECSService(ctx context.Context, topology *models.Topology, service *models.ServiceTopology) error {
	p.mu.Lock()
	taskSG := p.taskSG
	p.mu.Unlock()

	securityGroups := append([]string(nil), topology.Network.SecurityGroups...)
	if taskSG != "" {
		securityGroups = append(securityGroups, taskSG)
	}
	assignPublicIP := ecs.AssignPublicIpDisabled
	if service.Service.AssignPublicIP {
		assignPublicIP = ecs.AssignPublicIpEnabled
	}

	inst := &service.Service
	out, err := p.clients.ECS.CreateServiceWithContext(ctx, &ecs.CreateServiceInput{
		Cluster:        aws.String(topology.Cluster.Name),
		ServiceName:    aws.String(inst.Name),
		TaskDefinition: aws.String(service.TaskShape.ID),
		DesiredCount:   aws.Int64(int64(inst.DesiredCount)),
		LaunchType:     aws.String(ecs.LaunchTypeFargate),
		NetworkConfiguration: &ecs.NetworkConfiguration{
			AwsvpcConfiguration: &ecs.AwsVpcConfiguration{
				Subnets:        aws.StringSlice(topology.Network.Subnets),
				SecurityGroups: aws.StringSlice(securityGroups),
				AssignPublicIp: aws.String(assignPublicIP),
			},
		},
		LoadBalancers: []*ecs.LoadBalancer{{
			TargetGroupArn: aws.String(service.Rule.TargetGroupID),
			ContainerName:  aws.String(inst.ContainerName),
			ContainerPort:  aws.Int64(int64(inst.ContainerPort)),
		}},
		Tags: p.ecsTags(),
	})
	if err != nil {
		return fmt.Errorf("create ecs service %q: %w", inst.Name, err)
	}
	inst.ID = aws.StringValue(out.Service.ServiceArn)
	return nil
}

func (p *AWSPlatform) createScaling(ctx context.Context, topology *models.Topology, service *models.ServiceTopology) error {
	set := &service.Scaling
	resourceID := scalableResourceID(topology.Cluster.Name, service.Service.Name)

	if _, err := p.clients.AutoScaling.RegisterScalableTargetWithContext(ctx, &applicationautoscaling.RegisterScalableTargetInput{
		ServiceNamespace:  aws.String(applicationautoscaling.ServiceNamespaceEcs),
		ResourceId:        aws.String(resourceID),
		ScalableDimension: aws.String(applicationautoscaling.ScalableDimensionEcsServiceDesiredCount),
		MinCapacity:       aws.Int64(int64(set.MinCapacity)),
		MaxCapacity:       aws.Int64(int64(set.MaxCapacity)),
	}); err != nil {
		return fmt.Errorf("register scalable target %q: %w", resourceID, err)
	}
	set.ID = resourceID

	for i := range set.Policies {
		policy := &set.Policies[i]
		metricType, ok := predefinedMetrics[policy.Metric]
		if !ok {
			return fmt.Errorf("scaling policy %q: unknown metric %q", policy.Name, policy.Metric)
		}
		spec := &applicationautoscaling.PredefinedMetricSpecification{PredefinedMetricType: aws.String(metricType)}
		if policy.Metric == models.ScalingMetricRequests {
			spec.ResourceLabel = aws.String(resourceLabel(topology.Router.ID, service.Rule.TargetGroupID))
		}

		out, err := p.clients.AutoScaling.PutScalingPolicyWithContext(ctx, &applicationautoscaling.PutScalingPolicyInput{
			PolicyName:        aws.String(policy.Name),
			PolicyType:        aws.String(applicationautoscaling.PolicyTypeTargetTrackingScaling),
			ServiceNamespace:  aws.String(applicationautoscaling.ServiceNamespaceEcs),
			ResourceId:        aws.String(resourceID),
			ScalableDimension: aws.String(applicationautoscaling.ScalableDimensionEcsServiceDesiredCount),
			TargetTrackingScalingPolicyConfiguration: &applicationautoscaling.TargetTrackingScalingPolicyConfiguration{
				TargetValue:                   aws.Float64(float64(policy.TargetValue)),
				PredefinedMetricSpecification: spec,
			},
		})
		if err != nil {
			return fmt.Errorf("put scaling policy %q: %w", policy.Name, err)
		}
		policy.ID = aws.StringValue(out.PolicyARN)
	}
	return nil
}
