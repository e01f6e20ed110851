package aws

import (
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/ec2"
	"github.com/aws/aws-sdk-go/service/ecs"
	"github.com/aws/aws-sdk-go/service/elbv2"
	"github.com/cespare/xxhash/v2"

	"github.com/ezenkico/deploy-commander/topology/models"
)

const (
	stackTag = "deploy-commander.stack"

	// load balancer and target group names are capped at 32 characters
	maxELBName = 32
	hashLen    = 4
)

// elbName fits name into the load balancer limit. Longer names keep a
// prefix and end in a short hash of the full name so two names sharing
// the prefix stay distinct.
func elbName(name string) string {
	if len(name) <= maxELBName {
		return strings.TrimRight(name, "-")
	}
	prefix := strings.TrimRight(name[:maxELBName-hashLen-1], "-")
	return fmt.Sprintf("%s-%016x", prefix, xxhash.Sum64String(name))[:len(prefix)+1+hashLen]
}

func targetGroupName(stack, service string) string {
	return elbName(stack + "-" + service)
}

// CheckTopology rejects topologies whose services would share a target
// group: CreateTargetGroup hands back the existing group for a known name.
func (p *AWSPlatform) CheckTopology(topology *models.Topology) error {
	owners := make(map[string]string, len(topology.Services))
	for _, svc := range topology.Services {
		name := targetGroupName(topology.Stack, svc.Name)
		if owner, ok := owners[name]; ok {
			return &models.ConfigurationError{
				Field:  "microservices",
				Reason: fmt.Sprintf("services %q and %q both map to target group %q", owner, svc.Name, name),
			}
		}
		owners[name] = svc.Name
	}
	return nil
}

// resourceLabel builds the ALBRequestCountPerTarget label
// app/<lb>/<id>/targetgroup/<tg>/<id> from the two ARNs.
func resourceLabel(loadBalancerArn, targetGroupArn string) string {
	lb := loadBalancerArn
	if i := strings.Index(lb, ":loadbalancer/"); i >= 0 {
		lb = lb[i+len(":loadbalancer/"):]
	}
	tg := targetGroupArn
	if i := strings.Index(tg, ":targetgroup/"); i >= 0 {
		tg = tg[i+1:]
	}
	return lb + "/" + tg
}

// scalableResourceID is the application autoscaling id of an ECS service.
func scalableResourceID(cluster, service string) string {
	return "service/" + cluster + "/" + service
}

func (p *AWSPlatform) ec2Tags(resourceType, name string) []*ec2.TagSpecification {
	return []*ec2.TagSpecification{{
		ResourceType: aws.String(resourceType),
		Tags: []*ec2.Tag{
			{Key: aws.String(stackTag), Value: aws.String(p.stack)},
			{Key: aws.String("Name"), Value: aws.String(name)},
		},
	}}
}

func (p *AWSPlatform) elbTags() []*elbv2.Tag {
	return []*elbv2.Tag{{Key: aws.String(stackTag), Value: aws.String(p.stack)}}
}

func (p *AWSPlatform) ecsTags() []*ecs.Tag {
	return []*ecs.Tag{{Key: aws.String(stackTag), Value: aws.String(p.stack)}}
}
