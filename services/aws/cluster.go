package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/ec2"
	"github.com/aws/aws-sdk-go/service/ecs"

	"github.com/ezenkico/deploy-commander/topology/models"
)

// CreateCluster creates the ECS cluster and the security group its tasks
// run in.
func (p *AWSPlatform) CreateCluster(ctx context.Context, network models.NetworkHandle, cluster *models.Cluster) error {
	out, err := p.clients.ECS.CreateClusterWithContext(ctx, &ecs.CreateClusterInput{
		ClusterName: aws.String(cluster.Name),
		Tags:        p.ecsTags(),
	})
	if err != nil {
		return fmt.Errorf("create ecs cluster %q: %w", cluster.Name, err)
	}
	cluster.ID = aws.StringValue(out.Cluster.ClusterArn)

	sgName := cluster.Name + "-tasks"
	sg, err := p.clients.EC2.CreateSecurityGroupWithContext(ctx, &ec2.CreateSecurityGroupInput{
		GroupName:         aws.String(sgName),
		Description:       aws.String("tasks of " + cluster.Name),
		VpcId:             aws.String(network.ID),
		TagSpecifications: p.ec2Tags(ec2.ResourceTypeSecurityGroup, sgName),
	})
	if err != nil {
		return fmt.Errorf("create security group %q: %w", sgName, err)
	}

	p.mu.Lock()
	p.taskSG = aws.StringValue(sg.GroupId)
	p.mu.Unlock()

	p.log.WithField("cluster", cluster.ID).Info("created cluster")
	return nil
}
