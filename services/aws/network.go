package aws

import (
	"context"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/ec2"
	"github.com/sirupsen/logrus"

	"github.com/ezenkico/deploy-commander/topology/models"
)

// ResolveDefaultNetwork returns the account's default VPC with its subnets.
func (p *AWSPlatform) ResolveDefaultNetwork(ctx context.Context) (models.NetworkHandle, error) {
	vpcs, err := p.clients.EC2.DescribeVpcsWithContext(ctx, &ec2.DescribeVpcsInput{
		Filters: []*ec2.Filter{
			{
				Name:   aws.String("isDefault"),
				Values: []*string{aws.String("true")},
			},
		},
	})
	if err != nil {
		return models.NetworkHandle{}, fmt.Errorf("describe default vpc: %w", err)
	}
	if len(vpcs.Vpcs) != 1 {
		return models.NetworkHandle{}, &models.EnvironmentNotFoundError{Criterion: "isDefault=true", Matches: len(vpcs.Vpcs)}
	}
	vpcID := aws.StringValue(vpcs.Vpcs[0].VpcId)

	var subnets []string
	err = p.clients.EC2.DescribeSubnetsPagesWithContext(ctx, &ec2.DescribeSubnetsInput{
		Filters: []*ec2.Filter{
			{
				Name:   aws.String("vpc-id"),
				Values: []*string{aws.String(vpcID)},
			},
		},
	}, func(page *ec2.DescribeSubnetsOutput, _ bool) bool {
		for _, s := range page.Subnets {
			subnets = append(subnets, aws.StringValue(s.SubnetId))
		}
		return true
	})
	if err != nil {
		return models.NetworkHandle{}, fmt.Errorf("describe subnets of %q: %w", vpcID, err)
	}
	if len(subnets) == 0 {
		return models.NetworkHandle{}, fmt.Errorf("default vpc %q has no subnets", vpcID)
	}
	sort.Strings(subnets)

	p.log.WithFields(logrus.Fields{"vpc": vpcID, "subnets": len(subnets)}).Debug("resolved default vpc")
	return models.NetworkHandle{ID: vpcID, Name: "default", Subnets: subnets}, nil
}
