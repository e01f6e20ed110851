// Package aws materializes a topology as an application load balancer in
// front of Fargate services with target tracking scaling.
package aws

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/applicationautoscaling"
	"github.com/aws/aws-sdk-go/service/applicationautoscaling/applicationautoscalingiface"
	"github.com/aws/aws-sdk-go/service/ec2"
	"github.com/aws/aws-sdk-go/service/ec2/ec2iface"
	"github.com/aws/aws-sdk-go/service/ecs"
	"github.com/aws/aws-sdk-go/service/ecs/ecsiface"
	"github.com/aws/aws-sdk-go/service/elbv2"
	"github.com/aws/aws-sdk-go/service/elbv2/elbv2iface"
	"github.com/aws/aws-sdk-go/service/sts"
	"github.com/aws/aws-sdk-go/service/sts/stsiface"
	"github.com/sirupsen/logrus"

	"github.com/ezenkico/deploy-commander/topology/interfaces"
	"github.com/ezenkico/deploy-commander/topology/models"
)

var (
	_ interfaces.Platform        = (*AWSPlatform)(nil)
	_ interfaces.TopologyChecker = (*AWSPlatform)(nil)
)

// Clients groups the service APIs the platform calls.
type Clients struct {
	EC2         ec2iface.EC2API
	ELBV2       elbv2iface.ELBV2API
	ECS         ecsiface.ECSAPI
	AutoScaling applicationautoscalingiface.ApplicationAutoScalingAPI
	STS         stsiface.STSAPI
}

// AWSPlatform implements interfaces.Platform against one account and region.
type AWSPlatform struct {
	clients          Clients
	stack            string
	executionRoleArn string
	log              *logrus.Entry

	mu     sync.Mutex
	taskSG string
}

// NewAWSPlatform builds clients from the default credential chain for
// cfg.Region.
func NewAWSPlatform(cfg *models.Configuration, log *logrus.Entry) (*AWSPlatform, error) {
	sess, err := session.NewSession()
	if err != nil {
		return nil, fmt.Errorf("create aws session: %w", err)
	}
	awsCfg := &aws.Config{Region: aws.String(cfg.Region)}

	return New(Clients{
		EC2:         ec2.New(sess, awsCfg),
		ELBV2:       elbv2.New(sess, awsCfg),
		ECS:         ecs.New(sess, awsCfg),
		AutoScaling: applicationautoscaling.New(sess, awsCfg),
		STS:         sts.New(sess, awsCfg),
	}, cfg.StackName, cfg.ExecutionRoleArn, log), nil
}

func New(clients Clients, stack, executionRoleArn string, log *logrus.Entry) *AWSPlatform {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &AWSPlatform{
		clients:          clients,
		stack:            stack,
		executionRoleArn: executionRoleArn,
		log:              log.WithField("platform", "aws"),
	}
}

// VerifyAccount checks the credentials belong to account.
func (p *AWSPlatform) VerifyAccount(ctx context.Context, account string) error {
	out, err := p.clients.STS.GetCallerIdentityWithContext(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return fmt.Errorf("get caller identity: %w", err)
	}
	if got := aws.StringValue(out.Account); got != account {
		return &models.ConfigurationError{
			Field:  "account",
			Reason: fmt.Sprintf("credentials belong to account %s, not %s", got, account),
		}
	}
	return nil
}
