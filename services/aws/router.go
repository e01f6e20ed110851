package aws

import (
	"context"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/ec2"
	"github.com/aws/aws-sdk-go/service/elbv2"

	"github.com/ezenkico/deploy-commander/topology/models"
)

// CreateRouter creates an internet-facing application load balancer with
// one listener per model listener.
func (p *AWSPlatform) CreateRouter(ctx context.Context, network models.NetworkHandle, router *models.Router) error {
	routerSG, err := p.createRouterSecurityGroup(ctx, network, router)
	if err != nil {
		return err
	}

	scheme := elbv2.LoadBalancerSchemeEnumInternal
	if router.InternetFacing {
		scheme = elbv2.LoadBalancerSchemeEnumInternetFacing
	}
	lb, err := p.clients.ELBV2.CreateLoadBalancerWithContext(ctx, &elbv2.CreateLoadBalancerInput{
		Name:           aws.String(elbName(router.Name)),
		Scheme:         aws.String(scheme),
		Type:           aws.String(elbv2.LoadBalancerTypeEnumApplication),
		Subnets:        aws.StringSlice(network.Subnets),
		SecurityGroups: aws.StringSlice([]string{routerSG}),
		Tags:           p.elbTags(),
	})
	if err != nil {
		return fmt.Errorf("create load balancer %q: %w", router.Name, err)
	}
	if len(lb.LoadBalancers) == 0 {
		return fmt.Errorf("create load balancer %q: empty response", router.Name)
	}
	router.ID = aws.StringValue(lb.LoadBalancers[0].LoadBalancerArn)
	router.Address = aws.StringValue(lb.LoadBalancers[0].DNSName)

	for i := range router.Listeners {
		l := &router.Listeners[i]
		input := &elbv2.CreateListenerInput{
			LoadBalancerArn: aws.String(router.ID),
			Port:            aws.Int64(int64(l.Port)),
			Protocol:        aws.String(string(l.Protocol)),
			DefaultActions:  []*elbv2.Action{toELBAction(l.DefaultAction, "")},
			Tags:            p.elbTags(),
		}
		if l.CertificateArn != "" {
			input.Certificates = []*elbv2.Certificate{{CertificateArn: aws.String(l.CertificateArn)}}
		}
		out, err := p.clients.ELBV2.CreateListenerWithContext(ctx, input)
		if err != nil {
			return fmt.Errorf("create %s listener on %q: %w", l.Name, router.Name, err)
		}
		if len(out.Listeners) == 0 {
			return fmt.Errorf("create %s listener on %q: empty response", l.Name, router.Name)
		}
		l.ID = aws.StringValue(out.Listeners[0].ListenerArn)
	}

	p.log.WithField("dns", router.Address).Info("created load balancer")
	return nil
}

// createRouterSecurityGroup opens the listener ports to the internet and
// lets the router reach the task security group.
func (p *AWSPlatform) createRouterSecurityGroup(ctx context.Context, network models.NetworkHandle, router *models.Router) (string, error) {
	name := router.Name + "-lb"
	sg, err := p.clients.EC2.CreateSecurityGroupWithContext(ctx, &ec2.CreateSecurityGroupInput{
		GroupName:         aws.String(name),
		Description:       aws.String("load balancer " + router.Name),
		VpcId:             aws.String(network.ID),
		TagSpecifications: p.ec2Tags(ec2.ResourceTypeSecurityGroup, name),
	})
	if err != nil {
		return "", fmt.Errorf("create security group %q: %w", name, err)
	}
	routerSG := aws.StringValue(sg.GroupId)

	var permissions []*ec2.IpPermission
	for _, l := range router.Listeners {
		permissions = append(permissions, &ec2.IpPermission{
			IpProtocol: aws.String("tcp"),
			FromPort:   aws.Int64(int64(l.Port)),
			ToPort:     aws.Int64(int64(l.Port)),
			IpRanges:   []*ec2.IpRange{{CidrIp: aws.String("0.0.0.0/0")}},
		})
	}
	if _, err := p.clients.EC2.AuthorizeSecurityGroupIngressWithContext(ctx, &ec2.AuthorizeSecurityGroupIngressInput{
		GroupId:       aws.String(routerSG),
		IpPermissions: permissions,
	}); err != nil {
		return "", fmt.Errorf("authorize ingress on %q: %w", name, err)
	}

	p.mu.Lock()
	taskSG := p.taskSG
	p.mu.Unlock()

	if taskSG != "" {
		if _, err := p.clients.EC2.AuthorizeSecurityGroupIngressWithContext(ctx, &ec2.AuthorizeSecurityGroupIngressInput{
			GroupId: aws.String(taskSG),
			IpPermissions: []*ec2.IpPermission{{
				IpProtocol:       aws.String("tcp"),
				FromPort:         aws.Int64(0),
				ToPort:           aws.Int64(65535),
				UserIdGroupPairs: []*ec2.UserIdGroupPair{{GroupId: aws.String(routerSG)}},
			}},
		}); err != nil {
			return "", fmt.Errorf("authorize router ingress on %q: %w", taskSG, err)
		}
	}
	return routerSG, nil
}

// toELBAction converts a model action. Forward actions need the target
// group the platform created for the service.
func toELBAction(a models.Action, targetGroupArn string) *elbv2.Action {
	switch a.Type {
	case models.ActionTypeRedirect:
		r := a.Redirect
		return &elbv2.Action{
			Type: aws.String(elbv2.ActionTypeEnumRedirect),
			RedirectConfig: &elbv2.RedirectActionConfig{
				Protocol:   aws.String(string(r.Protocol)),
				Port:       aws.String(strconv.Itoa(r.Port)),
				Host:       aws.String(r.Host),
				Path:       aws.String(r.Path),
				Query:      aws.String(r.Query),
				StatusCode: aws.String("HTTP_" + strconv.Itoa(r.StatusCode)),
			},
		}
	case models.ActionTypeFixedResponse:
		f := a.FixedResponse
		return &elbv2.Action{
			Type: aws.String(elbv2.ActionTypeEnumFixedResponse),
			FixedResponseConfig: &elbv2.FixedResponseActionConfig{
				StatusCode:  aws.String(strconv.Itoa(f.StatusCode)),
				ContentType: aws.String(f.ContentType),
				MessageBody: aws.String(f.Body),
			},
		}
	default:
		return &elbv2.Action{
			Type:           aws.String(elbv2.ActionTypeEnumForward),
			TargetGroupArn: aws.String(targetGroupArn),
		}
	}
}
