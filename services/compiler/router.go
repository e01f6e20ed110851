package compiler

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go/aws/arn"

	"github.com/ezenkico/deploy-commander/topology/models"
)

const (
	publicPort = 80
	securePort = 443
)

// ValidateCertificate checks that identity is an ACM certificate or IAM
// server certificate ARN.
func ValidateCertificate(identity string) error {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return &models.CertificateInvalidError{Reason: "not provided"}
	}

	parsed, err := arn.Parse(identity)
	if err != nil {
		return &models.CertificateInvalidError{Identity: identity, Reason: err.Error()}
	}

	switch {
	case parsed.Service == "acm" && hasName(parsed.Resource, "certificate/"):
	case parsed.Service == "iam" && hasName(parsed.Resource, "server-certificate/"):
	default:
		return &models.CertificateInvalidError{
			Identity: identity,
			Reason:   fmt.Sprintf("%s resource %q is not a certificate", parsed.Service, parsed.Resource),
		}
	}
	return nil
}

func hasName(resource, prefix string) bool {
	return strings.HasPrefix(resource, prefix) && len(resource) > len(prefix)
}

// Router wraps the shared router model. AttachRule is the only way to
// mutate it once built and is safe for concurrent use.
type Router struct {
	mu     sync.Mutex
	model  models.Router
	owners map[int]string // priority -> service
}

// RouterName is the name of the router of stack.
func RouterName(stack string) string { return stack + "-router" }

// NewRouter validates the certificate and builds the redirect and secure
// listeners. No rules are attached.
func NewRouter(stack, certificateArn string, network models.NetworkHandle) (*Router, error) {
	if err := ValidateCertificate(certificateArn); err != nil {
		return nil, err
	}
	if network.ID == "" {
		return nil, fmt.Errorf("router %q: network handle has no id", stack)
	}

	return &Router{
		model: models.Router{
			Name:           RouterName(stack),
			InternetFacing: true,
			Listeners: []models.Listener{
				{
					Name:          models.ListenerPublic,
					Port:          publicPort,
					Protocol:      models.ProtocolHTTP,
					DefaultAction: RedirectToHTTPS(),
				},
				{
					Name:           models.ListenerSecure,
					Port:           securePort,
					Protocol:       models.ProtocolHTTPS,
					CertificateArn: strings.TrimSpace(certificateArn),
					DefaultAction:  NotFound(),
				},
			},
		},
		owners: make(map[int]string),
	}, nil
}

// RedirectToHTTPS keeps the original host, path and query.
func RedirectToHTTPS() models.Action {
	return models.Action{
		Type: models.ActionTypeRedirect,
		Redirect: &models.RedirectAction{
			Protocol:   models.ProtocolHTTPS,
			Port:       securePort,
			Host:       "#{host}",
			Path:       "/#{path}",
			Query:      "#{query}",
			StatusCode: http.StatusMovedPermanently,
		},
	}
}

func NotFound() models.Action {
	return models.Action{
		Type: models.ActionTypeFixedResponse,
		FixedResponse: &models.FixedResponseAction{
			StatusCode:  http.StatusNotFound,
			ContentType: "text/plain",
			Body:        "Not Found",
		},
	}
}

func (r *Router) Name() string { return r.model.Name }

// AttachRule adds rule to the secure listener. The priority is checked
// again under the lock so a duplicate never reaches the rule set.
func (r *Router) AttachRule(rule *models.RoutingRule) error {
	if rule == nil {
		return fmt.Errorf("attach rule: nil rule")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if rule.Router != r.model.Name {
		return fmt.Errorf("attach rule for %q: rule targets router %q, not %q", rule.Service, rule.Router, r.model.Name)
	}
	if rule.Listener != models.ListenerSecure {
		return fmt.Errorf("attach rule for %q: rules may only attach to the %s listener, got %q", rule.Service, models.ListenerSecure, rule.Listener)
	}
	if owner, ok := r.owners[rule.Priority]; ok {
		return &models.DuplicateRoutingPriorityError{Priority: rule.Priority, Services: []string{owner, rule.Service}}
	}

	r.owners[rule.Priority] = rule.Service
	r.model.Rules = append(r.model.Rules, rule)
	return nil
}

// DetachRule removes the rule owned by service, if any.
func (r *Router) DetachRule(service string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, rule := range r.model.Rules {
		if rule.Service == service {
			delete(r.owners, rule.Priority)
			r.model.Rules = append(r.model.Rules[:i], r.model.Rules[i+1:]...)
			return
		}
	}
}

// Model returns the router with rules ordered by priority.
func (r *Router) Model() models.Router {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := r.model
	out.Listeners = append([]models.Listener(nil), r.model.Listeners...)
	out.Rules = append([]*models.RoutingRule(nil), r.model.Rules...)
	sort.Slice(out.Rules, func(i, j int) bool { return out.Rules[i].Priority < out.Rules[j].Priority })
	return out
}
