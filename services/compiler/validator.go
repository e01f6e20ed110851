package compiler

import (
	"fmt"
	"regexp"
	"strings"

	"k8s.io/apimachinery/pkg/util/sets"
	"k8s.io/apimachinery/pkg/util/validation"

	"github.com/ezenkico/deploy-commander/topology/models"
)

const (
	maxPort     = 65535
	maxPriority = 50000
)

// Stack names prefix load balancer, target group and cluster names, which
// only take letters, digits and inner hyphens.
var stackNamePattern = regexp.MustCompile(`^[A-Za-z0-9]([A-Za-z0-9-]*[A-Za-z0-9])?$`)

// Validate runs every pre-build check over cfg in order and returns the
// non-fatal warnings. Nothing is resolved or created.
func Validate(cfg *models.Configuration) ([]string, error) {
	if err := ValidateConfiguration(cfg); err != nil {
		return nil, err
	}
	if err := ValidatePriorities(cfg.Microservices); err != nil {
		return nil, err
	}
	if err := ValidateCapacity(cfg.Microservices); err != nil {
		return nil, err
	}
	if cfg.ValidateTaskSizing {
		if err := ValidateTaskSizing(cfg.Microservices); err != nil {
			return nil, err
		}
	}

	warnings := ScalingWarnings(cfg.Microservices)
	warnings = append(warnings, PathPatternWarnings(cfg.Microservices)...)
	return warnings, nil
}

// ValidateConfiguration checks required fields and per-spec sanity.
func ValidateConfiguration(cfg *models.Configuration) error {
	if cfg == nil {
		return &models.ConfigurationError{Field: "configuration", Reason: "is nil"}
	}
	required := []struct {
		field string
		value string
	}{
		{"stackName", cfg.StackName},
		{"account", cfg.Account},
		{"region", cfg.Region},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return &models.ConfigurationError{Field: r.field, Reason: "is required"}
		}
	}
	if !stackNamePattern.MatchString(cfg.StackName) {
		return &models.ConfigurationError{Field: "stackName", Reason: fmt.Sprintf("%q may only contain letters, digits and inner hyphens", cfg.StackName)}
	}
	if err := ValidateCertificate(cfg.CertificateArn); err != nil {
		return &models.ConfigurationError{Field: "certificateArn", Err: err}
	}
	if cfg.Parallelism < 0 {
		return &models.ConfigurationError{Field: "parallelism", Reason: "must not be negative"}
	}
	if len(cfg.Microservices) == 0 {
		return &models.ConfigurationError{Field: "microservices", Reason: "at least one service is required"}
	}

	names := sets.New[string]()
	for i, spec := range cfg.Microservices {
		if err := validateSpec(i, spec); err != nil {
			return err
		}
		if names.Has(spec.Name) {
			return &models.ConfigurationError{Field: field(i, "name"), Reason: fmt.Sprintf("duplicate service name %q", spec.Name)}
		}
		names.Insert(spec.Name)
	}
	return nil
}

func field(i int, name string) string {
	return fmt.Sprintf("microservices[%d].%s", i, name)
}

func validateSpec(i int, spec models.MicroserviceSpec) error {
	if strings.TrimSpace(spec.Name) == "" {
		return &models.ConfigurationError{Field: field(i, "name"), Reason: "is required"}
	}
	// names become target group, ECS service, container and DNS alias names
	if msgs := validation.IsDNS1123Label(spec.Name); len(msgs) > 0 {
		return &models.ConfigurationError{Field: field(i, "name"), Reason: fmt.Sprintf("%q: %s", spec.Name, strings.Join(msgs, "; "))}
	}
	if spec.CPU <= 0 {
		return &models.ConfigurationError{Field: field(i, "cpu"), Reason: "must be positive"}
	}
	if spec.MemoryLimitMiB <= 0 {
		return &models.ConfigurationError{Field: field(i, "memoryLimitMiB"), Reason: "must be positive"}
	}
	if spec.ContainerPort < 1 || spec.ContainerPort > maxPort {
		return &models.ConfigurationError{Field: field(i, "containerPort"), Reason: fmt.Sprintf("%d is outside 1-%d", spec.ContainerPort, maxPort)}
	}
	if strings.TrimSpace(spec.PathPattern) == "" {
		return &models.ConfigurationError{Field: field(i, "pathPattern"), Reason: "is required"}
	}
	if spec.Priority < 1 || spec.Priority > maxPriority {
		return &models.ConfigurationError{Field: field(i, "priority"), Reason: fmt.Sprintf("%d is outside 1-%d", spec.Priority, maxPriority)}
	}

	as := spec.AutoScaling
	percents := []struct {
		name  string
		value *int
	}{
		{"autoScaling.targetCpuUtilizationPercent", as.TargetCPUUtilizationPercent},
		{"autoScaling.targetMemoryUtilizationPercent", as.TargetMemoryUtilizationPercent},
	}
	for _, p := range percents {
		if p.value != nil && (*p.value < 1 || *p.value > 100) {
			return &models.ConfigurationError{Field: field(i, p.name), Reason: fmt.Sprintf("%d is outside 1-100", *p.value)}
		}
	}
	if as.RequestsPerTarget != nil && *as.RequestsPerTarget < 1 {
		return &models.ConfigurationError{Field: field(i, "autoScaling.requestsPerTarget"), Reason: "must be positive"}
	}
	return nil
}

// ValidatePriorities fails on the first priority value shared by two specs.
func ValidatePriorities(specs []models.MicroserviceSpec) error {
	seen := make(map[int]string, len(specs))
	for _, spec := range specs {
		if owner, ok := seen[spec.Priority]; ok {
			return &models.DuplicateRoutingPriorityError{Priority: spec.Priority, Services: []string{owner, spec.Name}}
		}
		seen[spec.Priority] = spec.Name
	}
	return nil
}

// ValidateCapacity requires 1 <= minCapacity <= maxCapacity for every spec.
func ValidateCapacity(specs []models.MicroserviceSpec) error {
	for _, spec := range specs {
		if err := checkBounds(spec.Name, spec.AutoScaling.MinCapacity, spec.AutoScaling.MaxCapacity); err != nil {
			return err
		}
	}
	return nil
}

func checkBounds(name string, min, max int) error {
	if min < 1 || min > max {
		return &models.InvalidCapacityBoundsError{Name: name, Min: min, Max: max}
	}
	return nil
}

// ScalingWarnings lists services that declare no scaling target.
func ScalingWarnings(specs []models.MicroserviceSpec) []string {
	var warnings []string
	for _, spec := range specs {
		if len(spec.AutoScaling.Targets()) == 0 {
			warnings = append(warnings, fmt.Sprintf("service %q declares no scaling target and stays at %d instance(s)", spec.Name, spec.AutoScaling.MinCapacity))
		}
	}
	return warnings
}

// PathPatternWarnings lists services whose pattern is shadowed by an
// identical pattern at a lower priority value.
func PathPatternWarnings(specs []models.MicroserviceSpec) []string {
	byPattern := make(map[string]models.MicroserviceSpec, len(specs))
	var warnings []string
	for _, spec := range specs {
		prev, ok := byPattern[spec.PathPattern]
		if !ok {
			byPattern[spec.PathPattern] = spec
			continue
		}
		winner, loser := prev, spec
		if spec.Priority < prev.Priority {
			winner, loser = spec, prev
			byPattern[spec.PathPattern] = spec
		}
		warnings = append(warnings, fmt.Sprintf("service %q is unreachable: path pattern %q is already matched by %q at priority %d", loser.Name, spec.PathPattern, winner.Name, winner.Priority))
	}
	return warnings
}

// Supported Fargate task sizes: cpu units -> memory MiB range and step.
var fargateSizes = map[int]struct{ min, max, step int }{
	256:   {512, 2048, 0},
	512:   {1024, 4096, 1024},
	1024:  {2048, 8192, 1024},
	2048:  {4096, 16384, 1024},
	4096:  {8192, 30720, 1024},
	8192:  {16384, 61440, 4096},
	16384: {32768, 122880, 8192},
}

// ValidateTaskSizing checks that each cpu/memory pair is a supported size.
func ValidateTaskSizing(specs []models.MicroserviceSpec) error {
	for i, spec := range specs {
		if !supportedTaskSize(spec.CPU, spec.MemoryLimitMiB) {
			return &models.ConfigurationError{
				Field:  field(i, "memoryLimitMiB"),
				Reason: fmt.Sprintf("cpu %d with %d MiB is not a supported task size", spec.CPU, spec.MemoryLimitMiB),
			}
		}
	}
	return nil
}

func supportedTaskSize(cpu, memory int) bool {
	size, ok := fargateSizes[cpu]
	if !ok {
		return false
	}
	if size.step == 0 {
		// 256 cpu units only allow 512, 1024 or 2048
		return memory == 512 || memory == 1024 || memory == 2048
	}
	return memory >= size.min && memory <= size.max && (memory-size.min)%size.step == 0
}

// CheckTopology re-checks the whole-topology invariants on a compiled
// result.
func CheckTopology(t *models.Topology) error {
	secure := t.Router.Listener(models.ListenerSecure)
	if secure == nil {
		return fmt.Errorf("topology %q: router has no %s listener", t.Stack, models.ListenerSecure)
	}
	if secure.DefaultAction.Type != models.ActionTypeFixedResponse || secure.DefaultAction.FixedResponse == nil ||
		secure.DefaultAction.FixedResponse.StatusCode != 404 {
		return fmt.Errorf("topology %q: %s listener default is not a not-found response", t.Stack, models.ListenerSecure)
	}

	priorities := sets.New[int]()
	for _, rule := range t.Router.Rules {
		if priorities.Has(rule.Priority) {
			return &models.DuplicateRoutingPriorityError{Priority: rule.Priority, Services: []string{rule.Service}}
		}
		priorities.Insert(rule.Priority)

		if rule.Router != t.Router.Name || rule.Listener != models.ListenerSecure {
			return fmt.Errorf("topology %q: rule for %q is bound to %s/%s", t.Stack, rule.Service, rule.Router, rule.Listener)
		}
		if t.Service(rule.Service) == nil {
			return fmt.Errorf("topology %q: rule at priority %d has no service %q", t.Stack, rule.Priority, rule.Service)
		}
	}

	for _, svc := range t.Services {
		if svc.Rule == nil {
			return fmt.Errorf("topology %q: service %q has no routing rule", t.Stack, svc.Name)
		}
		if err := checkBounds(svc.Name, svc.Scaling.MinCapacity, svc.Scaling.MaxCapacity); err != nil {
			return err
		}
	}
	if len(t.Router.Rules) != len(t.Services) {
		return fmt.Errorf("topology %q: %d rules for %d services", t.Stack, len(t.Router.Rules), len(t.Services))
	}
	return nil
}
