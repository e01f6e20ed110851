package docker

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	labelStack   = "deploy-commander.stack"
	labelRun     = "deploy-commander.run"
	labelService = "deploy-commander.service"
	labelReplica = "deploy-commander.replica"
	labelKind    = "deploy-commander.kind"

	// LabelDefaultNetwork marks the network ResolveDefaultNetwork returns.
	LabelDefaultNetwork = "deploy-commander.default"

	defaultRouterImage = "traefik:v3.1"

	// traefik picks the highest priority, routing rules the lowest.
	maxRoutingPriority = 50000
)

func DockerServiceName(stack, service string, replica int) string {
	return fmt.Sprintf("%s-%s-%d", stack, service, replica)
}

// routerKey names the traefik router and service of a stack service.
func routerKey(stack, service string) string {
	return stack + "-" + service
}

// traefikPriority maps a routing priority (lower wins) onto traefik's
// ordering (higher wins).
func traefikPriority(priority int) int {
	return maxRoutingPriority + 1 - priority
}

// PathRegexp translates a load balancer path pattern, where '*' matches any
// run of characters and '?' exactly one, into an anchored regular expression.
func PathRegexp(pattern string) string {
	var b strings.Builder
	b.WriteString("^")
	for _, r := range pattern {
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return b.String()
}

// routerRule is the traefik rule matching pattern. Backticks delimit the
// rule's argument so they cannot appear in it.
func routerRule(pattern string) (string, error) {
	if strings.Contains(pattern, "`") {
		return "", fmt.Errorf("path pattern %q contains a backtick", pattern)
	}
	return "PathRegexp(`" + PathRegexp(pattern) + "`)", nil
}

// nanoCPUs converts task cpu units (1024 per vCPU).
func nanoCPUs(units int) int64 {
	return int64(units) * 1e9 / 1024
}

func memoryBytes(mib int) int64 {
	return int64(mib) * 1024 * 1024
}
