package models

import (
	"errors"
	"fmt"
	"strings"
)

// ConfigurationError reports a missing or malformed input field. Err holds
// the underlying cause when there is one.
type ConfigurationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid configuration %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("invalid configuration %s: %s", e.Field, e.Reason)
}
func (e *ConfigurationError) Unwrap() error { return e.Err }

type CertificateInvalidError struct {
	Identity string
	Reason   string
}

func (e *CertificateInvalidError) Error() string {
	if e.Identity == "" {
		return fmt.Sprintf("certificate invalid: %s", e.Reason)
	}
	return fmt.Sprintf("certificate %q invalid: %s", e.Identity, e.Reason)
}

// EnvironmentNotFoundError is returned when the default network lookup does
// not yield exactly one match.
type EnvironmentNotFoundError struct {
	Criterion string
	Matches   int
}

func (e *EnvironmentNotFoundError) Error() string {
	if e.Matches == 0 {
		return fmt.Sprintf("environment not found: no network matches %q", e.Criterion)
	}
	return fmt.Sprintf("environment not found: %d networks match %q, expected exactly one", e.Matches, e.Criterion)
}

type DuplicateRoutingPriorityError struct {
	Priority int
	Services []string
}

func (e *DuplicateRoutingPriorityError) Error() string {
	return fmt.Sprintf("duplicate routing priority %d (services %s)", e.Priority, strings.Join(e.Services, ", "))
}

type InvalidCapacityBoundsError struct {
	Name string
	Min  int
	Max  int
}

func (e *InvalidCapacityBoundsError) Error() string {
	return fmt.Sprintf("service %q has invalid capacity bounds [%d, %d]", e.Name, e.Min, e.Max)
}

type ArtifactUnresolvableError struct {
	Service string
	Err     error
}

func (e *ArtifactUnresolvableError) Error() string {
	return fmt.Sprintf("artifact for service %q unresolvable: %v", e.Service, e.Err)
}
func (e *ArtifactUnresolvableError) Unwrap() error { return e.Err }

// ServiceError wraps a failure in one step of a service's derivation.
type ServiceError struct {
	Service string
	Step    string
	Err     error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("service %q: %s: %v", e.Service, e.Step, e.Err)
}
func (e *ServiceError) Unwrap() error { return e.Err }

// IsConfigurationError reports whether err (or any error in its chain) is
// a configuration error.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}
