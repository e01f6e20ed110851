package models

import "github.com/google/uuid"

// OutputRouterDNSName is the output key holding the router's external address.
const OutputRouterDNSName = "RouterDNSName"

// Topology is the full desired state derived from one configuration.
type Topology struct {
	ID      uuid.UUID `json:"id" yaml:"id"`
	Stack   string    `json:"stack" yaml:"stack"`
	Account string    `json:"account" yaml:"account"`
	Region  string    `json:"region" yaml:"region"`

	Network  NetworkHandle     `json:"network" yaml:"network"`
	Router   Router            `json:"router" yaml:"router"`
	Cluster  Cluster           `json:"cluster" yaml:"cluster"`
	Services []ServiceTopology `json:"services" yaml:"services"`

	Warnings []string          `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Outputs  map[string]string `json:"outputs,omitempty" yaml:"outputs,omitempty"`
}

// Service looks up a compiled service by name.
func (t *Topology) Service(name string) *ServiceTopology {
	for i := range t.Services {
		if t.Services[i].Name == name {
			return &t.Services[i]
		}
	}
	return nil
}
