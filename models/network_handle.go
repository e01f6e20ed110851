package models

// NetworkHandle is an opaque reference to the pre-existing network the
// topology runs in.
type NetworkHandle struct {
	ID             string   `json:"id" yaml:"id"`
	Name           string   `json:"name,omitempty" yaml:"name,omitempty"`
	Subnets        []string `json:"subnets,omitempty" yaml:"subnets,omitempty"`
	SecurityGroups []string `json:"securityGroups,omitempty" yaml:"securityGroups,omitempty"`
}
