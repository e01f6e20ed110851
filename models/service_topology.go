package models

type ServiceInstance struct {
	Name           string `json:"name" yaml:"name"`
	Cluster        string `json:"cluster" yaml:"cluster"`
	TaskFamily     string `json:"taskFamily" yaml:"taskFamily"`
	ContainerName  string `json:"containerName" yaml:"containerName"`
	ContainerPort  int    `json:"containerPort" yaml:"containerPort"`
	DesiredCount   int    `json:"desiredCount" yaml:"desiredCount"`
	AssignPublicIP bool   `json:"assignPublicIp" yaml:"assignPublicIp"`
	ID             string `json:"id,omitempty" yaml:"id,omitempty"`
}

type ScalingPolicy struct {
	Name        string        `json:"name" yaml:"name"`
	Metric      ScalingMetric `json:"metric" yaml:"metric"`
	TargetValue int           `json:"targetValue" yaml:"targetValue"`
	ID          string        `json:"id,omitempty" yaml:"id,omitempty"`
}

// ScalingPolicySet is the scalable-capacity wrapper around one service.
type ScalingPolicySet struct {
	Service     string          `json:"service" yaml:"service"`
	MinCapacity int             `json:"minCapacity" yaml:"minCapacity"`
	MaxCapacity int             `json:"maxCapacity" yaml:"maxCapacity"`
	Policies    []ScalingPolicy `json:"policies" yaml:"policies"`
	ID          string          `json:"id,omitempty" yaml:"id,omitempty"`
}

// ServiceTopology groups everything derived from one MicroserviceSpec.
// Rule points at the same value held in Router.Rules.
type ServiceTopology struct {
	Name      string           `json:"name" yaml:"name"`
	TaskShape TaskShape        `json:"taskShape" yaml:"taskShape"`
	Service   ServiceInstance  `json:"service" yaml:"service"`
	Rule      *RoutingRule     `json:"rule" yaml:"rule"`
	Scaling   ScalingPolicySet `json:"scaling" yaml:"scaling"`
}
