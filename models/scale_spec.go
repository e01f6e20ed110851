package models

type ScalingMetric string

const (
	ScalingMetricCPU      ScalingMetric = "cpu"      // average cpu utilization percent
	ScalingMetricMemory   ScalingMetric = "memory"   // average memory utilization percent
	ScalingMetricRequests ScalingMetric = "requests" // requests per instance
)

// AutoScalingSpec bounds a service's instance count and lists the metrics
// that drive it. Target fields are optional; nil means "not tracked".
type AutoScalingSpec struct {
	MinCapacity int `json:"minCapacity" yaml:"minCapacity"`
	MaxCapacity int `json:"maxCapacity" yaml:"maxCapacity"`

	TargetCPUUtilizationPercent    *int `json:"targetCpuUtilizationPercent,omitempty" yaml:"targetCpuUtilizationPercent,omitempty"`
	TargetMemoryUtilizationPercent *int `json:"targetMemoryUtilizationPercent,omitempty" yaml:"targetMemoryUtilizationPercent,omitempty"`
	RequestsPerTarget              *int `json:"requestsPerTarget,omitempty" yaml:"requestsPerTarget,omitempty"`
}

// ScalingTarget is one tracked metric and the value to drive it toward.
type ScalingTarget struct {
	Metric ScalingMetric `json:"metric" yaml:"metric"`
	Value  int           `json:"value" yaml:"value"`
}

// Targets returns the declared targets in cpu, memory, requests order.
func (a AutoScalingSpec) Targets() []ScalingTarget {
	var targets []ScalingTarget
	if a.TargetCPUUtilizationPercent != nil {
		targets = append(targets, ScalingTarget{Metric: ScalingMetricCPU, Value: *a.TargetCPUUtilizationPercent})
	}
	if a.TargetMemoryUtilizationPercent != nil {
		targets = append(targets, ScalingTarget{Metric: ScalingMetricMemory, Value: *a.TargetMemoryUtilizationPercent})
	}
	if a.RequestsPerTarget != nil {
		targets = append(targets, ScalingTarget{Metric: ScalingMetricRequests, Value: *a.RequestsPerTarget})
	}
	return targets
}
