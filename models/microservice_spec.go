package models

// MicroserviceSpec declares one backend service behind the shared router.
type MicroserviceSpec struct {
	// Name identifies the service and is also the artifact source folder.
	Name string `json:"name" yaml:"name"`

	// Task sizing in cpu units (1024 = 1 vCPU) and MiB.
	CPU            int `json:"cpu" yaml:"cpu"`
	MemoryLimitMiB int `json:"memoryLimitMiB" yaml:"memoryLimitMiB"`

	// ContainerPort is the port the service process listens on.
	ContainerPort int `json:"containerPort" yaml:"containerPort"`

	// PathPattern is matched against request paths (`*` and `?` wildcards).
	PathPattern string `json:"pathPattern" yaml:"pathPattern"`

	// Priority orders rule evaluation, lowest first. Unique per topology.
	Priority int `json:"priority" yaml:"priority"`

	AutoScaling AutoScalingSpec `json:"autoScaling" yaml:"autoScaling"`
}
