package models

type ContainerDefinition struct {
	Name  string `json:"name" yaml:"name"`
	Image string `json:"image" yaml:"image"`
	// BuildContext is the local source folder when the image is built from
	// a directory rather than pulled from a registry.
	BuildContext string            `json:"buildContext,omitempty" yaml:"buildContext,omitempty"`
	CPU          int               `json:"cpu" yaml:"cpu"`
	MemoryMiB    int               `json:"memoryMiB" yaml:"memoryMiB"`
	PortMappings []PortMapping     `json:"portMappings" yaml:"portMappings"`
	Environment  map[string]string `json:"environment,omitempty" yaml:"environment,omitempty"`
}

// TaskShape describes one runnable unit of a service.
type TaskShape struct {
	Family     string                `json:"family" yaml:"family"`
	CPU        int                   `json:"cpu" yaml:"cpu"`
	MemoryMiB  int                   `json:"memoryMiB" yaml:"memoryMiB"`
	Containers []ContainerDefinition `json:"containers" yaml:"containers"`
	ID         string                `json:"id,omitempty" yaml:"id,omitempty"`
}
