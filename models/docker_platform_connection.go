package models

// DockerPlatformConnection tells other jobs on the same engine how to reach
// a reported resource.
type DockerPlatformConnection struct {
	// Docker network the router container is attached to
	Network string `json:"network"`
}
