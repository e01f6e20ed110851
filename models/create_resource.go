package models

import "encoding/json"

// CreateResource is the payload reported to the agent for a resource the
// deployment produced.
type CreateResource struct {
	ResourceType       string            `json:"resource_type"`
	Name               string            `json:"name"`
	PlatformConnection *json.RawMessage  `json:"platform_connection,omitempty"`
	PublicConnection   *PublicConnection `json:"public_connection,omitempty"`
	Metadata           json.RawMessage   `json:"metadata"`
}
