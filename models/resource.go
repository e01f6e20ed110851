package models

type PublicConnection struct {
	Address *string `json:"address,omitempty"`
	Port    *uint16 `json:"port,omitempty"`
}

// RouterResourceMetadata is the metadata attached to a reported router.
type RouterResourceMetadata struct {
	Stack    string            `json:"stack"`
	Platform string            `json:"platform"`
	Routes   map[string]string `json:"routes"` // path pattern -> service
}
