package models

type ActionType string

const (
	ActionTypeRedirect      ActionType = "redirect"
	ActionTypeFixedResponse ActionType = "fixed-response"
	ActionTypeForward       ActionType = "forward"
)

type Protocol string

const (
	ProtocolHTTP  Protocol = "HTTP"
	ProtocolHTTPS Protocol = "HTTPS"
)

// Listener names on the shared router.
const (
	ListenerPublic = "public" // insecure port, redirect only
	ListenerSecure = "secure" // tls port, routing rules + not-found default
)

type RedirectAction struct {
	Protocol   Protocol `json:"protocol" yaml:"protocol"`
	Port       int      `json:"port" yaml:"port"`
	Host       string   `json:"host" yaml:"host"`
	Path       string   `json:"path" yaml:"path"`
	Query      string   `json:"query" yaml:"query"`
	StatusCode int      `json:"statusCode" yaml:"statusCode"`
}

type FixedResponseAction struct {
	StatusCode  int    `json:"statusCode" yaml:"statusCode"`
	ContentType string `json:"contentType" yaml:"contentType"`
	Body        string `json:"body" yaml:"body"`
}

type ForwardAction struct {
	Service string `json:"service" yaml:"service"`
	Port    int    `json:"port" yaml:"port"`
}

// Action is a tagged union; exactly the field matching Type is set.
type Action struct {
	Type          ActionType           `json:"type" yaml:"type"`
	Redirect      *RedirectAction      `json:"redirect,omitempty" yaml:"redirect,omitempty"`
	FixedResponse *FixedResponseAction `json:"fixedResponse,omitempty" yaml:"fixedResponse,omitempty"`
	Forward       *ForwardAction       `json:"forward,omitempty" yaml:"forward,omitempty"`
}

type Listener struct {
	Name           string   `json:"name" yaml:"name"`
	Port           int      `json:"port" yaml:"port"`
	Protocol       Protocol `json:"protocol" yaml:"protocol"`
	CertificateArn string   `json:"certificateArn,omitempty" yaml:"certificateArn,omitempty"`
	DefaultAction  Action   `json:"defaultAction" yaml:"defaultAction"`
	ID             string   `json:"id,omitempty" yaml:"id,omitempty"`
}

// RoutingRule is a (pattern, priority, target) triple evaluated by the
// secure listener. First match by ascending priority wins.
type RoutingRule struct {
	Service     string `json:"service" yaml:"service"`
	Router      string `json:"router" yaml:"router"`
	Listener    string `json:"listener" yaml:"listener"`
	PathPattern string `json:"pathPattern" yaml:"pathPattern"`
	Priority    int    `json:"priority" yaml:"priority"`
	Action      Action `json:"action" yaml:"action"`

	ID            string `json:"id,omitempty" yaml:"id,omitempty"`
	TargetGroupID string `json:"targetGroupId,omitempty" yaml:"targetGroupId,omitempty"`
}

type Router struct {
	Name           string         `json:"name" yaml:"name"`
	InternetFacing bool           `json:"internetFacing" yaml:"internetFacing"`
	Listeners      []Listener     `json:"listeners" yaml:"listeners"`
	Rules          []*RoutingRule `json:"rules" yaml:"rules"`

	ID      string `json:"id,omitempty" yaml:"id,omitempty"`
	Address string `json:"address,omitempty" yaml:"address,omitempty"`
}

// Listener returns the named listener or nil.
func (r *Router) Listener(name string) *Listener {
	for i := range r.Listeners {
		if r.Listeners[i].Name == name {
			return &r.Listeners[i]
		}
	}
	return nil
}
