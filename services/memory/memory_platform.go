// Package memory is a platform that records what it is asked to create and
// hands out deterministic IDs. It backs dry runs and tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/ezenkico/deploy-commander/topology/models"
)

// DefaultNetwork is the single default network a new platform reports.
var DefaultNetwork = models.NetworkHandle{
	ID:             "net-default",
	Name:           "default",
	Subnets:        []string{"subnet-a", "subnet-b"},
	SecurityGroups: []string{"sg-default"},
}

// Call is one recorded platform operation.
type Call struct {
	Op   string
	Name string
}

type Platform struct {
	mu sync.Mutex

	networks    []models.NetworkHandle
	networkErr  error
	failService map[string]error

	calls []Call
	seq   int
}

type Option func(*Platform)

// WithNetworks replaces the networks flagged as default. Zero or several
// make ResolveDefaultNetwork fail.
func WithNetworks(networks ...models.NetworkHandle) Option {
	return func(p *Platform) { p.networks = networks }
}

// WithNetworkError makes the network lookup itself fail.
func WithNetworkError(err error) Option {
	return func(p *Platform) { p.networkErr = err }
}

// WithServiceFailure makes CreateService fail for the named service.
func WithServiceFailure(service string, err error) Option {
	return func(p *Platform) { p.failService[service] = err }
}

func New(opts ...Option) *Platform {
	p := &Platform{
		networks:    []models.NetworkHandle{DefaultNetwork},
		failService: map[string]error{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Platform) record(op, name string) {
	p.calls = append(p.calls, Call{Op: op, Name: name})
}

func (p *Platform) nextID(kind string) string {
	p.seq++
	return fmt.Sprintf("%s-%04d", kind, p.seq)
}

func (p *Platform) ResolveDefaultNetwork(ctx context.Context) (models.NetworkHandle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.record("ResolveDefaultNetwork", "")
	if p.networkErr != nil {
		return models.NetworkHandle{}, p.networkErr
	}
	if len(p.networks) != 1 {
		return models.NetworkHandle{}, &models.EnvironmentNotFoundError{Criterion: "default", Matches: len(p.networks)}
	}
	return p.networks[0], nil
}

func (p *Platform) CreateCluster(ctx context.Context, network models.NetworkHandle, cluster *models.Cluster) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.record("CreateCluster", cluster.Name)
	cluster.ID = p.nextID("cluster")
	return nil
}

func (p *Platform) CreateRouter(ctx context.Context, network models.NetworkHandle, router *models.Router) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.record("CreateRouter", router.Name)
	router.ID = p.nextID("router")
	for i := range router.Listeners {
		router.Listeners[i].ID = p.nextID("listener")
	}
	router.Address = router.Name + ".memory.local"
	return nil
}

func (p *Platform) CreateService(ctx context.Context, topology *models.Topology, service *models.ServiceTopology) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.record("CreateService", service.Name)
	if err := p.failService[service.Name]; err != nil {
		return err
	}
	if topology.Router.ID == "" {
		return fmt.Errorf("service %q created before router %q", service.Name, topology.Router.Name)
	}

	service.TaskShape.ID = p.nextID("task")
	service.Rule.TargetGroupID = p.nextID("targetgroup")
	service.Rule.ID = p.nextID("rule")
	service.Service.ID = p.nextID("service")
	service.Scaling.ID = p.nextID("scalable")
	for i := range service.Scaling.Policies {
		service.Scaling.Policies[i].ID = p.nextID("policy")
	}
	return nil
}

func (p *Platform) Teardown(ctx context.Context, stack string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.record("Teardown", stack)
	return nil
}

// Calls returns a copy of the recorded operations in order.
func (p *Platform) Calls() []Call {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]Call(nil), p.calls...)
}
