package compiler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/ezenkico/deploy-commander/topology/models"
	"github.com/ezenkico/deploy-commander/topology/services/memory"
)

const testCertificate = "arn:aws:acm:us-east-1:123456789012:certificate/0f1e2d3c-aaaa-bbbb-cccc-0123456789ab"

func intPtr(i int) *int { return &i }

func usersSpec() models.MicroserviceSpec {
	return models.MicroserviceSpec{
		Name:           "users",
		CPU:            512,
		MemoryLimitMiB: 1024,
		ContainerPort:  80,
		PathPattern:    "/api/users*",
		Priority:       10,
		AutoScaling: models.AutoScalingSpec{
			MinCapacity:                 1,
			MaxCapacity:                 10,
			TargetCPUUtilizationPercent: intPtr(50),
		},
	}
}

func spec(name string, priority int) models.MicroserviceSpec {
	s := usersSpec()
	s.Name = name
	s.PathPattern = "/api/" + name + "*"
	s.Priority = priority
	return s
}

func testConfig(specs ...models.MicroserviceSpec) *models.Configuration {
	return &models.Configuration{
		Run:             uuid.MustParse("8c1d6b7e-3f7a-4c55-9a3e-2b1f0e9d8c7b"),
		StackName:       "demo",
		Account:         "123456789012",
		Region:          "us-east-1",
		CertificateArn:  testCertificate,
		ImageRepository: "registry.example.com/demo",
		ImageTag:        "v1",
		Microservices:   specs,
	}
}

// stubArtifacts resolves every service except the ones listed in fail.
type stubArtifacts struct {
	fail map[string]bool
}

func (s stubArtifacts) Resolve(service string) (Artifact, error) {
	if s.fail[service] {
		return Artifact{}, &models.ArtifactUnresolvableError{Service: service, Err: errors.New("no such image")}
	}
	return Artifact{Image: service + ":test"}, nil
}

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(l)
}

func newTestCompiler(p *memory.Platform, opts ...Option) *Compiler {
	return NewCompiler(p, append([]Option{WithLogger(quietLogger())}, opts...)...)
}

func TestCompileUsersExample(t *testing.T) {
	p := memory.New()
	topo, err := newTestCompiler(p).Compile(context.Background(), testConfig(usersSpec()))
	require.NoError(t, err)

	assert.Equal(t, "demo-cluster", topo.Cluster.Name)
	assert.Equal(t, memory.DefaultNetwork, topo.Network)
	require.Len(t, topo.Router.Listeners, 2)
	require.Len(t, topo.Router.Rules, 1)

	rule := topo.Router.Rules[0]
	assert.Equal(t, 10, rule.Priority)
	assert.Equal(t, "/api/users*", rule.PathPattern)
	assert.Equal(t, models.ListenerSecure, rule.Listener)
	assert.Equal(t, &models.ForwardAction{Service: "users", Port: 80}, rule.Action.Forward)

	svc := topo.Service("users")
	require.NotNil(t, svc)
	assert.Same(t, rule, svc.Rule)
	assert.Equal(t, 1, svc.Scaling.MinCapacity)
	assert.Equal(t, 10, svc.Scaling.MaxCapacity)
	assert.Equal(t, []models.ScalingPolicy{
		{Name: "users-cpu-scaling", Metric: models.ScalingMetricCPU, TargetValue: 50},
	}, svc.Scaling.Policies)

	container := svc.TaskShape.Containers[0]
	assert.Equal(t, "registry.example.com/demo/users:v1", container.Image)
	assert.Equal(t, map[string]string{
		"NODE_ENV":     "production",
		"SERVICE_NAME": "users",
		"PORT":         "80",
	}, container.Environment)
	assert.True(t, svc.Service.AssignPublicIP)
	assert.Equal(t, 1, svc.Service.DesiredCount)

	// compile never creates anything
	assert.Equal(t, []memory.Call{{Op: "ResolveDefaultNetwork"}}, p.Calls())
}

func TestCompileInvariantViolations(t *testing.T) {
	badCapacity := spec("orders", 20)
	badCapacity.AutoScaling.MinCapacity = 5
	badCapacity.AutoScaling.MaxCapacity = 2

	zeroMin := spec("orders", 20)
	zeroMin.AutoScaling.MinCapacity = 0

	noCert := testConfig(usersSpec())
	noCert.CertificateArn = ""

	badCert := testConfig(usersSpec())
	badCert.CertificateArn = "arn:aws:s3:::bucket/key"

	noAccount := testConfig(usersSpec())
	noAccount.Account = ""

	tests := []struct {
		name       string
		cfg        *models.Configuration
		check      func(t *testing.T, err error)
		errContain string
	}{
		{
			name: "duplicate priority",
			cfg:  testConfig(usersSpec(), spec("orders", 10)),
			check: func(t *testing.T, err error) {
				var dup *models.DuplicateRoutingPriorityError
				require.True(t, errors.As(err, &dup))
				assert.Equal(t, 10, dup.Priority)
				assert.Equal(t, []string{"users", "orders"}, dup.Services)
			},
		},
		{
			name: "min above max",
			cfg:  testConfig(usersSpec(), badCapacity),
			check: func(t *testing.T, err error) {
				var bounds *models.InvalidCapacityBoundsError
				require.True(t, errors.As(err, &bounds))
				assert.Equal(t, "orders", bounds.Name)
			},
		},
		{
			name: "zero min capacity",
			cfg:  testConfig(zeroMin),
			check: func(t *testing.T, err error) {
				var bounds *models.InvalidCapacityBoundsError
				require.True(t, errors.As(err, &bounds))
			},
		},
		{
			name: "missing certificate",
			cfg:  noCert,
			check: func(t *testing.T, err error) {
				var ce *models.ConfigurationError
				require.True(t, errors.As(err, &ce))
				assert.Equal(t, "certificateArn", ce.Field)
				var ci *models.CertificateInvalidError
				require.True(t, errors.As(err, &ci))
				assert.Equal(t, "not provided", ci.Reason)
			},
		},
		{
			name: "malformed certificate",
			cfg:  badCert,
			check: func(t *testing.T, err error) {
				var ci *models.CertificateInvalidError
				require.True(t, errors.As(err, &ci))
			},
			errContain: "not a certificate",
		},
		{
			name: "missing account",
			cfg:  noAccount,
			check: func(t *testing.T, err error) {
				var ce *models.ConfigurationError
				require.True(t, errors.As(err, &ce))
				assert.Equal(t, "account", ce.Field)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := memory.New()
			topo, err := newTestCompiler(p).Compile(context.Background(), tt.cfg)
			require.Error(t, err)
			assert.Nil(t, topo)
			tt.check(t, err)
			if tt.errContain != "" {
				assert.Contains(t, err.Error(), tt.errContain)
			}
			// validation runs before anything is looked up or created
			assert.Empty(t, p.Calls())
		})
	}
}

func TestCompileRoutingCompleteness(t *testing.T) {
	cfg := testConfig(spec("users", 30), spec("orders", 10), spec("billing", 20))
	topo, err := newTestCompiler(memory.New()).Compile(context.Background(), cfg)
	require.NoError(t, err)

	require.Len(t, topo.Router.Rules, 3)
	var priorities []int
	for _, r := range topo.Router.Rules {
		priorities = append(priorities, r.Priority)
		assert.Equal(t, topo.Router.Name, r.Router)
		assert.Equal(t, r.Priority, topo.Service(r.Service).Rule.Priority)
	}
	assert.Equal(t, []int{10, 20, 30}, priorities)

	// services keep declaration order
	assert.Equal(t, "users", topo.Services[0].Name)
	assert.Equal(t, "orders", topo.Services[1].Name)
	assert.Equal(t, "billing", topo.Services[2].Name)

	secure := topo.Router.Listener(models.ListenerSecure)
	require.NotNil(t, secure)
	assert.Equal(t, NotFound(), secure.DefaultAction)
	assert.Equal(t, testCertificate, secure.CertificateArn)
}

func TestCompileRedirectInvariant(t *testing.T) {
	for _, cfg := range []*models.Configuration{
		testConfig(usersSpec()),
		testConfig(spec("a", 1), spec("b", 2), spec("c", 3), spec("d", 4)),
	} {
		topo, err := newTestCompiler(memory.New()).Compile(context.Background(), cfg)
		require.NoError(t, err)

		public := topo.Router.Listener(models.ListenerPublic)
		require.NotNil(t, public)
		assert.Equal(t, 80, public.Port)
		assert.Equal(t, models.ActionTypeRedirect, public.DefaultAction.Type)
		assert.Equal(t, &models.RedirectAction{
			Protocol:   models.ProtocolHTTPS,
			Port:       443,
			Host:       "#{host}",
			Path:       "/#{path}",
			Query:      "#{query}",
			StatusCode: 301,
		}, public.DefaultAction.Redirect)
		for _, r := range topo.Router.Rules {
			assert.NotEqual(t, models.ListenerPublic, r.Listener)
		}
	}
}

func TestCompileScalingCompleteness(t *testing.T) {
	all := spec("all", 1)
	all.AutoScaling.TargetMemoryUtilizationPercent = intPtr(70)
	all.AutoScaling.RequestsPerTarget = intPtr(500)

	none := spec("none", 2)
	none.AutoScaling.TargetCPUUtilizationPercent = nil

	topo, err := newTestCompiler(memory.New()).Compile(context.Background(), testConfig(all, none))
	require.NoError(t, err)

	policies := topo.Service("all").Scaling.Policies
	require.Len(t, policies, 3)
	assert.Equal(t, "all-cpu-scaling", policies[0].Name)
	assert.Equal(t, "all-memory-scaling", policies[1].Name)
	assert.Equal(t, "all-requests-scaling", policies[2].Name)

	assert.Empty(t, topo.Service("none").Scaling.Policies)
	require.Len(t, topo.Warnings, 1)
	assert.Contains(t, topo.Warnings[0], `"none"`)
}

func TestCompileIsDeterministic(t *testing.T) {
	specs := []models.MicroserviceSpec{spec("users", 40), spec("orders", 10), spec("billing", 30), spec("search", 20), spec("auth", 50)}

	first, err := newTestCompiler(memory.New()).Compile(context.Background(), testConfig(specs...))
	require.NoError(t, err)
	second, err := newTestCompiler(memory.New()).Compile(context.Background(), testConfig(specs...))
	require.NoError(t, err)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("repeated compile differs (-first +second):\n%s", diff)
	}

	parallel := testConfig(specs...)
	parallel.Parallelism = 4
	third, err := newTestCompiler(memory.New()).Compile(context.Background(), parallel)
	require.NoError(t, err)
	if diff := cmp.Diff(first, third); diff != "" {
		t.Errorf("parallel compile differs (-sequential +parallel):\n%s", diff)
	}
}

func TestCompileServiceFailurePolicy(t *testing.T) {
	specs := []models.MicroserviceSpec{spec("users", 10), spec("orders", 20), spec("billing", 30)}
	artifacts := WithArtifactResolver(stubArtifacts{fail: map[string]bool{"orders": true}})

	t.Run("abort all by default", func(t *testing.T) {
		topo, err := newTestCompiler(memory.New(), artifacts).Compile(context.Background(), testConfig(specs...))
		require.Error(t, err)
		assert.Nil(t, topo)

		var aue *models.ArtifactUnresolvableError
		require.True(t, errors.As(err, &aue))
		assert.Equal(t, "orders", aue.Service)
	})

	t.Run("continue on error", func(t *testing.T) {
		cfg := testConfig(specs...)
		cfg.ContinueOnError = true
		topo, err := newTestCompiler(memory.New(), artifacts).Compile(context.Background(), cfg)
		require.Error(t, err)
		require.NotNil(t, topo)

		agg, ok := err.(utilerrors.Aggregate)
		require.True(t, ok, "expected an aggregate, got %T", err)
		require.Len(t, agg.Errors(), 1)
		var se *models.ServiceError
		require.True(t, errors.As(agg.Errors()[0], &se))
		assert.Equal(t, "orders", se.Service)

		require.Len(t, topo.Services, 2)
		assert.Nil(t, topo.Service("orders"))
		require.Len(t, topo.Router.Rules, 2)
		assert.Equal(t, 10, topo.Router.Rules[0].Priority)
		assert.Equal(t, 30, topo.Router.Rules[1].Priority)
	})
}

func TestCompileNetworkResolution(t *testing.T) {
	t.Run("no default network", func(t *testing.T) {
		_, err := newTestCompiler(memory.New(memory.WithNetworks())).Compile(context.Background(), testConfig(usersSpec()))
		var nf *models.EnvironmentNotFoundError
		require.True(t, errors.As(err, &nf))
		assert.Equal(t, 0, nf.Matches)
	})

	t.Run("lookup failure", func(t *testing.T) {
		boom := errors.New("throttled")
		_, err := newTestCompiler(memory.New(memory.WithNetworkError(boom))).Compile(context.Background(), testConfig(usersSpec()))
		require.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "resolve default network")
	})
}

// namingPlatform rejects every topology on top of the memory platform.
type namingPlatform struct {
	*memory.Platform
	err     error
	checked *models.Topology
}

func (p *namingPlatform) CheckTopology(topology *models.Topology) error {
	p.checked = topology
	return p.err
}

func TestCompilePlatformTopologyCheck(t *testing.T) {
	clash := errors.New("target group names collide")
	p := &namingPlatform{Platform: memory.New(), err: clash}

	topo, err := NewCompiler(p, WithLogger(quietLogger())).Compile(context.Background(), testConfig(usersSpec()))
	require.ErrorIs(t, err, clash)
	assert.Nil(t, topo)
	require.NotNil(t, p.checked)
	assert.Len(t, p.checked.Services, 1)

	p.err = nil
	topo, err = NewCompiler(p, WithLogger(quietLogger())).Compile(context.Background(), testConfig(usersSpec()))
	require.NoError(t, err)
	assert.Same(t, topo, p.checked)
}

func TestCompileCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestCompiler(memory.New()).Compile(ctx, testConfig(usersSpec()))
	require.ErrorIs(t, err, context.Canceled)
}

type recorded struct {
	topology *models.Topology
	warnings []string
	err      error
}

func (r *recorded) ObserveCompile(topology *models.Topology, warnings []string, err error, _ time.Duration) {
	r.topology, r.warnings, r.err = topology, warnings, err
}

func TestCompileRecorder(t *testing.T) {
	rec := &recorded{}
	topo, err := newTestCompiler(memory.New(), WithRecorder(rec)).Compile(context.Background(), testConfig(usersSpec()))
	require.NoError(t, err)
	assert.Same(t, topo, rec.topology)
	assert.NoError(t, rec.err)

	rec = &recorded{}
	_, err = newTestCompiler(memory.New(), WithRecorder(rec)).Compile(context.Background(), testConfig(usersSpec(), spec("x", 10)))
	require.Error(t, err)
	assert.Nil(t, rec.topology)
	assert.Equal(t, err, rec.err)
}
