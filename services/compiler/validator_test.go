package compiler

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezenkico/deploy-commander/topology/models"
)

func TestValidateConfigurationFields(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(cfg *models.Configuration)
		wantField string
	}{
		{name: "valid", mutate: func(*models.Configuration) {}},
		{name: "stack", mutate: func(c *models.Configuration) { c.StackName = "" }, wantField: "stackName"},
		{name: "region", mutate: func(c *models.Configuration) { c.Region = " " }, wantField: "region"},
		{name: "parallelism", mutate: func(c *models.Configuration) { c.Parallelism = -1 }, wantField: "parallelism"},
		{name: "no services", mutate: func(c *models.Configuration) { c.Microservices = nil }, wantField: "microservices"},
		{name: "empty name", mutate: func(c *models.Configuration) { c.Microservices[0].Name = "" }, wantField: "microservices[0].name"},
		{name: "name with slash", mutate: func(c *models.Configuration) { c.Microservices[0].Name = "../etc" }, wantField: "microservices[0].name"},
		{name: "name with underscore", mutate: func(c *models.Configuration) { c.Microservices[0].Name = "user_api" }, wantField: "microservices[0].name"},
		{name: "name with capitals", mutate: func(c *models.Configuration) { c.Microservices[1].Name = "Orders" }, wantField: "microservices[1].name"},
		{name: "name ends in hyphen", mutate: func(c *models.Configuration) { c.Microservices[0].Name = "users-" }, wantField: "microservices[0].name"},
		{name: "stack with underscore", mutate: func(c *models.Configuration) { c.StackName = "my_shop" }, wantField: "stackName"},
		{name: "duplicate name", mutate: func(c *models.Configuration) { c.Microservices[1].Name = "users" }, wantField: "microservices[1].name"},
		{name: "cpu", mutate: func(c *models.Configuration) { c.Microservices[1].CPU = 0 }, wantField: "microservices[1].cpu"},
		{name: "memory", mutate: func(c *models.Configuration) { c.Microservices[0].MemoryLimitMiB = -5 }, wantField: "microservices[0].memoryLimitMiB"},
		{name: "port too large", mutate: func(c *models.Configuration) { c.Microservices[0].ContainerPort = 70000 }, wantField: "microservices[0].containerPort"},
		{name: "empty pattern", mutate: func(c *models.Configuration) { c.Microservices[0].PathPattern = "" }, wantField: "microservices[0].pathPattern"},
		{name: "priority zero", mutate: func(c *models.Configuration) { c.Microservices[0].Priority = 0 }, wantField: "microservices[0].priority"},
		{name: "priority too large", mutate: func(c *models.Configuration) { c.Microservices[0].Priority = 50001 }, wantField: "microservices[0].priority"},
		{
			name:      "cpu percent",
			mutate:    func(c *models.Configuration) { c.Microservices[0].AutoScaling.TargetCPUUtilizationPercent = intPtr(150) },
			wantField: "microservices[0].autoScaling.targetCpuUtilizationPercent",
		},
		{
			name:      "requests",
			mutate:    func(c *models.Configuration) { c.Microservices[0].AutoScaling.RequestsPerTarget = intPtr(0) },
			wantField: "microservices[0].autoScaling.requestsPerTarget",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(spec("users", 10), spec("orders", 20))
			tt.mutate(cfg)
			err := ValidateConfiguration(cfg)
			if tt.wantField == "" {
				require.NoError(t, err)
				return
			}
			var ce *models.ConfigurationError
			require.True(t, errors.As(err, &ce), "got %v", err)
			assert.Equal(t, tt.wantField, ce.Field)
			assert.Contains(t, err.Error(), tt.wantField)
		})
	}
}

func TestValidatePriorities(t *testing.T) {
	require.NoError(t, ValidatePriorities([]models.MicroserviceSpec{spec("a", 1), spec("b", 2), spec("c", 3)}))

	err := ValidatePriorities([]models.MicroserviceSpec{spec("a", 1), spec("b", 2), spec("c", 2), spec("d", 1)})
	var dup *models.DuplicateRoutingPriorityError
	require.True(t, errors.As(err, &dup))
	// first repeat in input order
	assert.Equal(t, 2, dup.Priority)
	assert.Contains(t, err.Error(), "2")
}

func TestValidateCapacity(t *testing.T) {
	tests := []struct {
		name     string
		min, max int
		wantErr  bool
	}{
		{name: "equal", min: 3, max: 3},
		{name: "range", min: 1, max: 10},
		{name: "zero min", min: 0, max: 3, wantErr: true},
		{name: "negative", min: -1, max: -1, wantErr: true},
		{name: "inverted", min: 4, max: 2, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := spec("users", 1)
			s.AutoScaling.MinCapacity, s.AutoScaling.MaxCapacity = tt.min, tt.max
			err := ValidateCapacity([]models.MicroserviceSpec{s})
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}
			var bounds *models.InvalidCapacityBoundsError
			require.True(t, errors.As(err, &bounds))
			assert.Equal(t, "users", bounds.Name)
		})
	}
}

func TestWarnings(t *testing.T) {
	static := spec("static", 5)
	static.AutoScaling.TargetCPUUtilizationPercent = nil
	static.PathPattern = "/api/users*"

	warnings, err := Validate(testConfig(spec("users", 10), static))
	require.NoError(t, err)
	require.Len(t, warnings, 2)
	assert.Contains(t, warnings[0], `service "static" declares no scaling target`)
	// static wins the shared pattern at priority 5, so users is shadowed
	assert.Contains(t, warnings[1], `service "users" is unreachable`)
}

func TestValidateTaskSizing(t *testing.T) {
	tests := []struct {
		cpu, memory int
		ok          bool
	}{
		{256, 512, true},
		{256, 2048, true},
		{256, 1536, false},
		{512, 1024, true},
		{512, 4096, true},
		{512, 5120, false},
		{1024, 3072, true},
		{1024, 1024, false},
		{4096, 30720, true},
		{8192, 20480, true},
		{8192, 18432, false},
		{300, 1024, false},
	}
	for _, tt := range tests {
		s := spec("users", 1)
		s.CPU, s.MemoryLimitMiB = tt.cpu, tt.memory
		err := ValidateTaskSizing([]models.MicroserviceSpec{s})
		if tt.ok {
			assert.NoError(t, err, "cpu=%d memory=%d", tt.cpu, tt.memory)
		} else {
			assert.True(t, models.IsConfigurationError(err), "cpu=%d memory=%d", tt.cpu, tt.memory)
		}
	}

	// only enforced when asked for
	s := spec("users", 1)
	s.CPU, s.MemoryLimitMiB = 300, 700
	cfg := testConfig(s)
	_, err := Validate(cfg)
	require.NoError(t, err)
	cfg.ValidateTaskSizing = true
	_, err = Validate(cfg)
	require.Error(t, err)
}

func TestCheckTopology(t *testing.T) {
	build := func() *models.Topology {
		r, err := NewRouter("demo", testCertificate, testNetwork)
		require.NoError(t, err)
		topo := &models.Topology{Stack: "demo"}
		for _, s := range []models.MicroserviceSpec{spec("users", 10), spec("orders", 20)} {
			rule := DeriveRoutingRule(s, r.Name())
			require.NoError(t, r.AttachRule(rule))
			scaling, err := DeriveScalingPolicies(s)
			require.NoError(t, err)
			topo.Services = append(topo.Services, models.ServiceTopology{Name: s.Name, Rule: rule, Scaling: scaling})
		}
		topo.Router = r.Model()
		return topo
	}

	require.NoError(t, CheckTopology(build()))

	tests := []struct {
		name       string
		mutate     func(t *models.Topology)
		errContain string
	}{
		{
			name:       "duplicate priority",
			mutate:     func(t *models.Topology) { t.Router.Rules[1].Priority = 10 },
			errContain: "duplicate routing priority 10",
		},
		{
			name:       "foreign router",
			mutate:     func(t *models.Topology) { t.Router.Rules[0].Router = "other" },
			errContain: "bound to other",
		},
		{
			name:       "missing default",
			mutate:     func(t *models.Topology) { t.Router.Listeners[1].DefaultAction = models.Action{Type: models.ActionTypeForward} },
			errContain: "not-found",
		},
		{
			name:       "bounds",
			mutate:     func(t *models.Topology) { t.Services[0].Scaling.MinCapacity = 20 },
			errContain: "invalid capacity bounds",
		},
		{
			name:       "orphan rule",
			mutate:     func(t *models.Topology) { t.Services = t.Services[:1] },
			errContain: "has no service",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			topo := build()
			tt.mutate(topo)
			err := CheckTopology(topo)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errContain)
		})
	}
}
