package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(i int) *int { return &i }

func TestAutoScalingSpecTargets(t *testing.T) {
	tests := []struct {
		name string
		spec AutoScalingSpec
		want []ScalingTarget
	}{
		{
			name: "none",
			spec: AutoScalingSpec{MinCapacity: 1, MaxCapacity: 1},
			want: nil,
		},
		{
			name: "cpu only",
			spec: AutoScalingSpec{MinCapacity: 1, MaxCapacity: 10, TargetCPUUtilizationPercent: intPtr(50)},
			want: []ScalingTarget{{Metric: ScalingMetricCPU, Value: 50}},
		},
		{
			name: "all three in canonical order",
			spec: AutoScalingSpec{
				MinCapacity:                    2,
				MaxCapacity:                    4,
				RequestsPerTarget:              intPtr(1000),
				TargetMemoryUtilizationPercent: intPtr(70),
				TargetCPUUtilizationPercent:    intPtr(60),
			},
			want: []ScalingTarget{
				{Metric: ScalingMetricCPU, Value: 60},
				{Metric: ScalingMetricMemory, Value: 70},
				{Metric: ScalingMetricRequests, Value: 1000},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.spec.Targets())
		})
	}
}

func TestTopologyLookups(t *testing.T) {
	topo := &Topology{
		Router: Router{Listeners: []Listener{{Name: ListenerPublic, Port: 80}, {Name: ListenerSecure, Port: 443}}},
		Services: []ServiceTopology{
			{Name: "users"},
			{Name: "orders"},
		},
	}

	require.NotNil(t, topo.Service("orders"))
	assert.Equal(t, "orders", topo.Service("orders").Name)
	assert.Nil(t, topo.Service("missing"))

	require.NotNil(t, topo.Router.Listener(ListenerSecure))
	assert.Equal(t, 443, topo.Router.Listener(ListenerSecure).Port)
	assert.Nil(t, topo.Router.Listener("other"))
}

func TestIsConfigurationError(t *testing.T) {
	err := &ServiceError{Service: "users", Step: "task shape", Err: &ConfigurationError{Field: "cpu", Reason: "must be positive"}}
	assert.True(t, IsConfigurationError(err))
	assert.False(t, IsConfigurationError(&InvalidCapacityBoundsError{Name: "users"}))
}
