// Package metrics counts what one compile and deploy produced. The values
// are written to a node-exporter textfile at the end of a run.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ezenkico/deploy-commander/topology/models"
)

const (
	resultLabel = "result"
	metricLabel = "metric"
	stepLabel   = "step"

	resultSuccess = "success"
	resultError   = "error"
)

type BuildMetrics struct {
	registry *prometheus.Registry

	compiles       *prometheus.CounterVec
	compileSeconds prometheus.Histogram
	services       prometheus.Gauge
	rules          prometheus.Gauge
	policies       *prometheus.GaugeVec
	warnings       prometheus.Gauge
	deploySteps    *prometheus.CounterVec
}

func NewBuildMetrics(stack string) *BuildMetrics {
	constLabels := prometheus.Labels{"stack": stack}
	m := &BuildMetrics{
		registry: prometheus.NewRegistry(),
		compiles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "topology_compiles_total",
			Help:        "Topology compiles by result.",
			ConstLabels: constLabels,
		}, []string{resultLabel}),
		compileSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "topology_compile_duration_seconds",
			Help:        "Time spent compiling the topology.",
			ConstLabels: constLabels,
			Buckets:     prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		services: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "topology_services",
			Help:        "Services in the last compiled topology.",
			ConstLabels: constLabels,
		}),
		rules: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "topology_routing_rules",
			Help:        "Routing rules attached to the shared router.",
			ConstLabels: constLabels,
		}),
		policies: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "topology_scaling_policies",
			Help:        "Scaling policies by tracked metric.",
			ConstLabels: constLabels,
		}, []string{metricLabel}),
		warnings: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "topology_warnings",
			Help:        "Non-fatal validation warnings.",
			ConstLabels: constLabels,
		}),
		deploySteps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "topology_deploy_steps_total",
			Help:        "Platform steps run during deploy by step and result.",
			ConstLabels: constLabels,
		}, []string{stepLabel, resultLabel}),
	}
	m.registry.MustRegister(m.compiles, m.compileSeconds, m.services, m.rules, m.policies, m.warnings, m.deploySteps)
	return m
}

func result(err error) string {
	if err != nil {
		return resultError
	}
	return resultSuccess
}

func (m *BuildMetrics) ObserveCompile(topology *models.Topology, warnings []string, err error, elapsed time.Duration) {
	m.compiles.WithLabelValues(result(err)).Inc()
	m.compileSeconds.Observe(elapsed.Seconds())
	m.warnings.Set(float64(len(warnings)))
	if topology == nil {
		return
	}

	m.services.Set(float64(len(topology.Services)))
	m.rules.Set(float64(len(topology.Router.Rules)))
	counts := map[models.ScalingMetric]int{
		models.ScalingMetricCPU:      0,
		models.ScalingMetricMemory:   0,
		models.ScalingMetricRequests: 0,
	}
	for _, svc := range topology.Services {
		for _, p := range svc.Scaling.Policies {
			counts[p.Metric]++
		}
	}
	for metric, n := range counts {
		m.policies.WithLabelValues(string(metric)).Set(float64(n))
	}
}

func (m *BuildMetrics) ObserveDeployStep(step string, err error) {
	m.deploySteps.WithLabelValues(step, result(err)).Inc()
}

func (m *BuildMetrics) Registry() *prometheus.Registry { return m.registry }

// WriteTextfile writes every metric to path in the text exposition format.
func (m *BuildMetrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
