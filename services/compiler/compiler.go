package compiler

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/ezenkico/deploy-commander/topology/interfaces"
	"github.com/ezenkico/deploy-commander/topology/models"
)

// Recorder observes the outcome of one compile.
type Recorder interface {
	ObserveCompile(topology *models.Topology, warnings []string, err error, elapsed time.Duration)
}

// Compiler derives a Topology from a Configuration. The only external
// call it makes is the default network lookup.
type Compiler struct {
	resolver  interfaces.NetworkResolver
	artifacts ArtifactResolver
	recorder  Recorder
	log       *logrus.Entry
}

type Option func(*Compiler)

func WithLogger(log *logrus.Entry) Option {
	return func(c *Compiler) { c.log = log }
}

// WithArtifactResolver overrides the resolver derived from the configuration.
func WithArtifactResolver(r ArtifactResolver) Option {
	return func(c *Compiler) { c.artifacts = r }
}

func WithRecorder(r Recorder) Option {
	return func(c *Compiler) { c.recorder = r }
}

func NewCompiler(resolver interfaces.NetworkResolver, opts ...Option) *Compiler {
	c := &Compiler{
		resolver: resolver,
		log:      logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile validates cfg, resolves the network and derives every service.
//
// Services compile cfg.Parallelism at a time (1 when unset) and rule
// attachment is serialized on the router. By default the first service
// failure aborts the build and no topology is returned. With
// cfg.ContinueOnError the failed services are left out and the returned
// error aggregates every failure alongside the partial topology.
func (c *Compiler) Compile(ctx context.Context, cfg *models.Configuration) (topology *models.Topology, err error) {
	start := time.Now()
	var warnings []string
	defer func() {
		if c.recorder != nil {
			c.recorder.ObserveCompile(topology, warnings, err, time.Since(start))
		}
	}()

	warnings, err = Validate(cfg)
	if err != nil {
		return nil, err
	}
	log := c.log.WithField("stack", cfg.StackName)
	for _, w := range warnings {
		log.Warn(w)
	}

	network, err := ResolveNetwork(ctx, c.resolver)
	if err != nil {
		return nil, err
	}
	log.WithField("network", network.ID).Info("resolved default network")

	router, err := NewRouter(cfg.StackName, cfg.CertificateArn, network)
	if err != nil {
		return nil, err
	}
	cluster := NewCluster(cfg.StackName, network)

	artifacts := c.artifacts
	if artifacts == nil {
		artifacts = NewArtifactResolver(cfg)
	}

	parallelism := cfg.Parallelism
	if parallelism < 1 {
		parallelism = 1
	}

	results := make([]*models.ServiceTopology, len(cfg.Microservices))
	failures := make([]error, len(cfg.Microservices))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)
	for i, spec := range cfg.Microservices {
		g.Go(func() error {
			svc, err := c.compileService(gctx, cfg.StackName, spec, cluster, router, artifacts)
			if err != nil {
				if cfg.ContinueOnError {
					log.WithError(err).WithField("service", spec.Name).Error("service failed, continuing")
					failures[i] = err
					return nil
				}
				return err
			}
			results[i] = svc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	topology = &models.Topology{
		ID:       cfg.Run,
		Stack:    cfg.StackName,
		Account:  cfg.Account,
		Region:   cfg.Region,
		Network:  network,
		Router:   router.Model(),
		Cluster:  cluster,
		Services: make([]models.ServiceTopology, 0, len(results)),
		Warnings: warnings,
		Outputs:  map[string]string{},
	}
	for _, svc := range results {
		if svc != nil {
			topology.Services = append(topology.Services, *svc)
		}
	}

	if err := CheckTopology(topology); err != nil {
		return nil, err
	}
	if checker, ok := c.resolver.(interfaces.TopologyChecker); ok {
		if err := checker.CheckTopology(topology); err != nil {
			return nil, err
		}
	}
	log.WithFields(logrus.Fields{
		"services": len(topology.Services),
		"rules":    len(topology.Router.Rules),
	}).Info("compiled topology")

	var errs []error
	for _, f := range failures {
		if f != nil {
			errs = append(errs, f)
		}
	}
	return topology, utilerrors.NewAggregate(errs)
}
