package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ezenkico/deploy-commander/topology/models"
	"github.com/ezenkico/deploy-commander/topology/services/agent"
	"github.com/ezenkico/deploy-commander/topology/services/compiler"
	"github.com/ezenkico/deploy-commander/topology/services/metrics"
)

// accountVerifier is implemented by platforms that can check which
// account their credentials belong to.
type accountVerifier interface {
	VerifyAccount(ctx context.Context, account string) error
}

func newDeployCommand(o *options) *cobra.Command {
	var metricsFile string

	deployCmd := &cobra.Command{
		Use:   "deploy",
		Short: "Compile the configuration and create it on the platform",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := o.loadConfiguration()
			if err != nil {
				return err
			}
			log := o.entry(cfg)

			m := metrics.NewBuildMetrics(cfg.StackName)
			if metricsFile != "" {
				defer func() {
					if werr := m.WriteTextfile(metricsFile); werr != nil {
						log.WithError(werr).Error("failed to write metrics")
					}
				}()
			}

			p, err := selectPlatform(cfg, log)
			if err != nil {
				return err
			}
			if v, ok := p.(accountVerifier); ok {
				if err := v.VerifyAccount(ctx, cfg.Account); err != nil {
					return err
				}
			}

			topology, compileErr := compiler.NewCompiler(p,
				compiler.WithLogger(log),
				compiler.WithRecorder(m),
			).Compile(ctx, cfg)
			if topology == nil {
				return compileErr
			}
			if compileErr != nil {
				log.WithError(compileErr).Warn("deploying partial topology")
			}

			if err := compiler.Deploy(ctx, p, topology, log, m); err != nil {
				return err
			}

			if err := report(ctx, topology, cfg.Platform, log); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			keys := make([]string, 0, len(topology.Outputs))
			for k := range topology.Outputs {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(out, "%s = %s\n", k, topology.Outputs[k])
			}
			return compileErr
		},
	}

	deployCmd.Flags().StringVar(&metricsFile, "metrics-file", "", "write build metrics in the prometheus text format to this file")
	return deployCmd
}

// report registers the router with the agent when AGENT_ENDPOINT is set.
func report(ctx context.Context, topology *models.Topology, platform string, log *logrus.Entry) error {
	comm, err := agent.NewAgentCommunicationFromEnv(os.LookupEnv)
	if errors.Is(err, agent.ErrNotConfigured) {
		return nil
	}
	if err != nil {
		return err
	}
	_, err = agent.NewReporter(comm, log).ReportRouter(ctx, topology, platform)
	return err
}
