package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ezenkico/deploy-commander/topology/interfaces"
	"github.com/ezenkico/deploy-commander/topology/services/agent"
	"github.com/ezenkico/deploy-commander/topology/services/compiler"
)

func newTeardownCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "teardown",
		Short: "Remove everything a deploy of the stack created",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := o.loadConfiguration()
			if err != nil {
				return err
			}
			log := o.entry(cfg)

			p, err := selectPlatform(cfg, log)
			if err != nil {
				return err
			}
			td, ok := p.(interfaces.TearDowner)
			if !ok {
				return fmt.Errorf("platform %q does not support teardown", cfg.Platform)
			}
			if err := td.Teardown(ctx, cfg.StackName); err != nil {
				return err
			}

			comm, err := agent.NewAgentCommunicationFromEnv(os.LookupEnv)
			switch {
			case errors.Is(err, agent.ErrNotConfigured):
			case err != nil:
				return err
			default:
				if err := agent.NewReporter(comm, log).RemoveRouter(ctx, compiler.RouterName(cfg.StackName)); err != nil {
					return err
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s: torn down\n", cfg.StackName)
			return nil
		},
	}
}
