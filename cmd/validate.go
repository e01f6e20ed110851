package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ezenkico/deploy-commander/topology/services/compiler"
)

func newValidateCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration without touching any platform",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := o.loadConfiguration()
			if err != nil {
				return err
			}
			warnings, err := compiler.Validate(cfg)
			printWarnings(cmd, warnings)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d services valid\n", cfg.StackName, len(cfg.Microservices))
			return nil
		},
	}
}
