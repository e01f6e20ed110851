package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ezenkico/deploy-commander/topology/services/compiler"
)

func newSynthCommand(o *options) *cobra.Command {
	var output string

	synthCmd := &cobra.Command{
		Use:   "synth",
		Short: "Compile the configuration and print the topology",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if output != "yaml" && output != "json" {
				return fmt.Errorf("unsupported output %q (use yaml or json)", output)
			}
			cfg, err := o.loadConfiguration()
			if err != nil {
				return err
			}
			log := o.entry(cfg)
			p, err := selectPlatform(cfg, log)
			if err != nil {
				return err
			}

			topology, compileErr := compiler.NewCompiler(p, compiler.WithLogger(log)).Compile(cmd.Context(), cfg)
			if topology == nil {
				return compileErr
			}
			printWarnings(cmd, topology.Warnings)

			out := cmd.OutOrStdout()
			if output == "json" {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(topology); err != nil {
					return err
				}
			} else {
				enc := yaml.NewEncoder(out)
				enc.SetIndent(2)
				if err := enc.Encode(topology); err != nil {
					return err
				}
				if err := enc.Close(); err != nil {
					return err
				}
			}
			// partial topology in continue-on-error mode
			return compileErr
		},
	}

	synthCmd.Flags().StringVarP(&output, "output", "o", "yaml", "output format (yaml or json)")
	return synthCmd
}
