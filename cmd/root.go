// Package cmd is the topology command line: validate, synth, deploy and
// teardown a stack described by one configuration file.
package cmd

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ezenkico/deploy-commander/topology/models"
	"github.com/ezenkico/deploy-commander/topology/services/config"
)

// options are the persistent flags shared by every command.
type options struct {
	configPath string
	logLevel   string
	platform   string

	log *logrus.Logger
}

func NewRootCommand() *cobra.Command {
	o := &options{log: logrus.New()}

	rootCmd := &cobra.Command{
		Use:           "topology",
		Short:         "Compile and deploy a routed microservice stack",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := logrus.ParseLevel(o.logLevel)
			if err != nil {
				return err
			}
			o.log.SetLevel(level)
			o.log.SetOutput(cmd.ErrOrStderr())
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&o.configPath, "config", "f", "stack.yaml", "stack configuration file (yaml, or json by extension)")
	rootCmd.PersistentFlags().StringVar(&o.logLevel, "log-level", "info", "log level")
	rootCmd.PersistentFlags().StringVar(&o.platform, "platform", "", "override the configured platform (aws, docker, memory)")

	rootCmd.AddCommand(newValidateCommand(o))
	rootCmd.AddCommand(newSynthCommand(o))
	rootCmd.AddCommand(newDeployCommand(o))
	rootCmd.AddCommand(newTeardownCommand(o))
	return rootCmd
}

func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

// loadConfiguration reads the configuration file and applies the
// --platform override.
func (o *options) loadConfiguration() (*models.Configuration, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.platform != "" {
		cfg.Platform = o.platform
	}
	return cfg, nil
}

func (o *options) entry(cfg *models.Configuration) *logrus.Entry {
	return o.log.WithFields(logrus.Fields{"stack": cfg.StackName, "run": cfg.Run})
}

func printWarnings(cmd *cobra.Command, warnings []string) {
	for _, w := range warnings {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w)
	}
}
