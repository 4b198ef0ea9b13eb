// Package cli implements the reqflow command line.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/kbukum/reqflow/version"
)

type globalOptions struct {
	configFile string
	envFile    string
	logLevel   string
}

func (g *globalOptions) load() (*Settings, error) {
	s, err := loadSettings(g.configFile, g.envFile, g.logLevel)
	if err != nil {
		return nil, usageError(err)
	}
	return s, nil
}

// NewRootCommand builds the reqflow command tree.
func NewRootCommand() *cobra.Command {
	g := &globalOptions{}

	root := &cobra.Command{
		Use:   "reqflow",
		Short: "HTTP requests with retry, timeouts and hooks",
		Long: `reqflow sends HTTP requests through a retrying execution engine.

Settings come from reqflow.yaml (or --config), an optional .env file and
REQFLOW_* environment variables, in increasing order of precedence.`,
		Version:       version.Get().Short(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError(err)
	})

	root.PersistentFlags().StringVarP(&g.configFile, "config", "c", "", "Config file path")
	root.PersistentFlags().StringVar(&g.envFile, "env-file", "", "Env file path")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Log level (trace, debug, info, warn, error, disabled)")

	root.AddCommand(
		newRequestCommand(g),
		newCheckCommand(g),
		newVersionCommand(),
	)
	return root
}
