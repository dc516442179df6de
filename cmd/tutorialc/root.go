package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/tutorcast/api/internal/logging"
)

type rootOptions struct {
	logLevel string
	log      *logrus.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "tutorialc",
		Short:         "Compile and check interactive tutorial projects",
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			opts.log = logging.NewWithOutput(cmd.ErrOrStderr(), opts.logLevel, "development")
		},
	}
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(newCompileCmd(opts))
	root.AddCommand(newValidateCmd(opts))
	return root
}
