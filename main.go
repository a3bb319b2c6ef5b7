// Command bumpver updates version strings in plaintext project files.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/datawire/dlib/dlog"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/calvertools/bumpver/pkg/cliutil"
)

const toolVersion = "2024.1129"

var argparser = &cobra.Command{
	Use:     "bumpver {[flags]|SUBCOMMAND...}",
	Short:   "Automatically update version strings in plaintext files",
	Version: toolVersion,

	Args: cliutil.OnlySubcommands,
	RunE: cliutil.RunSubcommands,

	SilenceErrors: true, // main() will handle this after .ExecuteContext() returns
	SilenceUsage:  true, // our FlagErrorFunc will handle it
}

var verbosity int

func init() {
	argparser.SetFlagErrorFunc(cliutil.FlagErrorFunc)
	argparser.SetHelpTemplate(cliutil.HelpTemplate)
	argparser.PersistentFlags().CountVarP(&verbosity, "verbose", "v",
		"Control log level. -vv for debug level.")
	argparser.PersistentPreRun = func(cmd *cobra.Command, _ []string) {
		cmd.SetContext(loggerContext(cmd.Context(), verbosity))
	}
}

func loggerContext(ctx context.Context, verbosity int) context.Context {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
	})
	switch {
	case verbosity <= 0:
		logger.SetLevel(logrus.InfoLevel)
	case verbosity == 1:
		logger.SetLevel(logrus.DebugLevel)
	default:
		logger.SetLevel(logrus.TraceLevel)
	}
	return dlog.WithLogger(ctx, dlog.WrapLogrus(logger))
}

func main() {
	if err := argparser.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(argparser.ErrOrStderr(), "%s: error: %v\n", argparser.CommandPath(), err)
		os.Exit(1)
	}
}
