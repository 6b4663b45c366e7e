package main

import (
	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/regselect/pkg/log"
)

type rootOptions struct {
	logLevel string
	logFile  string
}

// NewRootCmd builds the regselect command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:          "regselect",
		Short:        "Select, persist and apply the best regression model",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&opts.logFile, "log-file", "", "write logs to a rotated file instead of stderr")

	cmd.AddCommand(newTrainCmd(opts), newPredictCmd(opts))
	return cmd
}

// setupLogging は設定ファイルの値をフラグで上書きしてロガーを設定する
func (o *rootOptions) setupLogging(out log.OutputConfig, level string) error {
	if o.logLevel != "" {
		level = o.logLevel
	}
	if o.logFile != "" {
		out.File = o.logFile
	}
	return log.SetupLogger(level, out)
}
