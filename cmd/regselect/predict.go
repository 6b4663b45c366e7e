package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/regselect/pkg/errors"
	"github.com/YuminosukeSato/regselect/pkg/log"
	"github.com/YuminosukeSato/regselect/trainer"
)

type predictOptions struct {
	modelPath  string
	inputPath  string
	outputPath string
	header     bool
}

func newPredictCmd(root *rootOptions) *cobra.Command {
	opts := &predictOptions{}

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict with a saved artifact, one value per input row",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := root.setupLogging(log.OutputConfig{}, "info"); err != nil {
				return err
			}

			artifact, err := trainer.LoadArtifact(opts.modelPath)
			if err != nil {
				return err
			}
			X, err := readCSV(opts.inputPath, opts.header)
			if err != nil {
				return err
			}
			pred, err := artifact.Predict(X)
			if err != nil {
				return err
			}

			rows, _ := X.Dims()
			log.GetLoggerWithName("predict").Debug("Predicted",
				log.ModelNameKey, artifact.Name,
				log.RunIDKey, artifact.RunID,
				log.SamplesKey, rows,
			)

			if opts.outputPath == "" {
				return writeColumn(cmd.OutOrStdout(), pred)
			}
			f, err := os.Create(opts.outputPath)
			if err != nil {
				return errors.Wrapf(err, "failed to create %s", opts.outputPath)
			}
			if err := writeColumn(f, pred); err != nil {
				_ = f.Close()
				return err
			}
			return f.Close()
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.modelPath, "model", "m", trainer.DefaultArtifactPath, "artifact written by train")
	f.StringVar(&opts.inputPath, "input", "", "feature CSV (no target column)")
	f.StringVarP(&opts.outputPath, "output", "o", "", "prediction CSV (default stdout)")
	f.BoolVar(&opts.header, "header", false, "skip the first CSV row")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}
