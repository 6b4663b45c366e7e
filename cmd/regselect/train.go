package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/regselect/trainer"
)

type trainOptions struct {
	configPath string
	trainPath  string
	testPath   string
	artifact   string
	plotPath   string
	header     bool
	tuning     bool
	progress   bool
	cvFolds    int
}

func newTrainCmd(root *rootOptions) *cobra.Command {
	opts := &trainOptions{}

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Fit every candidate, keep the best and print its test R²",
		Long: `Fits the regression catalog on the train CSV (target in the last column),
scores each candidate on the test CSV and saves the best one when its R² is at
least 0.6.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.config(cmd)
			if err != nil {
				return err
			}
			if err := root.setupLogging(cfg.Logging.Output(), cfg.Logging.Level); err != nil {
				return err
			}

			train, err := readCSV(opts.trainPath, opts.header)
			if err != nil {
				return err
			}
			test, err := readCSV(opts.testPath, opts.header)
			if err != nil {
				return err
			}

			res, err := trainer.NewModelTrainer(cfg).Train(train, test)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, e := range res.Report {
				fmt.Fprintf(out, "%-28s test_r2=%.6f train_r2=%.6f\n", e.Name, e.TestScore, e.TrainScore)
			}
			fmt.Fprintf(out, "best: %s\n", res.BestName)
			fmt.Fprintf(out, "artifact: %s\n", res.ArtifactPath)
			fmt.Fprintf(out, "r2: %.6f\n", res.Score)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.configPath, "config", "c", "", "YAML config file")
	f.StringVar(&opts.trainPath, "train", "", "train CSV, target in the last column")
	f.StringVar(&opts.testPath, "test", "", "test CSV, target in the last column")
	f.StringVarP(&opts.artifact, "artifact", "o", "", "artifact path (overrides config)")
	f.StringVar(&opts.plotPath, "plot", "", "write a score bar chart to this file")
	f.BoolVar(&opts.header, "header", false, "skip the first CSV row")
	f.BoolVar(&opts.tuning, "tuning", false, "grid search the default search space")
	f.BoolVar(&opts.progress, "progress", false, "show grid search progress")
	f.IntVar(&opts.cvFolds, "cv", 0, "cross-validation folds for grid search (overrides config)")
	_ = cmd.MarkFlagRequired("train")
	_ = cmd.MarkFlagRequired("test")

	return cmd
}

// config はファイル、既定値、フラグの順に設定を組み立てる
func (o *trainOptions) config(cmd *cobra.Command) (trainer.Config, error) {
	cfg := trainer.DefaultConfig()
	if o.configPath != "" {
		loaded, err := trainer.LoadConfig(o.configPath)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("artifact") {
		cfg.ArtifactPath = o.artifact
	}
	if flags.Changed("plot") {
		cfg.ReportPlotPath = o.plotPath
	}
	if flags.Changed("tuning") {
		cfg.Tuning = o.tuning
	}
	if flags.Changed("progress") {
		cfg.ShowProgress = o.progress
	}
	if flags.Changed("cv") {
		cfg.CVFolds = o.cvFolds
	}
	return cfg, cfg.Validate()
}
