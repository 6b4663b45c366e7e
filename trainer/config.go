package trainer

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/regselect/pkg/errors"
	"github.com/YuminosukeSato/regselect/pkg/log"
)

// DefaultArtifactPath is where the selected model is written unless configured otherwise.
var DefaultArtifactPath = filepath.Join("artifacts", "model.gob")

// Config holds the trainer settings.
type Config struct {
	// ArtifactPath は選ばれたモデルの保存先。既存のファイルは上書きされる
	ArtifactPath string `yaml:"artifact_path"`

	// Tuning enables grid search over the default search space.
	Tuning      bool `yaml:"tuning"`
	CVFolds     int  `yaml:"cv_folds"`
	RandomState int  `yaml:"random_state"`
	NJobs       int  `yaml:"n_jobs"`

	ShowProgress bool `yaml:"show_progress"`

	// ReportPlotPath は空でなければスコアの棒グラフ（PNG など）を書き出す
	ReportPlotPath string `yaml:"report_plot_path"`

	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Output converts the logging section to the logger's output settings.
func (c LoggingConfig) Output() log.OutputConfig {
	return log.OutputConfig{
		File:       c.File,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
	}
}

// DefaultConfig returns the settings used when no config file is given.
func DefaultConfig() Config {
	return Config{
		ArtifactPath: DefaultArtifactPath,
		CVFolds:      3,
		RandomState:  42,
		Logging:      LoggingConfig{Level: "info"},
	}
}

// LoadConfig reads a YAML file on top of DefaultConfig.
func LoadConfig(filename string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(filename)
	if err != nil {
		return cfg, errors.Wrap(err, "failed to read config file")
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrap(err, "failed to parse config file")
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the settings.
func (c Config) Validate() error {
	if c.ArtifactPath == "" {
		return errors.NewValidationError("artifact_path", "must not be empty", c.ArtifactPath)
	}
	if c.CVFolds < 2 {
		return errors.NewValidationError("cv_folds", "must be at least 2", c.CVFolds)
	}
	if _, err := log.ToLogLevel(c.Logging.Level); err != nil {
		return errors.NewValidationError("logging.level", err.Error(), c.Logging.Level)
	}
	return nil
}
