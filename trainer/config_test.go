package trainer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeFile(t, `
artifact_path: out/best.gob
tuning: true
cv_folds: 5
show_progress: true
report_plot_path: out/scores.png
logging:
  level: debug
  file: logs/regselect.log
  max_backups: 2
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "out/best.gob", cfg.ArtifactPath)
	assert.True(t, cfg.Tuning)
	assert.Equal(t, 5, cfg.CVFolds)
	assert.Equal(t, 42, cfg.RandomState, "unset keys keep their defaults")
	assert.True(t, cfg.ShowProgress)
	assert.Equal(t, "out/scores.png", cfg.ReportPlotPath)
	assert.Equal(t, "debug", cfg.Logging.Level)

	out := cfg.Logging.Output()
	assert.Equal(t, "logs/regselect.log", out.File)
	assert.Equal(t, 2, out.MaxBackups)
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad yaml", "tuning: [unclosed"},
		{"bad folds", "cv_folds: 1"},
		{"empty artifact path", `artifact_path: ""`},
		{"bad log level", "logging:\n  level: verbose"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeFile(t, tt.content))
			assert.Error(t, err)
		})
	}

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, filepath.Join("artifacts", "model.gob"), cfg.ArtifactPath)
	assert.False(t, cfg.Tuning)
	assert.Equal(t, 3, cfg.CVFolds)
}
