package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arlojansen/kvs/internal/config"
)

func Test_Load_MissingFile_ReturnsDefaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func Test_Load_ReadsJSONC_WithCommentsAndTrailingCommas(t *testing.T) {
	dir := t.TempDir()
	body := `{
		// override the default threshold
		"compaction_threshold_bytes": 4096,
	}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.FileName), []byte(body), 0o644))

	cfg, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, int64(4096), cfg.CompactionThresholdBytes)
}

func Test_Load_RejectsNonPositiveThreshold(t *testing.T) {
	dir := t.TempDir()
	body := `{"compaction_threshold_bytes": -1}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.FileName), []byte(body), 0o644))

	_, err := config.Load(dir)
	require.Error(t, err)
}

func Test_Save_ThenLoad_RoundTrips(t *testing.T) {
	dir := t.TempDir()

	want := config.Config{CompactionThresholdBytes: 2048}
	require.NoError(t, config.Save(dir, want))

	got, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func Test_Save_RejectsNonPositiveThreshold(t *testing.T) {
	dir := t.TempDir()
	err := config.Save(dir, config.Config{CompactionThresholdBytes: 0})
	require.Error(t, err)

	_, statErr := os.Stat(filepath.Join(dir, config.FileName))
	assert.True(t, os.IsNotExist(statErr), "Save must not write a file when validation fails")
}
