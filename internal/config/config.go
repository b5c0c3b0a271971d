// Package config loads and persists the store's one recognized option,
// compaction_threshold_bytes, from a human-editable JSONC file — in the
// same style as calvinalkan/agent-task's ticket-directory config, down to
// the hujson-standardize-then-json.Unmarshal pipeline and the
// atomic-write-on-save discipline.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"
	"github.com/tailscale/hujson"
)

// FileName is the config file name looked for in the store directory.
const FileName = ".kvs.json"

// DefaultCompactionThreshold mirrors engine.DefaultCompactionThreshold;
// kept independent so this package never needs to import the engine.
const DefaultCompactionThreshold = 1024 * 1024

var errNonPositiveThreshold = errors.New("config: compaction_threshold_bytes must be positive")

// Config holds the one recognized option (§9 "Global compaction
// threshold").
type Config struct {
	CompactionThresholdBytes int64 `json:"compaction_threshold_bytes"`
}

// Default returns the zero-config defaults.
func Default() Config {
	return Config{CompactionThresholdBytes: DefaultCompactionThreshold}
}

// Load reads dir/.kvs.json if present, applying it on top of Default(). A
// missing file is not an error — it simply means "use the defaults",
// matching loadConfigFile's mustExist=false path in the teacher.
func Load(dir string) (Config, error) {
	cfg := Default()

	path := FileName
	data, err := os.ReadFile(joinDir(dir, path))
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, fmt.Errorf("config: invalid JSONC in %s: %w", path, err)
	}

	var onDisk Config
	if err := json.Unmarshal(standardized, &onDisk); err != nil {
		return Config{}, fmt.Errorf("config: invalid JSON in %s: %w", path, err)
	}
	if onDisk.CompactionThresholdBytes != 0 {
		cfg.CompactionThresholdBytes = onDisk.CompactionThresholdBytes
	}

	if err := validate(cfg); err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Save persists cfg to dir/.kvs.json atomically: a crash mid-write leaves
// the previous config intact rather than a half-written file, the same
// guarantee calvinalkan/agent-task's ticket and lock files get from
// atomic.WriteFile.
func Save(dir string, cfg Config) error {
	if err := validate(cfg); err != nil {
		return err
	}

	buf, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	buf = append(buf, '\n')

	if err := atomic.WriteFile(joinDir(dir, FileName), bytesReader(buf)); err != nil {
		return fmt.Errorf("config: write %s: %w", FileName, err)
	}
	return nil
}

func validate(cfg Config) error {
	if cfg.CompactionThresholdBytes <= 0 {
		return errNonPositiveThreshold
	}
	return nil
}

func joinDir(dir, name string) string {
	return filepath.Join(dir, name)
}

func bytesReader(b []byte) *bytes.Reader {
	return bytes.NewReader(b)
}
