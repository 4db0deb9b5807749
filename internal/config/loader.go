package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	// EnvPrefix marks the environment variables read by Load.
	EnvPrefix = "LOCUS_"

	maxConfigFileSize = 1024 * 1024 // 1MB
)

// defaults is loaded before the file so that every key has a value.
var defaults = []byte(`
vault:
  path: .
  pattern: "**/*.md"
  git: false
  read_only: false
proximity:
  threshold_meters: 3218.69
  cooldown: 60s
  moving_interval: 1m
  still_interval: 5m
budget:
  max_per_note: 5
  reset_interval: 24h
activity:
  source: ""
  watchdog: 30s
  min_confidence: 50
position:
  provider: file
  file: ~/.local/state/locus/position.json
  latitude: 0
  longitude: 0
  timeout: 30s
  max_age: 2m
  high_accuracy_max_age: 10s
notify:
  command: ""
  enabled: true
metrics:
  addr: ""
`)

// Default returns the built-in configuration, without file or environment.
func Default() *Config {
	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(defaults), yaml.Parser()); err != nil {
		panic(fmt.Sprintf("config: invalid defaults: %v", err))
	}
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		panic(fmt.Sprintf("config: invalid defaults: %v", err))
	}
	if err := expandPaths(&cfg); err != nil {
		cfg.Position.File = filepath.Join(os.TempDir(), "locus", "position.json")
	}
	return &cfg
}

// DefaultPath returns ~/.config/locus/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config", "locus", "config.yaml"), nil
}

// Load reads the configuration.
//
// Precedence (highest to lowest):
//  1. Environment variables (LOCUS_PROXIMITY_COOLDOWN, LOCUS_VAULT_PATH, ...)
//  2. YAML config file
//  3. Defaults
//
// An empty configPath uses DefaultPath. A missing file is not an error unless the
// path was given explicitly.
//
// Environment variables drop the prefix, lower-case and split on the first
// underscore:
//
//	LOCUS_PROXIMITY_THRESHOLD_METERS -> proximity.threshold_meters
//	LOCUS_POSITION_HIGH_ACCURACY_MAX_AGE -> position.high_accuracy_max_age
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(rawbytes.Provider(defaults), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	explicit := configPath != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		configPath = p
	}

	content, err := readConfigFile(configPath)
	switch {
	case err == nil:
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	case os.IsNotExist(err) && !explicit:
	default:
		return nil, err
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := expandPaths(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// envKey maps LOCUS_SECTION_FIELD_NAME to section.field_name.
func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) == 1 {
		return lower
	}
	return parts[0] + "." + parts[1]
}

func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("config path is a directory: %s", path)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}

	content, err := io.ReadAll(io.LimitReader(f, maxConfigFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return content, nil
}

// expandPaths resolves a leading ~ in path settings.
func expandPaths(cfg *Config) error {
	for _, p := range []*string{&cfg.Vault.Path, &cfg.Position.File, &cfg.Activity.Source} {
		expanded, err := expandHome(*p)
		if err != nil {
			return err
		}
		*p = expanded
	}
	return nil
}

func expandHome(p string) (string, error) {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~")), nil
}
