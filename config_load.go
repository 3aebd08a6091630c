package auditlog

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment variables overriding file values.
const (
	EnvModels         = "AUDITLOG_MODELS"
	EnvDiscards       = "AUDITLOG_DISCARDS"
	EnvRestoreMessage = "AUDITLOG_RESTORE_MESSAGE"
	EnvWatcherCreate  = "AUDITLOG_WATCHERS_CREATE"
	EnvWatcherUpdate  = "AUDITLOG_WATCHERS_UPDATE"
	EnvWatcherDelete  = "AUDITLOG_WATCHERS_DELETE"
	EnvWatcherRestore = "AUDITLOG_WATCHERS_RESTORE"
)

// LoadConfig builds a Config from DefaultConfig, an optional YAML or TOML file
// and AUDITLOG_* environment variables, in increasing order of precedence.
// An empty path skips the file.
func LoadConfig(path string) (Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := loadFile(k, path); err != nil {
			return Config{}, fmt.Errorf("auditlog: failed to load config file %s: %w", path, err)
		}
	}

	cfg := DefaultConfig()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("auditlog: failed to decode config: %w", err)
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if cfg.Messages.RestoreSoftDeleted == "" {
		cfg.Messages.RestoreSoftDeleted = DefaultRestoreMessage
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(k *koanf.Koanf, path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return k.Load(file.Provider(path), yaml.Parser())
	case ".toml":
		return k.Load(tomlProvider{path: path}, nil)
	default:
		return fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
}

// tomlProvider feeds a TOML document decoded by BurntSushi/toml into koanf.
type tomlProvider struct {
	path string
}

func (p tomlProvider) ReadBytes() ([]byte, error) {
	return os.ReadFile(p.path)
}

func (p tomlProvider) Read() (map[string]any, error) {
	var m map[string]any
	if _, err := toml.DecodeFile(p.path, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv(EnvModels); v != "" {
		cfg.Models = splitList(v)
	}
	if v := os.Getenv(EnvDiscards); v != "" {
		cfg.Discards = splitList(v)
	}
	if v := os.Getenv(EnvRestoreMessage); v != "" {
		cfg.Messages.RestoreSoftDeleted = v
	}

	flags := []struct {
		key string
		dst *bool
	}{
		{EnvWatcherCreate, &cfg.Watchers.Create},
		{EnvWatcherUpdate, &cfg.Watchers.Update},
		{EnvWatcherDelete, &cfg.Watchers.Delete},
		{EnvWatcherRestore, &cfg.Watchers.Restore},
	}
	for _, f := range flags {
		v := os.Getenv(f.key)
		if v == "" {
			continue
		}
		b, err := parseBool(v)
		if err != nil {
			return fmt.Errorf("auditlog: %s: %w", f.key, err)
		}
		*f.dst = b
	}
	return nil
}

func parseBool(v string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "yes", "on":
		return true, nil
	case "no", "off":
		return false, nil
	}
	return strconv.ParseBool(strings.TrimSpace(v))
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
