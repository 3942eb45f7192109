package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// InitConfig writes a sample configuration to the default location and
// returns its path. An existing file is kept unless force is set.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath writes a sample configuration to path, creating parent
// directories as needed.
func InitConfigToPath(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
		}
	}

	content, err := generateYAMLWithComments(GetDefaultConfig())
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

type section struct {
	key     string
	comment string
	value   any
}

// generateYAMLWithComments renders cfg section by section, each preceded
// by a comment block.
func generateYAMLWithComments(cfg *Config) (string, error) {
	sections := []section{
		{"logging", `Logging
level: DEBUG, INFO, WARN, ERROR
format: text or json
output: stdout, stderr or a file path`, cfg.Logging},
		{"metrics", `Prometheus metrics, served on /metrics while the shell runs`, cfg.Metrics},
		{"metadata", `Named metadata stores. Types:
  memory:  {max_files}
  badger:  {db_path, in_memory, block_cache_size_mb, index_cache_size_mb}
  localfs: {path, preserve_ownership}
  s3:      {bucket, region, key_prefix, endpoint, access_key_id, secret_access_key, force_path_style, max_retries}`, cfg.Metadata},
		{"shares", `Shares. layers run outermost first (worm, ratelimit).
options:
  worm.grace_period: seconds a file stays writable after its last metadata change
  ratelimit.requests_per_second / ratelimit.burst: per-connection open rate (0 = unlimited)`, cfg.Shares},
	}

	var b strings.Builder
	b.WriteString("# wormfs Configuration File\n")
	b.WriteString("#\n# Environment variables override file values: WORMFS_LOGGING_LEVEL=DEBUG\n\n")

	for _, s := range sections {
		for _, line := range strings.Split(s.comment, "\n") {
			b.WriteString("# " + line + "\n")
		}

		out, err := yaml.Marshal(map[string]any{s.key: s.value})
		if err != nil {
			return "", fmt.Errorf("failed to marshal %s: %w", s.key, err)
		}
		b.Write(out)
		b.WriteString("\n")
	}

	return b.String(), nil
}
