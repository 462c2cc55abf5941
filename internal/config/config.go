package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Default values for settings a config file leaves unset.
const (
	DefaultAddr            = ":8080"
	DefaultMinContributors = 2
)

// StageConfig overrides the static settings of one stage.
type StageConfig struct {
	// Timeout is a Go duration string ("30s"). Empty keeps the default.
	Timeout string `yaml:"timeout,omitempty"`
	// Tolerant lets the stage run even when dependencies failed.
	Tolerant *bool `yaml:"tolerant,omitempty"`
	// Fallback toggles the stage's built-in fallback. Nil keeps the default.
	Fallback *bool `yaml:"fallback,omitempty"`
}

// ProjectConfig holds settings loaded from genpipe.yml.
type ProjectConfig struct {
	Addr            string                            `yaml:"addr,omitempty"`
	ArchivePath     string                            `yaml:"archivePath,omitempty"`
	MaxParallel     int                               `yaml:"maxParallel,omitempty"`
	MinContributors *int                              `yaml:"minContributors,omitempty"`
	StageTimeout    string                            `yaml:"stageTimeout,omitempty"`
	AgentLatency    string                            `yaml:"agentLatency,omitempty"`
	Verbose         bool                              `yaml:"verbose,omitempty"`
	Pipelines       map[string]map[string]StageConfig `yaml:"pipelines,omitempty"`
}

// Load reads genpipe.yml or genpipe.yaml from dir, then applies a .env file
// in dir (if any) and GENPIPE_* environment variables on top. A missing
// config file is not an error.
func Load(dir string) (*ProjectConfig, error) {
	cfg := &ProjectConfig{}
	for _, name := range []string{"genpipe.yml", "genpipe.yaml"} {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", name, err)
		}
		break
	}

	// .env never overrides variables already set in the process environment.
	if err := godotenv.Load(filepath.Join(dir, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *ProjectConfig) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("GENPIPE_ADDR"); ok && v != "" {
		c.Addr = v
	}
	if v, ok := lookup("GENPIPE_ARCHIVE"); ok {
		c.ArchivePath = v
	}
	if v, ok := lookup("GENPIPE_STAGE_TIMEOUT"); ok && v != "" {
		c.StageTimeout = v
	}
	if v, ok := lookup("GENPIPE_AGENT_LATENCY"); ok && v != "" {
		c.AgentLatency = v
	}
	if n, ok, err := lookupInt(lookup, "GENPIPE_MAX_PARALLEL"); err != nil {
		return err
	} else if ok {
		c.MaxParallel = n
	}
	if n, ok, err := lookupInt(lookup, "GENPIPE_MIN_CONTRIBUTORS"); err != nil {
		return err
	} else if ok {
		c.MinContributors = &n
	}
	if v, ok := lookup("GENPIPE_VERBOSE"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: GENPIPE_VERBOSE: %w", err)
		}
		c.Verbose = b
	}
	return nil
}

func lookupInt(lookup func(string) (string, bool), key string) (int, bool, error) {
	v, ok := lookup(key)
	if !ok || v == "" {
		return 0, false, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, false, fmt.Errorf("config: %s: %w", key, err)
	}
	return n, true, nil
}

// Validate checks durations and numeric ranges.
func (c *ProjectConfig) Validate() error {
	if c.MaxParallel < 0 {
		return fmt.Errorf("config: maxParallel must not be negative, got %d", c.MaxParallel)
	}
	if c.MinContributors != nil && *c.MinContributors < 0 {
		return fmt.Errorf("config: minContributors must not be negative, got %d", *c.MinContributors)
	}
	if _, err := parseDuration(c.StageTimeout); err != nil {
		return fmt.Errorf("config: stageTimeout: %w", err)
	}
	if _, err := parseDuration(c.AgentLatency); err != nil {
		return fmt.Errorf("config: agentLatency: %w", err)
	}
	for pipeline, stages := range c.Pipelines {
		for stage, sc := range stages {
			if _, err := parseDuration(sc.Timeout); err != nil {
				return fmt.Errorf("config: pipelines.%s.%s.timeout: %w", pipeline, stage, err)
			}
		}
	}
	return nil
}

// ListenAddr returns the HTTP listen address.
func (c *ProjectConfig) ListenAddr() string {
	if c.Addr == "" {
		return DefaultAddr
	}
	return c.Addr
}

// Contributors returns the synthesis minimum. Unset means 2; an explicit 0
// lets synthesis run on whatever contributors are usable.
func (c *ProjectConfig) Contributors() int {
	if c.MinContributors == nil {
		return DefaultMinContributors
	}
	return *c.MinContributors
}

// DefaultStageTimeout returns the configured stage timeout, or zero when the
// config leaves it unset.
func (c *ProjectConfig) DefaultStageTimeout() time.Duration {
	d, _ := parseDuration(c.StageTimeout)
	return d
}

// Latency returns the simulated generator latency.
func (c *ProjectConfig) Latency() time.Duration {
	d, _ := parseDuration(c.AgentLatency)
	return d
}

// Stage returns the overrides for one stage of one pipeline.
func (c *ProjectConfig) Stage(pipeline, stage string) StageConfig {
	return c.Pipelines[pipeline][stage]
}

// StageTimeout returns the stage's timeout override, or def when unset.
func (s StageConfig) StageTimeout(def time.Duration) time.Duration {
	d, err := parseDuration(s.Timeout)
	if err != nil || s.Timeout == "" {
		return def
	}
	return d
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %q", s)
	}
	return d, nil
}
