// Package config loads and validates the foldersync configuration file.
// The file is YAML for human editing; the embedded CUE schema supplies
// defaults and rejects malformed values with positions, so a typo fails at
// startup instead of surfacing as odd runtime behavior.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaSource string

// API configures the remote workspace client.
type API struct {
	BaseURL        string `json:"base_url"`
	Token          string `json:"token"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// Log configures the operation log.
type Log struct {
	Path           string `json:"path"`
	PruneAfterDays int    `json:"prune_after_days"`
}

// Sync configures connectivity monitoring and reconnect bounds.
type Sync struct {
	HealthIntervalSeconds      int `json:"health_interval_seconds"`
	ReconnectMaxElapsedSeconds int `json:"reconnect_max_elapsed_seconds"`
}

// Logging configures the structured logger.
type Logging struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// Config is the validated configuration with schema defaults applied.
type Config struct {
	API     API     `json:"api"`
	Log     Log     `json:"log"`
	Sync    Sync    `json:"sync"`
	Logging Logging `json:"logging"`
}

// Timeout returns the API request timeout.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

// PruneAfter returns the processed-operation retention window, or zero for
// keep-forever.
func (c Config) PruneAfter() time.Duration {
	return time.Duration(c.Log.PruneAfterDays) * 24 * time.Hour
}

// HealthInterval returns the connectivity probe cadence.
func (c Config) HealthInterval() time.Duration {
	return time.Duration(c.Sync.HealthIntervalSeconds) * time.Second
}

// Load reads, validates, and defaults the configuration at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse validates raw YAML configuration bytes against the schema.
func Parse(data []byte) (Config, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return Config{}, fmt.Errorf("compile schema: %w", err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Config")).Unify(ctx.Encode(raw))
	if err := unified.Validate(cue.Concrete(true), cue.Final()); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}

	var cfg Config
	if err := unified.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}
