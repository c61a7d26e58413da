// Package config loads and validates dbsync job files.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Endpoint names one database: the driver to open it with and its DSN.
type Endpoint struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// Filter is an optional raw predicate scoping a table sync, e.g. a tenant
// condition. Args bind positionally to '?' placeholders in Where.
type Filter struct {
	Where string `yaml:"where"`
	Args  []any  `yaml:"args"`
}

// Table selects one table to reconcile.
type Table struct {
	Schema string  `yaml:"schema"`
	Name   string  `yaml:"name"`
	Filter *Filter `yaml:"filter"`
	// SourceHash/TargetHash override the fingerprint aggregate per side.
	// Required for cross-dialect jobs.
	SourceHash string `yaml:"sourceHash"`
	TargetHash string `yaml:"targetHash"`
	// Columns restricts the compared column set; empty compares all.
	Columns []string `yaml:"columns"`
}

// Config is a whole sync job.
type Config struct {
	Source    Endpoint `yaml:"source"`
	Target    Endpoint `yaml:"target"`
	Tables    []Table  `yaml:"tables"`
	ChunkSize int      `yaml:"chunkSize"`
	Workers   int      `yaml:"workers"`
	DryRun    bool     `yaml:"dryRun"`
}

// Load reads, defaults and validates a job file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.ChunkSize == 0 {
		c.ChunkSize = 1000
	}
	if c.Workers == 0 {
		c.Workers = 4
	}
}

var knownDrivers = map[string]bool{
	"sqlite": true,
	"duckdb": true,
}

// Validate fails fast on anything that would otherwise surface as a
// confusing mid-run error.
func (c *Config) Validate() error {
	if err := c.Source.validate("source"); err != nil {
		return err
	}
	if err := c.Target.validate("target"); err != nil {
		return err
	}
	if len(c.Tables) == 0 {
		return fmt.Errorf("config: no tables to sync")
	}
	for i, t := range c.Tables {
		if t.Name == "" {
			return fmt.Errorf("config: tables[%d]: name is required", i)
		}
		if (t.SourceHash == "") != (t.TargetHash == "") {
			return fmt.Errorf("config: table %s: sourceHash and targetHash must be set together", t.Name)
		}
		if t.Filter != nil && t.Filter.Where == "" {
			return fmt.Errorf("config: table %s: filter.where is required when filter is set", t.Name)
		}
	}
	if c.ChunkSize < 1 {
		return fmt.Errorf("config: chunkSize must be positive, got %d", c.ChunkSize)
	}
	if c.Workers < 1 {
		return fmt.Errorf("config: workers must be positive, got %d", c.Workers)
	}
	return nil
}

func (e Endpoint) validate(side string) error {
	if e.Driver == "" {
		return fmt.Errorf("config: %s.driver is required", side)
	}
	if !knownDrivers[e.Driver] {
		return fmt.Errorf("config: %s.driver %q is not supported", side, e.Driver)
	}
	if e.DSN == "" {
		return fmt.Errorf("config: %s.dsn is required", side)
	}
	return nil
}
