/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/sethvargo/go-envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix namespaces the environment variable overlay.
const EnvPrefix = "ISSUEAGENT_"

// Config is the full pipeline configuration.
type Config struct {
	// GitHubToken authenticates API calls, clones, and pushes. Falls
	// back to GITHUB_TOKEN when unset.
	GitHubToken string `yaml:"github_token" env:"GITHUB_TOKEN, overwrite"`

	// Identity is the commit author and fork owner display name.
	Identity string `yaml:"identity" env:"IDENTITY, overwrite"`

	DatabasePath string `yaml:"database_path" env:"DATABASE_PATH, overwrite"`
	WorkspaceDir string `yaml:"workspace_dir" env:"WORKSPACE_DIR, overwrite"`

	// DryRun stops the pipeline before pushing branches or opening PRs.
	DryRun bool `yaml:"dry_run" env:"DRY_RUN, overwrite"`

	Scan   Scan   `yaml:"scan" env:", prefix=SCAN_"`
	Agent  Agent  `yaml:"agent" env:", prefix=AGENT_"`
	Budget Budget `yaml:"budget" env:", prefix=BUDGET_"`

	// MaxIssuesPerRun caps how many issues one run may attempt.
	MaxIssuesPerRun int `yaml:"max_issues_per_run" env:"MAX_ISSUES_PER_RUN, overwrite"`

	// RateDelay is the pause between consecutive issue resolutions.
	RateDelay time.Duration `yaml:"rate_delay" env:"RATE_DELAY, overwrite"`

	// CloneDepth limits clone history; zero means full clones.
	CloneDepth int `yaml:"clone_depth" env:"CLONE_DEPTH, overwrite"`
}

// Scan configures issue discovery.
type Scan struct {
	Labels     []string `yaml:"labels" env:"LABELS, overwrite"`
	Languages  []string `yaml:"languages" env:"LANGUAGES, overwrite"`
	MinStars   int      `yaml:"min_stars" env:"MIN_STARS, overwrite"`
	MaxAgeDays int      `yaml:"max_age_days" env:"MAX_AGE_DAYS, overwrite"`
	Repos      []string `yaml:"repos" env:"REPOS, overwrite"`
	PerQuery   int      `yaml:"per_query" env:"PER_QUERY, overwrite"`
}

// Agent configures the coding agent CLI.
type Agent struct {
	Binary           string        `yaml:"binary" env:"BINARY, overwrite"`
	Model            string        `yaml:"model" env:"MODEL, overwrite"`
	AnalysisModel    string        `yaml:"analysis_model" env:"ANALYSIS_MODEL, overwrite"`
	MaxTurns         int           `yaml:"max_turns" env:"MAX_TURNS, overwrite"`
	AnalysisMaxTurns int           `yaml:"analysis_max_turns" env:"ANALYSIS_MAX_TURNS, overwrite"`
	Timeout          time.Duration `yaml:"timeout" env:"TIMEOUT, overwrite"`
}

// Budget caps agent spend in US dollars.
type Budget struct {
	AnalysisUSD   float64 `yaml:"analysis_usd" env:"ANALYSIS_USD, overwrite"`
	ResolutionUSD float64 `yaml:"resolution_usd" env:"RESOLUTION_USD, overwrite"`
	SessionUSD    float64 `yaml:"session_usd" env:"SESSION_USD, overwrite"`
}

// Default returns the built-in configuration.
func Default() *Config {
	home, _ := os.UserHomeDir()
	dataDir := filepath.Join(home, ".local", "share", "issueagent")
	return &Config{
		Identity:     "issueagent",
		DatabasePath: filepath.Join(dataDir, "issues.db"),
		WorkspaceDir: filepath.Join(dataDir, "workspaces"),
		Scan: Scan{
			Labels:     []string{"good first issue"},
			Languages:  []string{"python"},
			MinStars:   20,
			MaxAgeDays: 365,
			PerQuery:   30,
		},
		Agent: Agent{
			Binary:           "claude",
			Model:            "opus",
			AnalysisModel:    "haiku",
			MaxTurns:         50,
			AnalysisMaxTurns: 1,
			Timeout:          600 * time.Second,
		},
		Budget: Budget{
			AnalysisUSD:   0.50,
			ResolutionUSD: 5.00,
			SessionUSD:    25.00,
		},
		MaxIssuesPerRun: 5,
		RateDelay:       10 * time.Second,
		CloneDepth:      50,
	}
}

// Load builds the effective configuration. An explicit path wins; an
// empty path falls back to discovery, and a missing discovered file is
// not an error.
func Load(ctx context.Context, path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = discover()
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config %s: %w", path, err)
			}
			clog.FromContext(ctx).With("path", path).Debug("loaded config file")
		case explicit:
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   cfg,
		Lookuper: envconfig.PrefixLookuper(EnvPrefix, envconfig.OsLookuper()),
	}); err != nil {
		return nil, fmt.Errorf("processing environment: %w", err)
	}
	if cfg.GitHubToken == "" {
		cfg.GitHubToken = os.Getenv("GITHUB_TOKEN")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// discover returns the first config file found in the conventional
// locations, or empty when none exist.
func discover() string {
	if p := os.Getenv(EnvPrefix + "CONFIG"); p != "" {
		return p
	}
	if _, err := os.Stat("issueagent.yaml"); err == nil {
		return "issueagent.yaml"
	}
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configDir = filepath.Join(home, ".config")
	}
	p := filepath.Join(configDir, "issueagent", "config.yaml")
	if _, err := os.Stat(p); err == nil {
		return p
	}
	return ""
}

// Validate checks internal consistency.
func (c *Config) Validate() error {
	switch {
	case c.DatabasePath == "":
		return errors.New("database_path is required")
	case c.WorkspaceDir == "":
		return errors.New("workspace_dir is required")
	case c.MaxIssuesPerRun <= 0:
		return fmt.Errorf("max_issues_per_run must be positive, got %d", c.MaxIssuesPerRun)
	case c.Agent.Binary == "":
		return errors.New("agent.binary is required")
	case c.Agent.MaxTurns <= 0:
		return fmt.Errorf("agent.max_turns must be positive, got %d", c.Agent.MaxTurns)
	case c.Agent.Timeout <= 0:
		return fmt.Errorf("agent.timeout must be positive, got %v", c.Agent.Timeout)
	case c.Budget.AnalysisUSD <= 0:
		return fmt.Errorf("budget.analysis_usd must be positive, got %v", c.Budget.AnalysisUSD)
	case c.Budget.ResolutionUSD <= 0:
		return fmt.Errorf("budget.resolution_usd must be positive, got %v", c.Budget.ResolutionUSD)
	case c.Budget.SessionUSD <= 0:
		// A session cap below one full analyze-plus-resolve cycle is
		// legitimate: the run stops as soon as spend reaches it.
		return fmt.Errorf("budget.session_usd must be positive, got %v", c.Budget.SessionUSD)
	case c.RateDelay < 0:
		return fmt.Errorf("rate_delay cannot be negative, got %v", c.RateDelay)
	case c.CloneDepth < 0:
		return fmt.Errorf("clone_depth cannot be negative, got %d", c.CloneDepth)
	}
	return nil
}
