/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"chainguard.dev/issueagent/config"
)

func TestDefaultsValidate(t *testing.T) {
	if err := config.Default().Validate(); err != nil {
		t.Fatalf("default config is invalid: %v", err)
	}
}

func TestLoadLayering(t *testing.T) {
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(`
identity: fixbot
scan:
  labels: ["help wanted"]
  min_stars: 100
budget:
  resolution_usd: 3.50
`), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("ISSUEAGENT_SCAN_MIN_STARS", "250")
	t.Setenv("ISSUEAGENT_AGENT_TIMEOUT", "5m")

	cfg, err := config.Load(ctx, path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	// From the file.
	if cfg.Identity != "fixbot" {
		t.Errorf("identity = %q, want fixbot", cfg.Identity)
	}
	if len(cfg.Scan.Labels) != 1 || cfg.Scan.Labels[0] != "help wanted" {
		t.Errorf("labels = %v", cfg.Scan.Labels)
	}
	if cfg.Budget.ResolutionUSD != 3.50 {
		t.Errorf("resolution budget = %v, want 3.50", cfg.Budget.ResolutionUSD)
	}

	// Environment beats the file.
	if cfg.Scan.MinStars != 250 {
		t.Errorf("min_stars = %d, want 250 (env overlay)", cfg.Scan.MinStars)
	}
	if cfg.Agent.Timeout != 5*time.Minute {
		t.Errorf("timeout = %v, want 5m (env overlay)", cfg.Agent.Timeout)
	}

	// Untouched values keep defaults.
	if cfg.Agent.Model != "opus" {
		t.Errorf("model = %q, want default opus", cfg.Agent.Model)
	}
	if cfg.MaxIssuesPerRun != 5 {
		t.Errorf("max_issues_per_run = %d, want default 5", cfg.MaxIssuesPerRun)
	}
}

func TestLoadGitHubTokenFallback(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "ghp_fallback")
	cfg, err := config.Load(context.Background(), "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GitHubToken != "ghp_fallback" {
		t.Errorf("token = %q, want GITHUB_TOKEN fallback", cfg.GitHubToken)
	}
}

func TestLoadExplicitMissingFile(t *testing.T) {
	if _, err := config.Load(context.Background(), filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("Load accepted a missing explicit config file")
	}
}

// A session cap below one analyze-plus-resolve cycle is valid; the run
// stops once spend reaches it.
func TestValidateAcceptsSmallSessionBudget(t *testing.T) {
	cfg := config.Default()
	cfg.Budget.SessionUSD = 1.00
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() rejected a small session budget: %v", err)
	}
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"zero max issues", func(c *config.Config) { c.MaxIssuesPerRun = 0 }},
		{"empty database path", func(c *config.Config) { c.DatabasePath = "" }},
		{"zero analysis budget", func(c *config.Config) { c.Budget.AnalysisUSD = 0 }},
		{"zero session budget", func(c *config.Config) { c.Budget.SessionUSD = 0 }},
		{"negative rate delay", func(c *config.Config) { c.RateDelay = -time.Second }},
		{"empty agent binary", func(c *config.Config) { c.Agent.Binary = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() accepted an invalid config")
			}
		})
	}
}
