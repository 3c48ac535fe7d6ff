/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"context"
	"fmt"
	"os/exec"

	"golang.org/x/oauth2"

	"chainguard.dev/issueagent/agent"
	"chainguard.dev/issueagent/agent/api"
	"chainguard.dev/issueagent/config"
	"chainguard.dev/issueagent/hosting"
	"chainguard.dev/issueagent/metrics"
	"chainguard.dev/issueagent/pipeline"
	"chainguard.dev/issueagent/store"
	"chainguard.dev/issueagent/workspace"
)

// deps holds the wired components shared across subcommands.
type deps struct {
	cfg     *config.Config
	store   *store.Store
	host    *hosting.Client
	git     *hosting.Git
	ws      *workspace.Manager
	metrics *metrics.Pipeline
	cli     *agent.CLI
}

// buildDeps constructs everything a subcommand needs. Commands that
// only read the local database pass needToken=false and get no hosting
// client.
func buildDeps(ctx context.Context, cfg *config.Config, needToken bool) (*deps, error) {
	d := &deps{
		cfg:     cfg,
		metrics: metrics.NewPipeline("issueagent"),
	}

	st, err := store.Open(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	d.store = st

	if needToken {
		if cfg.GitHubToken == "" {
			st.Close()
			return nil, &pipeline.PrerequisiteError{
				Tool:   "github",
				Reason: "no token; set GITHUB_TOKEN or github_token in the config file",
			}
		}
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.GitHubToken})

		host, err := hosting.NewClient(ctx, ts)
		if err != nil {
			st.Close()
			return nil, err
		}
		d.host = host

		git, err := hosting.NewGit(ts, cfg.Identity, hosting.WithCloneDepth(cfg.CloneDepth))
		if err != nil {
			st.Close()
			return nil, err
		}
		d.git = git

		ws, err := workspace.NewManager(cfg.WorkspaceDir)
		if err != nil {
			st.Close()
			return nil, err
		}
		d.ws = ws
	}

	cli, err := agent.NewCLI(agent.WithBinary(cfg.Agent.Binary))
	if err != nil {
		st.Close()
		return nil, err
	}
	d.cli = cli

	return d, nil
}

func (d *deps) Close() {
	if d.store != nil {
		d.store.Close()
	}
}

// checkPrerequisites verifies the external tools the fix loop needs.
func (d *deps) checkPrerequisites(ctx context.Context) error {
	if _, err := exec.LookPath("git"); err != nil {
		return &pipeline.PrerequisiteError{Tool: "git", Reason: "not found on PATH"}
	}
	if err := d.cli.CheckInstalled(ctx); err != nil {
		return &pipeline.PrerequisiteError{Tool: d.cfg.Agent.Binary, Reason: err.Error()}
	}
	return nil
}

// analysisAgent picks the backend for the triage stage. The direct
// Messages API skips the CLI subprocess per issue.
func (d *deps) analysisAgent(useAPI bool) agent.Interface {
	if useAPI {
		return api.New()
	}
	return d.cli
}

// orchestrator wires the full pipeline.
func (d *deps) orchestrator(useAPIAnalysis bool) *pipeline.Orchestrator {
	return pipeline.NewOrchestrator(
		pipeline.NewScanner(d.host, d.store, d.cfg.Scan),
		pipeline.NewAnalyzer(d.analysisAgent(useAPIAnalysis), d.store, d.cfg.Agent, d.cfg.Budget, d.metrics),
		pipeline.NewResolver(d.cli, d.store, d.ws, d.host, d.git, d.cfg, d.metrics),
		d.store, d.cfg)
}
