/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package invoke_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"chainguard.dev/issueagent/invoke"
)

func TestRun_CapturesOutput(t *testing.T) {
	t.Parallel()
	res, err := invoke.Run(context.Background(), invoke.Command{
		Argv: []string{"sh", "-c", "echo out; echo err >&2"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := strings.TrimSpace(res.Stdout); got != "out" {
		t.Errorf("stdout = %q, want %q", got, "out")
	}
	if got := strings.TrimSpace(res.Stderr); got != "err" {
		t.Errorf("stderr = %q, want %q", got, "err")
	}
	if res.ExitCode != 0 {
		t.Errorf("exit code = %d, want 0", res.ExitCode)
	}
	if res.TimedOut {
		t.Error("TimedOut = true, want false")
	}
}

func TestRun_NonZeroExit(t *testing.T) {
	t.Parallel()
	res, err := invoke.Run(context.Background(), invoke.Command{
		Argv: []string{"sh", "-c", "exit 3"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ExitCode != 3 {
		t.Errorf("exit code = %d, want 3", res.ExitCode)
	}
}

func TestRun_TimeoutReportedNotRaised(t *testing.T) {
	t.Parallel()
	res, err := invoke.Run(context.Background(), invoke.Command{
		Argv:    []string{"sh", "-c", "echo partial; sleep 10"},
		Timeout: 100 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("timeout must not surface as an error, got: %v", err)
	}
	if !res.TimedOut {
		t.Fatal("TimedOut = false, want true")
	}
	// Partial output is preserved so callers can record it.
	if got := strings.TrimSpace(res.Stdout); got != "partial" {
		t.Errorf("stdout = %q, want %q", got, "partial")
	}
}

func TestRun_WorkingDirectory(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	res, err := invoke.Run(context.Background(), invoke.Command{
		Argv: []string{"pwd"},
		Dir:  dir,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := strings.TrimSpace(res.Stdout); !strings.HasSuffix(got, dir) {
		t.Errorf("pwd = %q, want suffix %q", got, dir)
	}
}

func TestRun_EmptyArgv(t *testing.T) {
	t.Parallel()
	if _, err := invoke.Run(context.Background(), invoke.Command{}); err == nil {
		t.Fatal("expected error for empty argv")
	}
}
