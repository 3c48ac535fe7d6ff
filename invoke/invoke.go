/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package invoke

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"time"

	"github.com/chainguard-dev/clog"
)

// Command describes one external process invocation.
type Command struct {
	// Argv is the command and its arguments. Must be non-empty.
	Argv []string
	// Dir is the working directory. Empty means the caller's cwd.
	Dir string
	// Timeout bounds the process lifetime. Zero means no timeout.
	Timeout time.Duration
	// Env is appended to the inherited environment.
	Env []string
}

// Result captures everything a completed (or killed) process produced.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	// TimedOut is set when the process was killed by the timeout. The
	// other fields still carry whatever was captured before the kill.
	TimedOut bool
}

// Run executes the command, enforcing the timeout. The returned error
// covers only failures to start the process; a non-zero exit or a
// timeout is reported through the Result.
func Run(ctx context.Context, cmd Command) (Result, error) {
	if len(cmd.Argv) == 0 {
		return Result{}, errors.New("empty argv")
	}

	runCtx := ctx
	if cmd.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, cmd.Timeout)
		defer cancel()
	}

	clog.FromContext(ctx).With("command", cmd.Argv[0]).
		With("timeout", cmd.Timeout).
		With("dir", cmd.Dir).
		Debug("Running external command")

	c := exec.CommandContext(runCtx, cmd.Argv[0], cmd.Argv[1:]...)
	c.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		c.Env = append(c.Environ(), cmd.Env...)
	}

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	err := c.Run()

	res := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if runCtx.Err() == context.DeadlineExceeded {
		res.TimedOut = true
		res.ExitCode = -1
		return res, nil
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		res.ExitCode = 0
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
	default:
		return res, err
	}
	return res, nil
}
