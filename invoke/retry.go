/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package invoke

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
	"time"

	"github.com/chainguard-dev/clog"
)

// RetryConfig configures rate-limit retry behavior.
type RetryConfig struct {
	// MaxRetries is the maximum number of retry attempts (0 disables retry).
	MaxRetries int
	// BaseBackoff is the initial backoff duration.
	BaseBackoff time.Duration
	// MaxBackoff caps the exponential backoff.
	MaxBackoff time.Duration
	// MaxJitter is the maximum random jitter added to each backoff.
	MaxJitter time.Duration
	// RateLimitPattern is matched case-insensitively against stderr to
	// decide whether a failure is a rate limit worth retrying.
	RateLimitPattern string
}

// Validate checks that the retry configuration has valid values.
func (c RetryConfig) Validate() error {
	if c.MaxRetries < 0 {
		return errors.New("max retries cannot be negative")
	}
	if c.BaseBackoff < 0 {
		return errors.New("base backoff cannot be negative")
	}
	if c.MaxBackoff < 0 {
		return errors.New("max backoff cannot be negative")
	}
	if c.MaxJitter < 0 {
		return errors.New("max jitter cannot be negative")
	}
	return nil
}

// DefaultRetryConfig returns a configuration suited to GitHub API rate
// limits: a modest retry count with quickly growing backoff.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:       3,
		BaseBackoff:      time.Second,
		MaxBackoff:       60 * time.Second,
		MaxJitter:        time.Second,
		RateLimitPattern: "rate limit",
	}
}

// RunWithRetry executes the command, retrying with exponential backoff
// when the failure looks like a rate limit. Any other failure, or
// exhausted retries, returns the last result unmodified. Retry is meant
// for idempotent read operations only; costly or side-effecting
// invocations should go through Run.
func RunWithRetry(ctx context.Context, cfg RetryConfig, cmd Command) (Result, error) {
	var res Result
	var err error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		res, err = Run(ctx, cmd)
		if err != nil {
			return res, err
		}
		if res.ExitCode == 0 || res.TimedOut {
			return res, nil
		}
		if !isRateLimited(res.Stderr, cfg.RateLimitPattern) || attempt >= cfg.MaxRetries {
			return res, nil
		}

		// BaseBackoff * 2^attempt, capped, plus jitter.
		backoff := min(cfg.BaseBackoff<<attempt, cfg.MaxBackoff)
		var jitter time.Duration
		if cfg.MaxJitter > 0 {
			if n, rerr := rand.Int(rand.Reader, big.NewInt(int64(cfg.MaxJitter))); rerr == nil {
				jitter = time.Duration(n.Int64())
			}
		}

		clog.FromContext(ctx).With("command", cmd.Argv[0]).
			With("attempt", attempt+1).
			With("max_retries", cfg.MaxRetries).
			With("backoff", backoff+jitter).
			Warn("Rate limit hit, retrying")

		select {
		case <-ctx.Done():
			return res, ctx.Err()
		case <-time.After(backoff + jitter):
		}
	}
	return res, nil
}

func isRateLimited(stderr, pattern string) bool {
	if pattern == "" {
		return false
	}
	return strings.Contains(strings.ToLower(stderr), strings.ToLower(pattern))
}
