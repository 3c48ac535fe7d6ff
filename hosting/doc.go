/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package hosting talks to GitHub. It wraps the REST API for issue
// discovery, forking, and pull request submission, and go-git for the
// clone/branch/commit/push cycle against attempt workspaces.
package hosting
