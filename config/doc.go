/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package config loads pipeline configuration. Values layer in
// precedence order: built-in defaults, then a YAML config file, then
// ISSUEAGENT_-prefixed environment variables.
package config
