/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package probe inspects a cloned project tree and guesses, from marker
// files alone, how to install its dependencies and how to run its test
// suite. Detection never executes project code; it only reads the tree.
package probe
