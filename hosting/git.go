/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package hosting

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chainguard-dev/clog"
	git "github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"golang.org/x/oauth2"
)

const forkRemoteName = "fork"

// Git performs clone/branch/commit/push operations for attempt
// workspaces, authenticating pushes with the shared token source.
type Git struct {
	tokenSource oauth2.TokenSource
	identity    string
	cloneDepth  int
}

// GitOption configures a Git.
type GitOption func(*Git)

// WithCloneDepth limits clones to the most recent n commits. Zero means
// a full clone.
func WithCloneDepth(n int) GitOption {
	return func(g *Git) { g.cloneDepth = n }
}

// NewGit constructs a Git helper. Identity is used as the commit author
// name and, when it lacks a domain, suffixed with @users.noreply.github.com.
func NewGit(tokenSource oauth2.TokenSource, identity string, opts ...GitOption) (*Git, error) {
	if tokenSource == nil {
		return nil, errors.New("token source cannot be nil")
	}
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return nil, errors.New("identity cannot be empty")
	}
	g := &Git{tokenSource: tokenSource, identity: identity}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Clone performs a depth-limited single-branch clone of url into dir.
func (g *Git) Clone(ctx context.Context, url, dir string) (*git.Repository, error) {
	clog.FromContext(ctx).Infof("Cloning %s into %s", url, dir)
	auth, err := g.auth()
	if err != nil {
		return nil, err
	}
	repo, err := git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
		URL:          url,
		Depth:        g.cloneDepth,
		SingleBranch: true,
		Auth:         auth,
	})
	if err != nil {
		return nil, fmt.Errorf("cloning %s: %w", url, err)
	}
	return repo, nil
}

// CreateBranch creates branchName at HEAD and checks it out.
func (g *Git) CreateBranch(repo *git.Repository, branchName string) error {
	if branchName == "" {
		return errors.New("branch name cannot be empty")
	}
	head, err := repo.Head()
	if err != nil {
		return fmt.Errorf("getting HEAD: %w", err)
	}
	refName := plumbing.NewBranchReferenceName(branchName)
	if err := repo.Storer.SetReference(plumbing.NewHashReference(refName, head.Hash())); err != nil {
		return fmt.Errorf("setting branch reference: %w", err)
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("getting worktree: %w", err)
	}
	if err := worktree.Checkout(&git.CheckoutOptions{Branch: refName}); err != nil {
		return fmt.Errorf("checking out branch: %w", err)
	}
	return nil
}

// HasChanges reports whether the working tree differs from HEAD.
func (g *Git) HasChanges(repo *git.Repository) (bool, error) {
	worktree, err := repo.Worktree()
	if err != nil {
		return false, fmt.Errorf("getting worktree: %w", err)
	}
	status, err := worktree.Status()
	if err != nil {
		return false, fmt.Errorf("getting worktree status: %w", err)
	}
	return !status.IsClean(), nil
}

// CommitAll stages every change in the working tree and commits it.
func (g *Git) CommitAll(repo *git.Repository, message string) error {
	if message == "" {
		return errors.New("commit message cannot be empty")
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("getting worktree: %w", err)
	}
	if err := worktree.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return fmt.Errorf("staging changes: %w", err)
	}

	email := g.identity
	if !strings.Contains(email, "@") {
		email = g.identity + "@users.noreply.github.com"
	}
	if _, err := worktree.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  g.identity,
			Email: email,
			When:  time.Now(),
		},
	}); err != nil {
		return fmt.Errorf("committing: %w", err)
	}
	return nil
}

// PushBranch pushes branchName to the fork remote, creating the remote
// pointed at forkURL if it does not exist yet.
func (g *Git) PushBranch(ctx context.Context, repo *git.Repository, forkURL, branchName string) error {
	log := clog.FromContext(ctx)

	if _, err := repo.Remote(forkRemoteName); err != nil {
		if !errors.Is(err, git.ErrRemoteNotFound) {
			return fmt.Errorf("getting fork remote: %w", err)
		}
		if _, err := repo.CreateRemote(&gitconfig.RemoteConfig{
			Name: forkRemoteName,
			URLs: []string{forkURL},
		}); err != nil {
			return fmt.Errorf("creating fork remote: %w", err)
		}
	}

	auth, err := g.auth()
	if err != nil {
		return err
	}
	refSpec := gitconfig.RefSpec(fmt.Sprintf("refs/heads/%s:refs/heads/%s", branchName, branchName))
	log.Infof("Pushing %s to %s", refSpec, forkRemoteName)
	if err := repo.PushContext(ctx, &git.PushOptions{
		RemoteName: forkRemoteName,
		RefSpecs:   []gitconfig.RefSpec{refSpec},
		Auth:       auth,
	}); err != nil {
		if errors.Is(err, git.NoErrAlreadyUpToDate) {
			log.Info("Branch already up to date")
			return nil
		}
		return fmt.Errorf("pushing branch: %w", err)
	}
	return nil
}

func (g *Git) auth() (*githttp.BasicAuth, error) {
	token, err := g.tokenSource.Token()
	if err != nil {
		return nil, fmt.Errorf("getting token: %w", err)
	}
	return &githttp.BasicAuth{
		Username: "unused-when-using-access-tokens",
		Password: token.AccessToken,
	}, nil
}
