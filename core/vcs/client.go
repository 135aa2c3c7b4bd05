// Package vcs wraps the project's git working copy. The merge engine only
// touches it at the end of a batch, to stage resolved files and finalize
// the merge commit.
package vcs

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Common errors returned by Client operations.
var (
	ErrEmptyPath       = errors.New("repository path cannot be empty")
	ErrNotGitRepo      = errors.New("path is not a git repository")
	ErrNoHead          = errors.New("repository has no HEAD reference")
	ErrNothingResolved = errors.New("no resolved paths to complete")
	ErrPathOutsideRepo = errors.New("resolved path outside repository")
)

const (
	committerName  = "loom"
	committerEmail = "loom@localhost"
)

// Client provides thread-safe operations on the project's git repository.
type Client struct {
	repoPath      string
	repo          *gogit.Repository
	commitMessage string
	mu            sync.Mutex
	isRepo        bool
}

// NewClient creates a Client for the given repository path. A valid client
// is returned even when the path is not a git repository; completion then
// fails with ErrNotGitRepo.
func NewClient(repoPath, commitMessage string) (*Client, error) {
	if repoPath == "" {
		return nil, ErrEmptyPath
	}

	absPath, err := filepath.Abs(repoPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	client := &Client{
		repoPath:      absPath,
		commitMessage: commitMessage,
	}

	if repo, err := gogit.PlainOpen(absPath); err == nil {
		client.repo = repo
		client.isRepo = true
	}

	return client, nil
}

// RepoPath returns the repository path.
func (c *Client) RepoPath() string {
	return c.repoPath
}

// IsGitRepo returns true if the path is a git repository.
func (c *Client) IsGitRepo() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.isRepo
}

// Head returns the current HEAD commit hash.
func (c *Client) Head() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.isRepo {
		return "", ErrNotGitRepo
	}

	ref, err := c.repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return "", ErrNoHead
		}
		return "", err
	}

	return ref.Hash().String(), nil
}

// CompleteMerge stages the resolved paths and commits, finalizing the
// merge. The paths are relative to the repository root (absolute paths
// inside the repository are accepted and made relative).
func (c *Client) CompleteMerge(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return ErrNothingResolved
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.isRepo {
		return ErrNotGitRepo
	}

	worktree, err := c.repo.Worktree()
	if err != nil {
		return fmt.Errorf("worktree: %w", err)
	}

	for _, path := range paths {
		rel, err := c.relativePath(path)
		if err != nil {
			return err
		}
		if _, err := worktree.Add(rel); err != nil {
			return fmt.Errorf("stage %s: %w", rel, err)
		}
	}

	return c.commit(worktree)
}

func (c *Client) relativePath(path string) (string, error) {
	if !filepath.IsAbs(path) {
		return filepath.ToSlash(path), nil
	}

	rel, err := filepath.Rel(c.repoPath, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("%w: %s", ErrPathOutsideRepo, path)
	}
	return filepath.ToSlash(rel), nil
}

func (c *Client) commit(worktree *gogit.Worktree) error {
	message := c.commitMessage
	if message == "" {
		message = "Resolve merge conflicts"
	}

	_, err := worktree.Commit(message, &gogit.CommitOptions{
		Author: &object.Signature{
			Name:  committerName,
			Email: committerEmail,
			When:  time.Now(),
		},
	})
	if err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	return nil
}
