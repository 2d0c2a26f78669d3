// Package gitx wraps the git operations the pipeline needs.
package gitx

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Client abstracts git so the runner can be tested without a repository.
type Client interface {
	// CurrentBranch returns the branch HEAD points at.
	CurrentBranch(ctx context.Context) (string, error)

	// Head returns the commit SHA of HEAD.
	Head(ctx context.Context) (string, error)

	// Checkout makes the working directory match branch at its remote
	// tip, cloning from remoteURL on first use.
	Checkout(ctx context.Context, remoteURL, branch string) error

	// PushBranch force-updates branch on the given remote URL.
	PushBranch(ctx context.Context, remoteURL, branch string) error
}

// ExecClient implements Client by shelling out to git.
type ExecClient struct {
	// Dir is the repository working directory.
	Dir string
}

// NewExecClient creates an ExecClient rooted at dir.
func NewExecClient(dir string) *ExecClient {
	return &ExecClient{Dir: dir}
}

func (c *ExecClient) git(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = c.Dir
	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("git %s failed: %w\noutput: %s",
			strings.Join(args, " "), err, string(output))
	}
	return strings.TrimSpace(string(output)), nil
}

// CurrentBranch returns the branch HEAD points at.
func (c *ExecClient) CurrentBranch(ctx context.Context) (string, error) {
	return c.git(ctx, "rev-parse", "--abbrev-ref", "HEAD")
}

// Head returns the commit SHA of HEAD.
func (c *ExecClient) Head(ctx context.Context) (string, error) {
	return c.git(ctx, "rev-parse", "HEAD")
}

// Checkout clones remoteURL into the working directory on first use,
// then fetches and hard-resets branch to its remote tip.
func (c *ExecClient) Checkout(ctx context.Context, remoteURL, branch string) error {
	if !c.isRepo(ctx) {
		cmd := exec.CommandContext(ctx, "git", "clone", "--branch", branch, remoteURL, c.Dir)
		output, err := cmd.CombinedOutput()
		if err != nil {
			return fmt.Errorf("git clone failed: %w\noutput: %s", err, string(output))
		}
		return nil
	}

	if _, err := c.git(ctx, "fetch", remoteURL, branch); err != nil {
		return err
	}
	if _, err := c.git(ctx, "checkout", branch); err != nil {
		return err
	}
	_, err := c.git(ctx, "reset", "--hard", "FETCH_HEAD")
	return err
}

// PushBranch force-updates branch on the remote, mirror-style.
func (c *ExecClient) PushBranch(ctx context.Context, remoteURL, branch string) error {
	refspec := fmt.Sprintf("%s:%s", branch, branch)
	_, err := c.git(ctx, "push", "--force", remoteURL, refspec)
	return err
}

func (c *ExecClient) isRepo(ctx context.Context) bool {
	if _, err := os.Stat(c.Dir); err != nil {
		return false
	}
	_, err := c.git(ctx, "rev-parse", "--git-dir")
	return err == nil
}
