// Package repomanager clones and updates tracked repositories under
// bounded concurrency and reports their sync state (spec.md §4.B).
package repomanager

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"os/exec"
	"strings"

	"github.com/kraklabs/devsentry/internal/apperr"
	"github.com/kraklabs/devsentry/internal/logging"
)

// GitExecutor runs git commands against a fixed working directory,
// as a thin wrapper over exec.CommandContext.
type GitExecutor struct {
	workDir string
}

// NewGitExecutor returns an executor rooted at workDir. workDir need
// not exist yet; Clone creates it.
func NewGitExecutor(workDir string) *GitExecutor {
	return &GitExecutor{workDir: workDir}
}

// Run executes `git <args...>` in workDir, returning stdout.
func (g *GitExecutor) Run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = g.workDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", apperr.Cancelled(fmt.Sprintf("git %s cancelled", strings.Join(args, " ")))
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", apperr.TransientIO(fmt.Sprintf("git %s failed: %s", strings.Join(args, " "), msg), err)
	}
	return stdout.String(), nil
}

// CloneOptions configures a shallow clone (spec.md §3 "clone depth").
type CloneOptions struct {
	RemoteURL       string
	CredentialToken string
	Depth           int
	Branch          string
}

// Clone performs `git clone --depth N` into the executor's workDir. The
// credential token is injected into the URL only for the duration of
// this call and is never written to disk or logged (spec.md §4.B
// "credential token injected into the URL at call time, never
// persisted").
func Clone(ctx context.Context, workDir string, opts CloneOptions) error {
	timer := logging.StartTimer(logging.CategoryRepo, "Clone")
	defer timer.Stop()

	authedURL, err := withCredential(opts.RemoteURL, opts.CredentialToken)
	if err != nil {
		return apperr.Validation(fmt.Sprintf("invalid remote URL: %v", err))
	}

	depth := opts.Depth
	if depth <= 0 {
		depth = 1
	}

	args := []string{"clone", "--depth", fmt.Sprintf("%d", depth)}
	if opts.Branch != "" {
		args = append(args, "--branch", opts.Branch)
	}
	args = append(args, authedURL, workDir)

	cmd := exec.CommandContext(ctx, "git", args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	logging.Repo("cloning %s (depth=%d) into %s", redactURL(opts.RemoteURL), depth, workDir)

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return apperr.Cancelled("clone cancelled")
		}
		return apperr.TransientIO(fmt.Sprintf("git clone failed: %s", strings.TrimSpace(stderr.String())), err)
	}
	if opts.CredentialToken != "" {
		// git clone records the URL it was given as origin; put the plain
		// URL back so the token is not kept in .git/config.
		if _, err := NewGitExecutor(workDir).Run(ctx, "remote", "set-url", "origin", opts.RemoteURL); err != nil {
			return err
		}
	}
	logging.Repo("clone complete: %s", workDir)
	return nil
}

// Pull performs a fast-forward update of an existing shallow clone.
func Pull(ctx context.Context, workDir, credentialToken string) error {
	timer := logging.StartTimer(logging.CategoryRepo, "Pull")
	defer timer.Stop()

	g := NewGitExecutor(workDir)
	remote, err := g.Run(ctx, "remote", "get-url", "origin")
	if err != nil {
		return err
	}
	authedURL, err := withCredential(strings.TrimSpace(remote), credentialToken)
	if err != nil {
		return apperr.Validation(fmt.Sprintf("invalid remote URL: %v", err))
	}

	if _, err := g.Run(ctx, "fetch", "--depth", "1", authedURL, "HEAD"); err != nil {
		return err
	}
	if _, err := g.Run(ctx, "reset", "--hard", "FETCH_HEAD"); err != nil {
		return err
	}
	logging.Repo("pull complete: %s", workDir)
	return nil
}

// HeadCommit returns the current HEAD commit hash.
func HeadCommit(ctx context.Context, workDir string) (string, error) {
	g := NewGitExecutor(workDir)
	out, err := g.Run(ctx, "rev-parse", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// withCredential injects a bearer-style credential into the URL's
// userinfo section for HTTPS remotes only (spec.md §3 "remote URL
// HTTPS; required").
func withCredential(remote, token string) (string, error) {
	if token == "" {
		return remote, nil
	}
	u, err := url.Parse(remote)
	if err != nil {
		return "", err
	}
	if u.Scheme != "https" {
		return "", fmt.Errorf("credential injection requires an https remote, got %q", u.Scheme)
	}
	u.User = url.UserPassword("x-access-token", token)
	return u.String(), nil
}

// redactURL strips any userinfo before the URL reaches a log line.
func redactURL(remote string) string {
	u, err := url.Parse(remote)
	if err != nil {
		return remote
	}
	u.User = nil
	return u.String()
}

