// SPDX-License-Identifier: MPL-2.0

package fetch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"

	"github.com/invowk/buildkit/pkg/buildconf"
	"github.com/invowk/buildkit/pkg/buildenv"
)

var (
	// ErrRefNotFound indicates the declared ref does not exist in the repository.
	ErrRefNotFound = errors.New("git ref not found")

	// ErrCommitMismatch indicates the declared ref resolves to an unexpected commit.
	ErrCommitMismatch = errors.New("git commit does not match declared hash")
)

// GitFetcher clones a repository and checks out the declared ref, which must
// resolve to a commit starting with the declared hash.
type GitFetcher struct {
	// Env supplies credentials (GITHUB_TOKEN, GITLAB_TOKEN, GIT_TOKEN); buildenv.OS() when nil.
	Env    buildenv.Environment
	Logger *log.Logger
}

// Fetch implements Fetcher for buildconf.RemoteRepository sources.
func (f *GitFetcher) Fetch(ctx context.Context, src buildconf.VendoredSource, dest string) error {
	repo, ok := src.(buildconf.RemoteRepository)
	if !ok {
		return &FetchError{Source: src, Dest: dest, Err: fmt.Errorf("not a repository source: %s", src.Kind())}
	}
	if Staged(dest, repo.Hash) {
		f.logger().Debug("repository already staged", "dest", dest)
		return nil
	}
	if err := f.fetch(ctx, repo, dest); err != nil {
		return &FetchError{Source: src, Dest: dest, Err: err}
	}
	return nil
}

func (f *GitFetcher) fetch(ctx context.Context, src buildconf.RemoteRepository, dest string) (err error) {
	tmp, err := stagingDir(dest)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			// Best-effort cleanup of a partial clone.
			_ = os.RemoveAll(tmp)
		}
	}()

	f.logger().Info("cloning repository", "url", src.URL, "ref", src.Ref)
	repo, err := git.PlainCloneContext(ctx, tmp, false, &git.CloneOptions{
		URL:  src.URL,
		Auth: f.auth(src.URL),
	})
	if err != nil {
		return fmt.Errorf("failed to clone repository: %w", err)
	}

	id, err := checkoutVerified(repo, src.Ref, src.Hash)
	if err != nil {
		return err
	}
	f.logger().Debug("checked out", "commit", id)

	return commit(tmp, dest, src.Hash)
}

// checkoutVerified checks out ref in repo after verifying that it resolves to
// a commit whose id starts with hash.
func checkoutVerified(repo *git.Repository, ref, hash string) (plumbing.Hash, error) {
	want := strings.ToLower(strings.TrimSpace(hash))
	if want == "" {
		return plumbing.ZeroHash, fmt.Errorf("%w: empty hash", ErrCommitMismatch)
	}

	id, err := resolveRef(repo, ref)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	if !strings.HasPrefix(id.String(), want) {
		return plumbing.ZeroHash, fmt.Errorf("%w: %s resolves to %s, expected %s", ErrCommitMismatch, ref, id, hash)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to get worktree: %w", err)
	}
	if err := worktree.Checkout(&git.CheckoutOptions{Hash: *id, Force: true}); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to checkout: %w", err)
	}
	return *id, nil
}

// resolveRef resolves a tag, local or remote branch, or commit id.
func resolveRef(repo *git.Repository, ref string) (*plumbing.Hash, error) {
	for _, rev := range []string{ref, "origin/" + ref} {
		if id, err := repo.ResolveRevision(plumbing.Revision(rev)); err == nil {
			return id, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrRefNotFound, ref)
}

// auth picks credentials for url: an SSH key for SSH URLs, a token from the
// environment for HTTP URLs, or none for public repositories.
func (f *GitFetcher) auth(url string) transport.AuthMethod {
	if strings.HasPrefix(url, "git@") || strings.HasPrefix(url, "ssh://") {
		return sshAuth()
	}

	env := f.Env
	if env == nil {
		env = buildenv.OS()
	}
	tokens := []struct{ variable, username string }{
		{"GITHUB_TOKEN", "x-access-token"},
		{"GITLAB_TOKEN", "gitlab-ci-token"},
		{"GIT_TOKEN", "git"},
	}
	for _, t := range tokens {
		if token := buildenv.Lookup(env, t.variable); token != "" {
			return &http.BasicAuth{Username: t.username, Password: token}
		}
	}
	return nil
}

func sshAuth() transport.AuthMethod {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	for _, key := range []string{"id_ed25519", "id_rsa", "id_ecdsa"} {
		keyPath := filepath.Join(homeDir, ".ssh", key)
		if _, err := os.Stat(keyPath); err != nil {
			continue
		}
		if auth, err := ssh.NewPublicKeysFromFile("git", keyPath, ""); err == nil {
			return auth
		}
	}
	return nil
}

func (f *GitFetcher) logger() *log.Logger {
	if f.Logger == nil {
		return log.Default()
	}
	return f.Logger
}
