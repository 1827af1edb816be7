// SPDX-License-Identifier: MPL-2.0

package fetch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport/http"

	"github.com/invowk/buildkit/pkg/buildconf"
	"github.com/invowk/buildkit/pkg/buildenv"
)

// newTestRepo creates a repository with two commits; the first is tagged v1.0.0.
func newTestRepo(t *testing.T) (repo *git.Repository, dir string, tagged, head plumbing.Hash) {
	t.Helper()

	dir = t.TempDir()
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("PlainInit() error = %v", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("Worktree() error = %v", err)
	}

	commitFile := func(content, msg string) plumbing.Hash {
		if err := os.WriteFile(filepath.Join(dir, "VERSION"), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := wt.Add("VERSION"); err != nil {
			t.Fatalf("Add() error = %v", err)
		}
		h, err := wt.Commit(msg, &git.CommitOptions{
			Author: &object.Signature{Name: "test", Email: "test@example.com", When: time.Now()},
		})
		if err != nil {
			t.Fatalf("Commit() error = %v", err)
		}
		return h
	}

	tagged = commitFile("1.0.0", "release 1.0.0")
	if _, err := repo.CreateTag("v1.0.0", tagged, nil); err != nil {
		t.Fatalf("CreateTag() error = %v", err)
	}
	head = commitFile("1.1.0-dev", "start 1.1.0")
	return repo, dir, tagged, head
}

func TestCheckoutVerified(t *testing.T) {
	t.Parallel()

	repo, dir, tagged, _ := newTestRepo(t)

	got, err := checkoutVerified(repo, "v1.0.0", tagged.String()[:10])
	if err != nil {
		t.Fatalf("checkoutVerified() error = %v", err)
	}
	if got != tagged {
		t.Errorf("checkoutVerified() = %s, want %s", got, tagged)
	}
	if v := readFile(t, filepath.Join(dir, "VERSION")); v != "1.0.0" {
		t.Errorf("VERSION = %q after checkout, want 1.0.0", v)
	}
}

func TestCheckoutVerifiedByCommitID(t *testing.T) {
	t.Parallel()

	repo, _, tagged, _ := newTestRepo(t)

	if _, err := checkoutVerified(repo, tagged.String(), tagged.String()); err != nil {
		t.Fatalf("checkoutVerified() error = %v", err)
	}
}

func TestCheckoutVerifiedFailures(t *testing.T) {
	t.Parallel()

	repo, _, _, head := newTestRepo(t)

	tests := []struct {
		name    string
		ref     string
		hash    string
		wantErr error
	}{
		{name: "hash of another commit", ref: "v1.0.0", hash: head.String()[:12], wantErr: ErrCommitMismatch},
		{name: "empty hash", ref: "v1.0.0", hash: "", wantErr: ErrCommitMismatch},
		{name: "unknown ref", ref: "v9.9.9", hash: head.String(), wantErr: ErrRefNotFound},
	}

	for _, tt := range tests {
		if _, err := checkoutVerified(repo, tt.ref, tt.hash); !errors.Is(err, tt.wantErr) {
			t.Errorf("%s: checkoutVerified() error = %v, want %v", tt.name, err, tt.wantErr)
		}
	}
}

func TestGitFetcherSkipsStagedDestination(t *testing.T) {
	t.Parallel()

	dest := t.TempDir()
	src := buildconf.RemoteRepository{URL: "https://invalid.example/repo.git", Ref: "v1", Hash: "abc1234"}
	if err := os.WriteFile(filepath.Join(dest, MarkerFile), []byte(src.Hash+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := (&GitFetcher{}).Fetch(context.Background(), src, dest); err != nil {
		t.Errorf("Fetch() error = %v, want nil for a staged destination", err)
	}
}

func TestGitFetcherAuth(t *testing.T) {
	t.Parallel()

	f := &GitFetcher{Env: buildenv.Map{"GITLAB_TOKEN": "glpat", "GIT_TOKEN": "generic"}}
	auth, ok := f.auth("https://gitlab.com/group/lib.git").(*http.BasicAuth)
	if !ok {
		t.Fatalf("auth() = %T, want *http.BasicAuth", f.auth("https://gitlab.com/group/lib.git"))
	}
	if auth.Username != "gitlab-ci-token" || auth.Password != "glpat" {
		t.Errorf("auth() = %+v", auth)
	}

	if got := (&GitFetcher{Env: buildenv.Map{}}).auth("https://github.com/libgit2/libgit2.git"); got != nil {
		t.Errorf("auth() = %v, want nil without tokens", got)
	}
}
