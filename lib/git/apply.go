// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bureau-foundation/jules/lib/session"
)

// ErrDirtyWorkingTree is returned when Apply is called on a
// repository with uncommitted changes. The applier never touches a
// tree that has work in it.
var ErrDirtyWorkingTree = errors.New("working tree has uncommitted changes")

// ApplyResult reports what Apply did. Conflicting files are data, not
// an error: a session's diff can land partially, and the caller
// decides what a non-empty ConflictFiles means for it.
type ApplyResult struct {
	// Branch is the side branch the changes were applied on,
	// "jules/<session-id>". Empty when the diff had no files.
	Branch string `json:"branch,omitempty"`

	// Commit is the hash of the commit created on Branch. Empty when
	// nothing applied cleanly.
	Commit string `json:"commit,omitempty"`

	// Applied lists the paths whose patches applied cleanly.
	Applied []string `json:"applied,omitempty"`

	// ConflictFiles lists the paths whose patches failed the
	// pre-apply check and were skipped.
	ConflictFiles []string `json:"conflict_files,omitempty"`
}

// Applier lands a session diff onto a local repository. The changes
// go on a dedicated side branch, never the branch the user is on: the
// working tree ends up exactly where it started, and the user reviews
// and merges the side branch with whatever workflow they prefer.
type Applier struct {
	repo *Repository
}

// NewApplier returns an Applier for the given repository.
func NewApplier(repo *Repository) *Applier {
	return &Applier{repo: repo}
}

// Apply lands the diff on a side branch named "jules/<session-id>".
//
// The working tree must be clean; Apply refuses to run otherwise so
// that a failed application can never mix patch fragments into the
// user's uncommitted work. Each file's patch is verified with
// "git apply --check" first: files that fail the check are reported
// in ConflictFiles and skipped, files that pass are applied and
// committed together as a single commit. The original branch (or
// detached commit) is checked out again before Apply returns, on
// success and on failure alike.
func (a *Applier) Apply(ctx context.Context, diff session.Diff) (ApplyResult, error) {
	if diff.SessionID == "" {
		return ApplyResult{}, fmt.Errorf("diff has no session ID")
	}
	if len(diff.Files) == 0 {
		return ApplyResult{}, nil
	}

	if err := a.requireCleanTree(ctx); err != nil {
		return ApplyResult{}, err
	}
	original, err := a.currentRef(ctx)
	if err != nil {
		return ApplyResult{}, err
	}

	branch := "jules/" + diff.SessionID
	if _, err := a.repo.Run(ctx, "checkout", "-b", branch); err != nil {
		// checkout -b fails without switching, so the tree is
		// untouched. A pre-existing branch usually means the diff was
		// applied before.
		return ApplyResult{}, fmt.Errorf("creating branch %s: %w", branch, err)
	}

	result := ApplyResult{Branch: branch}
	applyErr := a.applyFiles(ctx, diff.Files, &result)
	if applyErr == nil && len(result.Applied) > 0 {
		result.Commit, applyErr = a.commit(ctx, diff)
	}

	if _, err := a.repo.Run(ctx, "checkout", original); err != nil {
		if applyErr != nil {
			return result, fmt.Errorf("restoring %s after failed apply (%v): %w", original, applyErr, err)
		}
		return result, fmt.Errorf("restoring %s: %w", original, err)
	}
	if result.Commit == "" {
		// The side branch holds no commits, so it still points at the
		// original head. Nothing is lost by removing it.
		result.Branch = ""
		_, _ = a.repo.Run(ctx, "branch", "-D", branch)
	}
	if applyErr != nil {
		return result, applyErr
	}
	return result, nil
}

// applyFiles checks and applies each file's patch, partitioning paths
// into Applied and ConflictFiles. Only infrastructure failures (git
// itself erroring in an unexpected way) produce an error.
func (a *Applier) applyFiles(ctx context.Context, files []session.FileDiff, result *ApplyResult) error {
	for _, file := range files {
		if file.Patch == "" {
			result.ConflictFiles = append(result.ConflictFiles, file.Path)
			continue
		}
		if err := a.gitApply(ctx, file.Patch, true); err != nil {
			result.ConflictFiles = append(result.ConflictFiles, file.Path)
			continue
		}
		if err := a.gitApply(ctx, file.Patch, false); err != nil {
			// The check passed moments ago; a failure here is not a
			// content conflict but something wrong with git or the
			// tree.
			return fmt.Errorf("applying patch for %s: %w", file.Path, err)
		}
		result.Applied = append(result.Applied, file.Path)
	}
	return nil
}

// gitApply feeds a patch to "git apply" on stdin. With check set, only
// --check runs and the tree is untouched.
func (a *Applier) gitApply(ctx context.Context, patch string, check bool) error {
	args := []string{"apply", "--whitespace=nowarn"}
	if check {
		args = append(args, "--check")
	}
	if !strings.HasSuffix(patch, "\n") {
		patch += "\n"
	}

	command := a.repo.Command(ctx, args...)
	command.Stdin = strings.NewReader(patch)
	var stderr bytes.Buffer
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		return fmt.Errorf("git apply: %w (stderr: %s)", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// commit stages everything and creates the single session commit,
// returning its hash. The tree was clean at entry, so everything
// unstaged is patch output.
func (a *Applier) commit(ctx context.Context, diff session.Diff) (string, error) {
	if _, err := a.repo.Run(ctx, "add", "-A", "."); err != nil {
		return "", fmt.Errorf("staging applied files: %w", err)
	}

	message := fmt.Sprintf("Apply Jules session %s", diff.SessionID)
	if diff.Commit != "" {
		message += fmt.Sprintf("\n\nUpstream commit: %s", diff.Commit)
	}
	if _, err := a.repo.Run(ctx, "commit", "-m", message); err != nil {
		return "", fmt.Errorf("committing applied files: %w", err)
	}

	hash, err := a.repo.Run(ctx, "rev-parse", "HEAD")
	if err != nil {
		return "", fmt.Errorf("reading commit hash: %w", err)
	}
	return strings.TrimSpace(hash), nil
}

// requireCleanTree fails with ErrDirtyWorkingTree when the repository
// has uncommitted changes, listing them.
func (a *Applier) requireCleanTree(ctx context.Context) error {
	status, err := a.repo.Run(ctx, "status", "--porcelain")
	if err != nil {
		return fmt.Errorf("checking working tree: %w", err)
	}
	if strings.TrimSpace(status) != "" {
		return fmt.Errorf("%w:\n%s", ErrDirtyWorkingTree, strings.TrimSpace(status))
	}
	return nil
}

// currentRef returns the checked-out branch name, or the commit hash
// when HEAD is detached. Either form can be passed back to checkout
// to restore the starting state.
func (a *Applier) currentRef(ctx context.Context) (string, error) {
	out, err := a.repo.Run(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", fmt.Errorf("reading current branch: %w", err)
	}
	ref := strings.TrimSpace(out)
	if ref == "HEAD" {
		out, err = a.repo.Run(ctx, "rev-parse", "HEAD")
		if err != nil {
			return "", fmt.Errorf("reading detached head: %w", err)
		}
		ref = strings.TrimSpace(out)
	}
	return ref, nil
}
