// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package workspace resolves the repository context a task is
// delegated from: which GitHub repository the remote session should
// work on, which branch it should start from, and any per-repository
// prompt framing.
//
// Resolution order, most explicit wins:
//
//  1. Explicit options (command-line flags)
//  2. The .jules.jsonc repository profile, when present
//  3. The git checkout itself (origin remote URL, current branch)
//
// The profile is JSONC (JSON with comments and trailing commas) so
// teams can annotate why a preamble or branch pin exists:
//
//	{
//	  // Delegate against the fork, not upstream.
//	  "source": "octo/demo",
//	  "branch": "develop",
//	  "title_prefix": "[demo]",
//	  "prompt_preamble": "Follow CONTRIBUTING.md. Run make check.",
//	}
package workspace

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"

	"github.com/bureau-foundation/jules/lib/git"
)

// ProfileName is the per-repository profile file, looked up in the
// repository root.
const ProfileName = ".jules.jsonc"

// Context is the resolved delegation context.
type Context struct {
	// Owner and Repo identify the GitHub repository.
	Owner string
	Repo  string

	// Branch the session starts from. Empty means the service
	// default branch.
	Branch string

	// TitlePrefix is prepended to generated session titles.
	TitlePrefix string

	// PromptPreamble is prepended to every task prompt.
	PromptPreamble string
}

// Options are explicit overrides, typically from flags. Zero values
// mean "resolve it".
type Options struct {
	// Dir is the repository directory. Default ".".
	Dir string

	// Source overrides the repository as "owner/repo".
	Source string

	// Branch overrides the starting branch.
	Branch string
}

// profile mirrors the .jules.jsonc file.
type profile struct {
	Source         string `json:"source"`
	Branch         string `json:"branch"`
	TitlePrefix    string `json:"title_prefix"`
	PromptPreamble string `json:"prompt_preamble"`
}

// Resolve produces the delegation context for a repository directory.
// Git is only consulted for pieces that neither the options nor the
// profile provide, so a fully specified profile works outside any
// checkout.
func Resolve(ctx context.Context, opts Options) (Context, error) {
	dir := opts.Dir
	if dir == "" {
		dir = "."
	}

	var resolved Context

	prof, err := loadProfile(filepath.Join(dir, ProfileName))
	if err != nil {
		return Context{}, err
	}
	if prof != nil {
		if prof.Source != "" {
			owner, repo, err := SplitSource(prof.Source)
			if err != nil {
				return Context{}, fmt.Errorf("%s: %w", ProfileName, err)
			}
			resolved.Owner, resolved.Repo = owner, repo
		}
		resolved.Branch = prof.Branch
		resolved.TitlePrefix = prof.TitlePrefix
		resolved.PromptPreamble = prof.PromptPreamble
	}

	if opts.Source != "" {
		owner, repo, err := SplitSource(opts.Source)
		if err != nil {
			return Context{}, err
		}
		resolved.Owner, resolved.Repo = owner, repo
	}
	if opts.Branch != "" {
		resolved.Branch = opts.Branch
	}

	repo := git.NewRepository(dir)
	if resolved.Owner == "" || resolved.Repo == "" {
		remoteURL, err := repo.Run(ctx, "remote", "get-url", "origin")
		if err != nil {
			return Context{}, fmt.Errorf("cannot determine repository: pass --source, add %s, or set an origin remote", ProfileName)
		}
		owner, repoName, err := ParseRemoteURL(strings.TrimSpace(remoteURL))
		if err != nil {
			return Context{}, fmt.Errorf("origin remote: %w", err)
		}
		resolved.Owner, resolved.Repo = owner, repoName
	}
	if resolved.Branch == "" {
		// Best effort: a detached head or a directory outside any
		// checkout leaves the branch empty and the service picks its
		// default.
		if out, err := repo.Run(ctx, "rev-parse", "--abbrev-ref", "HEAD"); err == nil {
			if branch := strings.TrimSpace(out); branch != "HEAD" {
				resolved.Branch = branch
			}
		}
	}

	return resolved, nil
}

// Prompt composes the final task prompt from the profile preamble and
// the task text.
func (c Context) Prompt(task string) string {
	task = strings.TrimSpace(task)
	preamble := strings.TrimSpace(c.PromptPreamble)
	if preamble == "" {
		return task
	}
	return preamble + "\n\n" + task
}

// maxTitleLength caps generated session titles. Long tasks are
// summarized by their opening words; the full text travels in the
// prompt.
const maxTitleLength = 72

// Title derives a session title from the task text: the first line,
// truncated, with the profile prefix applied.
func (c Context) Title(task string) string {
	title := strings.TrimSpace(task)
	if index := strings.IndexByte(title, '\n'); index >= 0 {
		title = strings.TrimSpace(title[:index])
	}
	if runes := []rune(title); len(runes) > maxTitleLength {
		title = strings.TrimSpace(string(runes[:maxTitleLength-3])) + "..."
	}
	if c.TitlePrefix != "" {
		title = c.TitlePrefix + " " + title
	}
	return title
}

// loadProfile reads and parses the profile file. A missing file is
// not an error; a malformed one is.
func loadProfile(path string) (*profile, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	stripped := jsonc.ToJSON(data)
	var prof profile
	if err := json.Unmarshal(stripped, &prof); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &prof, nil
}

// SplitSource splits an "owner/repo" source string.
func SplitSource(source string) (owner, repo string, err error) {
	parts := strings.Split(strings.TrimSpace(source), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("source %q is not owner/repo", source)
	}
	return parts[0], parts[1], nil
}

// ParseRemoteURL extracts owner and repo from a git remote URL.
// Handles https, ssh, and scp-like forms:
//
//	https://github.com/octo/demo.git
//	ssh://git@github.com/octo/demo.git
//	git@github.com:octo/demo.git
func ParseRemoteURL(remoteURL string) (owner, repo string, err error) {
	s := strings.TrimSpace(remoteURL)
	s = strings.TrimSuffix(s, "/")
	s = strings.TrimSuffix(s, ".git")

	var path string
	if index := strings.Index(s, "://"); index >= 0 {
		rest := s[index+3:]
		slash := strings.IndexByte(rest, '/')
		if slash < 0 {
			return "", "", fmt.Errorf("remote URL %q has no repository path", remoteURL)
		}
		path = rest[slash+1:]
	} else if at := strings.IndexByte(s, '@'); at >= 0 {
		colon := strings.IndexByte(s[at:], ':')
		if colon < 0 {
			return "", "", fmt.Errorf("remote URL %q has no repository path", remoteURL)
		}
		path = s[at+colon+1:]
	} else {
		return "", "", fmt.Errorf("unrecognized remote URL %q", remoteURL)
	}

	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("remote URL %q is not owner/repo shaped", remoteURL)
	}
	return parts[0], parts[1], nil
}
