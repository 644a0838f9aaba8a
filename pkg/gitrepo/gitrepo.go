// Copyright 2026 The Gantry Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package gitrepo inspects the local working tree to resolve the GitHub
// provenance (owner, repository, commit ref) that the entrypoint clones at
// runtime.
package gitrepo

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/pkg/errors"

	"github.com/vkramanuj/beaker-gantry/pkg/spec"
)

// Info is the resolved provenance of the current working tree.
type Info struct {
	Account string
	Repo    string
	Ref     string
}

// Inspect resolves the repository containing dir. The HEAD commit must be
// pushed for the entrypoint to clone it, so a dirty worktree is rejected
// unless allowDirty is set.
func Inspect(dir string, allowDirty bool) (*Info, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, spec.ConfigErrorf("the current directory is not part of a git repository")
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to open git repository")
	}

	head, err := repo.Head()
	if err != nil {
		return nil, errors.Wrap(err, "failed to resolve HEAD")
	}

	if !allowDirty {
		wt, err := repo.Worktree()
		if err != nil {
			return nil, errors.Wrap(err, "failed to open worktree")
		}
		status, err := wt.Status()
		if err != nil {
			return nil, errors.Wrap(err, "failed to read worktree status")
		}
		if !status.IsClean() {
			return nil, spec.ConfigErrorf("your working directory has uncommitted changes; commit them or use --allow-dirty")
		}
	}

	remote, err := repo.Remote("origin")
	if err != nil {
		return nil, spec.ConfigErrorf("repository has no 'origin' remote")
	}
	urls := remote.Config().URLs
	if len(urls) == 0 {
		return nil, spec.ConfigErrorf("remote 'origin' has no URL")
	}
	account, name, err := parseGitHubURL(urls[0])
	if err != nil {
		return nil, err
	}

	return &Info{Account: account, Repo: name, Ref: head.Hash().String()}, nil
}

// parseGitHubURL extracts owner and repository from the https and ssh
// remote URL forms.
func parseGitHubURL(u string) (string, string, error) {
	trimmed := u
	switch {
	case strings.HasPrefix(trimmed, "git@github.com:"):
		trimmed = strings.TrimPrefix(trimmed, "git@github.com:")
	case strings.HasPrefix(trimmed, "ssh://git@github.com/"):
		trimmed = strings.TrimPrefix(trimmed, "ssh://git@github.com/")
	case strings.HasPrefix(trimmed, "https://github.com/"):
		trimmed = strings.TrimPrefix(trimmed, "https://github.com/")
	case strings.HasPrefix(trimmed, "http://github.com/"):
		trimmed = strings.TrimPrefix(trimmed, "http://github.com/")
	default:
		return "", "", spec.ConfigErrorf("remote 'origin' (%s) is not a GitHub repository", u)
	}
	trimmed = strings.TrimSuffix(strings.TrimSuffix(trimmed, ".git"), "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", spec.ConfigErrorf("could not parse owner and repository from remote URL '%s'", u)
	}
	return parts[0], parts[1], nil
}

// IsPublic reports whether the repository is reachable without credentials,
// which decides whether a GitHub token secret must be attached to the spec.
func IsPublic(ctx context.Context, httpClient *http.Client, account, repo string) (bool, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	url := "https://github.com/" + account + "/" + repo
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return false, errors.Wrap(err, "failed to build repository visibility request")
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return false, errors.Wrapf(err, "failed to check visibility of %s", url)
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK, nil
}
