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

package spec

import (
	"path"
	"strings"

	"github.com/dustin/go-humanize"
)

// ParseEnv splits a NAME=VALUE option on exactly one '='. Anything with more
// or fewer separators is malformed.
func ParseEnv(s string) (EnvPair, error) {
	parts := strings.Split(s, "=")
	if len(parts) != 2 || parts[0] == "" {
		return EnvPair{}, ConfigErrorf("invalid --env option: '%s'", s)
	}
	return EnvPair{Name: parts[0], Value: parts[1]}, nil
}

// ParseEnvSecret splits a NAME=SECRET_NAME option on exactly one '='.
func ParseEnvSecret(s string) (EnvPair, error) {
	parts := strings.Split(s, "=")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return EnvPair{}, ConfigErrorf("invalid --env-secret option: '%s'", s)
	}
	return EnvPair{Name: parts[0], Value: parts[1]}, nil
}

// ParseHostMount splits a SOURCE:TARGET option.
func ParseHostMount(s string) (HostMount, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return HostMount{}, ConfigErrorf("invalid --mount option: '%s'", s)
	}
	return HostMount{Source: parts[0], Target: parts[1]}, nil
}

// ParseDatasetMount splits a NAME:TARGET or NAME:SUBPATH:TARGET option.
func ParseDatasetMount(s string) (DatasetMount, error) {
	parts := strings.Split(s, ":")
	switch len(parts) {
	case 2:
		if parts[0] == "" || parts[1] == "" {
			break
		}
		return DatasetMount{Dataset: parts[0], Target: parts[1]}, nil
	case 3:
		if parts[0] == "" || parts[1] == "" || parts[2] == "" {
			break
		}
		return DatasetMount{Dataset: parts[0], SubPath: parts[1], Target: parts[2]}, nil
	}
	return DatasetMount{}, ConfigErrorf("invalid --dataset option: '%s'", s)
}

// ParseMemory converts a human-readable size ("2.5GiB", "512MB") into a
// canonical byte count.
func ParseMemory(s string) (int64, error) {
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, ConfigErrorf("invalid memory value '%s': %v", s, err)
	}
	return int64(n), nil
}

// matchCluster matches one shell-style glob against one cluster name.
// Cluster names are flat identifiers, not paths, so '*' crosses the
// org/name separator: a bare '*' selects every cluster. The separator is
// swapped for a character path.Match does not treat specially.
func matchCluster(pattern, name string) (bool, error) {
	const sep = "\x00"
	return path.Match(strings.ReplaceAll(pattern, "/", sep), strings.ReplaceAll(name, "/", sep))
}

// ExpandClusterPatterns matches each shell-style glob against the catalog of
// known cluster names and returns the union of matches, deduplicated, in
// pattern order then catalog order. A pattern with zero matches is a
// configuration error naming the pattern.
func ExpandClusterPatterns(patterns, catalog []string) ([]string, error) {
	var out []string
	seen := make(map[string]bool)
	for _, pat := range patterns {
		matched := false
		for _, name := range catalog {
			ok, err := matchCluster(pat, name)
			if err != nil {
				return nil, ConfigErrorf("invalid cluster pattern '%s': %v", pat, err)
			}
			if !ok {
				continue
			}
			matched = true
			if !seen[name] {
				seen[name] = true
				out = append(out, name)
			}
		}
		if !matched {
			return nil, ConfigErrorf("cluster '%s' did not match any clusters", pat)
		}
	}
	return out, nil
}
