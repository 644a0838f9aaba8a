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
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseEnv(t *testing.T) {
	tests := []struct {
		in      string
		want    EnvPair
		wantErr bool
	}{
		{in: "FOO=bar", want: EnvPair{Name: "FOO", Value: "bar"}},
		{in: "FOO=", want: EnvPair{Name: "FOO", Value: ""}},
		{in: "FOO=a=b", wantErr: true},
		{in: "FOO", wantErr: true},
		{in: "=bar", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseEnv(tc.in)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("ParseEnv(%q): expected error, got %+v", tc.in, got)
				}
				if !IsConfigurationError(err) {
					t.Errorf("ParseEnv(%q): expected configuration error, got %v", tc.in, err)
				}
				if !strings.Contains(err.Error(), tc.in) {
					t.Errorf("ParseEnv(%q): error %q does not name the offending token", tc.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseEnv(%q): unexpected error: %v", tc.in, err)
			}
			if got != tc.want {
				t.Errorf("ParseEnv(%q) = %+v, want %+v", tc.in, got, tc.want)
			}
		})
	}
}

func TestParseEnvSecret(t *testing.T) {
	tests := []struct {
		in      string
		want    EnvPair
		wantErr bool
	}{
		{in: "TOKEN=MY_SECRET", want: EnvPair{Name: "TOKEN", Value: "MY_SECRET"}},
		{in: "TOKEN=", wantErr: true},
		{in: "TOKEN", wantErr: true},
		{in: "TOKEN=A=B", wantErr: true},
	}
	for _, tc := range tests {
		got, err := ParseEnvSecret(tc.in)
		if tc.wantErr != (err != nil) {
			t.Errorf("ParseEnvSecret(%q) error = %v, wantErr %v", tc.in, err, tc.wantErr)
			continue
		}
		if err == nil && got != tc.want {
			t.Errorf("ParseEnvSecret(%q) = %+v, want %+v", tc.in, got, tc.want)
		}
	}
}

func TestParseHostMount(t *testing.T) {
	tests := []struct {
		in      string
		want    HostMount
		wantErr bool
	}{
		{in: "/data:/mnt/data", want: HostMount{Source: "/data", Target: "/mnt/data"}},
		{in: "/data", wantErr: true},
		{in: "/a:/b:/c", wantErr: true},
		{in: ":/b", wantErr: true},
	}
	for _, tc := range tests {
		got, err := ParseHostMount(tc.in)
		if tc.wantErr != (err != nil) {
			t.Errorf("ParseHostMount(%q) error = %v, wantErr %v", tc.in, err, tc.wantErr)
			continue
		}
		if err == nil && got != tc.want {
			t.Errorf("ParseHostMount(%q) = %+v, want %+v", tc.in, got, tc.want)
		}
	}
}

func TestParseDatasetMount(t *testing.T) {
	tests := []struct {
		in      string
		want    DatasetMount
		wantErr bool
	}{
		{in: "corpus:/input", want: DatasetMount{Dataset: "corpus", Target: "/input"}},
		{in: "corpus:train:/input", want: DatasetMount{Dataset: "corpus", SubPath: "train", Target: "/input"}},
		{in: "corpus", wantErr: true},
		{in: "a:b:c:d", wantErr: true},
		{in: "::", wantErr: true},
	}
	for _, tc := range tests {
		got, err := ParseDatasetMount(tc.in)
		if tc.wantErr != (err != nil) {
			t.Errorf("ParseDatasetMount(%q) error = %v, wantErr %v", tc.in, err, tc.wantErr)
			continue
		}
		if err == nil && got != tc.want {
			t.Errorf("ParseDatasetMount(%q) = %+v, want %+v", tc.in, got, tc.want)
		}
	}
}

func TestParseMemory(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{in: "1024", want: 1024},
		{in: "1KiB", want: 1024},
		{in: "2.5GiB", want: 2684354560},
		{in: "512MB", want: 512000000},
		{in: "lots", wantErr: true},
		{in: "2.5GiBs", wantErr: true},
	}
	for _, tc := range tests {
		got, err := ParseMemory(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseMemory(%q): expected error, got %d", tc.in, got)
			} else if !IsConfigurationError(err) {
				t.Errorf("ParseMemory(%q): expected configuration error, got %v", tc.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseMemory(%q): unexpected error: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseMemory(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestExpandClusterPatterns(t *testing.T) {
	catalog := []string{"a/x", "a/y", "b/z"}

	tests := []struct {
		name     string
		patterns []string
		want     []string
		wantErr  string
	}{
		{name: "wildcard", patterns: []string{"a/*"}, want: []string{"a/x", "a/y"}},
		{name: "bare star matches everything", patterns: []string{"*"}, want: []string{"a/x", "a/y", "b/z"}},
		{name: "star crosses the separator", patterns: []string{"*x"}, want: []string{"a/x"}},
		{name: "exact", patterns: []string{"b/z"}, want: []string{"b/z"}},
		{name: "union dedup", patterns: []string{"a/*", "a/x", "b/*"}, want: []string{"a/x", "a/y", "b/z"}},
		{name: "no patterns", patterns: nil, want: nil},
		{name: "no match", patterns: []string{"c/*"}, wantErr: "c/*"},
		{name: "partial match still fails", patterns: []string{"a/*", "c/*"}, wantErr: "c/*"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ExpandClusterPatterns(tc.patterns, catalog)
			if tc.wantErr != "" {
				if err == nil {
					t.Fatalf("expected error naming %q, got %v", tc.wantErr, got)
				}
				if !IsConfigurationError(err) || !strings.Contains(err.Error(), tc.wantErr) {
					t.Errorf("error %q should be a configuration error naming %q", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("ExpandClusterPatterns mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
