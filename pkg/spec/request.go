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

// Package spec builds backend experiment specs from user-supplied run
// parameters. Build is pure: no I/O, no randomness, and identical input
// produces byte-identical serialized output.
package spec

import "github.com/vkramanuj/beaker-gantry/pkg/api"

// Paths and names baked into every generated spec.
const (
	// DefaultTaskName is used when the user doesn't name the task.
	DefaultTaskName = "main"

	// EntrypointMountPath is where the entrypoint dataset lands in the
	// task container.
	EntrypointMountPath = "/gantry"

	// EntrypointScript is the script inside the entrypoint dataset that
	// bootstraps the clone, environment setup, and user command.
	EntrypointScript = "entrypoint.sh"

	// ResultsPath is the container path persisted as the result dataset.
	ResultsPath = "/results"
)

// EnvPair is one parsed NAME=VALUE (or NAME=SECRET) option.
type EnvPair struct {
	Name  string
	Value string
}

// HostMount is one parsed SOURCE:TARGET host directory mount.
type HostMount struct {
	Source string
	Target string
}

// DatasetMount is one parsed NAME[:SUBPATH]:TARGET dataset attachment.
// Dataset holds the resolved dataset ID by the time Build runs.
type DatasetMount struct {
	Dataset string
	SubPath string
	Target  string
}

// RunRequest is the full bag of parameters for one experiment submission.
// It is assembled once from CLI input and immutable afterward; Build never
// modifies it.
type RunRequest struct {
	TaskName    string
	Arguments   []string
	Description string
	Budget      string

	// Exactly one of BeakerImage / DockerImage must be set.
	BeakerImage string
	DockerImage string

	// Resource minimums. Zero values mean no minimum. Memory values are
	// human-readable strings with unit suffixes ("2.5GiB").
	CPUs         float64
	GPUs         int
	Memory       string
	SharedMemory string

	Datasets   []DatasetMount
	Mounts     []HostMount
	EnvVars    []EnvPair
	EnvSecrets []EnvPair

	// ClusterPatterns are shell-style globs expanded against the cluster
	// catalog passed to Build. Hostnames are literal constraints.
	ClusterPatterns []string
	Hostnames       []string

	Priority    api.Priority // empty means unset
	Preemptible bool

	Replicas                 int
	LeaderSelection          bool
	HostNetworking           bool
	PropagateFailure         *bool
	SynchronizedStartTimeout string

	// Python environment setup, mutually independent toggles.
	CondaFile      string
	PipFile        string
	Venv           string
	NoPython       bool
	InstallCommand string

	// Repository provenance and staged entrypoint, resolved by external
	// collaborators (git inspection, artifact staging) before Build.
	GitHubAccount     string
	GitHubRepo        string
	GitRef            string
	PublicRepo        bool
	GitHubTokenSecret string // empty for public repos
	EntrypointDataset string
}
