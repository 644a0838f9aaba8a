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
	"fmt"
	"strconv"

	"github.com/vkramanuj/beaker-gantry/pkg/api"
)

// Build validates the request and folds it into a backend experiment spec.
// clusterCatalog is a snapshot of known cluster full names against which the
// request's cluster patterns are expanded; Build performs no I/O itself.
func Build(req RunRequest, clusterCatalog []string) (*api.ExperimentSpec, error) {
	if len(req.Arguments) == 0 {
		return nil, ConfigErrorf("[ARGS]... are required! For example:\n$ gantry run -- python -c 'print(\"Hello, World!\")'")
	}
	if (req.BeakerImage == "") == (req.DockerImage == "") {
		return nil, ConfigErrorf("either --beaker-image or --docker-image must be specified, but not both")
	}
	if req.Budget == "" {
		return nil, ConfigErrorf("budget account must be specified")
	}
	if req.Replicas < 0 {
		return nil, ConfigErrorf("--replicas must be a positive integer")
	}
	if req.EntrypointDataset == "" {
		return nil, ConfigErrorf("entrypoint dataset is missing")
	}

	resources, err := buildResources(req)
	if err != nil {
		return nil, err
	}

	clusters, err := ExpandClusterPatterns(req.ClusterPatterns, clusterCatalog)
	if err != nil {
		return nil, err
	}

	priority := req.Priority
	if len(clusters) == 0 && priority == "" {
		priority = api.PriorityPreemptible
	}

	envVars, err := buildEnvVars(req)
	if err != nil {
		return nil, err
	}

	taskName := req.TaskName
	if taskName == "" {
		taskName = DefaultTaskName
	}

	task := api.TaskSpec{
		Name: taskName,
		Image: api.ImageSource{
			Beaker: req.BeakerImage,
			Docker: req.DockerImage,
		},
		Command:   []string{"bash", EntrypointMountPath + "/" + EntrypointScript},
		Arguments: req.Arguments,
		EnvVars:   envVars,
		Datasets:  buildDataMounts(req),
		Result:    api.ResultSpec{Path: ResultsPath},
		Resources: resources,
		Context: api.TaskContext{
			Priority:    priority,
			Preemptible: req.Preemptible,
		},
		Constraints:              buildConstraints(clusters, req.Hostnames),
		Replicas:                 req.Replicas,
		LeaderSelection:          req.LeaderSelection,
		HostNetworking:           req.HostNetworking || req.LeaderSelection,
		PropagateFailure:         req.PropagateFailure,
		SynchronizedStartTimeout: req.SynchronizedStartTimeout,
	}

	return &api.ExperimentSpec{
		Version:     api.SpecVersion,
		Budget:      req.Budget,
		Description: req.Description,
		Tasks:       []api.TaskSpec{task},
	}, nil
}

func buildResources(req RunRequest) (*api.TaskResources, error) {
	res := &api.TaskResources{
		CPUCount: req.CPUs,
		GPUCount: req.GPUs,
	}
	if req.Memory != "" {
		mem, err := ParseMemory(req.Memory)
		if err != nil {
			return nil, err
		}
		res.Memory = mem
	}
	if req.SharedMemory != "" {
		shm, err := ParseMemory(req.SharedMemory)
		if err != nil {
			return nil, err
		}
		res.SharedMemory = shm
	}
	if *res == (api.TaskResources{}) {
		return nil, nil
	}
	return res, nil
}

// buildEnvVars lays out the task environment in a fixed order: repository
// provenance first, then python environment toggles, then user variables,
// then user secrets.
func buildEnvVars(req RunRequest) ([]api.EnvVar, error) {
	envVars := []api.EnvVar{
		{Name: "GITHUB_REPO", Value: fmt.Sprintf("%s/%s", req.GitHubAccount, req.GitHubRepo)},
		{Name: "GIT_REF", Value: req.GitRef},
	}
	if req.GitHubTokenSecret != "" {
		envVars = append(envVars, api.EnvVar{Name: "GITHUB_TOKEN", Secret: req.GitHubTokenSecret})
	}
	switch {
	case req.NoPython:
		envVars = append(envVars, api.EnvVar{Name: "NO_PYTHON", Value: "1"})
	case req.Venv != "":
		envVars = append(envVars, api.EnvVar{Name: "VENV_NAME", Value: req.Venv})
	case req.CondaFile != "":
		envVars = append(envVars, api.EnvVar{Name: "CONDA_ENV_FILE", Value: req.CondaFile})
	case req.PipFile != "":
		envVars = append(envVars, api.EnvVar{Name: "PIP_REQUIREMENTS_FILE", Value: req.PipFile})
	}
	if req.InstallCommand != "" {
		envVars = append(envVars, api.EnvVar{Name: "INSTALL_CMD", Value: req.InstallCommand})
	}
	if req.Replicas > 0 {
		envVars = append(envVars, api.EnvVar{Name: "REPLICA_COUNT", Value: strconv.Itoa(req.Replicas)})
	}

	seen := make(map[string]bool)
	for _, e := range req.EnvVars {
		if seen[e.Name] {
			return nil, ConfigErrorf("duplicate --env variable '%s'", e.Name)
		}
		seen[e.Name] = true
		envVars = append(envVars, api.EnvVar{Name: e.Name, Value: e.Value})
	}
	seen = make(map[string]bool)
	for _, e := range req.EnvSecrets {
		if seen[e.Name] {
			return nil, ConfigErrorf("duplicate --env-secret variable '%s'", e.Name)
		}
		seen[e.Name] = true
		envVars = append(envVars, api.EnvVar{Name: e.Name, Secret: e.Value})
	}
	return envVars, nil
}

// buildDataMounts places the entrypoint dataset first so later user mounts
// may shadow it (last mount wins on overlap).
func buildDataMounts(req RunRequest) []api.DataMount {
	mounts := []api.DataMount{
		{
			Source:    api.DataSource{Beaker: req.EntrypointDataset},
			MountPath: EntrypointMountPath,
		},
	}
	for _, d := range req.Datasets {
		mounts = append(mounts, api.DataMount{
			Source:    api.DataSource{Beaker: d.Dataset},
			SubPath:   d.SubPath,
			MountPath: d.Target,
		})
	}
	for _, m := range req.Mounts {
		mounts = append(mounts, api.DataMount{
			Source:    api.DataSource{HostPath: m.Source},
			MountPath: m.Target,
		})
	}
	return mounts
}

func buildConstraints(clusters, hostnames []string) *api.Constraints {
	if len(clusters) == 0 && len(hostnames) == 0 {
		return nil
	}
	return &api.Constraints{Cluster: clusters, Hostname: hostnames}
}
