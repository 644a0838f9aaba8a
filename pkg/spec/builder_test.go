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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vkramanuj/beaker-gantry/pkg/api"
)

func validRequest() RunRequest {
	return RunRequest{
		TaskName:          "main",
		Arguments:         []string{"python", "train.py"},
		Budget:            "team/research",
		BeakerImage:       "base/conda",
		GitHubAccount:     "octo",
		GitHubRepo:        "ml",
		GitRef:            "abc123",
		PublicRepo:        true,
		EntrypointDataset: "ds-entrypoint",
	}
}

func TestBuildDeterministic(t *testing.T) {
	req := validRequest()
	req.EnvVars = []EnvPair{{Name: "A", Value: "1"}, {Name: "B", Value: "2"}}
	req.ClusterPatterns = []string{"org/*"}
	catalog := []string{"org/gpu", "org/cpu"}

	first, err := Build(req, catalog)
	require.NoError(t, err)
	second, err := Build(req, catalog)
	require.NoError(t, err)

	firstJSON, err := first.ToJSON()
	require.NoError(t, err)
	secondJSON, err := second.ToJSON()
	require.NoError(t, err)
	require.Equal(t, firstJSON, secondJSON, "identical input must serialize byte-identically")
}

func TestBuildImageInvariant(t *testing.T) {
	t.Run("neither image", func(t *testing.T) {
		req := validRequest()
		req.BeakerImage = ""
		req.DockerImage = ""
		_, err := Build(req, nil)
		require.Error(t, err)
		require.True(t, IsConfigurationError(err))
	})

	t.Run("both images", func(t *testing.T) {
		req := validRequest()
		req.DockerImage = "python:3.11"
		_, err := Build(req, nil)
		require.Error(t, err)
		require.True(t, IsConfigurationError(err))
	})

	t.Run("docker only", func(t *testing.T) {
		req := validRequest()
		req.BeakerImage = ""
		req.DockerImage = "python:3.11"
		built, err := Build(req, nil)
		require.NoError(t, err)
		require.Equal(t, "python:3.11", built.Tasks[0].Image.Docker)
		require.Empty(t, built.Tasks[0].Image.Beaker)
	})
}

func TestBuildRequiresArguments(t *testing.T) {
	req := validRequest()
	req.Arguments = nil
	_, err := Build(req, nil)
	require.Error(t, err)
	require.True(t, IsConfigurationError(err))
}

func TestBuildRequiresBudget(t *testing.T) {
	req := validRequest()
	req.Budget = ""
	_, err := Build(req, nil)
	require.Error(t, err)
	require.True(t, IsConfigurationError(err))
}

func TestBuildLeaderSelectionImpliesHostNetworking(t *testing.T) {
	req := validRequest()
	req.Replicas = 4
	req.LeaderSelection = true
	req.HostNetworking = false

	built, err := Build(req, nil)
	require.NoError(t, err)
	task := built.Tasks[0]
	require.True(t, task.HostNetworking)
	require.True(t, task.LeaderSelection)
	require.Equal(t, 4, task.Replicas)
}

func TestBuildDefaultPriority(t *testing.T) {
	t.Run("no cluster and no priority defaults to preemptible", func(t *testing.T) {
		built, err := Build(validRequest(), nil)
		require.NoError(t, err)
		require.Equal(t, api.PriorityPreemptible, built.Tasks[0].Context.Priority)
	})

	t.Run("explicit priority wins", func(t *testing.T) {
		req := validRequest()
		req.Priority = api.PriorityHigh
		built, err := Build(req, nil)
		require.NoError(t, err)
		require.Equal(t, api.PriorityHigh, built.Tasks[0].Context.Priority)
	})

	t.Run("cluster given leaves priority unset", func(t *testing.T) {
		req := validRequest()
		req.ClusterPatterns = []string{"org/gpu"}
		built, err := Build(req, []string{"org/gpu"})
		require.NoError(t, err)
		require.Empty(t, built.Tasks[0].Context.Priority)
		require.Equal(t, []string{"org/gpu"}, built.Tasks[0].Constraints.Cluster)
	})
}

func TestBuildUnmatchedClusterPattern(t *testing.T) {
	req := validRequest()
	req.ClusterPatterns = []string{"nowhere/*"}
	_, err := Build(req, []string{"org/gpu"})
	require.Error(t, err)
	require.True(t, IsConfigurationError(err))
	require.Contains(t, err.Error(), "nowhere/*")
}

func TestBuildResources(t *testing.T) {
	t.Run("absent resources omit the block", func(t *testing.T) {
		built, err := Build(validRequest(), nil)
		require.NoError(t, err)
		require.Nil(t, built.Tasks[0].Resources)
	})

	t.Run("memory strings canonicalized to bytes", func(t *testing.T) {
		req := validRequest()
		req.CPUs = 4
		req.GPUs = 2
		req.Memory = "2GiB"
		req.SharedMemory = "1GiB"
		built, err := Build(req, nil)
		require.NoError(t, err)
		res := built.Tasks[0].Resources
		require.NotNil(t, res)
		require.Equal(t, float64(4), res.CPUCount)
		require.Equal(t, 2, res.GPUCount)
		require.Equal(t, int64(2147483648), res.Memory)
		require.Equal(t, int64(1073741824), res.SharedMemory)
	})

	t.Run("unparsable memory fails", func(t *testing.T) {
		req := validRequest()
		req.Memory = "huge"
		_, err := Build(req, nil)
		require.Error(t, err)
		require.True(t, IsConfigurationError(err))
	})
}

func TestBuildEnvLayout(t *testing.T) {
	req := validRequest()
	req.PublicRepo = false
	req.GitHubTokenSecret = "GITHUB_TOKEN"
	req.PipFile = "requirements.txt"
	req.InstallCommand = "pip install -e ."
	req.EnvVars = []EnvPair{{Name: "SEED", Value: "42"}}
	req.EnvSecrets = []EnvPair{{Name: "WANDB_API_KEY", Value: "WANDB"}}

	built, err := Build(req, nil)
	require.NoError(t, err)
	envVars := built.Tasks[0].EnvVars

	byName := map[string]api.EnvVar{}
	for _, e := range envVars {
		byName[e.Name] = e
	}
	require.Equal(t, "octo/ml", byName["GITHUB_REPO"].Value)
	require.Equal(t, "abc123", byName["GIT_REF"].Value)
	require.Equal(t, "GITHUB_TOKEN", byName["GITHUB_TOKEN"].Secret)
	require.Equal(t, "requirements.txt", byName["PIP_REQUIREMENTS_FILE"].Value)
	require.Equal(t, "pip install -e .", byName["INSTALL_CMD"].Value)
	require.Equal(t, "42", byName["SEED"].Value)
	require.Equal(t, "WANDB", byName["WANDB_API_KEY"].Secret)
}

func TestBuildDuplicateEnvRejected(t *testing.T) {
	req := validRequest()
	req.EnvVars = []EnvPair{{Name: "X", Value: "1"}, {Name: "X", Value: "2"}}
	_, err := Build(req, nil)
	require.Error(t, err)
	require.True(t, IsConfigurationError(err))
	require.Contains(t, err.Error(), "X")
}

func TestBuildMountLayout(t *testing.T) {
	req := validRequest()
	req.Datasets = []DatasetMount{{Dataset: "ds-corpus", SubPath: "train", Target: "/input"}}
	req.Mounts = []HostMount{{Source: "/scratch", Target: "/mnt/scratch"}}

	built, err := Build(req, nil)
	require.NoError(t, err)
	mounts := built.Tasks[0].Datasets
	require.Len(t, mounts, 3)

	// Entrypoint dataset always mounts first so user mounts may shadow it.
	require.Equal(t, "ds-entrypoint", mounts[0].Source.Beaker)
	require.Equal(t, EntrypointMountPath, mounts[0].MountPath)
	require.Equal(t, "ds-corpus", mounts[1].Source.Beaker)
	require.Equal(t, "train", mounts[1].SubPath)
	require.Equal(t, "/scratch", mounts[2].Source.HostPath)
	require.Equal(t, "/mnt/scratch", mounts[2].MountPath)
}

func TestBuildSingleTaskWithReplicas(t *testing.T) {
	req := validRequest()
	req.Replicas = 8
	built, err := Build(req, nil)
	require.NoError(t, err)
	require.Len(t, built.Tasks, 1, "replicas are a count on one task, not N tasks")
	require.Equal(t, 8, built.Tasks[0].Replicas)
}
