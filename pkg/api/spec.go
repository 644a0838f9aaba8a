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

package api

import (
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// SpecVersion identifies the experiment spec schema understood by the backend.
const SpecVersion = "v2"

// ExperimentSpec is the complete description of an experiment submission.
// It contains no maps so that serialization is deterministic: building the
// same spec twice yields byte-identical output.
type ExperimentSpec struct {
	Version     string     `json:"version" yaml:"version"`
	Budget      string     `json:"budget" yaml:"budget"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	Tasks       []TaskSpec `json:"tasks" yaml:"tasks"`
}

// TaskSpec describes one executable unit of an experiment. Replicated tasks
// are a single TaskSpec with Replicas > 1, not N duplicated entries.
type TaskSpec struct {
	Name                     string         `json:"name" yaml:"name"`
	Image                    ImageSource    `json:"image" yaml:"image"`
	Command                  []string       `json:"command,omitempty" yaml:"command,omitempty"`
	Arguments                []string       `json:"arguments,omitempty" yaml:"arguments,omitempty"`
	EnvVars                  []EnvVar       `json:"envVars,omitempty" yaml:"envVars,omitempty"`
	Datasets                 []DataMount    `json:"datasets,omitempty" yaml:"datasets,omitempty"`
	Result                   ResultSpec     `json:"result" yaml:"result"`
	Resources                *TaskResources `json:"resources,omitempty" yaml:"resources,omitempty"`
	Context                  TaskContext    `json:"context" yaml:"context"`
	Constraints              *Constraints   `json:"constraints,omitempty" yaml:"constraints,omitempty"`
	Replicas                 int            `json:"replicas,omitempty" yaml:"replicas,omitempty"`
	LeaderSelection          bool           `json:"leaderSelection,omitempty" yaml:"leaderSelection,omitempty"`
	HostNetworking           bool           `json:"hostNetworking,omitempty" yaml:"hostNetworking,omitempty"`
	PropagateFailure         *bool          `json:"propagateFailure,omitempty" yaml:"propagateFailure,omitempty"`
	SynchronizedStartTimeout string         `json:"synchronizedStartTimeout,omitempty" yaml:"synchronizedStartTimeout,omitempty"`
}

// ImageSource names the container image for a task. Exactly one field is set.
type ImageSource struct {
	Beaker string `json:"beaker,omitempty" yaml:"beaker,omitempty"`
	Docker string `json:"docker,omitempty" yaml:"docker,omitempty"`
}

// EnvVar is one environment variable for a task. The value comes either from
// a literal Value or from the named backend Secret, never both.
type EnvVar struct {
	Name   string `json:"name" yaml:"name"`
	Value  string `json:"value,omitempty" yaml:"value,omitempty"`
	Secret string `json:"secret,omitempty" yaml:"secret,omitempty"`
}

// DataSource names the origin of a data mount. Exactly one field is set.
type DataSource struct {
	Beaker   string `json:"beaker,omitempty" yaml:"beaker,omitempty"`
	HostPath string `json:"hostPath,omitempty" yaml:"hostPath,omitempty"`
}

// DataMount attaches a data source to a path inside the task container.
type DataMount struct {
	Source    DataSource `json:"source" yaml:"source"`
	SubPath   string     `json:"subPath,omitempty" yaml:"subPath,omitempty"`
	MountPath string     `json:"mountPath" yaml:"mountPath"`
}

// ResultSpec names the container path whose contents are persisted as the
// task's result dataset.
type ResultSpec struct {
	Path string `json:"path" yaml:"path"`
}

// TaskResources is the minimum hardware to schedule a task onto. Absent
// fields mean no minimum. Memory values are canonical byte counts.
type TaskResources struct {
	CPUCount     float64 `json:"cpuCount,omitempty" yaml:"cpuCount,omitempty"`
	GPUCount     int     `json:"gpuCount,omitempty" yaml:"gpuCount,omitempty"`
	Memory       int64   `json:"memory,omitempty" yaml:"memory,omitempty"`
	SharedMemory int64   `json:"sharedMemory,omitempty" yaml:"sharedMemory,omitempty"`
}

// TaskContext carries scheduling directives that are not hardware minimums.
type TaskContext struct {
	Priority    Priority `json:"priority,omitempty" yaml:"priority,omitempty"`
	Preemptible bool     `json:"preemptible,omitempty" yaml:"preemptible,omitempty"`
}

// Constraints restrict where a task may be scheduled.
type Constraints struct {
	Cluster  []string `json:"cluster,omitempty" yaml:"cluster,omitempty"`
	Hostname []string `json:"hostname,omitempty" yaml:"hostname,omitempty"`
}

// ToJSON renders the spec as indented JSON, as shown to users on dry runs.
func (s *ExperimentSpec) ToJSON() (string, error) {
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal experiment spec")
	}
	return string(b), nil
}

// ToFile writes the spec as YAML to the given path on fs.
func (s *ExperimentSpec) ToFile(fs afero.Fs, path string) error {
	b, err := yaml.Marshal(s)
	if err != nil {
		return errors.Wrap(err, "failed to marshal experiment spec")
	}
	if err := afero.WriteFile(fs, path, b, 0o644); err != nil {
		return errors.Wrapf(err, "failed to write experiment spec to %s", path)
	}
	return nil
}
