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

// Package api defines the wire types exchanged with the Beaker backend.
package api

import "time"

// Priority is the scheduling priority class of a job.
type Priority string

const (
	PriorityLow         Priority = "low"
	PriorityNormal      Priority = "normal"
	PriorityHigh        Priority = "high"
	PriorityUrgent      Priority = "urgent"
	PriorityPreemptible Priority = "preemptible"
)

// Priorities lists every valid priority, in ascending order of urgency.
var Priorities = []Priority{
	PriorityLow,
	PriorityNormal,
	PriorityHigh,
	PriorityUrgent,
	PriorityPreemptible,
}

// ParsePriority validates a user-supplied priority string.
func ParsePriority(s string) (Priority, bool) {
	for _, p := range Priorities {
		if string(p) == s {
			return p, true
		}
	}
	return "", false
}

// JobStatus is the lifecycle status of a single job.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
	JobStopped   JobStatus = "stopped"
)

// IsTerminal reports whether the status is final.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobSucceeded, JobFailed, JobStopped:
		return true
	default:
		return false
	}
}

// Experiment is a named submission of one or more tasks.
type Experiment struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	FullName string    `json:"full_name"`
	Created  time.Time `json:"created"`
	Tasks    []Task    `json:"tasks,omitempty"`
}

// IsTerminal reports whether every task of the experiment has finished.
func (e *Experiment) IsTerminal() bool {
	if len(e.Tasks) == 0 {
		return false
	}
	for _, t := range e.Tasks {
		if t.LatestJob == nil || !t.LatestJob.Status.IsTerminal() {
			return false
		}
	}
	return true
}

// Task is one executable unit within an experiment.
type Task struct {
	ID           string `json:"id"`
	ExperimentID string `json:"experiment_id"`
	Name         string `json:"name"`
	LatestJob    *Job   `json:"latest_job,omitempty"`
}

// Job is one running instance of a task.
type Job struct {
	ID       string    `json:"id"`
	TaskID   string    `json:"task_id"`
	Status   JobStatus `json:"status"`
	ExitCode *int      `json:"exit_code,omitempty"`
	Started  time.Time `json:"started,omitzero"`
	Ended    time.Time `json:"ended,omitzero"`
}

// NodeResources describes the hardware available on (or free on) a node.
type NodeResources struct {
	CPUCount float64 `json:"cpu_count"`
	GPUCount int     `json:"gpu_count"`
	GPUType  string  `json:"gpu_type,omitempty"`
	Memory   int64   `json:"memory,omitempty"`
}

// Cluster is a named group of nodes that jobs can be scheduled onto.
type Cluster struct {
	ID       string         `json:"id"`
	FullName string         `json:"full_name"`
	IsCloud  bool           `json:"is_cloud"`
	NodeSpec *NodeResources `json:"node_spec,omitempty"`
}

// Node is a single machine within a cluster.
type Node struct {
	ID       string        `json:"id"`
	Hostname string        `json:"hostname"`
	Limits   NodeResources `json:"limits"`
	Free     NodeResources `json:"free"`
}

// NodeUtilization is the point-in-time occupancy of a node.
type NodeUtilization struct {
	Node
	RunningJobs            int `json:"running_jobs"`
	RunningPreemptibleJobs int `json:"running_preemptible_jobs"`
}

// ClusterUtilization is the point-in-time occupancy of a cluster.
type ClusterUtilization struct {
	Cluster                Cluster           `json:"cluster"`
	RunningJobs            int               `json:"running_jobs"`
	RunningPreemptibleJobs int               `json:"running_preemptible_jobs"`
	QueuedJobs             int               `json:"queued_jobs"`
	Nodes                  []NodeUtilization `json:"nodes,omitempty"`
}

// ClusterPatch describes a change to a cluster's editable fields.
type ClusterPatch struct {
	AllowPreemptible *bool `json:"allow_preemptible,omitempty"`
}

// Image is a handle to a container image stored in the backend.
type Image struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	FullName string `json:"full_name"`
}

// Dataset is a handle to a dataset stored in the backend.
type Dataset struct {
	ID       string `json:"id"`
	Name     string `json:"name,omitempty"`
	FullName string `json:"full_name,omitempty"`
}

// Secret is a named opaque value scoped to a workspace.
type Secret struct {
	Name    string    `json:"name"`
	Created time.Time `json:"created,omitzero"`
	Updated time.Time `json:"updated,omitzero"`
}
