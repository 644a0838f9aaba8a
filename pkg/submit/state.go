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

package submit

import "github.com/vkramanuj/beaker-gantry/pkg/api"

// Status tracks a submission from build through its terminal result.
type Status string

const (
	// StatusBuilt: spec constructed, nothing sent to the backend yet.
	StatusBuilt Status = "built"

	// StatusSubmitted: the experiment exists on the backend.
	StatusSubmitted Status = "submitted"

	// StatusWatching: the controller is following job progress.
	StatusWatching Status = "watching"

	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusStopped   Status = "stopped"
	StatusTimedOut  Status = "timed-out"
)

// IsTerminal reports whether the submission has reached a final status.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusStopped, StatusTimedOut:
		return true
	default:
		return false
	}
}

// State is the runtime record of one submission. It is owned exclusively by
// the Controller that created it until a terminal status is reached, after
// which it is read-only.
type State struct {
	// ExperimentID is assigned by the backend on successful create.
	ExperimentID string

	// Name is the current display name. It starts as the requested name
	// and may gain a randomized suffix on conflict retry.
	Name string

	Status Status

	// LastJob is the most recently observed job, set once terminal.
	LastJob *api.Job
}

func statusForJob(job *api.Job) Status {
	if job == nil {
		return StatusFailed
	}
	switch job.Status {
	case api.JobSucceeded:
		return StatusSucceeded
	case api.JobStopped:
		return StatusStopped
	default:
		return StatusFailed
	}
}
