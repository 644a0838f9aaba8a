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

package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/vkramanuj/beaker-gantry/pkg/api"
	"github.com/vkramanuj/beaker-gantry/pkg/client"
)

// displayResults prints the terminal outcome of an experiment. A failed job
// becomes a user-facing error so the process exits non-zero.
func displayResults(c *client.Client, exp *api.Experiment, job *api.Job) error {
	fmt.Fprintf(os.Stderr, "%s %s\n", color.New(color.Bold).Sprint("Experiment:"), c.ExperimentURL(exp))
	if job == nil {
		return userErrorf("experiment %s finished without running a job", exp.ID)
	}

	exitCode := "-"
	if job.ExitCode != nil {
		exitCode = fmt.Sprintf("%d", *job.ExitCode)
	}
	fmt.Fprintf(os.Stderr, "%s %s (exit code %s)\n",
		color.New(color.Bold).Sprint("Status:"), statusColor(job.Status), exitCode)

	switch job.Status {
	case api.JobSucceeded:
		return nil
	case api.JobStopped:
		return userErrorf("experiment %s was stopped", exp.ID)
	default:
		return userErrorf("experiment %s failed, see %s for details", exp.ID, c.ExperimentURL(exp))
	}
}

func statusColor(s api.JobStatus) string {
	switch s {
	case api.JobSucceeded:
		return color.GreenString(string(s))
	case api.JobFailed:
		return color.RedString(string(s))
	case api.JobStopped:
		return color.YellowString(string(s))
	default:
		return string(s)
	}
}
