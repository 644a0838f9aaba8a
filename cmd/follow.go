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
	"os"

	"github.com/spf13/cobra"

	"github.com/vkramanuj/beaker-gantry/pkg/client"
	"github.com/vkramanuj/beaker-gantry/pkg/spec"
	"github.com/vkramanuj/beaker-gantry/pkg/submit"
)

func init() {
	rootCmd.AddCommand(followCmd)
}

var followCmd = &cobra.Command{
	Use:   "follow EXPERIMENT",
	Short: "Follow the logs of a running experiment.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c, err := newClient()
		if err != nil {
			return err
		}
		exp, err := c.GetExperiment(ctx, args[0])
		if client.IsNotFound(err) {
			return spec.ConfigErrorf("experiment '%s' not found", args[0])
		}
		if err != nil {
			return err
		}

		controller := submit.NewAttached(c, exp, submit.WithLogOutput(os.Stdout))
		state, err := controller.Watch(ctx, -1, true)
		if err != nil {
			return err
		}
		return displayResults(c, exp, state.LastJob)
	},
}
