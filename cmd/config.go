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
	"github.com/spf13/cobra"

	"github.com/vkramanuj/beaker-gantry/pkg/logging"
	"github.com/vkramanuj/beaker-gantry/pkg/spec"
)

var configSecretName string

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configSetGHTokenCmd)

	configSetGHTokenCmd.Flags().StringVarP(&configSecretName, "secret", "s", defaultGHTokenSecret,
		"The name of the workspace secret to write to.")
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configure gantry for a specific workspace.",
}

var configSetGHTokenCmd = &cobra.Command{
	Use:   "set-gh-token TOKEN",
	Short: "Set or update the GitHub token secret for the workspace.",
	Long: `Set or update the GitHub token secret for the workspace.

You can create a suitable token at https://github.com/settings/tokens/new
with the 'repo' scope.

Example:

  $ gantry config set-gh-token "$GITHUB_TOKEN"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if args[0] == "" {
			return spec.ConfigErrorf("token cannot be empty!")
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		if err := c.WriteSecret(cmd.Context(), configSecretName, args[0]); err != nil {
			return err
		}
		logging.Info("GitHub token added to workspace '%s' as secret '%s'", c.Workspace(), configSecretName)
		return nil
	},
}
