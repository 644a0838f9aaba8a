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

// Package cmd wires the gantry CLI. Commands stay thin: they parse flags,
// construct the backend client, and delegate to the pkg/ packages.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/vkramanuj/beaker-gantry/pkg/client"
	"github.com/vkramanuj/beaker-gantry/pkg/config"
	"github.com/vkramanuj/beaker-gantry/pkg/spec"
	"github.com/vkramanuj/beaker-gantry/pkg/submit"
	"github.com/vkramanuj/beaker-gantry/pkg/version"
)

var workspace string

var rootCmd = &cobra.Command{
	Use:     "gantry",
	Short:   "Submit and watch experiments on a Beaker cluster backend.",
	Version: version.Version,
	Long: `Gantry runs your local code as an experiment on a Beaker cluster backend.
It packages the current commit's provenance into an experiment spec, submits
it, and can stream the results back as the experiment runs.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "",
		"The backend workspace to use. Defaults to your configured default workspace.")
}

// Execute runs the CLI and returns the process exit code. SIGINT and SIGTERM
// cancel the command context so the watch loop can convert them into a
// remote cancellation before exit.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	if isExpectedError(err) {
		// User-facing conditions print a single line, no stack trace.
		fmt.Fprintln(os.Stderr, color.RedString("Error:"), err.Error())
	} else {
		// Unexpected errors indicate a bug or an outage and keep their
		// full diagnostic detail.
		fmt.Fprintf(os.Stderr, "%s %+v\n", color.RedString("Unexpected error:"), err)
	}
	return 1
}

// isExpectedError reports whether err is a known user-facing condition
// (bad input, timeout, interruption, failed experiment) rather than a bug.
func isExpectedError(err error) bool {
	var ue *userError
	return spec.IsConfigurationError(err) ||
		errors.Is(err, submit.ErrTimedOut) ||
		errors.Is(err, submit.ErrInterrupted) ||
		errors.Is(err, context.Canceled) ||
		errors.As(err, &ue)
}

// userError marks command-level failures that are expected outcomes (for
// example, the experiment itself failed) and need no stack trace.
type userError struct {
	msg string
}

func (e *userError) Error() string {
	return e.msg
}

func userErrorf(format string, args ...any) error {
	return &userError{msg: fmt.Sprintf(format, args...)}
}

// newClient loads the backend configuration and builds a client scoped to
// the selected workspace.
func newClient() (*client.Client, error) {
	cfg, err := config.Load(afero.NewOsFs())
	if err != nil {
		return nil, err
	}
	ws := workspace
	if ws == "" {
		ws = cfg.DefaultWorkspace
	}
	if ws == "" {
		return nil, spec.ConfigErrorf("no workspace specified: pass --workspace or set a default workspace")
	}
	return client.New(cfg.Address, cfg.Token, ws)
}
