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
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/google/go-containerregistry/pkg/name"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/vkramanuj/beaker-gantry/pkg/api"
	"github.com/vkramanuj/beaker-gantry/pkg/client"
	"github.com/vkramanuj/beaker-gantry/pkg/entrypoint"
	"github.com/vkramanuj/beaker-gantry/pkg/gitrepo"
	"github.com/vkramanuj/beaker-gantry/pkg/logging"
	"github.com/vkramanuj/beaker-gantry/pkg/spec"
	"github.com/vkramanuj/beaker-gantry/pkg/submit"
)

// defaultImage is the managed image used when the user names neither a
// managed nor a public image.
const defaultImage = "ai2/conda"

// defaultGHTokenSecret is the workspace secret holding the GitHub token for
// cloning private repositories.
const defaultGHTokenSecret = "GITHUB_TOKEN"

var (
	runName          string
	runTaskName      string
	runDescription   string
	runClusters      []string
	runHostnames     []string
	runBeakerImage   string
	runDockerImage   string
	runCPUs          float64
	runGPUs          int
	runMemory        string
	runSharedMemory  string
	runDatasets      []string
	runMounts        []string
	runEnvVars       []string
	runEnvSecrets    []string
	runGHTokenSecret string
	runCondaFile     string
	runPipFile       string
	runVenv          string
	runNoPython      bool
	runInstall       string
	runShowLogs      bool
	runTimeout       int
	runAllowDirty    bool
	runYes           bool
	runDryRun        bool
	runSaveSpec      string
	runPriority      string
	runPreemptible   bool
	runStopPreempt   bool
	runReplicas      int
	runLeaderSelect  bool
	runHostNetwork   bool
	runPropFailure   bool
	runSyncStart     string
	runBudget        string
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runName, "name", "n", "", "A name to assign to the experiment. Defaults to a randomly generated name.")
	runCmd.Flags().StringVarP(&runTaskName, "task-name", "t", spec.DefaultTaskName, "A name to assign to the task.")
	runCmd.Flags().StringVarP(&runDescription, "description", "d", "", "A description for the experiment.")
	runCmd.Flags().StringSliceVarP(&runClusters, "cluster", "c", nil, "A potential cluster to use, may be given multiple times. Supports shell-style wildcards, e.g. 'ai2/*-cirrascale'.")
	runCmd.Flags().StringSliceVar(&runHostnames, "hostname", nil, "Hostname constraints for the experiment, may be given multiple times.")
	runCmd.Flags().StringVar(&runBeakerImage, "beaker-image", "", fmt.Sprintf("The name or ID of a managed image to use. Mutually exclusive with --docker-image. Defaults to '%s'.", defaultImage))
	runCmd.Flags().StringVar(&runDockerImage, "docker-image", "", "The name of a public Docker image to use. Mutually exclusive with --beaker-image.")
	runCmd.Flags().Float64Var(&runCPUs, "cpus", 0, "Minimum number of logical CPU cores (e.g. 4.0, 0.5).")
	runCmd.Flags().IntVar(&runGPUs, "gpus", 0, "Minimum number of GPUs (e.g. 1).")
	runCmd.Flags().StringVar(&runMemory, "memory", "", "Minimum available system memory as a number with unit suffix (e.g. 2.5GiB).")
	runCmd.Flags().StringVar(&runSharedMemory, "shared-memory", "", "Size of /dev/shm as a number with unit suffix (e.g. 2.5GiB).")
	runCmd.Flags().StringSliceVar(&runDatasets, "dataset", nil, "An input dataset in the form 'name:/mount/location' or 'name:subpath:/mount/location', may be given multiple times.")
	runCmd.Flags().StringSliceVarP(&runMounts, "mount", "m", nil, "Host directories to mount in the form 'SOURCE:TARGET', like 'docker run -v'. May be given multiple times.")
	runCmd.Flags().StringSliceVar(&runEnvVars, "env", nil, "Environment variables in the form 'NAME=VALUE', may be given multiple times.")
	runCmd.Flags().StringSliceVar(&runEnvSecrets, "env-secret", nil, "Environment variables sourced from secrets, in the form 'NAME=SECRET_NAME'.")
	runCmd.Flags().StringVar(&runGHTokenSecret, "gh-token-secret", defaultGHTokenSecret, "The name of the workspace secret holding your GitHub token.")
	runCmd.Flags().StringVar(&runCondaFile, "conda", "", "Path to a conda environment file for reconstructing your Python environment.")
	runCmd.Flags().StringVar(&runPipFile, "pip", "", "Path to a PIP requirements file for reconstructing your Python environment.")
	runCmd.Flags().StringVar(&runVenv, "venv", "", "The name of an existing conda environment on the image to use.")
	runCmd.Flags().BoolVar(&runNoPython, "no-python", false, "Skip setting up a Python environment altogether.")
	runCmd.Flags().StringVar(&runInstall, "install", "", `Override the default installation command, e.g. --install "python setup.py install".`)
	runCmd.Flags().BoolVar(&runShowLogs, "show-logs", true, "Stream logs to stdout as the experiment runs. Only takes effect when --timeout is non-zero.")
	runCmd.Flags().IntVar(&runTimeout, "timeout", 0, "Time to wait (seconds) for the experiment to finish. -1 waits indefinitely, 0 doesn't wait at all.")
	runCmd.Flags().BoolVar(&runAllowDirty, "allow-dirty", false, "Allow submitting with a dirty working directory.")
	runCmd.Flags().BoolVarP(&runYes, "yes", "y", false, "Skip all confirmation prompts.")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "Do a dry run only.")
	runCmd.Flags().StringVar(&runSaveSpec, "save-spec", "", "A path to save the generated experiment spec to.")
	runCmd.Flags().StringVar(&runPriority, "priority", "", "The job priority (low, normal, high, urgent, preemptible). Defaults to 'preemptible' when no cluster is given.")
	runCmd.Flags().BoolVar(&runPreemptible, "preemptible", false, "Mark the job as preemptible.")
	runCmd.Flags().BoolVar(&runStopPreempt, "stop-preemptible", false, "Stop all preemptible jobs on the target cluster.")
	runCmd.Flags().IntVar(&runReplicas, "replicas", 0, "The number of task replicas to run.")
	runCmd.Flags().BoolVar(&runLeaderSelect, "leader-selection", false, "Make the first task replica the leader. Implies --host-networking.")
	runCmd.Flags().BoolVar(&runHostNetwork, "host-networking", false, "Give each task replica the host's network.")
	runCmd.Flags().BoolVar(&runPropFailure, "propagate-failure", false, "Stop the experiment if any task fails.")
	runCmd.Flags().StringVar(&runSyncStart, "synchronized-start-timeout", "", "How long replica jobs wait for each other before starting.")
	runCmd.Flags().StringVarP(&runBudget, "budget", "b", "", "The budget account to associate with the experiment.")
}

var runCmd = &cobra.Command{
	Use:   "run [flags] -- ARGS...",
	Short: "Run an experiment on the cluster backend.",
	Long: `Run an experiment on the cluster backend.

Example:

  $ gantry run --name 'hello-world' -- python -c 'print("Hello, World!")'`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRun(cmd, args)
	},
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if len(args) == 0 {
		return spec.ConfigErrorf("[ARGS]... are required! For example:\n$ gantry run -- python -c 'print(\"Hello, World!\")'")
	}
	if runBeakerImage == "" && runDockerImage == "" {
		runBeakerImage = defaultImage
	}

	req := spec.RunRequest{
		TaskName:                 runTaskName,
		Arguments:                args,
		Description:              runDescription,
		Budget:                   runBudget,
		BeakerImage:              runBeakerImage,
		DockerImage:              runDockerImage,
		CPUs:                     runCPUs,
		GPUs:                     runGPUs,
		Memory:                   runMemory,
		SharedMemory:             runSharedMemory,
		ClusterPatterns:          runClusters,
		Hostnames:                runHostnames,
		Preemptible:              runPreemptible,
		Replicas:                 runReplicas,
		LeaderSelection:          runLeaderSelect,
		HostNetworking:           runHostNetwork,
		SynchronizedStartTimeout: runSyncStart,
		CondaFile:                runCondaFile,
		PipFile:                  runPipFile,
		Venv:                     runVenv,
		NoPython:                 runNoPython,
		InstallCommand:           runInstall,
	}
	if cmd.Flags().Changed("propagate-failure") {
		req.PropagateFailure = &runPropFailure
	}
	if runPriority != "" {
		p, ok := api.ParsePriority(runPriority)
		if !ok {
			return spec.ConfigErrorf("invalid --priority '%s'", runPriority)
		}
		req.Priority = p
	}
	if err := parseRunOptions(&req); err != nil {
		return err
	}
	if err := resolvePythonEnv(afero.NewOsFs(), &req); err != nil {
		return err
	}
	if runDockerImage != "" {
		if _, err := name.ParseReference(runDockerImage); err != nil {
			return spec.ConfigErrorf("invalid --docker-image reference '%s': %v", runDockerImage, err)
		}
	}

	if req.Budget == "" && runYes {
		return spec.ConfigErrorf("budget account must be specified with --budget")
	}
	if req.Budget == "" {
		if !stdinIsTerminal() {
			return spec.ConfigErrorf("budget account must be specified with --budget")
		}
		budget, err := promptLine("Missing --budget option. Please enter the budget account to associate with this experiment", "")
		if err != nil {
			return err
		}
		if budget == "" {
			return spec.ConfigErrorf("budget account must be specified!")
		}
		req.Budget = budget
	}

	// Resolve repository provenance before touching the backend.
	repo, err := gitrepo.Inspect(".", runAllowDirty)
	if err != nil {
		return err
	}
	isPublic, err := gitrepo.IsPublic(ctx, nil, repo.Account, repo.Repo)
	if err != nil {
		return err
	}
	req.GitHubAccount = repo.Account
	req.GitHubRepo = repo.Repo
	req.GitRef = repo.Ref
	req.PublicRepo = isPublic

	c, err := newClient()
	if err != nil {
		return err
	}

	if err := resolveBackendInputs(ctx, c, &req); err != nil {
		return err
	}

	// The catalog snapshot is only needed when cluster patterns were given.
	var catalog []string
	if len(req.ClusterPatterns) > 0 {
		clusters, err := c.ListClusters(ctx)
		if err != nil {
			return err
		}
		for _, cl := range clusters {
			catalog = append(catalog, cl.FullName)
		}
	}

	expSpec, err := spec.Build(req, catalog)
	if err != nil {
		return err
	}

	if runSaveSpec != "" {
		if err := saveSpec(expSpec, runSaveSpec); err != nil {
			return err
		}
	}

	expName := runName
	if expName == "" {
		expName = uniqueName()
		if !runYes && stdinIsTerminal() {
			expName, err = promptLine("What would you like to call this experiment?", expName)
			if err != nil {
				return err
			}
		}
	}
	if expName == "" {
		return spec.ConfigErrorf("experiment name cannot be empty")
	}

	if runDryRun {
		specJSON, err := expSpec.ToJSON()
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "%s\nWorkspace: %s\nCommit: https://github.com/%s/%s/commit/%s\nName: %s\n",
			color.New(color.Bold).Sprint("Dry run"), c.WorkspaceURL(), repo.Account, repo.Repo, repo.Ref, expName)
		fmt.Println(specJSON)
		return nil
	}

	controller := submit.New(c, submit.WithLogOutput(os.Stdout))
	exp, err := controller.Submit(ctx, expName, expSpec)
	if err != nil {
		return err
	}
	logging.Info("Experiment submitted, see progress at %s", c.ExperimentURL(exp))

	if runStopPreempt {
		var resolved []string
		if expSpec.Tasks[0].Constraints != nil {
			resolved = expSpec.Tasks[0].Constraints.Cluster
		}
		controller.StopPreemptibleJobs(ctx, expSpec.Tasks[0].Context.Priority, resolved)
	}

	state, err := controller.Watch(ctx, watchTimeout(runTimeout), runShowLogs)
	if err != nil {
		return err
	}
	if !state.Status.IsTerminal() {
		// Zero timeout: nothing to wait for.
		return nil
	}
	return displayResults(c, exp, state.LastJob)
}

// parseRunOptions validates and parses the repeated string options into the
// request, failing on the first malformed token.
func parseRunOptions(req *spec.RunRequest) error {
	for _, e := range runEnvVars {
		pair, err := spec.ParseEnv(e)
		if err != nil {
			return err
		}
		req.EnvVars = append(req.EnvVars, pair)
	}
	for _, e := range runEnvSecrets {
		pair, err := spec.ParseEnvSecret(e)
		if err != nil {
			return err
		}
		req.EnvSecrets = append(req.EnvSecrets, pair)
	}
	for _, m := range runMounts {
		mount, err := spec.ParseHostMount(m)
		if err != nil {
			return err
		}
		req.Mounts = append(req.Mounts, mount)
	}
	for _, d := range runDatasets {
		ds, err := spec.ParseDatasetMount(d)
		if err != nil {
			return err
		}
		req.Datasets = append(req.Datasets, ds)
	}
	return nil
}

// resolvePythonEnv validates explicitly named environment files and falls
// back to the conventional ones in the working directory when no explicit
// Python setup was requested.
func resolvePythonEnv(fs afero.Fs, req *spec.RunRequest) error {
	if req.CondaFile != "" {
		if ok, _ := afero.Exists(fs, req.CondaFile); !ok {
			return spec.ConfigErrorf("conda environment file '%s' does not exist", req.CondaFile)
		}
	}
	if req.PipFile != "" {
		if ok, _ := afero.Exists(fs, req.PipFile); !ok {
			return spec.ConfigErrorf("PIP requirements file '%s' does not exist", req.PipFile)
		}
	}
	if req.NoPython || req.Venv != "" || req.CondaFile != "" || req.PipFile != "" {
		return nil
	}
	if ok, _ := afero.Exists(fs, "environment.yml"); ok {
		req.CondaFile = "environment.yml"
		return nil
	}
	if ok, _ := afero.Exists(fs, "requirements.txt"); ok {
		req.PipFile = "requirements.txt"
	}
	return nil
}

// resolveBackendInputs exchanges user-supplied names for backend handles:
// the managed image, the input datasets, the GitHub token secret for private
// repositories, and the staged entrypoint dataset.
func resolveBackendInputs(ctx context.Context, c *client.Client, req *spec.RunRequest) error {
	if req.BeakerImage != "" && req.BeakerImage != defaultImage {
		img, err := c.GetImage(ctx, req.BeakerImage)
		if client.IsNotFound(err) {
			return spec.ConfigErrorf("image '%s' not found", req.BeakerImage)
		}
		if err != nil {
			return err
		}
		req.BeakerImage = img.FullName
	}

	if !req.PublicRepo {
		if err := ensureGitHubTokenSecret(ctx, c, runGHTokenSecret); err != nil {
			return err
		}
		req.GitHubTokenSecret = runGHTokenSecret
	}

	for i, d := range req.Datasets {
		ds, err := c.GetDataset(ctx, d.Dataset)
		if client.IsNotFound(err) {
			return spec.ConfigErrorf("dataset '%s' not found", d.Dataset)
		}
		if err != nil {
			return err
		}
		req.Datasets[i].Dataset = ds.ID
	}

	eds, err := entrypoint.Ensure(ctx, c)
	if err != nil {
		return err
	}
	req.EntrypointDataset = eds.ID
	return nil
}

// ensureGitHubTokenSecret makes sure the token secret exists, prompting the
// user to paste a token when it doesn't and a terminal is attached.
func ensureGitHubTokenSecret(ctx context.Context, c *client.Client, secretName string) error {
	_, err := c.GetSecret(ctx, secretName)
	if err == nil {
		return nil
	}
	if !client.IsNotFound(err) {
		return err
	}

	if runYes || !stdinIsTerminal() {
		return spec.ConfigErrorf(
			"GitHub token secret '%s' not found in workspace; create one with 'gantry config set-gh-token'", secretName)
	}
	logging.Warn("GitHub token secret '%s' not found in workspace.", secretName)
	logging.Warn("You can create a suitable token at https://github.com/settings/tokens/new with the 'repo' scope.")
	token, err := promptSecret("Please paste your GitHub token here")
	if err != nil {
		return err
	}
	if token == "" {
		return spec.ConfigErrorf("token cannot be empty!")
	}
	if err := c.WriteSecret(ctx, secretName, token); err != nil {
		return err
	}
	logging.Info("GitHub token uploaded to workspace as secret '%s'.", secretName)
	return nil
}

func saveSpec(expSpec *api.ExperimentSpec, path string) error {
	fs := afero.NewOsFs()
	if exists, _ := afero.Exists(fs, path); exists && !runYes {
		ok, err := confirm(fmt.Sprintf("The file '%s' already exists. Overwrite it?", path))
		if err != nil {
			return err
		}
		if !ok {
			return userErrorf("aborted")
		}
	}
	if err := expSpec.ToFile(fs, path); err != nil {
		return err
	}
	logging.Info("Experiment spec saved to %s", path)
	return nil
}

// watchTimeout converts the --timeout flag (seconds, -1 for forever) into
// the duration understood by the controller.
func watchTimeout(seconds int) time.Duration {
	if seconds < 0 {
		return -1
	}
	return time.Duration(seconds) * time.Second
}
