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

// Package submit drives an experiment spec from "built" to a terminal
// result: creation with name-conflict retry, the optional preemption side
// effect, and the watch loop.
package submit

import (
	"context"
	"io"
	"math/rand"
	"time"

	"github.com/pkg/errors"

	"github.com/vkramanuj/beaker-gantry/pkg/api"
	"github.com/vkramanuj/beaker-gantry/pkg/client"
	"github.com/vkramanuj/beaker-gantry/pkg/logging"
)

// MaxNameAttempts bounds the conflict-retry loop. Collisions on the
// randomized suffix are vanishingly rare, so hitting the bound means the
// backend is rejecting every name and retrying forever would hang.
const MaxNameAttempts = 20

// Terminal outcomes of the watch loop that are user-facing conditions, not
// bugs: they are reported as a single line and exit non-zero.
var (
	// ErrTimedOut: the configured wait elapsed before a terminal state.
	ErrTimedOut = errors.New("timed out waiting for the experiment to finish")

	// ErrInterrupted: the watch was cancelled by a signal or interactive
	// interrupt.
	ErrInterrupted = errors.New("interrupted while waiting for the experiment to finish")
)

// Backend is the slice of the backend client the controller depends on.
// *client.Client satisfies it; tests substitute a fake.
type Backend interface {
	CreateExperiment(ctx context.Context, name string, spec *api.ExperimentSpec) (*api.Experiment, error)
	GetExperiment(ctx context.Context, experiment string) (*api.Experiment, error)
	StopExperiment(ctx context.Context, experiment string) error
	WaitForTerminal(ctx context.Context, experiment string, timeout time.Duration) (*api.Experiment, *api.Job, error)
	FollowLogs(ctx context.Context, experiment string) (io.ReadCloser, error)
	PreemptJobs(ctx context.Context, cluster string) ([]string, error)
}

// Controller owns one submission for the duration of one run invocation.
type Controller struct {
	backend Backend
	state   State

	// logOutput receives streamed job logs when following.
	logOutput io.Writer

	// followInterval is the pause between liveness checks while
	// following logs. Shortened in tests.
	followInterval time.Duration

	// suffix generates the conflict-retry name suffix. Replaceable in
	// tests for determinism.
	suffix func() string
}

// Option customizes a Controller.
type Option func(*Controller)

// WithLogOutput directs followed job logs to w instead of discarding them.
func WithLogOutput(w io.Writer) Option {
	return func(c *Controller) { c.logOutput = w }
}

// WithFollowInterval overrides the pause between liveness checks.
func WithFollowInterval(d time.Duration) Option {
	return func(c *Controller) { c.followInterval = d }
}

// WithSuffixFunc overrides the retry-suffix generator.
func WithSuffixFunc(f func() string) Option {
	return func(c *Controller) { c.suffix = f }
}

// New builds a controller around the given backend.
func New(backend Backend, opts ...Option) *Controller {
	c := &Controller{
		backend:        backend,
		state:          State{Status: StatusBuilt},
		logOutput:      io.Discard,
		followInterval: 2 * time.Second,
		suffix:         randomSuffix,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewAttached builds a controller bound to an experiment that already
// exists, as used by the follow command.
func NewAttached(backend Backend, exp *api.Experiment, opts ...Option) *Controller {
	c := New(backend, opts...)
	c.state.ExperimentID = exp.ID
	c.state.Name = exp.Name
	c.state.Status = StatusSubmitted
	return c
}

// State returns a snapshot of the submission state.
func (c *Controller) State() State {
	return c.state
}

// randomSuffix returns "-" plus two lowercase letters and two digits,
// matching the backend's tolerance for short, human-readable disambiguators.
func randomSuffix() string {
	const letters = "abcdefghijklmnopqrstuvwxyz"
	const digits = "0123456789"
	return "-" + string([]byte{
		letters[rand.Intn(len(letters))],
		letters[rand.Intn(len(letters))],
		digits[rand.Intn(len(digits))],
		digits[rand.Intn(len(digits))],
	})
}

// Submit creates the experiment under the requested name. On a name
// collision the name gains a fresh randomized suffix and creation is
// retried, up to MaxNameAttempts. Any other backend error is fatal.
func (c *Controller) Submit(ctx context.Context, name string, expSpec *api.ExperimentSpec) (*api.Experiment, error) {
	c.state.Name = name
	for attempt := 0; attempt < MaxNameAttempts; attempt++ {
		exp, err := c.backend.CreateExperiment(ctx, c.state.Name, expSpec)
		if err == nil {
			c.state.ExperimentID = exp.ID
			c.state.Status = StatusSubmitted
			return exp, nil
		}
		if !client.IsConflict(err) {
			return nil, err
		}
		c.state.Name = name + c.suffix()
	}
	return nil, errors.Errorf("gave up creating experiment after %d name conflicts; is the backend rejecting '%s'?", MaxNameAttempts, name)
}

// StopPreemptibleJobs issues a best-effort "preempt everything on this
// cluster" request so the new submission can be placed. The request only
// makes sense when the submission itself is not preemptible and targets
// exactly one cluster; anything else is a warning, never an error.
func (c *Controller) StopPreemptibleJobs(ctx context.Context, priority api.Priority, clusters []string) {
	switch {
	case priority == api.PriorityPreemptible:
		logging.Warn("You cannot preempt other jobs when your job is preemptible.")
	case len(clusters) == 0:
		logging.Warn("Preempting jobs requires specifying a cluster.")
	case len(clusters) > 1:
		logging.Warn("Preempting jobs requires specifying a single cluster.")
	default:
		logging.Info("Preempting jobs on cluster %s...", clusters[0])
		preempted, err := c.backend.PreemptJobs(ctx, clusters[0])
		if err != nil {
			logging.Warn("Failed to preempt jobs on cluster %s: %v", clusters[0], err)
			return
		}
		if len(preempted) > 0 {
			logging.Info("Preempted %d jobs on cluster %s", len(preempted), clusters[0])
		} else {
			logging.Info("No more jobs to preempt")
		}
	}
}

// Watch blocks until the submitted experiment reaches a terminal state, the
// timeout elapses, or ctx is cancelled. A timeout of 0 returns immediately
// in the submitted state; a negative timeout waits indefinitely. Both
// timeout expiry and cancellation issue a best-effort remote stop before
// returning ErrTimedOut or ErrInterrupted respectively.
func (c *Controller) Watch(ctx context.Context, timeout time.Duration, followLogs bool) (State, error) {
	if c.state.Status != StatusSubmitted {
		return c.state, errors.Errorf("cannot watch an experiment in state %q", c.state.Status)
	}
	if timeout == 0 {
		return c.state, nil
	}
	c.state.Status = StatusWatching

	watchCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		watchCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var job *api.Job
	var err error
	if followLogs {
		job, err = c.follow(watchCtx)
	} else {
		_, job, err = c.backend.WaitForTerminal(watchCtx, c.state.ExperimentID, timeout)
	}
	if err != nil {
		return c.state, c.abort(ctx, watchCtx, err)
	}

	c.state.LastJob = job
	c.state.Status = statusForJob(job)
	return c.state, nil
}

// follow alternates blocking log reads with liveness checks until the
// experiment is terminal.
func (c *Controller) follow(ctx context.Context) (*api.Job, error) {
	for {
		rc, err := c.backend.FollowLogs(ctx, c.state.ExperimentID)
		if err != nil {
			return nil, err
		}
		_, copyErr := io.Copy(c.logOutput, rc)
		rc.Close()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if copyErr != nil {
			return nil, errors.Wrap(copyErr, "log stream failed")
		}

		exp, err := c.backend.GetExperiment(ctx, c.state.ExperimentID)
		if err != nil {
			return nil, err
		}
		if exp.IsTerminal() {
			return exp.Tasks[0].LatestJob, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.followInterval):
		}
	}
}

// abort classifies a watch failure, issues the remote stop for the cases
// that require one, and records the resulting state. The stop uses a fresh
// context since the watch context is already dead.
func (c *Controller) abort(ctx, watchCtx context.Context, err error) error {
	timedOut := errors.Is(err, client.ErrWaitTimeout) ||
		(errors.Is(watchCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil)
	interrupted := ctx.Err() != nil

	if !timedOut && !interrupted {
		// A real backend failure, not an expected outcome.
		return err
	}

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	if stopErr := c.backend.StopExperiment(stopCtx, c.state.ExperimentID); stopErr != nil {
		logging.Warn("Failed to stop experiment %s: %v", c.state.ExperimentID, stopErr)
	}

	if timedOut {
		c.state.Status = StatusTimedOut
		return errors.WithStack(ErrTimedOut)
	}
	c.state.Status = StatusStopped
	return errors.WithStack(ErrInterrupted)
}
