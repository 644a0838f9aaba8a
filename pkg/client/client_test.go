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

package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vkramanuj/beaker-gantry/pkg/api"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL, "test-token", "team/workspace", opts...)
	require.NoError(t, err)
	return c
}

func TestNewRequiresAddressAndToken(t *testing.T) {
	_, err := New("", "tok", "ws")
	require.Error(t, err)
	_, err = New("https://example.org", "", "ws")
	require.Error(t, err)
}

func TestRequestHeaders(t *testing.T) {
	var got http.Header
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		fmt.Fprint(w, `{"id":"ex1"}`)
	})

	_, err := c.GetExperiment(context.Background(), "ex1")
	require.NoError(t, err)
	require.Equal(t, "Bearer test-token", got.Get("Authorization"))
	require.NotEmpty(t, got.Get("X-Request-ID"))
}

func TestCreateExperiment(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/v3/workspaces/team%2Fworkspace/experiments", r.URL.EscapedPath())
		require.Equal(t, "demo", r.URL.Query().Get("name"))

		var spec api.ExperimentSpec
		require.NoError(t, json.NewDecoder(r.Body).Decode(&spec))
		require.Equal(t, api.SpecVersion, spec.Version)

		fmt.Fprint(w, `{"id":"ex1","name":"demo"}`)
	})

	exp, err := c.CreateExperiment(context.Background(), "demo", &api.ExperimentSpec{Version: api.SpecVersion})
	require.NoError(t, err)
	require.Equal(t, "ex1", exp.ID)
	require.Equal(t, "demo", exp.Name)
}

func TestCreateExperimentConflict(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		fmt.Fprint(w, `{"message":"name already in use"}`)
	})

	_, err := c.CreateExperiment(context.Background(), "demo", &api.ExperimentSpec{})
	require.True(t, IsConflict(err))
	require.Contains(t, err.Error(), "name already in use")
}

func TestGetImageNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message":"image does not exist"}`)
	})

	_, err := c.GetImage(context.Background(), "nope")
	require.True(t, IsNotFound(err))
	require.False(t, IsConflict(err))
}

func TestUnexpectedStatusIncludesMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, "backend on fire")
	})

	_, err := c.GetExperiment(context.Background(), "ex1")
	require.Error(t, err)
	require.False(t, IsConflict(err))
	require.False(t, IsNotFound(err))
	require.Contains(t, err.Error(), "backend on fire")
	require.Contains(t, err.Error(), "Internal Server Error")
}

func TestStopExperiment(t *testing.T) {
	var path, method string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		path, method = r.URL.Path, r.Method
	})

	require.NoError(t, c.StopExperiment(context.Background(), "ex1"))
	require.Equal(t, http.MethodPut, method)
	require.Equal(t, "/api/v3/experiments/ex1/stop", path)
}

func TestWaitForTerminal(t *testing.T) {
	var calls atomic.Int64
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		exp := api.Experiment{
			ID:    "ex1",
			Tasks: []api.Task{{ID: "t1", LatestJob: &api.Job{ID: "j1", Status: api.JobRunning}}},
		}
		if calls.Add(1) >= 3 {
			exp.Tasks[0].LatestJob.Status = api.JobSucceeded
		}
		require.NoError(t, json.NewEncoder(w).Encode(exp))
	}, WithPollInterval(time.Millisecond))

	exp, job, err := c.WaitForTerminal(context.Background(), "ex1", -1)
	require.NoError(t, err)
	require.True(t, exp.IsTerminal())
	require.Equal(t, api.JobSucceeded, job.Status)
	require.GreaterOrEqual(t, calls.Load(), int64(3))
}

func TestWaitForTerminalTimeout(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		exp := api.Experiment{
			ID:    "ex1",
			Tasks: []api.Task{{ID: "t1", LatestJob: &api.Job{ID: "j1", Status: api.JobRunning}}},
		}
		require.NoError(t, json.NewEncoder(w).Encode(exp))
	}, WithPollInterval(time.Millisecond))

	_, _, err := c.WaitForTerminal(context.Background(), "ex1", 10*time.Millisecond)
	require.ErrorIs(t, err, ErrWaitTimeout)
}

func TestWaitForTerminalCancelled(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		exp := api.Experiment{
			ID:    "ex1",
			Tasks: []api.Task{{ID: "t1", LatestJob: &api.Job{ID: "j1", Status: api.JobRunning}}},
		}
		require.NoError(t, json.NewEncoder(w).Encode(exp))
	}, WithPollInterval(time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, _, err := c.WaitForTerminal(ctx, "ex1", -1)
	require.ErrorIs(t, err, context.Canceled)
}

func TestFollowLogs(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v3/experiments/ex1/logs", r.URL.Path)
		require.Equal(t, "true", r.URL.Query().Get("follow"))
		fmt.Fprint(w, "line one\nline two\n")
	})

	rc, err := c.FollowLogs(context.Background(), "ex1")
	require.NoError(t, err)
	defer rc.Close()
	out, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, "line one\nline two\n", string(out))
}

func TestPreemptJobs(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/v3/clusters/org%2Fgpu/preempt", r.URL.EscapedPath())
		fmt.Fprint(w, `{"job_ids":["j1","j2"]}`)
	})

	jobs, err := c.PreemptJobs(context.Background(), "org/gpu")
	require.NoError(t, err)
	require.Equal(t, []string{"j1", "j2"}, jobs)
}

func TestUpdateCluster(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPatch, r.Method)
		var patch api.ClusterPatch
		require.NoError(t, json.NewDecoder(r.Body).Decode(&patch))
		require.NotNil(t, patch.AllowPreemptible)
		require.True(t, *patch.AllowPreemptible)
		fmt.Fprint(w, `{"id":"cl1","full_name":"org/gpu"}`)
	})

	allow := true
	cl, err := c.UpdateCluster(context.Background(), "org/gpu", api.ClusterPatch{AllowPreemptible: &allow})
	require.NoError(t, err)
	require.Equal(t, "org/gpu", cl.FullName)
}

func TestWriteSecret(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.Equal(t, "/api/v3/workspaces/team%2Fworkspace/secrets/GITHUB_TOKEN", r.URL.EscapedPath())
		var body struct {
			Value string `json:"value"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "ghp_secret", body.Value)
	})

	require.NoError(t, c.WriteSecret(context.Background(), "GITHUB_TOKEN", "ghp_secret"))
}

func TestExperimentURL(t *testing.T) {
	c, err := New("https://beaker.org/", "tok", "team/ws")
	require.NoError(t, err)
	require.Equal(t, "https://beaker.org/ex/ex1", c.ExperimentURL(&api.Experiment{ID: "ex1"}))
	require.Equal(t, "https://beaker.org/ws/team%2Fws", c.WorkspaceURL())
}
