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

// Package client implements the HTTP client for the Beaker backend. The
// surface is deliberately narrow: only the calls gantry needs to submit,
// watch, and manage experiments.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/vkramanuj/beaker-gantry/pkg/api"
)

// Client talks to one Beaker backend with one authorization token.
type Client struct {
	baseURL   string
	token     string
	workspace string
	http      *http.Client

	// pollInterval controls how often WaitForTerminal re-checks the
	// experiment. Shortened in tests.
	pollInterval time.Duration
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient substitutes the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithPollInterval overrides the wait-loop poll cadence.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) { c.pollInterval = d }
}

// New builds a client for the backend at address, authenticating with token.
// API calls are scoped to the given workspace.
func New(address, token, workspace string, opts ...Option) (*Client, error) {
	if address == "" {
		return nil, errors.New("backend address is required")
	}
	if token == "" {
		return nil, errors.New("backend token is required")
	}
	c := &Client{
		baseURL:      strings.TrimRight(address, "/"),
		token:        token,
		workspace:    workspace,
		http:         &http.Client{},
		pollInterval: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Workspace returns the workspace this client is scoped to.
func (c *Client) Workspace() string {
	return c.workspace
}

// ExperimentURL returns the browser URL for an experiment.
func (c *Client) ExperimentURL(exp *api.Experiment) string {
	return fmt.Sprintf("%s/ex/%s", c.baseURL, exp.ID)
}

// WorkspaceURL returns the browser URL for the client's workspace.
func (c *Client) WorkspaceURL() string {
	return fmt.Sprintf("%s/ws/%s", c.baseURL, url.PathEscape(c.workspace))
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body any) (*http.Request, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to encode %s %s body", method, path)
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rdr)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to build %s %s request", method, path)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// do executes the request and decodes a JSON response into out (if non-nil).
// Error responses are mapped onto the sentinel errors where a caller is
// expected to recover from them.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s failed", req.Method, req.URL.Path)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg := readErrorMessage(resp.Body)
		switch resp.StatusCode {
		case http.StatusConflict:
			return errors.Wrapf(ErrConflict, "%s %s: %s", req.Method, req.URL.Path, msg)
		case http.StatusNotFound:
			return errors.Wrapf(ErrNotFound, "%s %s: %s", req.Method, req.URL.Path, msg)
		default:
			return errors.Wrapf(&apiError{StatusCode: resp.StatusCode, Message: msg}, "%s %s", req.Method, req.URL.Path)
		}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "failed to decode %s %s response", req.Method, req.URL.Path)
	}
	return nil
}

func readErrorMessage(r io.Reader) string {
	b, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil {
		return ""
	}
	var body struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(b, &body) == nil && body.Message != "" {
		return body.Message
	}
	return strings.TrimSpace(string(b))
}

// CreateExperiment submits a spec under the given name. A name collision is
// reported as ErrConflict so the caller can retry under a mutated name.
func (c *Client) CreateExperiment(ctx context.Context, name string, spec *api.ExperimentSpec) (*api.Experiment, error) {
	q := url.Values{"name": {name}}
	req, err := c.newRequest(ctx, http.MethodPost, "/api/v3/workspaces/"+url.PathEscape(c.workspace)+"/experiments", q, spec)
	if err != nil {
		return nil, err
	}
	var exp api.Experiment
	if err := c.do(req, &exp); err != nil {
		return nil, err
	}
	return &exp, nil
}

// GetExperiment fetches an experiment by ID or name.
func (c *Client) GetExperiment(ctx context.Context, experiment string) (*api.Experiment, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/v3/experiments/"+url.PathEscape(experiment), nil, nil)
	if err != nil {
		return nil, err
	}
	var exp api.Experiment
	if err := c.do(req, &exp); err != nil {
		return nil, err
	}
	return &exp, nil
}

// StopExperiment asks the backend to cancel all of an experiment's jobs.
func (c *Client) StopExperiment(ctx context.Context, experiment string) error {
	req, err := c.newRequest(ctx, http.MethodPut, "/api/v3/experiments/"+url.PathEscape(experiment)+"/stop", nil, nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

// WaitForTerminal blocks until every task of the experiment reaches a
// terminal state, then returns the experiment and the first task's final job.
// A negative timeout waits indefinitely; expiry yields ErrWaitTimeout.
func (c *Client) WaitForTerminal(ctx context.Context, experiment string, timeout time.Duration) (*api.Experiment, *api.Job, error) {
	var deadline time.Time
	if timeout >= 0 {
		deadline = time.Now().Add(timeout)
	}
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()
	for {
		exp, err := c.GetExperiment(ctx, experiment)
		if err != nil {
			return nil, nil, err
		}
		if exp.IsTerminal() {
			return exp, exp.Tasks[0].LatestJob, nil
		}
		if !deadline.IsZero() && !time.Now().Before(deadline) {
			return nil, nil, errors.WithStack(ErrWaitTimeout)
		}
		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// PreemptJobs preempts every job currently running on the cluster and
// returns the IDs of the jobs that were preempted. Individual job failures
// are collected by the backend, not surfaced here.
func (c *Client) PreemptJobs(ctx context.Context, cluster string) ([]string, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/api/v3/clusters/"+url.PathEscape(cluster)+"/preempt", nil, nil)
	if err != nil {
		return nil, err
	}
	var body struct {
		JobIDs []string `json:"job_ids"`
	}
	if err := c.do(req, &body); err != nil {
		return nil, err
	}
	return body.JobIDs, nil
}

// ListClusters returns every cluster visible to the caller.
func (c *Client) ListClusters(ctx context.Context) ([]api.Cluster, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/v3/clusters", nil, nil)
	if err != nil {
		return nil, err
	}
	var body struct {
		Data []api.Cluster `json:"data"`
	}
	if err := c.do(req, &body); err != nil {
		return nil, err
	}
	return body.Data, nil
}

// ListClusterNodes returns the nodes of one cluster.
func (c *Client) ListClusterNodes(ctx context.Context, cluster string) ([]api.Node, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/v3/clusters/"+url.PathEscape(cluster)+"/nodes", nil, nil)
	if err != nil {
		return nil, err
	}
	var body struct {
		Data []api.Node `json:"data"`
	}
	if err := c.do(req, &body); err != nil {
		return nil, err
	}
	return body.Data, nil
}

// ClusterUtilization returns the current occupancy of one cluster.
func (c *Client) ClusterUtilization(ctx context.Context, cluster string) (*api.ClusterUtilization, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/v3/clusters/"+url.PathEscape(cluster)+"/utilization", nil, nil)
	if err != nil {
		return nil, err
	}
	var util api.ClusterUtilization
	if err := c.do(req, &util); err != nil {
		return nil, err
	}
	return &util, nil
}

// UpdateCluster patches a cluster's editable fields.
func (c *Client) UpdateCluster(ctx context.Context, cluster string, patch api.ClusterPatch) (*api.Cluster, error) {
	req, err := c.newRequest(ctx, http.MethodPatch, "/api/v3/clusters/"+url.PathEscape(cluster), nil, patch)
	if err != nil {
		return nil, err
	}
	var cl api.Cluster
	if err := c.do(req, &cl); err != nil {
		return nil, err
	}
	return &cl, nil
}

// GetImage resolves an image by ID or name. Missing images are ErrNotFound.
func (c *Client) GetImage(ctx context.Context, image string) (*api.Image, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/v3/images/"+url.PathEscape(image), nil, nil)
	if err != nil {
		return nil, err
	}
	var img api.Image
	if err := c.do(req, &img); err != nil {
		return nil, err
	}
	return &img, nil
}

// GetDataset resolves a dataset by ID or name. Missing datasets are ErrNotFound.
func (c *Client) GetDataset(ctx context.Context, dataset string) (*api.Dataset, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/v3/datasets/"+url.PathEscape(dataset), nil, nil)
	if err != nil {
		return nil, err
	}
	var ds api.Dataset
	if err := c.do(req, &ds); err != nil {
		return nil, err
	}
	return &ds, nil
}

// CreateDataset uploads a small committed dataset from in-memory files,
// keyed by path within the dataset.
func (c *Client) CreateDataset(ctx context.Context, name string, files map[string][]byte) (*api.Dataset, error) {
	q := url.Values{"name": {name}}
	body := struct {
		Files map[string][]byte `json:"files"`
	}{Files: files}
	req, err := c.newRequest(ctx, http.MethodPost, "/api/v3/workspaces/"+url.PathEscape(c.workspace)+"/datasets", q, body)
	if err != nil {
		return nil, err
	}
	var ds api.Dataset
	if err := c.do(req, &ds); err != nil {
		return nil, err
	}
	return &ds, nil
}

// GetSecret checks that a secret exists in the workspace.
func (c *Client) GetSecret(ctx context.Context, name string) (*api.Secret, error) {
	req, err := c.newRequest(ctx, http.MethodGet, c.secretPath(name), nil, nil)
	if err != nil {
		return nil, err
	}
	var s api.Secret
	if err := c.do(req, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// WriteSecret creates or replaces a secret's value in the workspace.
func (c *Client) WriteSecret(ctx context.Context, name, value string) error {
	body := struct {
		Value string `json:"value"`
	}{Value: value}
	req, err := c.newRequest(ctx, http.MethodPut, c.secretPath(name), nil, body)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

func (c *Client) secretPath(name string) string {
	return "/api/v3/workspaces/" + url.PathEscape(c.workspace) + "/secrets/" + url.PathEscape(name)
}
