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
	"io"
	"net/http"
	"net/url"

	"github.com/pkg/errors"
)

// FollowLogs opens a streaming read of an experiment's log output. The
// returned reader blocks between chunks while the experiment is producing
// output and reaches EOF when the backend closes the stream, which happens
// either at a flush boundary or when the experiment ends. Callers re-issue
// the call to keep following. Canceling ctx unblocks a pending read.
func (c *Client) FollowLogs(ctx context.Context, experiment string) (io.ReadCloser, error) {
	q := url.Values{"follow": {"true"}}
	req, err := c.newRequest(ctx, http.MethodGet, "/api/v3/experiments/"+url.PathEscape(experiment)+"/logs", q, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open log stream for experiment %s", experiment)
	}
	if resp.StatusCode >= 300 {
		defer resp.Body.Close()
		msg := readErrorMessage(resp.Body)
		if resp.StatusCode == http.StatusNotFound {
			return nil, errors.Wrapf(ErrNotFound, "experiment %s logs: %s", experiment, msg)
		}
		return nil, errors.Wrapf(&apiError{StatusCode: resp.StatusCode, Message: msg}, "experiment %s logs", experiment)
	}
	return resp.Body, nil
}
