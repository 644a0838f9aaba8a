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
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// Sentinel errors for backend responses that callers recover from. Anything
// else coming back from the backend is unexpected and propagates with full
// diagnostic detail.
var (
	// ErrConflict indicates a name collision on create.
	ErrConflict = errors.New("name conflict")

	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrWaitTimeout indicates a wait call expired before the experiment
	// reached a terminal state.
	ErrWaitTimeout = errors.New("timed out waiting for experiment to finish")
)

// IsConflict reports whether err stems from a name collision.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsNotFound reports whether err stems from a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// apiError is returned for error responses that have no dedicated sentinel.
type apiError struct {
	StatusCode int
	Message    string
}

func (e *apiError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned %s", http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("backend returned %s: %s", http.StatusText(e.StatusCode), e.Message)
}
