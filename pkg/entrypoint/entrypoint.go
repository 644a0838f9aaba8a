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

// Package entrypoint stages the task bootstrap script as a backend dataset.
package entrypoint

import (
	"context"
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"fmt"

	"github.com/vkramanuj/beaker-gantry/pkg/api"
	"github.com/vkramanuj/beaker-gantry/pkg/client"
	"github.com/vkramanuj/beaker-gantry/pkg/logging"
	"github.com/vkramanuj/beaker-gantry/pkg/spec"
)

//go:embed entrypoint.sh
var script []byte

// Ensure returns the dataset holding the current entrypoint script,
// uploading it if this version of the script has never been staged in the
// workspace. The dataset name is content-addressed so that spec building
// stays deterministic for a given gantry release.
func Ensure(ctx context.Context, c *client.Client) (*api.Dataset, error) {
	sum := sha256.Sum256(script)
	name := fmt.Sprintf("gantry-entrypoint-%s", hex.EncodeToString(sum[:])[:12])

	ds, err := c.GetDataset(ctx, name)
	if err == nil {
		return ds, nil
	}
	if !client.IsNotFound(err) {
		return nil, err
	}

	logging.Info("Uploading entrypoint dataset %s...", name)
	return c.CreateDataset(ctx, name, map[string][]byte{spec.EntrypointScript: script})
}
