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

package config

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	t.Setenv("BEAKER_CONFIG", "")
	t.Setenv("BEAKER_ADDR", "")
	t.Setenv("BEAKER_TOKEN", "")
	t.Setenv("BEAKER_DEFAULT_WORKSPACE", "")
}

func TestLoadFromFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("BEAKER_CONFIG", "/etc/beaker/config.yml")

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/etc/beaker/config.yml", []byte(
		"agent_address: https://beaker.example.org\n"+
			"user_token: file-token\n"+
			"default_workspace: team/ws\n",
	), 0o600))

	cfg, err := Load(fs)
	require.NoError(t, err)
	require.Equal(t, "https://beaker.example.org", cfg.Address)
	require.Equal(t, "file-token", cfg.Token)
	require.Equal(t, "team/ws", cfg.DefaultWorkspace)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("BEAKER_CONFIG", "/etc/beaker/config.yml")
	t.Setenv("BEAKER_TOKEN", "env-token")
	t.Setenv("BEAKER_DEFAULT_WORKSPACE", "env/ws")

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/etc/beaker/config.yml", []byte(
		"user_token: file-token\ndefault_workspace: team/ws\n",
	), 0o600))

	cfg, err := Load(fs)
	require.NoError(t, err)
	require.Equal(t, "env-token", cfg.Token)
	require.Equal(t, "env/ws", cfg.DefaultWorkspace)
	require.Equal(t, DefaultAddress, cfg.Address, "address falls back to the default when the file omits it")
}

func TestLoadEnvOnly(t *testing.T) {
	clearEnv(t)
	t.Setenv("BEAKER_CONFIG", "/nonexistent/config.yml")
	t.Setenv("BEAKER_TOKEN", "env-token")

	cfg, err := Load(afero.NewMemMapFs())
	require.NoError(t, err)
	require.Equal(t, "env-token", cfg.Token)
	require.Equal(t, DefaultAddress, cfg.Address)
}

func TestLoadMissingToken(t *testing.T) {
	clearEnv(t)
	t.Setenv("BEAKER_CONFIG", "/nonexistent/config.yml")

	_, err := Load(afero.NewMemMapFs())
	require.Error(t, err)
	require.Contains(t, err.Error(), "BEAKER_TOKEN")
}

func TestLoadMalformedFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("BEAKER_CONFIG", "/etc/beaker/config.yml")

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/etc/beaker/config.yml", []byte("{not yaml"), 0o600))

	_, err := Load(fs)
	require.Error(t, err)
	require.Contains(t, err.Error(), "config file")
}
