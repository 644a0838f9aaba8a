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

// Package config loads the backend connection settings for gantry. Settings
// come from a YAML config file when present, with environment variables
// taking precedence, matching how the official Beaker clients behave.
package config

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// DefaultAddress is used when neither the config file nor the environment
// names a backend.
const DefaultAddress = "https://beaker.org"

// Config holds everything needed to construct a backend client.
type Config struct {
	// Address is the base URL of the backend API.
	Address string `yaml:"agent_address"`

	// Token is the user's API token.
	Token string `yaml:"user_token"`

	// DefaultWorkspace scopes submissions when no --workspace is given.
	DefaultWorkspace string `yaml:"default_workspace"`
}

// Load reads the config file (if any) and applies environment overrides.
// Environment variables: BEAKER_ADDR, BEAKER_TOKEN, BEAKER_DEFAULT_WORKSPACE,
// and BEAKER_CONFIG to relocate the config file itself.
func Load(fs afero.Fs) (*Config, error) {
	cfg := &Config{Address: DefaultAddress}

	path := configPath()
	if path != "" {
		if ok, _ := afero.Exists(fs, path); ok {
			b, err := afero.ReadFile(fs, path)
			if err != nil {
				return nil, errors.Wrapf(err, "failed to read config file %s", path)
			}
			if err := yaml.Unmarshal(b, cfg); err != nil {
				return nil, errors.Wrapf(err, "failed to parse config file %s", path)
			}
			if cfg.Address == "" {
				cfg.Address = DefaultAddress
			}
		}
	}

	if v := os.Getenv("BEAKER_ADDR"); v != "" {
		cfg.Address = v
	}
	if v := os.Getenv("BEAKER_TOKEN"); v != "" {
		cfg.Token = v
	}
	if v := os.Getenv("BEAKER_DEFAULT_WORKSPACE"); v != "" {
		cfg.DefaultWorkspace = v
	}

	if cfg.Token == "" {
		return nil, errors.New("no backend token found: set BEAKER_TOKEN or add user_token to the config file")
	}
	return cfg, nil
}

func configPath() string {
	if v := os.Getenv("BEAKER_CONFIG"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".beaker", "config.yml")
}
