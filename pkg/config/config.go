/*
 * Copyright 2025 Heatmanager Cloud.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package config loads and validates job configuration from JSON files.
//
// Secrets never live in the files themselves: any ${VAR} reference in the
// file is expanded from the environment before unmarshaling, so a config
// can ship with "password": "${TB_PASSWORD}" and the credential stays in
// the deployment environment.
package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

var (
	errInvalidConfigPtr = errors.New("config must be a non-nil pointer")
)

// Validator is implemented by config structs that can check themselves.
// Validation failures are fatal before any processing begins.
type Validator interface {
	Validate() error
}

// ConfigLoader loads configuration data into a destination struct.
type ConfigLoader interface {
	Load(ctx context.Context, path string, dst interface{}) error
}

// FileConfigLoader loads configuration from a local JSON file with
// environment variable expansion.
type FileConfigLoader struct{}

// Load implements ConfigLoader by reading, expanding, and unmarshaling a JSON file.
func (*FileConfigLoader) Load(_ context.Context, path string, dst interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file '%s': %w", path, err)
	}

	expanded := os.Expand(string(data), func(key string) string {
		return os.Getenv(key)
	})

	err = json.Unmarshal([]byte(expanded), dst)
	if err != nil {
		return fmt.Errorf("failed to unmarshal JSON from '%s': %w", path, err)
	}

	return nil
}

// Config holds the configuration loading dependencies.
type Config struct {
	loader ConfigLoader
}

// NewConfig initializes a Config with the default file loader.
func NewConfig() *Config {
	return &Config{loader: &FileConfigLoader{}}
}

// LoadAndValidate loads a configuration and validates it when the
// destination implements Validator.
func (c *Config) LoadAndValidate(ctx context.Context, path string, cfg interface{}) error {
	if cfg == nil {
		return errInvalidConfigPtr
	}

	if err := c.loader.Load(ctx, path, cfg); err != nil {
		return err
	}

	if v, ok := cfg.(Validator); ok {
		if err := v.Validate(); err != nil {
			return err
		}
	}

	return nil
}
