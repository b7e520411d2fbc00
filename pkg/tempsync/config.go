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

package tempsync

import (
	"errors"

	"github.com/heatmanager/heatsync/pkg/logger"
	"github.com/heatmanager/heatsync/pkg/models"
)

var (
	errMissingRegistry  = errors.New("registry endpoint, username and password are required")
	errMissingThingPark = errors.New("thingpark endpoint is required")
)

// Config is the temperature sync job configuration.
type Config struct {
	Registry  models.RegistryConfig  `json:"registry"`
	ThingPark models.ThingParkConfig `json:"thingpark"`
	OutputDir string                 `json:"output_dir"`
	Logging   logger.Config          `json:"logging"`
}

// Validate checks the configuration the run cannot start without.
// Anything missing here aborts before any processing begins.
func (c *Config) Validate() error {
	if c.Registry.Endpoint == "" || c.Registry.Username == "" || c.Registry.Password == "" {
		return errMissingRegistry
	}

	if c.ThingPark.Endpoint == "" {
		return errMissingThingPark
	}

	if c.OutputDir == "" {
		c.OutputDir = "output"
	}

	return nil
}
