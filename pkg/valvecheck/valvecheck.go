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

// Package valvecheck finds devices with stale or missing valve-position
// reports and sends each one a wake-up downlink.
package valvecheck

import (
	"context"
	"fmt"
	"time"

	"github.com/heatmanager/heatsync/pkg/logger"
	"github.com/heatmanager/heatsync/pkg/models"
)

// wakeFrame is the fixed downlink that makes a device report its valve
// position on the next uplink window.
const wakeFrame = "03F4"

const defaultFreshness = 2 * time.Hour

// Default scope filters for the reporting view.
const (
	DefaultBrand = "dnt"
)

// DefaultDeviceTypes is the device-type filter applied to the view.
var DefaultDeviceTypes = []string{"dnt-lw-etrv-c"}

// deviceIDKeys are the column names that may carry the device ID, in
// priority order. First present wins.
var deviceIDKeys = []string{"device_id", "deviceId", "id"}

// Config scopes one checker run.
type Config struct {
	Postgres    models.PostgresConfig `json:"postgres"`
	LNS         models.LNSConfig      `json:"lns"`
	TenantID    string                `json:"tenant_id"`
	Brand       string                `json:"brand"`
	DeviceTypes []string              `json:"device_types"`
	Freshness   models.Duration       `json:"freshness"`
	Logging     logger.Config         `json:"logging"`
}

// Validate applies defaults and checks the required fields. The database
// and LNS sections validate themselves when their clients are built.
func (c *Config) Validate() error {
	if c.Brand == "" {
		c.Brand = DefaultBrand
	}

	if len(c.DeviceTypes) == 0 {
		c.DeviceTypes = DefaultDeviceTypes
	}

	if time.Duration(c.Freshness) == 0 {
		c.Freshness = models.Duration(defaultFreshness)
	}

	if c.TenantID == "" {
		return errMissingTenantID
	}

	return nil
}

// Stats aggregates the outcome of one checker run.
type Stats struct {
	Found       int `json:"found"`
	Sent        int `json:"sent"`
	SkippedNoID int `json:"skipped_no_id"`
	Errors      int `json:"errors"`
}

// ValveStore lists devices whose valve position is stale.
type ValveStore interface {
	StaleValves(ctx context.Context, tenantID, brand string, deviceTypes []string, olderThan time.Duration) ([]map[string]interface{}, error)
}

// Downlink sends one wake-up frame to one device.
type Downlink interface {
	Send(ctx context.Context, deviceID, frmPayload string) error
}

// dryRunSender logs instead of sending and always succeeds.
type dryRunSender struct {
	logger logger.Logger
}

// NewDryRunSender wraps dry-run behavior in the Downlink interface.
func NewDryRunSender(log logger.Logger) Downlink {
	return &dryRunSender{logger: log}
}

func (d *dryRunSender) Send(_ context.Context, deviceID, frmPayload string) error {
	d.logger.Info().
		Str("device_id", deviceID).
		Str("payload", frmPayload).
		Msg("DRY-RUN: downlink suppressed")

	return nil
}

// Checker drives one valve-freshness run.
type Checker struct {
	store  ValveStore
	sender Downlink
	logger logger.Logger
	cfg    *Config
}

// NewChecker assembles a run.
func NewChecker(store ValveStore, sender Downlink, cfg *Config, log logger.Logger) *Checker {
	return &Checker{
		store:  store,
		sender: sender,
		logger: log,
		cfg:    cfg,
	}
}

// Run queries the stale devices and dispatches one wake-up frame each.
// Transmission failures are counted, never retried, and never abort the
// run; only the database query itself is fatal.
func (c *Checker) Run(ctx context.Context) (*Stats, error) {
	devices, err := c.store.StaleValves(ctx, c.cfg.TenantID, c.cfg.Brand, c.cfg.DeviceTypes,
		time.Duration(c.cfg.Freshness))
	if err != nil {
		return nil, err
	}

	stats := &Stats{Found: len(devices)}

	if len(devices) == 0 {
		c.logger.Info().Msg("No devices need a wake-up downlink")
		return stats, nil
	}

	c.logger.Info().Int("devices", len(devices)).Msg("Devices with stale valve positions")

	for _, row := range devices {
		deviceID, ok := deviceIDFromRow(row)
		if !ok {
			c.logger.Warn().Interface("row", row).Msg("Row without device ID skipped")
			stats.SkippedNoID++

			continue
		}

		if err := c.sender.Send(ctx, deviceID, wakeFrame); err != nil {
			c.logger.Error().Err(err).Str("device_id", deviceID).Msg("Wake-up downlink failed")
			stats.Errors++

			continue
		}

		c.logger.Info().Str("device_id", deviceID).Msg("Wake-up downlink sent")
		stats.Sent++
	}

	return stats, nil
}

// deviceIDFromRow resolves the device ID by trying the known column
// names in priority order; first non-empty match wins.
func deviceIDFromRow(row map[string]interface{}) (string, bool) {
	for _, key := range deviceIDKeys {
		value, ok := row[key]
		if !ok || value == nil {
			continue
		}

		id := fmt.Sprintf("%v", value)
		if id != "" {
			return id, true
		}
	}

	return "", false
}
