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

// Package tempsync reconciles asset-level desired temperature setpoints
// against the setpoints devices last reported, sending the minimum number
// of downlink frames to converge them.
//
// The run is strictly sequential: one asset at a time, one device at a
// time, one downlink at a time. Each per-device decision and its table
// row stay adjacent in the output because nothing else writes in between.
package tempsync

import (
	"context"

	"github.com/google/uuid"

	"github.com/heatmanager/heatsync/pkg/deveui"
	"github.com/heatmanager/heatsync/pkg/logger"
	"github.com/heatmanager/heatsync/pkg/registry/thingsboard"
)

const (
	// DefaultFPort is the application port the eTRV command channel
	// listens on.
	DefaultFPort = 10

	attrDesiredMin = "minTemp"
	attrDesiredMax = "maxTemp"
	attrKnownMin   = "manu_temp_min"
	attrKnownMax   = "manu_temp_max"
)

// Runner drives one reconciliation run.
type Runner struct {
	registry Registry
	sender   Downlink
	report   *Report
	logger   logger.Logger
	fPort    int
	limit    int
	dryRun   bool

	stats        Stats
	deviceCount  int
	limitReached bool
}

// NewRunner assembles a run. A limit of zero means unlimited; once the
// limit is reached the whole run halts, not just the current asset.
func NewRunner(registry Registry, sender Downlink, report *Report, log logger.Logger, fPort, limit int, dryRun bool) *Runner {
	if fPort == 0 {
		fPort = DefaultFPort
	}

	return &Runner{
		registry: registry,
		sender:   sender,
		report:   report,
		logger:   log,
		fPort:    fPort,
		limit:    limit,
		dryRun:   dryRun,
	}
}

// Run reconciles every device of every asset of the customer and returns
// the run statistics. Only asset listing failures abort the run; every
// per-entity failure degrades and is counted.
func (r *Runner) Run(ctx context.Context, customerID string) (*Stats, error) {
	assets, err := r.registry.CustomerAssets(ctx, customerID)
	if err != nil {
		return nil, err
	}

	r.logger.Info().Int("assets", len(assets)).Str("customer_id", customerID).Msg("Fetched customer assets")

	r.report.Header()

	for i := range assets {
		if r.limitReached {
			break
		}

		r.processAsset(ctx, &assets[i])
	}

	r.report.Footer()
	r.report.Summary(&r.stats, r.fPort, r.dryRun)

	return &r.stats, nil
}

func (r *Runner) processAsset(ctx context.Context, asset *thingsboard.Asset) {
	attrs := r.registry.AssetAttributes(ctx, asset.ID.ID, []string{attrDesiredMin, attrDesiredMax})

	desiredMin := parseTemp(attrs[attrDesiredMin], false)
	desiredMax := parseTemp(attrs[attrDesiredMax], false)

	if !desiredMin.Present && !desiredMax.Present {
		r.stats.SkippedNoAssetTemp++
		return
	}

	r.stats.AssetsProcessed++

	devices, err := r.registry.RelatedDevices(ctx, asset.ID.ID)
	if err != nil {
		r.logger.Warn().Err(err).Str("asset", asset.Name).Msg("Failed to resolve related devices")
		return
	}

	for i := range devices {
		if r.limit > 0 && r.deviceCount >= r.limit {
			r.logger.Info().Int("limit", r.limit).Msg("Device limit reached; stopping run")
			r.limitReached = true

			return
		}

		r.deviceCount++
		r.stats.DevicesProcessed++

		r.processDevice(ctx, asset, &devices[i], desiredMin, desiredMax)
	}
}

func (r *Runner) processDevice(ctx context.Context, asset *thingsboard.Asset, device *thingsboard.Device, desiredMin, desiredMax Temp) {
	eui, ok := r.extractDevEUI(ctx, device)
	if !ok {
		r.report.Row(asset.Name, device.Name, "N/A", "No DevEUI", "")
		r.stats.SkippedNoDevEUI++

		return
	}

	knownMin, knownMax := r.knownSetpoints(ctx, device.ID.ID)

	// A missing desired field is reported per device so each line of the
	// table explains its own partial send.
	if !desiredMin.Present {
		r.report.Row(asset.Name, device.Name, eui, "Asset minTemp empty", "")
		r.stats.SkippedEmptyMinTemp++
	}

	if !desiredMax.Present {
		r.report.Row(asset.Name, device.Name, eui, "Asset maxTemp empty", "")
		r.stats.SkippedEmptyMaxTemp++
	}

	for _, d := range plan(desiredMin, desiredMax, knownMin, knownMax) {
		r.dispatch(ctx, asset.Name, device.Name, eui, d)
	}
}

// extractDevEUI resolves the canonical identifier via the attribute
// lookup, name, label, and additionalInfo candidates.
func (r *Runner) extractDevEUI(ctx context.Context, device *thingsboard.Device) (string, bool) {
	return deveui.Extract(ctx, deveui.Device{
		ID:             device.ID.ID.String(),
		Name:           device.Name,
		Label:          device.Label,
		AdditionalInfo: device.AdditionalInfo,
	}, func(ctx context.Context, deviceID string) (map[string]interface{}, error) {
		id, err := uuid.Parse(deviceID)
		if err != nil {
			return nil, err
		}

		return r.registry.DeviceAttributes(ctx, id, "", nil)
	})
}

// knownSetpoints reads the device's client-scope setpoint attributes.
// Fetch failures degrade to unknown, which steers the decision toward
// queries rather than blind sets.
func (r *Runner) knownSetpoints(ctx context.Context, deviceID uuid.UUID) (knownMin, knownMax Temp) {
	attrs, err := r.registry.DeviceAttributes(ctx, deviceID, thingsboard.ScopeClient,
		[]string{attrKnownMin, attrKnownMax})
	if err != nil {
		r.logger.Warn().Err(err).Str("device_id", deviceID.String()).Msg("Failed to fetch device attributes")
		return Temp{}, Temp{}
	}

	return parseTemp(attrs[attrKnownMin], true), parseTemp(attrs[attrKnownMax], true)
}

// dispatch records the table row, transmits the frame, and credits or
// counts the outcome. The row precedes the transmission so the output
// order documents intent even when the send hangs or fails.
func (r *Runner) dispatch(ctx context.Context, assetName, deviceName, eui string, d dispatch) {
	r.report.Row(assetName, deviceName, eui, d.action, "")

	if err := r.sender.Send(ctx, eui, r.fPort, d.frame); err != nil {
		r.logger.Error().Err(err).
			Str("deveui", eui).
			Str("payload", d.frame).
			Msg("Downlink transmission failed")

		r.report.Row(assetName, deviceName, eui, d.failLabel, "")
		r.stats.Errors++

		return
	}

	r.stats.credit(d)
}
