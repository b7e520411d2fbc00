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
	"context"

	"github.com/google/uuid"

	"github.com/heatmanager/heatsync/pkg/logger"
	"github.com/heatmanager/heatsync/pkg/registry/thingsboard"
)

// Registry is the slice of the device registry the reconciliation run
// consumes.
type Registry interface {
	CustomerAssets(ctx context.Context, customerID string) ([]thingsboard.Asset, error)
	AssetAttributes(ctx context.Context, assetID uuid.UUID, keys []string) map[string]interface{}
	RelatedDevices(ctx context.Context, assetID uuid.UUID) ([]thingsboard.Device, error)
	DeviceAttributes(ctx context.Context, deviceID uuid.UUID, scope string, keys []string) (map[string]interface{}, error)
}

// Downlink transmits one hex frame to one device.
type Downlink interface {
	Send(ctx context.Context, devEUI string, fPort int, payloadHex string) error
}

// dryRunSender substitutes for the real transport in dry-run mode: it
// logs the frame that would have been sent and always reports success.
type dryRunSender struct {
	logger logger.Logger
}

// NewDryRunSender wraps dry-run behavior in the Downlink interface.
func NewDryRunSender(log logger.Logger) Downlink {
	return &dryRunSender{logger: log}
}

func (d *dryRunSender) Send(_ context.Context, devEUI string, fPort int, payloadHex string) error {
	d.logger.Info().
		Str("deveui", devEUI).
		Int("fport", fPort).
		Str("payload", payloadHex).
		Msg("DRY-RUN: downlink suppressed")

	return nil
}
