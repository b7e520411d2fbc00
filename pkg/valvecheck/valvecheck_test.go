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

package valvecheck

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heatmanager/heatsync/pkg/logger"
	"github.com/heatmanager/heatsync/pkg/models"
)

type fakeStore struct {
	rows []map[string]interface{}
	err  error

	gotTenantID    string
	gotBrand       string
	gotDeviceTypes []string
	gotOlderThan   time.Duration
}

func (f *fakeStore) StaleValves(_ context.Context, tenantID, brand string, deviceTypes []string, olderThan time.Duration) ([]map[string]interface{}, error) {
	f.gotTenantID = tenantID
	f.gotBrand = brand
	f.gotDeviceTypes = deviceTypes
	f.gotOlderThan = olderThan

	return f.rows, f.err
}

type fakeSender struct {
	sent   []string
	frames []string
	fail   map[string]error
}

func (f *fakeSender) Send(_ context.Context, deviceID, frmPayload string) error {
	if err := f.fail[deviceID]; err != nil {
		return err
	}

	f.sent = append(f.sent, deviceID)
	f.frames = append(f.frames, frmPayload)

	return nil
}

func testConfig() *Config {
	cfg := &Config{TenantID: "tenant-1"}
	if err := cfg.Validate(); err != nil {
		panic(err)
	}

	return cfg
}

func TestConfigValidate(t *testing.T) {
	cfg := &Config{TenantID: "tenant-1"}
	require.NoError(t, cfg.Validate())

	assert.Equal(t, DefaultBrand, cfg.Brand)
	assert.Equal(t, DefaultDeviceTypes, cfg.DeviceTypes)
	assert.Equal(t, models.Duration(2*time.Hour), cfg.Freshness)

	err := (&Config{}).Validate()
	assert.ErrorIs(t, err, errMissingTenantID)
}

func TestRunSendsWakeFrames(t *testing.T) {
	store := &fakeStore{rows: []map[string]interface{}{
		{"device_id": "dev-1"},
		{"device_id": "dev-2"},
	}}
	sender := &fakeSender{}

	checker := NewChecker(store, sender, testConfig(), logger.NewTestLogger())

	stats, err := checker.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Found)
	assert.Equal(t, 2, stats.Sent)
	assert.Equal(t, []string{"dev-1", "dev-2"}, sender.sent)
	assert.Equal(t, []string{"03F4", "03F4"}, sender.frames)

	// The query carries the configured scope.
	assert.Equal(t, "tenant-1", store.gotTenantID)
	assert.Equal(t, "dnt", store.gotBrand)
	assert.Equal(t, []string{"dnt-lw-etrv-c"}, store.gotDeviceTypes)
	assert.Equal(t, 2*time.Hour, store.gotOlderThan)
}

func TestRunNothingStale(t *testing.T) {
	store := &fakeStore{}
	sender := &fakeSender{}

	checker := NewChecker(store, sender, testConfig(), logger.NewTestLogger())

	stats, err := checker.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, stats.Found)
	assert.Empty(t, sender.sent)
}

func TestRunQueryFailureAborts(t *testing.T) {
	store := &fakeStore{err: errors.New("connection refused")}

	checker := NewChecker(store, &fakeSender{}, testConfig(), logger.NewTestLogger())

	_, err := checker.Run(context.Background())
	assert.Error(t, err)
}

func TestRunCountsSendFailures(t *testing.T) {
	store := &fakeStore{rows: []map[string]interface{}{
		{"device_id": "dev-1"},
		{"device_id": "dev-2"},
		{"device_id": "dev-3"},
	}}
	sender := &fakeSender{fail: map[string]error{"dev-2": errors.New("gateway timeout")}}

	checker := NewChecker(store, sender, testConfig(), logger.NewTestLogger())

	stats, err := checker.Run(context.Background())
	require.NoError(t, err)

	// One failure never stops the remaining sends.
	assert.Equal(t, 3, stats.Found)
	assert.Equal(t, 2, stats.Sent)
	assert.Equal(t, 1, stats.Errors)
	assert.Equal(t, []string{"dev-1", "dev-3"}, sender.sent)
}

func TestRunSkipsRowsWithoutDeviceID(t *testing.T) {
	store := &fakeStore{rows: []map[string]interface{}{
		{"percent_valve_open": 42.0},
		{"device_id": "dev-1"},
	}}
	sender := &fakeSender{}

	checker := NewChecker(store, sender, testConfig(), logger.NewTestLogger())

	stats, err := checker.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.SkippedNoID)
	assert.Equal(t, 1, stats.Sent)
}

func TestDeviceIDFromRow(t *testing.T) {
	id := uuid.New()

	tests := []struct {
		name     string
		row      map[string]interface{}
		expected string
		found    bool
	}{
		{name: "snake case", row: map[string]interface{}{"device_id": "dev-1"}, expected: "dev-1", found: true},
		{name: "camel case", row: map[string]interface{}{"deviceId": "dev-2"}, expected: "dev-2", found: true},
		{name: "bare id", row: map[string]interface{}{"id": "dev-3"}, expected: "dev-3", found: true},
		{
			name:     "snake case wins over the rest",
			row:      map[string]interface{}{"device_id": "dev-1", "deviceId": "dev-2", "id": "dev-3"},
			expected: "dev-1",
			found:    true,
		},
		{name: "uuid value stringified", row: map[string]interface{}{"device_id": id}, expected: id.String(), found: true},
		{name: "nil value skipped", row: map[string]interface{}{"device_id": nil, "id": "dev-3"}, expected: "dev-3", found: true},
		{name: "no candidates", row: map[string]interface{}{"brand": "dnt"}},
		{name: "empty row", row: map[string]interface{}{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := deviceIDFromRow(tt.row)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.expected, got)
		})
	}
}
