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

package thingsboard

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heatmanager/heatsync/pkg/logger"
	"github.com/heatmanager/heatsync/pkg/models"
)

func newTestClient(t *testing.T, endpoint string) *Client {
	t.Helper()

	client, err := NewClient(&models.RegistryConfig{
		Endpoint: endpoint,
		Username: "sync@example.com",
		Password: "secret",
	}, logger.NewTestLogger())
	require.NoError(t, err)

	return client
}

func TestNewClientValidation(t *testing.T) {
	log := logger.NewTestLogger()

	_, err := NewClient(&models.RegistryConfig{Username: "u", Password: "p"}, log)
	assert.ErrorIs(t, err, errMissingEndpoint)

	_, err = NewClient(&models.RegistryConfig{Endpoint: "http://registry"}, log)
	assert.ErrorIs(t, err, errMissingCredentials)
}

func TestLogin(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/auth/login", r.URL.Path)

		var req loginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "sync@example.com", req.Username)
		assert.Equal(t, "secret", req.Password)

		json.NewEncoder(w).Encode(loginResponse{Token: "jwt-token"})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	require.NoError(t, client.Login(context.Background()))
	assert.Equal(t, "jwt-token", client.token)
}

func TestLoginRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	err := client.Login(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, errAuthFailed)
}

func TestGetRequiresLogin(t *testing.T) {
	client := newTestClient(t, "http://registry.invalid")

	_, err := client.CustomerAssets(context.Background(), "customer-1")
	assert.ErrorIs(t, err, errNotAuthenticated)
}

func TestCustomerAssetsPagination(t *testing.T) {
	pages := [][]Asset{
		{{ID: EntityID{ID: uuid.New(), EntityType: "ASSET"}, Name: "Flat 1"}},
		{{ID: EntityID{ID: uuid.New(), EntityType: "ASSET"}, Name: "Flat 2"}},
		{{ID: EntityID{ID: uuid.New(), EntityType: "ASSET"}, Name: "Flat 3"}},
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/customer/customer-1/assets", r.URL.Path)
		require.Equal(t, "Bearer jwt-token", r.Header.Get("Authorization"))

		var page int
		fmt.Sscanf(r.URL.Query().Get("page"), "%d", &page)

		json.NewEncoder(w).Encode(assetPage{
			Data:       pages[page],
			TotalPages: len(pages),
			HasNext:    page < len(pages)-1,
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	client.token = "jwt-token"

	assets, err := client.CustomerAssets(context.Background(), "customer-1")
	require.NoError(t, err)

	require.Len(t, assets, 3)
	assert.Equal(t, "Flat 1", assets[0].Name)
	assert.Equal(t, "Flat 3", assets[2].Name)
}

func TestAssetAttributesListShape(t *testing.T) {
	assetID := uuid.New()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/plugins/telemetry/ASSET/"+assetID.String()+"/values/attributes", r.URL.Path)
		assert.Equal(t, "minTemp,maxTemp", r.URL.Query().Get("keys"))

		json.NewEncoder(w).Encode([]attribute{
			{Key: "minTemp", Value: 20.0},
			{Key: "maxTemp", Value: 25.0},
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	client.token = "jwt-token"

	attrs := client.AssetAttributes(context.Background(), assetID, []string{"minTemp", "maxTemp"})

	assert.Equal(t, 20.0, attrs["minTemp"])
	assert.Equal(t, 25.0, attrs["maxTemp"])
}

func TestAssetAttributesFlatMapShape(t *testing.T) {
	assetID := uuid.New()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"minTemp": 20.0})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	client.token = "jwt-token"

	attrs := client.AssetAttributes(context.Background(), assetID, nil)
	assert.Equal(t, 20.0, attrs["minTemp"])
}

func TestAssetAttributesDegradeOnFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	client.token = "jwt-token"

	attrs := client.AssetAttributes(context.Background(), uuid.New(), nil)
	assert.Empty(t, attrs)
}

func TestDeviceAttributesScopePath(t *testing.T) {
	deviceID := uuid.New()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t,
			"/api/plugins/telemetry/DEVICE/"+deviceID.String()+"/values/attributes/CLIENT_SCOPE",
			r.URL.Path)

		json.NewEncoder(w).Encode([]attribute{{Key: "manu_temp_min", Value: 20.0}})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	client.token = "jwt-token"

	attrs, err := client.DeviceAttributes(context.Background(), deviceID, ScopeClient, []string{"manu_temp_min"})
	require.NoError(t, err)
	assert.Equal(t, 20.0, attrs["manu_temp_min"])
}

func TestRelatedDevicesFiltersUnsupportedTypes(t *testing.T) {
	assetID := uuid.New()
	valveID := uuid.New()
	meterID := uuid.New()
	brokenID := uuid.New()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/relations", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, assetID.String(), r.URL.Query().Get("fromId"))
		assert.Equal(t, "ASSET", r.URL.Query().Get("fromType"))
		assert.Equal(t, "DEVICE", r.URL.Query().Get("toType"))

		json.NewEncoder(w).Encode([]relation{
			{From: EntityID{ID: assetID, EntityType: "ASSET"}, To: EntityID{ID: valveID, EntityType: "DEVICE"}, Type: "Contains"},
			{From: EntityID{ID: assetID, EntityType: "ASSET"}, To: EntityID{ID: meterID, EntityType: "DEVICE"}, Type: "Contains"},
			{From: EntityID{ID: assetID, EntityType: "ASSET"}, To: EntityID{ID: brokenID, EntityType: "DEVICE"}, Type: "Contains"},
		})
	})
	mux.HandleFunc("/api/device/"+valveID.String(), func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(Device{ID: EntityID{ID: valveID, EntityType: "DEVICE"}, Name: "valve", Type: "dnt-LW-eTRV"})
	})
	mux.HandleFunc("/api/device/"+meterID.String(), func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(Device{ID: EntityID{ID: meterID, EntityType: "DEVICE"}, Name: "meter", Type: "heat-meter"})
	})
	mux.HandleFunc("/api/device/"+brokenID.String(), func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t, server.URL)
	client.token = "jwt-token"

	devices, err := client.RelatedDevices(context.Background(), assetID)
	require.NoError(t, err)

	// The unsupported type is filtered, the unfetchable device skipped.
	require.Len(t, devices, 1)
	assert.Equal(t, "valve", devices[0].Name)
}

func TestParseAttributes(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected map[string]interface{}
	}{
		{name: "empty", raw: "", expected: map[string]interface{}{}},
		{name: "list shape", raw: `[{"key":"a","value":1}]`, expected: map[string]interface{}{"a": 1.0}},
		{name: "flat shape", raw: `{"a":1}`, expected: map[string]interface{}{"a": 1.0}},
		{name: "garbage", raw: `"nope"`, expected: map[string]interface{}{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseAttributes(json.RawMessage(tt.raw)))
		})
	}
}
