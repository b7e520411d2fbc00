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

// Package thingsboard provides a client for the device registry's REST API.
package thingsboard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/heatmanager/heatsync/pkg/logger"
	"github.com/heatmanager/heatsync/pkg/models"
)

const (
	defaultPageSize = 1000
	defaultTimeout  = 30 * time.Second

	// ScopeClient selects client-scope device attributes (the values the
	// device itself last reported).
	ScopeClient = "CLIENT_SCOPE"
	// ScopeServer selects server-scope attributes.
	ScopeServer = "SERVER_SCOPE"
)

// defaultSupportedTypes is the fixed allow-list of device type strings the
// sync jobs know how to address.
var defaultSupportedTypes = []string{"dnt-LW-eTRV-C", "dnt-LW-eTRV"}

// Client talks to the registry REST API. The JWT session obtained by Login
// lives on the client, not in package state; one client is one session.
type Client struct {
	endpoint       string
	username       string
	password       string
	pageSize       int
	timeout        time.Duration
	httpClient     HTTPClient
	token          string
	supportedTypes map[string]struct{}
	logger         logger.Logger
}

// NewClient validates the registry config and builds a client. Missing
// endpoint or credentials is a configuration error and fails immediately.
func NewClient(cfg *models.RegistryConfig, log logger.Logger) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, errMissingEndpoint
	}

	if cfg.Username == "" || cfg.Password == "" {
		return nil, errMissingCredentials
	}

	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	timeout := time.Duration(cfg.Timeout)
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	supported := make(map[string]struct{}, len(defaultSupportedTypes))
	for _, t := range defaultSupportedTypes {
		supported[t] = struct{}{}
	}

	return &Client{
		endpoint:       strings.TrimRight(cfg.Endpoint, "/"),
		username:       cfg.Username,
		password:       cfg.Password,
		pageSize:       pageSize,
		timeout:        timeout,
		httpClient:     &http.Client{},
		supportedTypes: supported,
		logger:         log,
	}, nil
}

// SetHTTPClient replaces the underlying HTTP client. Used by tests.
func (c *Client) SetHTTPClient(hc HTTPClient) {
	c.httpClient = hc
}

// Login authenticates against the registry and stores the JWT session
// token on the client. An authentication failure aborts the whole run.
func (c *Client) Login(ctx context.Context) error {
	body, err := json.Marshal(loginRequest{Username: c.username, Password: c.password})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.endpoint+"/api/auth/login", bytes.NewReader(body))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", errAuthFailed, err)
	}
	defer c.closeResponse(resp)

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: %d, response: %s", errAuthFailed, resp.StatusCode, string(bodyBytes))
	}

	var loginResp loginResponse

	if err := json.NewDecoder(resp.Body).Decode(&loginResp); err != nil {
		return fmt.Errorf("%w: %w", errAuthFailed, err)
	}

	if loginResp.Token == "" {
		return errAuthFailed
	}

	c.token = loginResp.Token

	return nil
}

// CustomerAssets pages through all assets belonging to a customer.
func (c *Client) CustomerAssets(ctx context.Context, customerID string) ([]Asset, error) {
	var assets []Asset

	for page := 0; ; page++ {
		query := url.Values{}
		query.Set("pageSize", strconv.Itoa(c.pageSize))
		query.Set("page", strconv.Itoa(page))

		var result assetPage

		path := fmt.Sprintf("/api/customer/%s/assets", customerID)
		if err := c.get(ctx, path, query, &result); err != nil {
			return nil, err
		}

		assets = append(assets, result.Data...)

		if page >= result.TotalPages-1 {
			break
		}
	}

	return assets, nil
}

// AssetAttributes fetches server-side attributes of an asset. Fetch
// failures degrade to an empty map so one broken asset cannot stop a run.
func (c *Client) AssetAttributes(ctx context.Context, assetID uuid.UUID, keys []string) map[string]interface{} {
	query := url.Values{}
	if len(keys) > 0 {
		query.Set("keys", strings.Join(keys, ","))
	}

	path := fmt.Sprintf("/api/plugins/telemetry/ASSET/%s/values/attributes", assetID)

	var raw json.RawMessage

	if err := c.get(ctx, path, query, &raw); err != nil {
		c.logger.Warn().Err(err).Str("asset_id", assetID.String()).Msg("Failed to fetch asset attributes")
		return map[string]interface{}{}
	}

	return parseAttributes(raw)
}

// DeviceAttributes fetches attributes of a device in the given scope.
// An empty scope fetches all scopes. Failures degrade to an empty map.
func (c *Client) DeviceAttributes(ctx context.Context, deviceID uuid.UUID, scope string, keys []string) (map[string]interface{}, error) {
	query := url.Values{}
	if len(keys) > 0 {
		query.Set("keys", strings.Join(keys, ","))
	}

	path := fmt.Sprintf("/api/plugins/telemetry/DEVICE/%s/values/attributes", deviceID)
	if scope != "" {
		path += "/" + scope
	}

	var raw json.RawMessage

	if err := c.get(ctx, path, query, &raw); err != nil {
		return nil, err
	}

	return parseAttributes(raw), nil
}

// RelatedDeviceIDs lists the IDs of devices related to an asset.
func (c *Client) RelatedDeviceIDs(ctx context.Context, assetID uuid.UUID) ([]uuid.UUID, error) {
	query := url.Values{}
	query.Set("fromId", assetID.String())
	query.Set("fromType", "ASSET")
	query.Set("toType", "DEVICE")

	var relations []relation

	if err := c.get(ctx, "/api/relations", query, &relations); err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(relations))

	for _, rel := range relations {
		if rel.To.ID != uuid.Nil {
			ids = append(ids, rel.To.ID)
		}
	}

	return ids, nil
}

// DeviceByID fetches a single device.
func (c *Client) DeviceByID(ctx context.Context, id uuid.UUID) (*Device, error) {
	var device Device

	if err := c.get(ctx, "/api/device/"+id.String(), nil, &device); err != nil {
		return nil, err
	}

	return &device, nil
}

// RelatedDevices resolves the devices related to an asset, keeping only
// the supported device types. A device that cannot be fetched is skipped,
// not fatal.
func (c *Client) RelatedDevices(ctx context.Context, assetID uuid.UUID) ([]Device, error) {
	ids, err := c.RelatedDeviceIDs(ctx, assetID)
	if err != nil {
		return nil, err
	}

	devices := make([]Device, 0, len(ids))

	for _, id := range ids {
		device, err := c.DeviceByID(ctx, id)
		if err != nil {
			c.logger.Warn().Err(err).Str("device_id", id.String()).Msg("Failed to fetch related device")
			continue
		}

		if _, ok := c.supportedTypes[device.Type]; !ok {
			continue
		}

		devices = append(devices, *device)
	}

	return devices, nil
}

// get performs an authenticated GET and decodes the JSON response.
func (c *Client) get(ctx context.Context, path string, query url.Values, dst interface{}) error {
	if c.token == "" {
		return errNotAuthenticated
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	fullURL := c.endpoint + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, http.NoBody)
	if err != nil {
		return err
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer c.closeResponse(resp)

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: %d, response: %s", errUnexpectedStatusCode, resp.StatusCode, string(bodyBytes))
	}

	return json.NewDecoder(resp.Body).Decode(dst)
}

// closeResponse closes the HTTP response body, logging any errors.
func (c *Client) closeResponse(resp *http.Response) {
	if err := resp.Body.Close(); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to close response body")
	}
}

// parseAttributes accepts both attribute response shapes: the native
// [{key, value}] list and the flattened plain-map form.
func parseAttributes(raw json.RawMessage) map[string]interface{} {
	attrs := map[string]interface{}{}

	if len(raw) == 0 {
		return attrs
	}

	var list []attribute
	if err := json.Unmarshal(raw, &list); err == nil {
		for _, attr := range list {
			if attr.Key != "" {
				attrs[attr.Key] = attr.Value
			}
		}

		return attrs
	}

	var flat map[string]interface{}
	if err := json.Unmarshal(raw, &flat); err == nil {
		return flat
	}

	return attrs
}
