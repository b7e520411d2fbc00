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

// Package melita queues LoRaWAN downlinks through the melita.io IoT
// gateway.
//
// The broker requires its per-device queue to be flushed before a new
// message is enqueued, and its bearer tokens can expire ahead of their
// advertised lifetime. Expiry surfaces as a 403, which the client answers
// with exactly one token refresh and retry; a second 403 is a failure.
package melita

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/heatmanager/heatsync/pkg/logger"
	"github.com/heatmanager/heatsync/pkg/models"
	"github.com/heatmanager/heatsync/pkg/payload"
)

const (
	defaultTimeout = 30 * time.Second
	defaultFPort   = 2
)

var (
	errMissingEndpoint      = errors.New("melita endpoint is required")
	errMissingAPIKey        = errors.New("melita api key is required")
	errTokenRequestFailed   = errors.New("token request failed")
	errTokenMissing         = errors.New("token not present in auth response")
	errUnexpectedStatusCode = errors.New("unexpected status code")
)

// HTTPClient defines the interface for making HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// queueMessage is the broker's enqueue payload. Data is base64.
type queueMessage struct {
	Confirmed bool   `json:"confirmed"`
	Data      string `json:"data"`
	DevEUI    string `json:"devEUI"`
	FPort     int    `json:"fPort"`
}

// Client queues downlinks for devices on the broker.
type Client struct {
	endpoint   string
	fPort      int
	confirmed  bool
	timeout    time.Duration
	httpClient HTTPClient
	tokens     TokenProvider
	logger     logger.Logger
}

// NewClient validates the config and builds a client with a cached token
// provider attached.
func NewClient(cfg *models.MelitaConfig, log logger.Logger) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, errMissingEndpoint
	}

	if cfg.APIKey == "" {
		return nil, errMissingAPIKey
	}

	timeout := time.Duration(cfg.Timeout)
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	fPort := cfg.FPort
	if fPort == 0 {
		fPort = defaultFPort
	}

	endpoint := strings.TrimRight(cfg.Endpoint, "/")
	httpClient := &http.Client{}

	return &Client{
		endpoint:   endpoint,
		fPort:      fPort,
		confirmed:  cfg.Confirmed,
		timeout:    timeout,
		httpClient: httpClient,
		tokens: NewCachedTokenProvider(&apiTokenProvider{
			endpoint:   endpoint,
			apiKey:     cfg.APIKey,
			timeout:    timeout,
			httpClient: httpClient,
		}, 0),
		logger: log,
	}, nil
}

// SetHTTPClient replaces the underlying HTTP client and rebinds the token
// provider to it. Used by tests.
func (c *Client) SetHTTPClient(hc HTTPClient, tokens TokenProvider) {
	c.httpClient = hc
	if tokens != nil {
		c.tokens = tokens
	}
}

// FlushQueue empties a device's downlink queue. The broker requires this
// before every enqueue.
func (c *Client) FlushQueue(ctx context.Context, devEUI string) error {
	return c.doWithRetry(ctx, http.MethodDelete, c.queueURL(devEUI), nil,
		[]int{http.StatusOK, http.StatusNoContent})
}

// Enqueue places one base64 payload on a device's downlink queue.
func (c *Client) Enqueue(ctx context.Context, devEUI, base64Data string, fPort int, confirmed bool) error {
	body, err := json.Marshal(queueMessage{
		Confirmed: confirmed,
		Data:      base64Data,
		DevEUI:    devEUI,
		FPort:     fPort,
	})
	if err != nil {
		return err
	}

	return c.doWithRetry(ctx, http.MethodPost, c.queueURL(devEUI), body,
		[]int{http.StatusOK})
}

// SendSetpoints builds the vicki configuration frame for the given
// temperatures, converts it to base64, flushes the device queue, and
// enqueues it.
func (c *Client) SendSetpoints(ctx context.Context, devEUI string, minTemp, maxTemp, operationalMode int) error {
	frame, err := payload.VickiFrame(minTemp, maxTemp, operationalMode)
	if err != nil {
		return err
	}

	data, err := payload.HexToBase64(frame)
	if err != nil {
		return err
	}

	if err := c.FlushQueue(ctx, devEUI); err != nil {
		return fmt.Errorf("queue flush failed for %s: %w", devEUI, err)
	}

	return c.Enqueue(ctx, devEUI, data, c.fPort, c.confirmed)
}

func (c *Client) queueURL(devEUI string) string {
	return fmt.Sprintf("%s/api/iot-gateway/lorawan/%s/queue", c.endpoint, devEUI)
}

// doWithRetry performs one authenticated request. On 403 it invalidates
// the cached token, re-authenticates, and retries exactly once.
func (c *Client) doWithRetry(ctx context.Context, method, url string, body []byte, okStatus []int) error {
	status, respBody, err := c.do(ctx, method, url, body, okStatus)
	if err == nil {
		return nil
	}

	if status != http.StatusForbidden {
		return err
	}

	c.logger.Warn().Str("url", url).Msg("Bearer token rejected; refreshing and retrying once")
	c.tokens.InvalidateToken()

	status, respBody, err = c.do(ctx, method, url, body, okStatus)
	if err != nil {
		return fmt.Errorf("%w after token refresh: status %d, response: %s", errUnexpectedStatusCode, status, respBody)
	}

	return nil
}

// do performs one authenticated request and checks the status against the
// accepted set.
func (c *Client) do(ctx context.Context, method, url string, body []byte, okStatus []int) (int, string, error) {
	token, err := c.tokens.GetBearerToken(ctx)
	if err != nil {
		return 0, "", err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader = http.NoBody
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, "", err
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, "", err
	}

	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Warn().Err(cerr).Msg("Failed to close response body")
		}
	}()

	for _, ok := range okStatus {
		if resp.StatusCode == ok {
			return resp.StatusCode, "", nil
		}
	}

	bodyBytes, _ := io.ReadAll(resp.Body)

	return resp.StatusCode, string(bodyBytes),
		fmt.Errorf("%w: %d, response: %s", errUnexpectedStatusCode, resp.StatusCode, string(bodyBytes))
}
