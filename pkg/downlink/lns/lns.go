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

// Package lns sends downlinks through the LNS downlink API, authenticated
// by a static API key.
package lns

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/heatmanager/heatsync/pkg/logger"
	"github.com/heatmanager/heatsync/pkg/models"
)

const defaultTimeout = 30 * time.Second

// PriorityNormal is the default downlink scheduling priority.
const PriorityNormal = "NORMAL"

var (
	errMissingEndpoint      = errors.New("lns endpoint is required")
	errMissingAPIKey        = errors.New("lns api key is required")
	errUnexpectedStatusCode = errors.New("unexpected status code")
)

// HTTPClient defines the interface for making HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// downlinkRequest is the LNS downlink payload.
type downlinkRequest struct {
	DeviceID   string `json:"deviceId"`
	FrmPayload string `json:"frm_payload"`
	Confirmed  bool   `json:"confirmed"`
	Priority   string `json:"priority"`
}

// Sender posts downlink frames to the LNS API.
type Sender struct {
	endpoint   string
	apiKey     string
	timeout    time.Duration
	httpClient HTTPClient
	logger     logger.Logger
}

// NewSender validates the config and builds a sender.
func NewSender(cfg *models.LNSConfig, log logger.Logger) (*Sender, error) {
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

	return &Sender{
		endpoint:   cfg.Endpoint,
		apiKey:     cfg.APIKey,
		timeout:    timeout,
		httpClient: &http.Client{},
		logger:     log,
	}, nil
}

// SetHTTPClient replaces the underlying HTTP client. Used by tests.
func (s *Sender) SetHTTPClient(hc HTTPClient) {
	s.httpClient = hc
}

// Send transmits one unconfirmed hex frame to one device at normal
// priority. Any non-2xx response or transport error is a failure.
func (s *Sender) Send(ctx context.Context, deviceID, frmPayload string) error {
	body, err := json.Marshal(downlinkRequest{
		DeviceID:   deviceID,
		FrmPayload: frmPayload,
		Confirmed:  false,
		Priority:   PriorityNormal,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}

	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			s.logger.Warn().Err(cerr).Msg("Failed to close response body")
		}
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: %d, response: %s", errUnexpectedStatusCode, resp.StatusCode, string(bodyBytes))
	}

	return nil
}
