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

// Package thingpark sends LoRaWAN downlinks through an Agility ThingPark
// connector endpoint.
package thingpark

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
)

const defaultTimeout = 30 * time.Second

var (
	errMissingEndpoint      = errors.New("thingpark endpoint is required")
	errUnexpectedStatusCode = errors.New("unexpected status code")
)

// HTTPClient defines the interface for making HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// downlinkRequest is the connector's envelope. The field names are fixed
// by the ThingPark tunnel interface.
type downlinkRequest struct {
	DevEUIDownlink downlinkBody `json:"DevEUI_downlink"`
}

type downlinkBody struct {
	Time       string `json:"Time"`
	DevEUI     string `json:"DevEUI"`
	FPort      int    `json:"FPort"`
	PayloadHex string `json:"payload_hex"`
}

// Sender posts downlink frames to the connector. One call, one frame,
// fixed timeout, no retry; the caller counts the outcome.
type Sender struct {
	endpoint   string
	timeout    time.Duration
	httpClient HTTPClient
	logger     logger.Logger
	now        func() time.Time
}

// NewSender validates the config and builds a sender.
func NewSender(cfg *models.ThingParkConfig, log logger.Logger) (*Sender, error) {
	if cfg.Endpoint == "" {
		return nil, errMissingEndpoint
	}

	timeout := time.Duration(cfg.Timeout)
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Sender{
		endpoint:   strings.TrimRight(cfg.Endpoint, "/"),
		timeout:    timeout,
		httpClient: &http.Client{},
		logger:     log,
		now:        time.Now,
	}, nil
}

// SetHTTPClient replaces the underlying HTTP client. Used by tests.
func (s *Sender) SetHTTPClient(hc HTTPClient) {
	s.httpClient = hc
}

// Send transmits one hex frame to one device. Any non-2xx response or
// transport error is a failure.
func (s *Sender) Send(ctx context.Context, devEUI string, fPort int, payloadHex string) error {
	body, err := json.Marshal(downlinkRequest{
		DevEUIDownlink: downlinkBody{
			Time:       s.now().UTC().Format("2006-01-02T15:04:05+00:00"),
			DevEUI:     devEUI,
			FPort:      fPort,
			PayloadHex: payloadHex,
		},
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

	s.logger.Debug().
		Str("deveui", devEUI).
		Int("fport", fPort).
		Str("payload", payloadHex).
		Msg("Downlink accepted")

	return nil
}
