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

package melita

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// TokenProvider defines the interface for obtaining bearer tokens.
type TokenProvider interface {
	GetBearerToken(ctx context.Context) (string, error)
	InvalidateToken()
}

// apiTokenProvider exchanges the gateway ApiKey for a bearer token.
type apiTokenProvider struct {
	endpoint   string
	apiKey     string
	timeout    time.Duration
	httpClient HTTPClient
}

// tokenResponse carries the broker's auth response. Expiry is a Unix
// timestamp in seconds.
type tokenResponse struct {
	AuthToken string `json:"authToken"`
	Expiry    int64  `json:"expiry"`
}

func (p *apiTokenProvider) GetBearerToken(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.endpoint+"/api/iot-gateway/auth/generate", http.NoBody)
	if err != nil {
		return "", err
	}

	req.Header.Set("ApiKey", p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: %d, response: %s", errTokenRequestFailed, resp.StatusCode, string(bodyBytes))
	}

	var tokenResp tokenResponse

	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", err
	}

	if tokenResp.AuthToken == "" {
		return "", errTokenMissing
	}

	return tokenResp.AuthToken, nil
}

func (*apiTokenProvider) InvalidateToken() {}

// CachedTokenProvider wraps a TokenProvider and caches the bearer token
// until shortly before its reported expiry.
type CachedTokenProvider struct {
	provider TokenProvider
	ttl      time.Duration
	mu       sync.RWMutex
	token    string
	expiry   time.Time
}

// NewCachedTokenProvider creates a new cached token provider. The cache
// lives for ttl; broker tokens last an hour, so 45 minutes is the safe
// default when ttl is zero.
func NewCachedTokenProvider(provider TokenProvider, ttl time.Duration) *CachedTokenProvider {
	if ttl <= 0 {
		ttl = 45 * time.Minute
	}

	return &CachedTokenProvider{
		provider: provider,
		ttl:      ttl,
	}
}

// GetBearerToken returns a cached token if valid, otherwise fetches a new one.
func (c *CachedTokenProvider) GetBearerToken(ctx context.Context) (string, error) {
	c.mu.RLock()
	if c.token != "" && time.Now().Before(c.expiry) {
		token := c.token
		c.mu.RUnlock()

		return token, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.expiry) {
		return c.token, nil
	}

	token, err := c.provider.GetBearerToken(ctx)
	if err != nil {
		return "", err
	}

	c.token = token
	c.expiry = time.Now().Add(c.ttl)

	return token, nil
}

// InvalidateToken clears the cached token. Called when the broker answers
// 403, which means the token expired ahead of its advertised lifetime.
func (c *CachedTokenProvider) InvalidateToken() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.token = ""
	c.expiry = time.Time{}
}
