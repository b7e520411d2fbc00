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

// Package deveui canonicalizes LoRaWAN device identifiers.
//
// Registries store the DevEUI in wildly inconsistent places: a declared
// attribute, the device name, a label, or a loosely-keyed additionalInfo
// map, in formats like "eui-AA:BB:..." or "AA BB CC ...". Extract walks
// those candidates in a fixed priority order and Normalize reduces each
// one to the 16-hex-character canonical form.
package deveui

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrInvalid is returned when a candidate cannot be reduced to a
	// 16-character hexadecimal identifier.
	ErrInvalid = errors.New("invalid DevEUI")
)

const canonicalLen = 16

// attrKeys are the declared-attribute names that may carry the DevEUI,
// matched case-insensitively and probed in order.
var attrKeys = []string{"deveui", "eui"}

// infoKeys are the additionalInfo keys probed, in order. The registry UI
// and several import tools disagree on casing, so all known variants are
// tried.
var infoKeys = []string{"devEUI", "devEui", "DevEUI", "DevEui", "deveui", "eui"}

// Normalize canonicalizes a raw identifier into 16 uppercase hex characters.
// It strips EUI-/EUI_ prefixes and space/hyphen/colon separators before
// validating. Pure; no side effects.
func Normalize(raw string) (string, error) {
	if raw == "" {
		return "", ErrInvalid
	}

	s := strings.ToUpper(strings.TrimSpace(raw))
	s = strings.ReplaceAll(s, "EUI-", "")
	s = strings.ReplaceAll(s, "EUI_", "")

	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', ':':
			return -1
		}
		return r
	}, s)

	if len(s) != canonicalLen {
		return "", ErrInvalid
	}

	for _, c := range s {
		if !isHexUpper(c) {
			return "", ErrInvalid
		}
	}

	return s, nil
}

func isHexUpper(c rune) bool {
	return (c >= '0' && c <= '9') || (c >= 'A' && c <= 'F')
}

// Device carries the identifier candidates of one registry device.
type Device struct {
	ID             string
	Name           string
	Label          string
	AdditionalInfo map[string]interface{}
}

// AttributeFetcher returns the declared attributes of a device keyed by
// attribute name. A failed lookup is treated as absence, not as an error.
type AttributeFetcher func(ctx context.Context, deviceID string) (map[string]interface{}, error)

// Extract derives the canonical DevEUI from a device, trying in order:
// a declared attribute (deveui/eui, case-insensitive), the device name,
// its label, and the known additionalInfo key variants. The first
// candidate that normalizes wins. Returns false if none do.
func Extract(ctx context.Context, dev Device, fetchAttrs AttributeFetcher) (string, bool) {
	if fetchAttrs != nil {
		if attrs, err := fetchAttrs(ctx, dev.ID); err == nil {
			lowered := make(map[string]interface{}, len(attrs))
			for key, value := range attrs {
				lowered[strings.ToLower(key)] = value
			}

			for _, key := range attrKeys {
				if s, ok := lowered[key].(string); ok {
					if eui, err := Normalize(s); err == nil {
						return eui, true
					}
				}
			}
		}
	}

	if eui, err := Normalize(strings.TrimSpace(dev.Name)); err == nil {
		return eui, true
	}

	if eui, err := Normalize(strings.TrimSpace(dev.Label)); err == nil {
		return eui, true
	}

	for _, key := range infoKeys {
		value, ok := dev.AdditionalInfo[key]
		if !ok {
			continue
		}

		if s, ok := value.(string); ok {
			if eui, err := Normalize(s); err == nil {
				return eui, true
			}
		}
	}

	return "", false
}
