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

// Package payload encodes eTRV downlink frames as hex strings.
//
// The eTRV command set is one command byte followed by an optional value
// byte. Setpoints travel as half-degree steps (value = temperature * 2),
// queries are bare command bytes. Frames may concatenate several commands;
// the device executes them in order.
package payload

import (
	"errors"
	"fmt"
	"math"
)

const (
	// Setpoint command bytes: value byte follows.
	cmdSetMin = "3E"
	cmdSetMax = "40"

	// Query command bytes: device answers with an uplink carrying the
	// current value.
	cmdQueryMin = "BD"
	cmdQueryMax = "BF"
)

var (
	// ErrNotRepresentable is returned when a temperature cannot be
	// rendered into the half-degree byte encoding.
	ErrNotRepresentable = errors.New("temperature not representable")
)

// EncodeSetpoint renders one setpoint command: prefix 3E (min) or 40 (max)
// plus the temperature in half-degree steps as a single byte.
//
// The value byte is masked to its low 8 bits: temperatures outside the
// byte range wrap rather than fail, matching the installed device fleet's
// long-standing behavior. The vicki frame in frame.go bound-checks its
// values instead; the two encodings are independent and intentionally not
// unified.
func EncodeSetpoint(temperature float64, isMin bool) (string, error) {
	if math.IsNaN(temperature) || math.IsInf(temperature, 0) {
		return "", ErrNotRepresentable
	}

	value := int(temperature*2) & 0xFF

	prefix := cmdSetMax
	if isMin {
		prefix = cmdSetMin
	}

	return fmt.Sprintf("%s%02X", prefix, value), nil
}

// QueryOpcode returns the single-byte query command for one setpoint
// field: BD for minimum, BF for maximum.
func QueryOpcode(isMin bool) string {
	if isMin {
		return cmdQueryMin
	}

	return cmdQueryMax
}

// CombineQueries returns the fixed frame querying both setpoints at once.
func CombineQueries() string {
	return cmdQueryMin + cmdQueryMax
}

// CombineSetpoints renders both setpoint commands into one frame,
// min first. Fails if either temperature is not representable.
func CombineSetpoints(minTemp, maxTemp float64) (string, error) {
	minPayload, err := EncodeSetpoint(minTemp, true)
	if err != nil {
		return "", err
	}

	maxPayload, err := EncodeSetpoint(maxTemp, false)
	if err != nil {
		return "", err
	}

	return minPayload + maxPayload, nil
}

// SetBothFrame is the frame shape used when both setpoints are rewritten:
// set min, set max, then query both back. The trailing query makes the
// device report the values it actually applied, which is what refreshes
// the registry attributes on the next uplink.
func SetBothFrame(minTemp, maxTemp float64) (string, error) {
	setpoints, err := CombineSetpoints(minTemp, maxTemp)
	if err != nil {
		return "", err
	}

	return setpoints + CombineQueries(), nil
}
