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

package payload

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
)

var (
	// ErrTemperatureOutOfRange is returned by VickiFrame for values
	// outside the 0-255 byte range.
	ErrTemperatureOutOfRange = errors.New("temperature out of range (0-255)")
)

// VickiFrame builds the vicki thermostat configuration frame:
// 08 + minTemp byte + maxTemp byte + 0d + operational-mode byte + 1518.
// Operational modes 2 and 10 map to mode byte 02, everything else to 00.
// Unlike the eTRV setpoint encoding, this path rejects out-of-range
// temperatures outright.
func VickiFrame(minTemp, maxTemp, operationalMode int) (string, error) {
	if minTemp < 0 || minTemp > 255 {
		return "", fmt.Errorf("%w: minTemp %d", ErrTemperatureOutOfRange, minTemp)
	}

	if maxTemp < 0 || maxTemp > 255 {
		return "", fmt.Errorf("%w: maxTemp %d", ErrTemperatureOutOfRange, maxTemp)
	}

	modeHex := "00"
	if operationalMode == 2 || operationalMode == 10 {
		modeHex = "02"
	}

	return fmt.Sprintf("08%02x%02x0d%s1518", minTemp, maxTemp, modeHex), nil
}

// HexToBase64 converts a hex frame into the base64 form the queue broker
// expects.
func HexToBase64(hexStr string) (string, error) {
	raw, err := hex.DecodeString(hexStr)
	if err != nil {
		return "", err
	}

	return base64.StdEncoding.EncodeToString(raw), nil
}
