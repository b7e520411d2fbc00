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

package tempsync

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/heatmanager/heatsync/pkg/payload"
)

// Temp is an optionally-present temperature attribute. Registry attribute
// values arrive as JSON numbers, strings, or worse; Numeric records
// whether the value could be read as a number.
type Temp struct {
	Present bool
	Numeric bool
	Value   float64
}

// parseTemp coerces a raw attribute value. With zeroIsUnset, an exact
// zero collapses to absent: the device fleet overloads 0 as "never set",
// so a legitimate 0° setpoint is not representable. That limitation is
// kept on purpose; devices in the field depend on the convention.
func parseTemp(raw interface{}, zeroIsUnset bool) Temp {
	switch v := raw.(type) {
	case nil:
		return Temp{}
	case float64:
		if zeroIsUnset && v == 0 {
			return Temp{}
		}

		return Temp{Present: true, Numeric: true, Value: v}
	case int:
		return parseTemp(float64(v), zeroIsUnset)
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return Temp{}
		}

		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Temp{Present: true, Numeric: false, Value: math.NaN()}
		}

		if zeroIsUnset && f == 0 {
			return Temp{}
		}

		return Temp{Present: true, Numeric: true, Value: f}
	default:
		return Temp{Present: true, Numeric: false, Value: math.NaN()}
	}
}

// setpoint returns the numeric value to encode. Non-numeric values yield
// NaN, which the codec rejects, so an unparseable desired value becomes
// an encoding failure at dispatch time.
func (t Temp) setpoint() float64 {
	if !t.Numeric {
		return math.NaN()
	}

	return t.Value
}

// dispatch is one decided downlink: the frame to transmit, its table
// label, and the counters to credit when the transmission succeeds.
type dispatch struct {
	frame     string
	action    string
	failLabel string
	minSet    bool
	maxSet    bool
	minQuery  bool
	maxQuery  bool
	combined  bool
}

// plan decides the downlinks for one device given the asset's desired
// setpoints and the device's last-reported ones.
//
// A field needs attention when a desired value exists and the known value
// is unknown or different. An unknown known value means the device has
// never reported; its real state must be queried rather than assumed, so
// those fields get query frames. When both fields need a value-set the
// two setpoints merge into a single frame with a trailing combined query,
// so the device reports back what it applied. The mixed case (one known,
// one unknown) never combines.
//
// A field whose setpoint cannot be encoded produces no dispatch at all;
// the absence of a success counter is how encoding failures surface.
func plan(desiredMin, desiredMax, knownMin, knownMax Temp) []dispatch {
	needsMin := desiredMin.Present && (!knownMin.Present || !knownMin.Numeric || !desiredMin.Numeric || knownMin.Value != desiredMin.Value)
	needsMax := desiredMax.Present && (!knownMax.Present || !knownMax.Numeric || !desiredMax.Numeric || knownMax.Value != desiredMax.Value)

	if !needsMin && !needsMax {
		return nil
	}

	if needsMin && needsMax {
		switch {
		case !knownMin.Present && !knownMax.Present:
			return []dispatch{{
				frame:     payload.CombineQueries(),
				action:    "Query Min/Max Temp",
				failLabel: "ERROR Query Min/Max",
				minQuery:  true,
				maxQuery:  true,
				combined:  true,
			}}
		case knownMin.Present && knownMax.Present:
			frame, err := payload.SetBothFrame(desiredMin.setpoint(), desiredMax.setpoint())
			if err != nil {
				return nil
			}

			return []dispatch{{
				frame:     frame,
				action:    fmt.Sprintf("Set Min/Max (%g°C/%g°C)", desiredMin.Value, desiredMax.Value),
				failLabel: "ERROR Min/Max",
				minSet:    true,
				maxSet:    true,
				combined:  true,
			}}
		default:
			// One known, one unknown: two independent frames.
			var dispatches []dispatch

			if d, ok := planSingle(desiredMin, knownMin, true); ok {
				dispatches = append(dispatches, d)
			}

			if d, ok := planSingle(desiredMax, knownMax, false); ok {
				dispatches = append(dispatches, d)
			}

			return dispatches
		}
	}

	if needsMin {
		if d, ok := planSingle(desiredMin, knownMin, true); ok {
			return []dispatch{d}
		}

		return nil
	}

	if d, ok := planSingle(desiredMax, knownMax, false); ok {
		return []dispatch{d}
	}

	return nil
}

// planSingle decides one field's frame: a query when the known value is
// unknown, a value-set otherwise.
func planSingle(desired, known Temp, isMin bool) (dispatch, bool) {
	field := "Max"
	if isMin {
		field = "Min"
	}

	if !known.Present {
		return dispatch{
			frame:     payload.QueryOpcode(isMin),
			action:    fmt.Sprintf("Query %s Temp", field),
			failLabel: fmt.Sprintf("ERROR Query %s", field),
			minQuery:  isMin,
			maxQuery:  !isMin,
		}, true
	}

	frame, err := payload.EncodeSetpoint(desired.setpoint(), isMin)
	if err != nil {
		return dispatch{}, false
	}

	return dispatch{
		frame:     frame,
		action:    fmt.Sprintf("Set %s Temp (%g°C)", field, desired.Value),
		failLabel: fmt.Sprintf("ERROR %s", field),
		minSet:    isMin,
		maxSet:    !isMin,
	}, true
}
