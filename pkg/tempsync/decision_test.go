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
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTemp(t *testing.T) {
	tests := []struct {
		name        string
		raw         interface{}
		zeroIsUnset bool
		expected    Temp
	}{
		{name: "nil", raw: nil, expected: Temp{}},
		{name: "float", raw: 21.5, expected: Temp{Present: true, Numeric: true, Value: 21.5}},
		{name: "int", raw: 20, expected: Temp{Present: true, Numeric: true, Value: 20}},
		{name: "numeric string", raw: "18.5", expected: Temp{Present: true, Numeric: true, Value: 18.5}},
		{name: "empty string", raw: "", expected: Temp{}},
		{name: "whitespace string", raw: "   ", expected: Temp{}},
		{name: "zero kept by default", raw: 0.0, expected: Temp{Present: true, Numeric: true, Value: 0}},
		{name: "zero collapses when sentinel", raw: 0.0, zeroIsUnset: true, expected: Temp{}},
		{name: "zero string collapses when sentinel", raw: "0", zeroIsUnset: true, expected: Temp{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseTemp(tt.raw, tt.zeroIsUnset))
		})
	}
}

func TestParseTempNonNumeric(t *testing.T) {
	got := parseTemp("warm", false)
	assert.True(t, got.Present)
	assert.False(t, got.Numeric)
	assert.True(t, math.IsNaN(got.Value))

	got = parseTemp([]string{"20"}, false)
	assert.True(t, got.Present)
	assert.False(t, got.Numeric)
}

func temp(v float64) Temp { return Temp{Present: true, Numeric: true, Value: v} }
func absent() Temp        { return Temp{} }
func unparseable() Temp   { return Temp{Present: true, Numeric: false, Value: math.NaN()} }

func TestPlanNothingNeeded(t *testing.T) {
	// Known values already match the desired ones.
	assert.Empty(t, plan(temp(20), temp(25), temp(20), temp(25)))

	// No desired values at all.
	assert.Empty(t, plan(absent(), absent(), absent(), absent()))

	// One desired field, already in sync.
	assert.Empty(t, plan(temp(20), absent(), temp(20), temp(99)))
}

func TestPlanBothUnknown(t *testing.T) {
	dispatches := plan(temp(20), temp(25), absent(), absent())

	require.Len(t, dispatches, 1)
	assert.Equal(t, "BDBF", dispatches[0].frame)
	assert.Equal(t, "Query Min/Max Temp", dispatches[0].action)
	assert.True(t, dispatches[0].minQuery)
	assert.True(t, dispatches[0].maxQuery)
	assert.True(t, dispatches[0].combined)
	assert.False(t, dispatches[0].minSet)
	assert.False(t, dispatches[0].maxSet)
}

func TestPlanBothKnownAndDifferent(t *testing.T) {
	dispatches := plan(temp(20), temp(25), temp(18), temp(24))

	require.Len(t, dispatches, 1)
	assert.Equal(t, "3E284032BDBF", dispatches[0].frame)
	assert.Equal(t, "Set Min/Max (20°C/25°C)", dispatches[0].action)
	assert.True(t, dispatches[0].minSet)
	assert.True(t, dispatches[0].maxSet)
	assert.True(t, dispatches[0].combined)
}

func TestPlanMixedNeverCombines(t *testing.T) {
	// Min unknown, max known but stale: two independent frames.
	dispatches := plan(temp(20), temp(25), absent(), temp(24))

	require.Len(t, dispatches, 2)

	assert.Equal(t, "BD", dispatches[0].frame)
	assert.Equal(t, "Query Min Temp", dispatches[0].action)
	assert.True(t, dispatches[0].minQuery)
	assert.False(t, dispatches[0].combined)

	assert.Equal(t, "4032", dispatches[1].frame)
	assert.Equal(t, "Set Max Temp (25°C)", dispatches[1].action)
	assert.True(t, dispatches[1].maxSet)
	assert.False(t, dispatches[1].combined)
}

func TestPlanSingleField(t *testing.T) {
	tests := []struct {
		name           string
		desiredMin     Temp
		desiredMax     Temp
		knownMin       Temp
		knownMax       Temp
		expectedFrame  string
		expectedAction string
	}{
		{
			name:           "set min only",
			desiredMin:     temp(19),
			knownMin:       temp(20),
			knownMax:       temp(25),
			expectedFrame:  "3E26",
			expectedAction: "Set Min Temp (19°C)",
		},
		{
			name:           "query min only",
			desiredMin:     temp(19),
			knownMax:       temp(25),
			expectedFrame:  "BD",
			expectedAction: "Query Min Temp",
		},
		{
			name:           "set max only",
			desiredMax:     temp(26),
			knownMin:       temp(20),
			knownMax:       temp(25),
			expectedFrame:  "4034",
			expectedAction: "Set Max Temp (26°C)",
		},
		{
			name:           "query max only",
			desiredMax:     temp(26),
			knownMin:       temp(20),
			expectedFrame:  "BF",
			expectedAction: "Query Max Temp",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dispatches := plan(tt.desiredMin, tt.desiredMax, tt.knownMin, tt.knownMax)

			require.Len(t, dispatches, 1)
			assert.Equal(t, tt.expectedFrame, dispatches[0].frame)
			assert.Equal(t, tt.expectedAction, dispatches[0].action)
		})
	}
}

func TestPlanUnparseableKnownForcesSet(t *testing.T) {
	// A present but non-numeric known value can never match; it is
	// rewritten like any stale value.
	dispatches := plan(temp(20), temp(25), unparseable(), temp(25))

	require.Len(t, dispatches, 1)
	assert.Equal(t, "3E28", dispatches[0].frame)
}

func TestPlanUnparseableDesiredProducesNoDispatch(t *testing.T) {
	// The desired value exists but cannot be encoded; the field is
	// flagged as needing attention yet yields no frame.
	dispatches := plan(unparseable(), absent(), temp(20), absent())
	assert.Empty(t, dispatches)

	// Same for the combined set path.
	dispatches = plan(unparseable(), temp(25), temp(20), temp(24))
	assert.Empty(t, dispatches)
}
