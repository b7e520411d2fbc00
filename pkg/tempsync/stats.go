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

// Stats aggregates the outcome counters of one reconciliation run. It is
// created at run start, mutated only by the single control goroutine, and
// reported at run end; nothing is persisted across runs.
type Stats struct {
	AssetsProcessed     int `json:"assets_processed"`
	DevicesProcessed    int `json:"devices_processed"`
	MinTempSent         int `json:"min_temp_sent"`
	MaxTempSent         int `json:"max_temp_sent"`
	CombinedSent        int `json:"combined_sent"`
	MinQuerySent        int `json:"min_query_sent"`
	MaxQuerySent        int `json:"max_query_sent"`
	SkippedNoDevEUI     int `json:"skipped_no_deveui"`
	SkippedNoAssetTemp  int `json:"skipped_no_asset_temp"`
	SkippedEmptyMinTemp int `json:"skipped_empty_min_temp"`
	SkippedEmptyMaxTemp int `json:"skipped_empty_max_temp"`
	Errors              int `json:"errors"`
}

// credit applies a successful dispatch's counters.
func (s *Stats) credit(d dispatch) {
	if d.minSet {
		s.MinTempSent++
	}

	if d.maxSet {
		s.MaxTempSent++
	}

	if d.minQuery {
		s.MinQuerySent++
	}

	if d.maxQuery {
		s.MaxQuerySent++
	}

	if d.combined {
		s.CombinedSent++
	}
}
