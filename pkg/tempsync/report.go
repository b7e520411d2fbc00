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
	"io"
	"os"
	"path/filepath"
	"time"
)

const tableWidth = 120

// Report renders the human-readable run table and summary. Output is
// mirrored to a per-run timestamped log artifact so operators can review
// past runs without scraping the process logs.
type Report struct {
	w    io.Writer
	file *os.File
	Path string
}

// NewReport opens a per-run log file under dir and mirrors all output to
// it and to stdout. The filename embeds the first 8 characters of the
// customer ID and a timestamp. A file creation failure degrades to
// stdout-only output rather than aborting the run.
func NewReport(dir, customerID string, now time.Time) (*Report, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &Report{w: os.Stdout}, err
	}

	short := customerID
	if len(short) > 8 {
		short = short[:8]
	}

	path := filepath.Join(dir, fmt.Sprintf("sync_temp_%s_%s.log", short, now.Format("20060102_150405")))

	file, err := os.Create(path)
	if err != nil {
		return &Report{w: os.Stdout}, err
	}

	return &Report{
		w:    io.MultiWriter(os.Stdout, file),
		file: file,
		Path: path,
	}, nil
}

// NewReportWriter builds a report over an arbitrary writer. Used by tests.
func NewReportWriter(w io.Writer) *Report {
	return &Report{w: w}
}

// Close flushes and closes the log artifact, if any.
func (r *Report) Close() error {
	if r.file == nil {
		return nil
	}

	return r.file.Close()
}

func (r *Report) printf(format string, args ...interface{}) {
	fmt.Fprintf(r.w, format, args...)
}

func (r *Report) line(width int) {
	for i := 0; i < width; i++ {
		fmt.Fprint(r.w, "=")
	}

	fmt.Fprintln(r.w)
}

// Preamble prints the run banner.
func (r *Report) Preamble(customerID, registryURL, downlinkURL string, fPort, limit int, dryRun bool, start time.Time) {
	r.printf("ASSET TEMPERATURE SYNC TO DEVICES\n")
	r.line(80)
	r.printf("Customer ID:  %s\n", customerID)
	r.printf("Registry URL: %s\n", registryURL)
	r.printf("Downlink URL: %s\n", downlinkURL)
	r.printf("FPort:        %d\n", fPort)

	if dryRun {
		r.printf("Mode:         DRY-RUN\n")
	}

	if limit > 0 {
		r.printf("Limit:        %d devices\n", limit)
	}

	r.printf("Started:      %s\n", start.Format("2006-01-02 15:04:05"))
	r.line(80)
	fmt.Fprintln(r.w)
}

// Header prints the table header.
func (r *Report) Header() {
	r.line(tableWidth)
	r.printf("%-30s %-30s %-20s %-30s %-10s\n", "Asset Name", "Device Name", "DevEUI", "Action", "Details")
	r.line(tableWidth)
}

// Row prints one table row with fixed-width columns.
func (r *Report) Row(asset, device, eui, action, details string) {
	r.printf("%-30s %-30s %-20s %-30s %-10s\n",
		truncate(asset, 29), truncate(device, 29), eui, truncate(action, 30), details)
}

// Footer closes the table.
func (r *Report) Footer() {
	r.line(tableWidth)
	fmt.Fprintln(r.w)
}

// Summary prints the final run statistics block.
func (r *Report) Summary(stats *Stats, fPort int, dryRun bool) {
	r.printf("SUMMARY\n")
	r.line(80)
	r.printf("Assets processed:            %d\n", stats.AssetsProcessed)
	r.printf("Devices processed:           %d\n", stats.DevicesProcessed)
	r.printf("Min temp sent:               %d\n", stats.MinTempSent)
	r.printf("Max temp sent:               %d\n", stats.MaxTempSent)
	r.printf("Combined requests:           %d\n", stats.CombinedSent)
	r.printf("Min queries sent:            %d\n", stats.MinQuerySent)
	r.printf("Max queries sent:            %d\n", stats.MaxQuerySent)
	r.printf("Skipped (no DevEUI):         %d\n", stats.SkippedNoDevEUI)
	r.printf("Skipped (no asset temp):     %d\n", stats.SkippedNoAssetTemp)
	r.printf("Skipped (asset minTemp empty): %d\n", stats.SkippedEmptyMinTemp)
	r.printf("Skipped (asset maxTemp empty): %d\n", stats.SkippedEmptyMaxTemp)
	r.printf("Errors:                      %d\n", stats.Errors)
	r.printf("FPort:                       %d\n", fPort)

	if dryRun {
		r.printf("Mode:                        DRY-RUN (no messages sent)\n")
	}

	r.line(80)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}

	return s[:max]
}
