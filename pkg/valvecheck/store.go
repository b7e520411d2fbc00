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

package valvecheck

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/heatmanager/heatsync/pkg/logger"
	"github.com/heatmanager/heatsync/pkg/models"
)

var (
	errMissingDatabaseConfig = errors.New("postgres host, database, username and password are required")
)

// staleQuery selects devices whose last valve-position report is missing
// or older than the freshness window. The view keeps one row per device.
const staleQuery = `
SELECT *
FROM hmreporting.v_device_valve_last
WHERE (percent_valve_open_ts_utc IS NULL
   OR percent_valve_open_ts_utc < now() - $1::interval)
  AND tenant_id = $2
  AND brand = $3
  AND devicetype = ANY($4)
`

// Store reads the reporting database.
type Store struct {
	pool   *pgxpool.Pool
	logger logger.Logger
}

// NewStore dials the reporting database and returns a pgx-backed store.
// Missing connection parameters are a configuration error.
func NewStore(ctx context.Context, cfg *models.PostgresConfig, log logger.Logger) (*Store, error) {
	if cfg.Host == "" || cfg.Database == "" || cfg.Username == "" || cfg.Password == "" {
		return nil, errMissingDatabaseConfig
	}

	port := cfg.Port
	if port == 0 {
		port = 5432
	}

	connURL := url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", cfg.Host, port),
		Path:   "/" + cfg.Database,
		User:   url.UserPassword(cfg.Username, cfg.Password),
	}

	query := connURL.Query()

	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	query.Set("sslmode", sslMode)
	connURL.RawQuery = query.Encode()

	pool, err := pgxpool.New(ctx, connURL.String())
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to reporting database: %w", err)
	}

	log.Info().Str("host", cfg.Host).Str("database", cfg.Database).Msg("Reporting database connected")

	return &Store{pool: pool, logger: log}, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// StaleValves returns the devices needing a wake-up downlink. Rows come
// back as loosely-keyed maps because the view's column set is owned by
// the reporting team and changes underneath this job; the caller resolves
// the device ID by key priority.
func (s *Store) StaleValves(ctx context.Context, tenantID, brand string, deviceTypes []string, olderThan time.Duration) ([]map[string]interface{}, error) {
	interval := fmt.Sprintf("%d seconds", int(olderThan.Seconds()))

	rows, err := s.pool.Query(ctx, staleQuery, interval, tenantID, brand, deviceTypes)
	if err != nil {
		return nil, fmt.Errorf("stale valve query failed: %w", err)
	}
	defer rows.Close()

	return collectRows(rows)
}

// collectRows materializes every row into a column-name-keyed map.
func collectRows(rows pgx.Rows) ([]map[string]interface{}, error) {
	fields := rows.FieldDescriptions()

	var results []map[string]interface{}

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}

		row := make(map[string]interface{}, len(fields))
		for i, field := range fields {
			row[field.Name] = values[i]
		}

		results = append(results, row)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return results, nil
}
