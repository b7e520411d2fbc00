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

// Package models holds configuration structs shared by the sync jobs.
package models

// RegistryConfig describes the ThingsBoard-style device registry.
type RegistryConfig struct {
	Endpoint string   `json:"endpoint"`
	Username string   `json:"username"`
	Password string   `json:"password"`
	PageSize int      `json:"page_size"`
	Timeout  Duration `json:"timeout"`
}

// ThingParkConfig describes the Agility ThingPark downlink endpoint.
type ThingParkConfig struct {
	Endpoint string   `json:"endpoint"`
	Timeout  Duration `json:"timeout"`
}

// MelitaConfig describes the melita.io IoT gateway queue broker.
type MelitaConfig struct {
	Endpoint  string   `json:"endpoint"`
	APIKey    string   `json:"api_key"`
	FPort     int      `json:"fport"`
	Confirmed bool     `json:"confirmed"`
	Timeout   Duration `json:"timeout"`
}

// LNSConfig describes the LNS downlink API used by the valve checker.
type LNSConfig struct {
	Endpoint string   `json:"endpoint"`
	APIKey   string   `json:"api_key"`
	Timeout  Duration `json:"timeout"`
}

// PostgresConfig describes the reporting database connection.
type PostgresConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Database string `json:"database"`
	Username string `json:"username"`
	Password string `json:"password"`
	SSLMode  string `json:"ssl_mode"`
}
