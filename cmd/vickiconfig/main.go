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

// Command vickiconfig pushes a temperature range and operational mode to
// a single vicki thermostat through the melita.io IoT gateway.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/heatmanager/heatsync/pkg/config"
	"github.com/heatmanager/heatsync/pkg/downlink/melita"
	"github.com/heatmanager/heatsync/pkg/logger"
	"github.com/heatmanager/heatsync/pkg/models"
)

type appConfig struct {
	Melita  models.MelitaConfig `json:"melita"`
	Logging logger.Config       `json:"logging"`
}

func main() {
	configPath := flag.String("config", "/etc/heatsync/vickiconfig.json", "Path to config file")
	minTemp := flag.Int("min", 16, "Minimum temperature in whole degrees")
	maxTemp := flag.Int("max", 28, "Maximum temperature in whole degrees")
	mode := flag.Int("mode", 0, "Operational mode")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <deveui>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(2)
	}

	devEUI := flag.Arg(0)
	ctx := context.Background()

	var cfg appConfig

	if err := config.NewConfig().LoadAndValidate(ctx, *configPath, &cfg); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zlog, err := logger.New(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	client, err := melita.NewClient(&cfg.Melita, zlog)
	if err != nil {
		log.Fatalf("Failed to create gateway client: %v", err)
	}

	if err := client.SendSetpoints(ctx, devEUI, *minTemp, *maxTemp, *mode); err != nil {
		zlog.Error().Err(err).Str("deveui", devEUI).Msg("Configuration downlink failed")
		os.Exit(1)
	}

	zlog.Info().
		Str("deveui", devEUI).
		Int("min", *minTemp).
		Int("max", *maxTemp).
		Msg("Configuration queued")
}
