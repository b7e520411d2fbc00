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

// Command valvecheck finds radiator valves whose position report has
// gone stale and nudges each one with a wake-up downlink so it reports
// again on its next uplink window.
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/heatmanager/heatsync/pkg/config"
	"github.com/heatmanager/heatsync/pkg/downlink/lns"
	"github.com/heatmanager/heatsync/pkg/logger"
	"github.com/heatmanager/heatsync/pkg/valvecheck"
)

func main() {
	configPath := flag.String("config", "/etc/heatsync/valvecheck.json", "Path to config file")
	dryRun := flag.Bool("dry-run", false, "Log downlinks without sending them")
	flag.Parse()

	ctx := context.Background()
	cfgLoader := config.NewConfig()

	var cfg valvecheck.Config

	if err := cfgLoader.LoadAndValidate(ctx, *configPath, &cfg); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zlog, err := logger.New(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	store, err := valvecheck.NewStore(ctx, &cfg.Postgres, zlog)
	if err != nil {
		log.Fatalf("Failed to connect to reporting database: %v", err)
	}
	defer store.Close()

	var sender valvecheck.Downlink
	if *dryRun {
		sender = valvecheck.NewDryRunSender(zlog)
	} else {
		sender, err = lns.NewSender(&cfg.LNS, zlog)
		if err != nil {
			log.Fatalf("Failed to create downlink sender: %v", err)
		}
	}

	checker := valvecheck.NewChecker(store, sender, &cfg, zlog)

	stats, err := checker.Run(ctx)
	if err != nil {
		zlog.Error().Err(err).Msg("Valve check failed")
		os.Exit(1)
	}

	zlog.Info().
		Int("found", stats.Found).
		Int("sent", stats.Sent).
		Int("skipped_no_id", stats.SkippedNoID).
		Int("errors", stats.Errors).
		Msg("Valve check complete")
}
