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

// Command tempsync pushes asset temperature setpoints down to the
// LoRaWAN radiator valves related to them. It reads the desired range
// from each customer asset, compares it with what the device reported,
// and sends set or query downlinks only where they differ.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/heatmanager/heatsync/pkg/config"
	"github.com/heatmanager/heatsync/pkg/downlink/thingpark"
	"github.com/heatmanager/heatsync/pkg/logger"
	"github.com/heatmanager/heatsync/pkg/registry/thingsboard"
	"github.com/heatmanager/heatsync/pkg/tempsync"
)

func main() {
	configPath := flag.String("config", "/etc/heatsync/tempsync.json", "Path to config file")
	dryRun := flag.Bool("dry-run", false, "Log downlinks without sending them")
	fPort := flag.Int("fport", tempsync.DefaultFPort, "LoRaWAN FPort for downlinks")
	limit := flag.Int("limit", 0, "Stop after this many devices (0 = no limit)")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <customer-id>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(2)
	}

	customerID := flag.Arg(0)
	ctx := context.Background()
	cfgLoader := config.NewConfig()

	var cfg tempsync.Config

	if err := cfgLoader.LoadAndValidate(ctx, *configPath, &cfg); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zlog, err := logger.New(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	registry, err := thingsboard.NewClient(&cfg.Registry, zlog)
	if err != nil {
		log.Fatalf("Failed to create registry client: %v", err)
	}

	if err := registry.Login(ctx); err != nil {
		log.Fatalf("Registry login failed: %v", err)
	}

	var sender tempsync.Downlink
	if *dryRun {
		sender = tempsync.NewDryRunSender(zlog)
	} else {
		sender, err = thingpark.NewSender(&cfg.ThingPark, zlog)
		if err != nil {
			log.Fatalf("Failed to create downlink sender: %v", err)
		}
	}

	report, err := tempsync.NewReport(cfg.OutputDir, customerID, time.Now())
	if err != nil {
		zlog.Warn().Err(err).Msg("Report file unavailable, writing to stdout only")
	}
	defer report.Close()

	report.Preamble(customerID, cfg.Registry.Endpoint, cfg.ThingPark.Endpoint, *fPort, *limit, *dryRun, time.Now())

	runner := tempsync.NewRunner(registry, sender, report, zlog, *fPort, *limit, *dryRun)

	if _, err := runner.Run(ctx, customerID); err != nil {
		zlog.Error().Err(err).Msg("Temperature sync failed")
		os.Exit(1)
	}
}
