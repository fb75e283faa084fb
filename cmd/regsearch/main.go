// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/poiesic/regsearch"
	"github.com/poiesic/regsearch/config"
	"github.com/poiesic/regsearch/core"
	"github.com/poiesic/regsearch/httpapi"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "regsearch",
		Usage: "Resilient multi-source business registry search",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML configuration file",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP search API",
				Action: serveCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "listen",
						Usage: "Listen address, overrides the configured one",
					},
				},
			},
			{
				Name:      "search",
				Usage:     "Run one search and print the ranked results",
				Action:    searchCommand,
				ArgsUsage: "<term>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "sources",
						Usage: "Comma-separated source names (default: all)",
					},
					&cli.StringFlag{
						Name:  "tier",
						Usage: "Caller tier (default, premium, enterprise)",
						Value: "default",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Print the full response as JSON",
					},
				},
			},
			{
				Name:      "seed",
				Usage:     "Load registry records from a JSON file into the local store",
				Action:    seedCommand,
				ArgsUsage: "<records.json>",
			},
			{
				Name:   "stats",
				Usage:  "Print service statistics",
				Action: statsCommand,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	path := c.String("config")
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func buildService(c *cli.Context) (*regsearch.Service, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	return regsearch.NewService(cfg)
}

func serveCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if listen := c.String("listen"); listen != "" {
		cfg.HTTP.Listen = listen
	}

	svc, err := regsearch.NewService(cfg)
	if err != nil {
		return fmt.Errorf("failed to build service: %w", err)
	}
	defer svc.Close()

	server := httpapi.NewServer(cfg.HTTP.Listen, svc, slog.Default())

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		slog.Info("shutting down", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(ctx)
	}
}

func searchCommand(c *cli.Context) error {
	term := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if term == "" {
		return fmt.Errorf("search term is required")
	}

	tier, err := core.ParseTier(c.String("tier"))
	if err != nil {
		return err
	}

	var sources []string
	if raw := c.String("sources"); raw != "" {
		sources = strings.Split(raw, ",")
	}

	svc, err := buildService(c)
	if err != nil {
		return fmt.Errorf("failed to build service: %w", err)
	}
	defer svc.Close()

	resp, err := svc.Search(context.Background(), term, sources, tier)
	if err != nil {
		return err
	}

	if c.Bool("json") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	for i, record := range resp.Results {
		fmt.Printf("%2d. [%.2f] %s  %s (%s, %s)\n",
			i+1, record.Score, record.BusinessKey, record.Name, record.Source, record.Status)
	}
	for _, srcErr := range resp.Errors {
		fmt.Printf("source %s failed: %s\n", srcErr.Source, srcErr.Message)
	}
	fmt.Printf("%d results", len(resp.Results))
	if resp.FromCache {
		fmt.Print(" (cached)")
	}
	fmt.Println()
	return nil
}

func seedCommand(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return fmt.Errorf("records file is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	var records []*core.RegistryRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}

	svc, err := buildService(c)
	if err != nil {
		return fmt.Errorf("failed to build service: %w", err)
	}
	defer svc.Close()

	if err := svc.Seed(context.Background(), records...); err != nil {
		return err
	}

	count, err := svc.Records().Count(context.Background())
	if err != nil {
		return err
	}
	slog.Info("seeded records", "loaded", len(records), "total", count)
	return nil
}

func statsCommand(c *cli.Context) error {
	svc, err := buildService(c)
	if err != nil {
		return fmt.Errorf("failed to build service: %w", err)
	}
	defer svc.Close()

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(svc.Stats())
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	// Map string to slog.Level
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	// Configure slog with the specified level
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
