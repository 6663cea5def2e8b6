// cmd/powermeter/main.go
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/InfinityNT/power-meter-monitor-nologin/internal/api"
	"github.com/InfinityNT/power-meter-monitor-nologin/internal/config"
	"github.com/InfinityNT/power-meter-monitor-nologin/internal/history"
	"github.com/InfinityNT/power-meter-monitor-nologin/internal/meter"
	metermodbus "github.com/InfinityNT/power-meter-monitor-nologin/internal/meter/modbus"
	"github.com/InfinityNT/power-meter-monitor-nologin/internal/poller"
	"github.com/InfinityNT/power-meter-monitor-nologin/internal/status"
)

const simulatorAddr = "127.0.0.1:1502"

func main() {
	if len(os.Args) < 3 {
		log.Fatal("usage: powermeter <start|test|status> <config.yaml>")
	}

	command := os.Args[1]
	cfgPath := os.Args[2]

	// --------------------
	// Load + validate config
	// --------------------

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	if err := config.Validate(cfg); err != nil {
		log.Fatalf("config validation failed: %v", err)
	}

	config.Normalize(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch command {
	case "status":
		printConfig(cfg)

	case "test":
		// In-process simulated meter; the rest of the pipeline is the
		// production path pointed at it.
		sim := meter.NewSimulator(simulatorAddr)
		if err := sim.Start(); err != nil {
			log.Fatalf("simulator start failed: %v", err)
		}
		go sim.Run(ctx)
		log.Printf("simulated meter listening on %s", simulatorAddr)

		cfg.PowerMeter.Source.Mode = "tcp"
		cfg.PowerMeter.Source.Endpoint = simulatorAddr

		run(ctx, cfg)

	case "start":
		run(ctx, cfg)

	default:
		log.Fatalf("unknown command %q (want start, test or status)", command)
	}
}

func printConfig(cfg *config.Config) {
	out, err := yaml.Marshal(cfg)
	if err != nil {
		log.Fatalf("config marshal failed: %v", err)
	}
	fmt.Print(string(out))
}

func run(ctx context.Context, cfg *config.Config) {
	pm := cfg.PowerMeter

	// ---- transport ----
	transport, err := metermodbus.New(pm.Source, pm.Serial)
	if err != nil {
		log.Fatalf("transport build failed: %v", err)
	}
	defer transport.Close()

	// ---- reader ----
	reader := meter.NewReader(transport, meter.Options{
		DefaultScalar:   pm.Scaling.DefaultScalar,
		OverrideScaling: pm.Scaling.Override,
		OverrideFactors: pm.Scaling.Factors,
	})

	if err := reader.TestConnection(); err != nil {
		log.Printf("meter connection check failed (continuing, poller will retry): %v", err)
	} else {
		log.Printf("meter connection verified (mode=%s)", pm.Source.Mode)
	}

	// ---- poller ----
	p, err := poller.New(poller.Config{
		Interval: time.Duration(pm.Poll.IntervalMs) * time.Millisecond,
		Detailed: pm.Poll.Detailed,
	}, reader)
	if err != nil {
		log.Fatalf("poller build failed: %v", err)
	}

	// ---- history (optional) ----
	var store *history.Store
	if pm.History.Enabled {
		store, err = history.Open(pm.History.Path)
		if err != nil {
			log.Fatalf("history open failed: %v", err)
		}
		defer store.Close()
	}

	// ---- shared state + API ----
	latest := &meter.Latest{}
	tracker := status.NewTracker()
	metrics := api.NewMetrics()

	srv := api.NewServer(latest, transport, tracker, store, metrics, pm.Source.DeviceAddress)

	apiAddr := fmt.Sprintf(":%d", pm.HTTP.APIPort)
	webAddr := fmt.Sprintf(":%d", pm.HTTP.WebPort)

	go func() {
		log.Printf("api listening on %s", apiAddr)
		if err := api.Serve(ctx, apiAddr, srv.Handler()); err != nil {
			log.Fatalf("api server failed: %v", err)
		}
	}()
	go func() {
		log.Printf("web listening on %s (dir=%s)", webAddr, pm.HTTP.WebDir)
		if err := api.Serve(ctx, webAddr, api.WebHandler(pm.HTTP.WebDir)); err != nil {
			log.Fatalf("web server failed: %v", err)
		}
	}()

	// ---- channel between poller and orchestrator ----
	out := make(chan poller.PollResult)
	go p.Run(ctx, out)

	// Orchestrator (runner-owned state + 1Hz seconds ticker)
	secTicker := time.NewTicker(time.Second)
	defer secTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Print("shutting down")
			return

		case res := <-out:
			metrics.ObservePoll(res)
			tracker.Observe(res.Err)
			metrics.SetHealth(tracker.Snapshot().Health)

			if res.Err != nil {
				log.Printf("poll failed: %v", res.Err)
				continue
			}

			latest.Set(res.Reading)
			if store != nil {
				if err := store.Append(res.Reading); err != nil {
					log.Printf("history append failed: %v", err)
				}
			}

		case <-secTicker.C:
			tracker.Tick()
			metrics.SetHealth(tracker.Snapshot().Health)
		}
	}
}
