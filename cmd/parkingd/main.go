package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"parking-facility/config"
	"parking-facility/internal/facility"
	"parking-facility/internal/logging"
	"parking-facility/internal/server"
)

var (
	mode       = flag.String("mode", "cli", "Mode to run: cli, server, or both")
	configPath = flag.String("config", "config.yaml", "Path to the configuration file")
	dev        = flag.Bool("dev", false, "Human-readable console logging")
)

func main() {
	flag.Parse()

	logging.Init(*dev)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetryProvider, err := facility.NewTelemetryProvider()
	if err != nil {
		log.Fatalf("Failed to initialize telemetry: %v", err)
	}

	store := facility.NewStore(cfg.Storage.DataFile)
	registry := facility.NewRegistry(store, logging.Logger())
	if err := registry.LoadState(); err != nil {
		log.Fatalf("Failed to load facility state: %v", err)
	}

	instrumented, err := facility.NewInstrumentedRegistry(registry, telemetryProvider)
	if err != nil {
		log.Fatalf("Failed to instrument registry: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	switch *mode {
	case "cli":
		runCLI(ctx, cancel, instrumented, telemetryProvider, sigChan)
	case "server":
		runServer(ctx, cancel, cfg, instrumented, telemetryProvider, sigChan)
	case "both":
		runBoth(ctx, cancel, cfg, instrumented, telemetryProvider, sigChan)
	default:
		log.Fatalf("Invalid mode: %s. Must be cli, server, or both", *mode)
	}
}

func runCLI(ctx context.Context, cancel context.CancelFunc, registry *facility.InstrumentedRegistry, telemetryProvider *facility.TelemetryProvider, sigChan chan os.Signal) {
	go func() {
		<-sigChan
		log.Println("Shutting down...")
		cancel()
	}()

	shell := facility.NewShell(registry, telemetryProvider)
	shell.Run(ctx)

	shutdownTelemetry(telemetryProvider)
}

func runServer(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, registry *facility.InstrumentedRegistry, telemetryProvider *facility.TelemetryProvider, sigChan chan os.Signal) {
	srv := server.NewServer(cfg.Server, registry)

	go func() {
		<-sigChan
		log.Println("Received shutdown signal...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}

		cancel()
	}()

	log.Printf("Starting server mode on port %d", cfg.Server.Port)
	if err := srv.Start(); err != nil && err != context.Canceled {
		log.Printf("Server error: %v", err)
	}

	shutdownTelemetry(telemetryProvider)
}

func runBoth(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, registry *facility.InstrumentedRegistry, telemetryProvider *facility.TelemetryProvider, sigChan chan os.Signal) {
	srv := server.NewServer(cfg.Server, registry)

	serverDone := make(chan error, 1)
	go func() {
		log.Printf("Starting HTTP server on port %d", cfg.Server.Port)
		serverDone <- srv.Start()
	}()

	cliDone := make(chan bool, 1)
	go func() {
		shell := facility.NewShell(registry, telemetryProvider)
		shell.Run(ctx)
		cliDone <- true
	}()

	go func() {
		<-sigChan
		log.Println("Received shutdown signal...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}

		cancel()
	}()

	select {
	case err := <-serverDone:
		if err != nil && err != context.Canceled {
			log.Printf("Server error: %v", err)
		}
	case <-cliDone:
		log.Println("CLI exited")
	case <-ctx.Done():
		log.Println("Context cancelled")
	}

	shutdownTelemetry(telemetryProvider)
}

func shutdownTelemetry(telemetryProvider *facility.TelemetryProvider) {
	log.Println("Shutting down telemetry...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := telemetryProvider.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error shutting down telemetry: %v", err)
	}
}
