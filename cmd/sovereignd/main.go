// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-sovereign.
//
// go-sovereign is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// sovereignd is the self-sovereign identity engine daemon.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-sovereign/internal/config"
	"github.com/jeremyhahn/go-sovereign/internal/server"
	"github.com/jeremyhahn/go-sovereign/pkg/adapters/logger"
)

// Version information (set during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "sovereignd",
	Short: "Self-sovereign identity engine",
	Long: `sovereignd runs the self-sovereign identity engine: WebAuthn
enrollment and authentication ceremonies, pairwise identifier
derivation, selective disclosure, and TTL-based revocation over a
single REST API.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the identity engine server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("sovereignd\n")
		fmt.Printf("  Version:    %s\n", version)
		fmt.Printf("  Git Commit: %s\n", commit)
		fmt.Printf("  Built:      %s\n", date)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"config file (default is environment-only configuration)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

func serve() error {
	if envConfig := os.Getenv("SOVEREIGN_CONFIG"); envConfig != "" && configPath == "" {
		configPath = envConfig
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	srv, err := server.New(cfg, version)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	log := srv.Logger()
	log.Info("Starting identity engine",
		logger.String("version", version),
		logger.String("host", cfg.Server.Host),
		logger.Int("port", cfg.Server.Port))

	errChan := make(chan error, 1)
	go func() {
		if err := srv.REST().Start(); err != nil {
			errChan <- err
		}
	}()

	shutdownCtx := setupSignalHandler(log)

	select {
	case <-shutdownCtx.Done():
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error", logger.Error(err))
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.REST().Stop(stopCtx); err != nil {
		log.Error("Error during server shutdown", logger.Error(err))
	}
	if err := srv.Shutdown(); err != nil {
		return fmt.Errorf("error during shutdown: %w", err)
	}

	log.Info("Identity engine stopped")
	return nil
}

// setupSignalHandler cancels the returned context on SIGINT or SIGTERM.
func setupSignalHandler(log logger.Logger) context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-signalCh
		log.Info("Received shutdown signal")
		cancel()
	}()

	return ctx
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
