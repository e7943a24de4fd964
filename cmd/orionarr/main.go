// Copyright (c) 2025, the orionarr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/orionarr/orionarr/internal/api"
	"github.com/orionarr/orionarr/internal/buildinfo"
	"github.com/orionarr/orionarr/internal/config"
	"github.com/orionarr/orionarr/internal/domain"
	"github.com/orionarr/orionarr/internal/health"
	"github.com/orionarr/orionarr/internal/indexer"
	"github.com/orionarr/orionarr/internal/orionoid"
)

func main() {
	config.InitDefaultLogger(buildinfo.Version)

	var rootCmd = &cobra.Command{
		Use:   "orionarr",
		Short: "Torznab indexer bridge for the Orionoid API",
		Long: `orionarr - a Torznab/Newznab compatible indexer that answers
Prowlarr, Sonarr and Radarr searches from the Orionoid stream catalogue.`,
	}

	rootCmd.Version = buildinfo.Version

	rootCmd.AddCommand(RunServeCommand())
	rootCmd.AddCommand(RunVersionCommand(buildinfo.Version))
	rootCmd.AddCommand(RunGenerateConfigCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func RunServeCommand() *cobra.Command {
	var (
		configDir string
		logPath   string
	)

	var command = &cobra.Command{
		Use:   "serve",
		Short: "Start the Torznab server",
	}

	command.Flags().StringVar(&configDir, "config-dir", "", "config directory path (default is OS-specific: ~/.config/orionarr/ or %APPDATA%\\orionarr\\). Can also be a direct path to a .toml file")
	command.Flags().StringVar(&logPath, "log-path", "", "log file path (default is stdout)")

	command.Run = func(cmd *cobra.Command, args []string) {
		runServer(configDir, logPath)
	}

	return command
}

func RunVersionCommand(version string) *cobra.Command {
	var command = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of orionarr",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	}

	return command
}

func RunGenerateConfigCommand() *cobra.Command {
	var configDir string

	command := &cobra.Command{
		Use:   "generate-config",
		Short: "Generate a default configuration file",
		Long: `Generate a default configuration file without starting the server.

If no --config-dir is specified, uses the OS-specific default location:
- Linux/macOS: ~/.config/orionarr/config.toml
- Windows: %APPDATA%\orionarr\config.toml

You can specify either a directory path or a direct file path:
- Directory: orionarr generate-config --config-dir /path/to/config/
- File: orionarr generate-config --config-dir /path/to/myconfig.toml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var configPath string
			if configDir != "" {
				if strings.HasSuffix(strings.ToLower(configDir), ".toml") {
					configPath = configDir
				} else if info, err := os.Stat(configDir); err == nil && !info.IsDir() {
					configPath = configDir
				} else {
					configPath = filepath.Join(configDir, "config.toml")
				}
			} else {
				configPath = filepath.Join(config.GetDefaultConfigDir(), "config.toml")
			}

			if _, err := os.Stat(configPath); err == nil {
				cmd.Printf("Configuration file already exists at: %s\n", configPath)
				cmd.Println("Skipping generation to avoid overwriting existing configuration.")
				return nil
			}

			if err := config.WriteDefaultConfig(configPath); err != nil {
				return fmt.Errorf("failed to create configuration file: %w", err)
			}

			cmd.Printf("Configuration file created successfully at: %s\n", configPath)
			return nil
		},
	}

	command.Flags().StringVar(&configDir, "config-dir", "",
		"config directory or file path (defaults to OS-specific location)")

	return command
}

func runServer(configDir, logPath string) {
	cfg, err := config.New(configDir, buildinfo.Version)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize configuration")
	}

	if logPath != "" {
		os.Setenv("ORIONARR__LOG_PATH", logPath)
		cfg.Config.LogPath = logPath
	}

	cfg.ApplyLogConfig()

	log.Info().Str("version", buildinfo.Version).Msg("Starting orionarr")

	if cfg.Config.OrionoidUserKey == "" {
		log.Warn().Msg("No Orionoid user key configured - upstream searches will be rejected until orionoidUserKey is set")
	}

	client := orionoid.NewClient(orionoid.Config{
		AppKey:         cfg.Config.OrionoidAppKey,
		UserKey:        cfg.Config.OrionoidUserKey,
		UserAgent:      buildinfo.UserAgent,
		TimeoutSeconds: cfg.Config.UpstreamTimeout,
	})

	// The config watcher picks up log settings and limits; credential
	// edits need a process restart to reach the upstream client.
	appKey, userKey := cfg.Config.OrionoidAppKey, cfg.Config.OrionoidUserKey
	cfg.RegisterReloadListener(func(conf *domain.Config) {
		if conf.OrionoidAppKey != appKey || conf.OrionoidUserKey != userKey {
			log.Warn().Msg("Orionoid credentials changed in config - restart to apply")
		}
	})

	translator := indexer.NewTranslator(client)
	reporter := health.NewReporter(client, cfg.Config.HealthCacheTTL)

	httpServer := api.NewServer(&api.Dependencies{
		Config:     cfg,
		Version:    buildinfo.Version,
		Translator: translator,
		Reporter:   reporter,
	})

	errorChannel := make(chan error)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errorChannel <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Msgf("got signal %v, shutting down server", sig.String())
	case err := <-errorChannel:
		log.Error().Err(err).Msg("got unexpected error from server")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("got error during graceful http shutdown")
		os.Exit(1)
	}

	os.Exit(0)
}
